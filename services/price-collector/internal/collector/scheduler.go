package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	collect "github.com/paaavkata/trend-trader/services/price-collector/pkg/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// CycleStats summarizes one collection run.
type CycleStats struct {
	Targets  int
	Failed   int
	Stored   int
	Finished time.Time
}

type Scheduler struct {
	fetcher   *Fetcher
	processor *Processor
	targets   []collect.Target
	workers   int
	cron      *cron.Cron
	logger    *logrus.Logger

	mu       sync.RWMutex
	last     CycleStats
	lastGood time.Time
	running  atomic.Bool
}

func NewScheduler(fetcher *Fetcher, processor *Processor, targets []collect.Target, workers int, logger *logrus.Logger) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	cronScheduler := cron.New(cron.WithSeconds(), cron.WithChain(
		cron.Recover(cron.PrintfLogger(logger)),
		cron.SkipIfStillRunning(cron.PrintfLogger(logger)),
	))

	return &Scheduler{
		fetcher:   fetcher,
		processor: processor,
		targets:   targets,
		workers:   workers,
		cron:      cronScheduler,
		logger:    logger,
	}
}

func (s *Scheduler) Start(ctx context.Context, collectSpec, cleanupSpec string) error {
	s.logger.WithFields(logrus.Fields{
		"targets":  len(s.targets),
		"schedule": collectSpec,
		"cleanup":  cleanupSpec,
	}).Info("Starting candle collection scheduler")

	if _, err := s.cron.AddFunc(collectSpec, func() {
		s.CollectAll(ctx)
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(cleanupSpec, func() {
		s.cleanupData(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()

	// Backfill right away instead of waiting for the first tick.
	go s.CollectAll(ctx)

	s.logger.Info("Candle collection scheduler started successfully")
	return nil
}

// Stop halts the schedule and waits for a running collection.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping candle collection scheduler")
	<-s.cron.Stop().Done()
}

// CollectAll fetches and stores every target, a few at a time. One failing
// target does not stop the others. Overlapping calls are skipped.
func (s *Scheduler) CollectAll(ctx context.Context) CycleStats {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous collection still running, skipping")
		return CycleStats{}
	}
	defer s.running.Store(false)

	start := time.Now()
	var stored, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, t := range s.targets {
		t := t
		g.Go(func() error {
			n, err := s.collect(gctx, t)
			if err != nil {
				failed.Add(1)
				s.logger.WithError(err).WithField("target", t.String()).Error("Failed to collect candles")
				return nil
			}
			stored.Add(int64(n))
			return nil
		})
	}
	_ = g.Wait()

	stats := CycleStats{
		Targets:  len(s.targets),
		Failed:   int(failed.Load()),
		Stored:   int(stored.Load()),
		Finished: time.Now(),
	}
	s.mu.Lock()
	s.last = stats
	if stats.Failed < stats.Targets {
		s.lastGood = stats.Finished
	}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
		"targets":     stats.Targets,
		"failed":      stats.Failed,
		"stored":      stats.Stored,
	}).Info("Candle collection cycle completed")

	return stats
}

func (s *Scheduler) collect(ctx context.Context, t collect.Target) (int, error) {
	candles, err := s.fetcher.FetchClosed(ctx, t)
	if err != nil {
		return 0, err
	}
	return s.processor.ProcessCandles(ctx, t, candles)
}

// LastCycle returns the most recent run and when a run last stored anything
// successfully.
func (s *Scheduler) LastCycle() (CycleStats, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.lastGood
}

func (s *Scheduler) cleanupData(ctx context.Context) {
	s.logger.Info("Starting data cleanup cycle")

	if err := s.processor.CleanupOldData(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to cleanup old data")
		return
	}

	s.logger.Info("Data cleanup cycle completed successfully")
}
