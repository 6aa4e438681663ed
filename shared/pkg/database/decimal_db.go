package database

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Decimal is a NUMERIC column backed by shopspring/decimal.
type Decimal struct {
	decimal.Decimal
}

func NewDecimal(f float64) Decimal {
	return Decimal{decimal.NewFromFloat(f)}
}

func (d Decimal) Float() float64 {
	f, _ := d.Decimal.Float64()
	return f
}

// Value implements the driver.Valuer interface for database serialization.
func (d Decimal) Value() (driver.Value, error) {
	return d.Decimal.String(), nil
}

// Scan implements the sql.Scanner interface. NULL scans as zero.
func (d *Decimal) Scan(value interface{}) error {
	var (
		dec decimal.Decimal
		err error
	)
	switch v := value.(type) {
	case nil:
		dec = decimal.Zero
	case []byte:
		dec, err = decimal.NewFromString(string(v))
	case string:
		dec, err = decimal.NewFromString(v)
	case float64:
		dec = decimal.NewFromFloat(v)
	case int64:
		dec = decimal.NewFromInt(v)
	default:
		return fmt.Errorf("cannot scan %T into Decimal", value)
	}
	if err != nil {
		return fmt.Errorf("cannot scan decimal %v: %w", value, err)
	}
	d.Decimal = dec
	return nil
}
