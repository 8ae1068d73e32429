package config

import (
	"errors"
	"time"
)

type Cart struct {
	// FractionalMeasurableUnits allows hundredths for litre, kilogram and square-metre products
	// when a buyer sets a line quantity. Countable units always require whole quantities.
	FractionalMeasurableUnits bool          `env:"CART_FRACTIONAL_MEASURABLE_UNITS" envDefault:"true"`
	NotifyTimeout             time.Duration `env:"CART_NOTIFY_TIMEOUT" envDefault:"2s"`
}

func (c *Cart) Validate() error {
	if c.NotifyTimeout <= 0 {
		return errors.New("notify timeout must be positive")
	}
	return nil
}
