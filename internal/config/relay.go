package config

import (
	"errors"
	"time"
)

type Relay struct {
	BatchSize   uint32        `env:"RELAY_BATCH_SIZE" envDefault:"100"`
	Interval    time.Duration `env:"RELAY_INTERVAL" envDefault:"1s"`
	Concurrency int           `env:"RELAY_CONCURRENCY" envDefault:"16"`
}

func (r *Relay) Validate() error {
	switch {
	case r.BatchSize == 0:
		return errors.New("batch size must be positive")
	case r.Interval <= 0:
		return errors.New("interval must be positive")
	case r.Concurrency <= 0:
		return errors.New("concurrency must be positive")
	}
	return nil
}
