package config

import (
	"fmt"
	"time"
)

type Postgres struct {
	Host     string `env:"POSTGRES_HOST,required"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER,required"`
	Password string `env:"POSTGRES_PASSWORD,required"`
	DB       string `env:"POSTGRES_DB,required"`
	SSLMode  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	// ApplicationName shows up in pg_stat_activity, which helps tell the
	// relay's connections apart from the API's.
	ApplicationName string `env:"POSTGRES_APPLICATION_NAME" envDefault:"stock-cart"`

	MaxConns        int32         `env:"POSTGRES_MAX_CONNS" envDefault:"20"`
	MinConns        int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" envDefault:"15m"`
}

func (p *Postgres) Validate() error {
	if p.MaxConns <= 0 {
		return fmt.Errorf("max conns must be positive, got %d", p.MaxConns)
	}
	if p.MinConns < 0 || p.MinConns > p.MaxConns {
		return fmt.Errorf("min conns %d must be within [0, %d]", p.MinConns, p.MaxConns)
	}
	return nil
}
