package db

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuanvumaihuynh/stock-cart/internal/config"
)

// NewPgxPool creates a new pgx pool with the given configuration.
func NewPgxPool(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	return NewPgxPoolFromURL(ctx, connectionString(cfg), func(pgConf *pgxpool.Config) {
		pgConf.MaxConns = cfg.MaxConns
		pgConf.MinConns = cfg.MinConns
		pgConf.MaxConnLifetime = cfg.MaxConnLifetime
		pgConf.MaxConnIdleTime = cfg.MaxConnIdleTime
	})
}

// NewPgxPoolFromURL creates a traced pgx pool from a connection URL and pings it.
func NewPgxPoolFromURL(ctx context.Context, connURL string, opts ...func(*pgxpool.Config)) (*pgxpool.Pool, error) {
	pgConf, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	pgConf.ConnConfig.Tracer = newTracer()
	for _, opt := range opts {
		opt(pgConf)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgConf)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := otelpgx.RecordStats(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("record database stats: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func connectionString(cfg config.Postgres) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   cfg.DB,
	}
	q := url.Values{"sslmode": []string{cfg.SSLMode}}
	if cfg.ApplicationName != "" {
		q.Set("application_name", cfg.ApplicationName)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
