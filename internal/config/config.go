// Package config содержит логику чтения конфигурации книжного магазина.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress         string        `env:"RUN_ADDRESS"`
	DatabaseURI        string        `env:"DATABASE_URI"`
	PoolSize           int           `env:"POOL_SIZE"`
	PoolAcquireTimeout time.Duration `env:"POOL_ACQUIRE_TIMEOUT"`
	AuthSecret         string        `env:"AUTH_SECRET"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных
// окружения. Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envPoolSize := cfg.PoolSize
	envAcquireTimeout := cfg.PoolAcquireTimeout
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.IntVar(&cfg.PoolSize, "p", 10, "database connection pool size")
	flag.DurationVar(&cfg.PoolAcquireTimeout, "t", 10*time.Second, "pool acquire timeout")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envPoolSize != 0 {
		cfg.PoolSize = envPoolSize
	}
	if envAcquireTimeout != 0 {
		cfg.PoolAcquireTimeout = envAcquireTimeout
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
