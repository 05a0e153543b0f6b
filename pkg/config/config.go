// Package config loads per-package configuration structs from environment
// variables. It wraps github.com/caarlos0/env and github.com/joho/godotenv:
// the default .env file is read once per process, then each struct is parsed
// from the environment via its `env` field tags.
//
//	type ServerConfig struct {
//		Addr   string `env:"HTTP_ADDR" envDefault:":8080"`
//		Secret string `env:"AUTH_TOKEN_SECRET,required"`
//	}
//
//	var cfg ServerConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilPointer    = errors.New("config: nil pointer passed to Load")
	ErrParsingConfig = errors.New("config: failed to parse environment")
)

var dotenvOnce sync.Once

// Load populates cfg from the environment. The .env file in the working
// directory is applied first when present; real environment variables win
// over values it sets.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// Missing .env is fine; containers set real env vars.
		_ = godotenv.Load()
	})

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad is Load for wiring code where a bad environment is fatal.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}
