// Package engine parses engine command flags and starts the rules engine
// server.
package engine

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	rules "github.com/louisbranch/deepspire/internal/engine"
	"github.com/louisbranch/deepspire/internal/engine/storage/sqlite"
	entrypoint "github.com/louisbranch/deepspire/internal/platform/cmd"
	"github.com/louisbranch/deepspire/internal/platform/timeouts"
	"github.com/louisbranch/deepspire/internal/transport/ws"
)

// Config holds engine command configuration.
type Config struct {
	Port   int    `env:"DEEPSPIRE_ENGINE_PORT" envDefault:"8080"`
	Addr   string `env:"DEEPSPIRE_ENGINE_ADDR"`
	DBPath string `env:"DEEPSPIRE_ENGINE_DB"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The engine server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The engine server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path (empty runs in memory)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the rules engine HTTP service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEngine, func(ctx context.Context) error {
		var store rules.Store
		if cfg.DBPath != "" {
			sqliteStore, err := sqlite.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer sqliteStore.Close()
			store = sqliteStore
		} else {
			store = rules.NewMemoryStore()
		}

		eng, err := rules.New(rules.Config{Store: store})
		if err != nil {
			return err
		}
		server, err := ws.NewServer(ws.ServerConfig{Engine: eng})
		if err != nil {
			return err
		}

		addr := cfg.Addr
		if addr == "" {
			addr = fmt.Sprintf(":%d", cfg.Port)
		}
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		}

		errs := make(chan error, 1)
		go func() {
			errs <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errs:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		}
	})
}
