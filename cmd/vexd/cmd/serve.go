// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/uzqw/vex/internal/config"
	"github.com/uzqw/vex/internal/server"
	"github.com/uzqw/vex/internal/store"
	"github.com/uzqw/vex/pkg/logger"
)

func newServeCmd() *cobra.Command {
	var (
		addrOverride string
		dimOverride  int
		snapshot     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the vexd RESP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if addrOverride != "" {
				host, port, err := splitHostPort(addrOverride)
				if err != nil {
					return err
				}
				cfg.Server.Host, cfg.Server.Port = host, port
			}
			if dimOverride > 0 {
				cfg.Store.Dimension = dimOverride
			}
			if snapshot != "" {
				cfg.Store.SnapshotPath = snapshot
			}

			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addrOverride, "addr", "", "Override host:port (defaults to VEX_HOST/VEX_PORT)")
	cmd.Flags().IntVar(&dimOverride, "dim", 0, "Override vector dimension (defaults to VEX_DIMENSION)")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Override snapshot path (defaults to VEX_SNAPSHOT_PATH)")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	format := logger.FormatText
	if strings.ToLower(cfg.Server.LogFormat) == "json" {
		format = logger.FormatJSON
	}
	log := logger.New(logger.Config{Format: format, Level: level})

	s, err := store.New(cfg.Store.Dimension)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}

	if cfg.Store.SnapshotPath != "" {
		if err := s.LoadFromFile(ctx, cfg.Store.SnapshotPath); err != nil {
			log.Warn("no existing snapshot loaded", slog.String("error", err.Error()))
		} else {
			log.Info("loaded snapshot", slog.String("path", cfg.Store.SnapshotPath), slog.Int("count", s.Count()))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", slog.String("signal", sig.String()))
		if cfg.Store.SnapshotPath != "" {
			if err := s.SaveToFile(context.Background(), cfg.Store.SnapshotPath); err != nil {
				log.Error("failed to save snapshot on shutdown", slog.String("error", err.Error()))
			}
		}
		cancel()
	}()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting vexd server", slog.String("addr", addr), slog.Int("dim", cfg.Store.Dimension))

	srv := server.New(s, log)
	return srv.ListenAndServe(runCtx, addr)
}

func splitHostPort(addr string) (host, port string, err error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("invalid addr %q, expected host:port", addr)
	}
	return addr[:idx], addr[idx+1:], nil
}
