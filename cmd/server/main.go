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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/uzqw/vex/internal/server"
	"github.com/uzqw/vex/internal/store"
	"github.com/uzqw/vex/pkg/logger"
)

const (
	defaultPort = "6379"
	defaultHost = "0.0.0.0"
	defaultDim  = 768
)

var (
	host      = flag.String("host", defaultHost, "Host to bind to")
	port      = flag.String("port", defaultPort, "Port to listen on")
	dim       = flag.Int("dim", defaultDim, "Vector dimension for this store")
	logFormat = flag.String("log-format", "text", "Log format: text or json")
	logLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	showVer   = flag.Bool("version", false, "Show version and exit")
	vstore    *store.Store
	log       *logger.Logger

	// Version is set at build time via ldflags
	Version = "dev"
)

func init() {
	flag.Parse()

	if *showVer {
		fmt.Printf("vexd server version %s\n", Version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	switch strings.ToLower(*logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	format := logger.FormatText
	if strings.ToLower(*logFormat) == "json" {
		format = logger.FormatJSON
	}

	log = logger.New(logger.Config{
		Format: format,
		Level:  level,
	})

	s, err := store.New(*dim)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create store: %v\n", err)
		os.Exit(1)
	}
	vstore = s
}

func main() {
	addr := fmt.Sprintf("%s:%s", *host, *port)
	log.Info("starting vexd server", slog.String("addr", addr), slog.Int("dim", *dim))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	srv := server.New(vstore, log)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		log.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
