// Copyright 2026 Luis Neves
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
	"syscall"

	"go.opentelemetry.io/otel/log/global"

	"github.com/lcneves/wake/api/serde"
	"github.com/lcneves/wake/internal/config"
	"github.com/lcneves/wake/internal/logger"
	"github.com/lcneves/wake/internal/server"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("wake-server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	host := flag.String("host", cfg.NATS.Host, "NATS server host")
	port := flag.String("port", cfg.NATS.Port, "NATS server port")
	flag.Parse()

	if *host != cfg.NATS.Host || *port != cfg.NATS.Port {
		cfg.NATS.Host = *host
		cfg.NATS.Port = *port
		cfg.NATS.URL = fmt.Sprintf("nats://%s:%s", *host, *port)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lg, err := logger.NewLogger(ctx, &logger.LoggerOptions{
		Mode:     cfg.Mode,
		Service:  cfg.Service,
		Version:  cfg.Version,
		Exporter: cfg.Logger.OTELExporter,
		Writer:   os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	slog.SetDefault(lg.Slogger)
	if lg.LoggerProvider != nil {
		global.SetLoggerProvider(lg.LoggerProvider)
	}
	defer func() {
		if lg.LoggerProvider != nil {
			if err := lg.LoggerProvider.Shutdown(ctx); err != nil {
				slog.Error("failed to shut down logger provider", "error", err)
			}
		}
	}()

	slog.Info("starting wake-server",
		"service", cfg.Service,
		"version", cfg.Version,
		"mode", cfg.Mode,
		"nats_url", cfg.NATS.URL,
	)

	mgr, err := server.NewManager(ctx, cfg, &serde.MsgpackSerde{}, lg.Slogger)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- mgr.Run(ctx)
	}()

	select {
	case <-sigCh:
		slog.InfoContext(ctx, "shutdown signal received")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "manager error", "error", err)
			return err
		}
	}

	slog.InfoContext(ctx, "shutting down")
	cancel()
	return nil
}
