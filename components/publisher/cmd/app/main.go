// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/LerianStudio/dispatcher/components/publisher/internal/bootstrap"
	"github.com/LerianStudio/dispatcher/pkg"
)

func main() {
	useRabbitMQ := flag.Bool("rabbitmq", false, "publish to the RabbitMQ transport instead of the local snapshot")
	flag.Parse()

	cfg := bootstrap.LoadConfig()

	logger, err := pkg.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	app, err := bootstrap.InitPublisher(cfg, *useRabbitMQ, logger)
	if err != nil {
		logger.Errorf("Failed to initialize publisher: %v", err)
		os.Exit(1)
	}

	if err := app.Run(context.Background()); err != nil {
		logger.Errorf("Publisher run failed: %v", err)
		os.Exit(1)
	}
}
