// Package main is the entry point for the point cloud viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/pcloud/internal/config"
	"github.com/Faultbox/pcloud/internal/logger"
	"github.com/Faultbox/pcloud/internal/viewer"
)

func main() {
	config.ParseFlags()

	if len(config.Args()) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pcview [flags] <file.xyz|file.pcb|file.las>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== pcview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	v, err := viewer.New(cfg)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer v.Close()

	// A failed load leaves an empty cloud; keep the window open anyway.
	if err := v.Open(config.Args()[0]); err != nil {
		logger.Error("failed to load point cloud", zap.Error(err))
	}

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}
