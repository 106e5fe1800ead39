// Command geopose assigns geographic position priors to a batch of drone
// survey photos by fusing EXIF geotags with the flight controller's logged
// trajectory, and writes the priors files consumed by the SfM stage.
//
// Usage:
//
//	geopose <flight_log.csv> <images_dir> [flags]
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/geopose/geopose/internal/config"
	"github.com/geopose/geopose/internal/exifgps"
	"github.com/geopose/geopose/internal/logging"
	"github.com/geopose/geopose/internal/pipeline"
	"github.com/geopose/geopose/internal/projector"
	"github.com/geopose/geopose/internal/storage"
)

func main() {
	outputDir := pflag.String("output-dir", ".", "directory for gps_data.json, reference.lla and fusion_summary.json")
	configDir := pflag.String("config-dir", ".", "directory containing geopose.cfg.json")
	logLevel := pflag.String("log-level", "", "override configured log level (debug, info, warn, error)")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <flight_log.csv> <images_dir> [flags]\n\nFlags:\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 2 {
		pflag.Usage()
		os.Exit(1)
	}
	csvPath := pflag.Arg(0)
	imagesDir := pflag.Arg(1)

	if err := run(csvPath, imagesDir, *outputDir, *configDir, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "geopose: %v\n", err)
		os.Exit(1)
	}
}

func run(csvPath, imagesDir, outputDir, configDir, logLevel string) error {
	if err := config.Load(configDir); err != nil {
		return err
	}

	level := config.GetString("logLevel")
	if logLevel != "" {
		level = logLevel
	}

	logManager := logging.NewSlogManager()
	var logWriter io.Writer
	if config.GetBool("fileLog") {
		logsDir := config.GetString("logsDir")
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		path := logging.LogFilePath(logsDir, time.Now().UTC())
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logWriter = f
		defer func() { _ = f.Close() }()
	}
	logManager.Setup(logWriter, level)
	logger := logManager.Logger()

	backends, err := storage.NewBackends(storage.Options{
		OutputDir:      outputDir,
		ArchiveEnabled: config.GetBool("storage.archive.enabled"),
		ArchivePath:    config.GetString("storage.archive.path"),
	}, logger)
	if err != nil {
		return err
	}
	for _, backend := range backends {
		if err := backend.Init(); err != nil {
			return err
		}
	}
	defer func() {
		for _, backend := range backends {
			if err := backend.Close(); err != nil {
				logger.Warn("Backend close failed", "error", err)
			}
		}
	}()

	projCfg := projector.Config{
		DecayScaleM:         config.GetFloat64("projector.decayScaleM"),
		ConfidenceThreshold: config.GetFloat64("projector.confidenceThreshold"),
		SegmentJumpWindow:   config.GetInt("projector.segmentJumpWindow"),
		SearchWindow:        config.GetInt("projector.searchWindow"),
		TieEpsilonM:         config.GetFloat64("projector.tieEpsilonM"),
		Workers:             config.GetInt("projector.workers"),
	}

	svc := pipeline.New(logger, exifgps.NewExtractor(logger), backends, projCfg)
	_, err = svc.Run(csvPath, imagesDir)
	return err
}
