package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/instrument-daq/frame-pipeline/internal/broker"
	"github.com/instrument-daq/frame-pipeline/internal/config"
	"github.com/instrument-daq/frame-pipeline/internal/logger"
	"github.com/instrument-daq/frame-pipeline/internal/nexus"
	"github.com/instrument-daq/frame-pipeline/internal/runengine"
	"github.com/instrument-daq/frame-pipeline/internal/runregistry"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "nexus-writer",
		Short: "Composes per-run NeXus HDF5 files from the aggregated frame and log streams",
		RunE:  run,
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to writer config YAML")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWriterConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init("nexus-writer", cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	registry, err := runregistry.Open(cfg.RunRegistryDSN)
	if err != nil {
		return fmt.Errorf("open run registry: %w", err)
	}
	defer registry.Close()

	if open, err := registry.FindOpenRuns(); err != nil {
		logger.Warn("could not check for runs left open by a previous crash", "error", err)
	} else {
		for _, r := range open {
			logger.Warn("run left open by a previous process, file was not closed cleanly",
				"run_number", r.RunNumber, "run_name", r.RunName, "file_path", r.FilePath)
		}
	}

	engine := &runengine.Engine{
		Registry:     registry,
		FilePathRoot: cfg.FilePathRoot,
		FlushDelay:   cfg.FlushDelay(),
		Chunks: nexus.ChunkSizes{
			EventList: cfg.ChunkSizes.EventList,
			FrameList: cfg.ChunkSizes.FrameList,
			RunLog:    cfg.ChunkSizes.RunLog,
			SELog:     cfg.ChunkSizes.SELog,
			AlarmLog:  cfg.ChunkSizes.AlarmLog,
		},
		Log: logger.Log,
	}

	runControl := broker.NewKafkaConsumer(cfg.Brokers, cfg.RunControlTop, cfg.GroupID)
	frames := broker.NewKafkaConsumer(cfg.Brokers, cfg.FrameTopic, cfg.GroupID)
	runlog := broker.NewKafkaConsumer(cfg.Brokers, cfg.RunLogTopic, cfg.GroupID)
	selog := broker.NewKafkaConsumer(cfg.Brokers, cfg.SELogTopic, cfg.GroupID)
	alarms := broker.NewKafkaConsumer(cfg.Brokers, cfg.AlarmTopic, cfg.GroupID)
	defer runControl.Close()
	defer frames.Close()
	defer runlog.Close()
	defer selog.Close()
	defer alarms.Close()

	loop := &runengine.Loop{
		Engine:     engine,
		RunControl: runControl,
		Frames:     frames,
		RunLog:     runlog,
		SELog:      selog,
		Alarms:     alarms,
		Log:        logger.Log,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("nexus writer starting", "file_path_root", cfg.FilePathRoot, "flush_delay", cfg.FlushDelay())

	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("writer loop: %w", err)
	}
	logger.Info("nexus writer shut down")
	return nil
}
