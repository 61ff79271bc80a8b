package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/instrument-daq/frame-pipeline/internal/aggregator"
	"github.com/instrument-daq/frame-pipeline/internal/broker"
	"github.com/instrument-daq/frame-pipeline/internal/config"
	"github.com/instrument-daq/frame-pipeline/internal/frame"
	"github.com/instrument-daq/frame-pipeline/internal/logger"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "frame-aggregator",
		Short: "Joins per-digitiser event lists into aggregated frames",
		RunE:  run,
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to aggregator config YAML")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAggregatorConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init("frame-aggregator", cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	cache := frame.New(cfg.DigitiserIDs, cfg.FrameTTL(), logger.Log)
	consumer := broker.NewKafkaConsumer(cfg.Brokers, cfg.InputTopic, cfg.GroupID)
	producer := broker.NewKafkaProducer(cfg.Brokers, cfg.OutputTopic)
	defer consumer.Close()
	defer producer.Close()

	loop := &aggregator.Loop{
		Cache:       cache,
		Consumer:    consumer,
		Producer:    producer,
		OutputTopic: cfg.OutputTopic,
		PollEvery:   cfg.CachePoll(),
		Log:         logger.Log,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("frame aggregator starting",
		"input_topic", cfg.InputTopic, "output_topic", cfg.OutputTopic, "digitisers", cfg.DigitiserIDs)

	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("aggregator loop: %w", err)
	}
	logger.Info("frame aggregator shut down")
	return nil
}
