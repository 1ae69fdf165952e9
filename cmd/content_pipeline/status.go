package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/content-pipeline/internal/history"
	"github.com/jonathan/content-pipeline/internal/observability"
	"github.com/jonathan/content-pipeline/internal/pipeline"
	"github.com/jonathan/content-pipeline/internal/publish"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show publish history statistics and past runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return showStatus(cmd.Context(), statusConfigPath, statusOutput, os.Stdout)
	},
}

var (
	statusConfigPath string
	statusOutput     string
)

func init() {
	statusCmd.Flags().StringVar(&statusConfigPath, "config", "", "Path to config.json file")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "", "Output root (overrides pipeline.output_root)")

	rootCmd.AddCommand(statusCmd)
}

func showStatus(ctx context.Context, configPath, outputRoot string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := bootstrap(configPath, outputRoot, false)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	store, closeStore, err := openHistory(ctx, rt)
	if err != nil {
		return fmt.Errorf("failed to open publish history: %w", err)
	}
	defer closeStore()

	entries, err := store.Entries(ctx)
	if err != nil {
		return fmt.Errorf("failed to read publish history: %w", err)
	}
	registry := publish.NewRegistryFromConfig(rt.cfg, rt.logger)

	printer := observability.NewPrinter(out)
	printer.PrintHistoryStats(history.Summarize(entries, registry.Names(), time.Now()))

	// Unreadable run records are reported but do not hide the readable ones.
	records, err := pipeline.ListRuns(rt.cfg.Pipeline.OutputRoot)
	if err != nil {
		rt.logger.Warn("Some run records could not be read", zap.Error(err))
	}
	printer.PrintRunStatus(pipeline.RunStatus(records))
	return nil
}
