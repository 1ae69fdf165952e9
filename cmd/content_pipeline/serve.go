package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/content-pipeline/internal/metrics"
	"github.com/jonathan/content-pipeline/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves POST /runs to trigger a pipeline run, GET /runs and /runs/{id} for past
run records, GET /history/stats, GET /platforms and GET /metrics.`,
	RunE: runServe,
}

var (
	servePort       int
	serveConfigPath string
	serveOutput     string
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	serveCmd.Flags().StringVarP(&serveOutput, "output", "o", "", "Output root (overrides pipeline.output_root)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(serveConfigPath, serveOutput, false)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	recorder := metrics.NewRecorder()
	svc, err := newService(ctx, rt, recorder, nil)
	if err != nil {
		return err
	}
	defer svc.close()

	srv, err := server.New(server.Config{
		Port:       servePort,
		OutputRoot: rt.cfg.Pipeline.OutputRoot,
		Runner:     svc.orchestrator,
		History:    svc.store,
		Registry:   svc.registry,
		Metrics:    recorder,
		Logger:     rt.logger,
	})
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
