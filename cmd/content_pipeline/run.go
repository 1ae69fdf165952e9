package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/content-pipeline/internal/metrics"
	"github.com/jonathan/content-pipeline/internal/observability"
	"github.com/jonathan/content-pipeline/internal/pipeline"
	"github.com/jonathan/content-pipeline/internal/schemas"
	"github.com/jonathan/content-pipeline/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the content pipeline end-to-end",
	Long: `Drives a batch of inspirations through outline -> write -> format -> publish and
persists a run record under <output>/runs.

Without --inspirations the built-in default batch is used.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath   string
	runInspirations string
	runOutput       string
	runMetricsFile  string
	runPushgateway  string
	runVerbose      bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (missing or invalid files fall back to defaults)")
	runCommand.Flags().StringVarP(&runInspirations, "inspirations", "i", "", "Path to a JSON array of inspiration records")
	runCommand.Flags().StringVarP(&runOutput, "output", "o", "", "Output root (overrides pipeline.output_root)")
	runCommand.Flags().StringVar(&runMetricsFile, "metrics-file", "", "Write run metrics in Prometheus textfile format")
	runCommand.Flags().StringVar(&runPushgateway, "pushgateway", "", "Push run metrics to this Prometheus Pushgateway URL")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed progress information")

	rootCmd.AddCommand(runCommand)
}

// runOptions are the parsed run flags.
type runOptions struct {
	ConfigPath   string
	Inspirations string
	Output       string
	MetricsFile  string
	Pushgateway  string
	Verbose      bool
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	return runPipeline(cmd.Context(), runOptions{
		ConfigPath:   runConfigPath,
		Inspirations: runInspirations,
		Output:       runOutput,
		MetricsFile:  runMetricsFile,
		Pushgateway:  runPushgateway,
		Verbose:      runVerbose,
	}, os.Stdout)
}

func runPipeline(ctx context.Context, opts runOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var batch []types.Inspiration
	if opts.Inspirations != "" {
		loaded, err := schemas.LoadInspirations(opts.Inspirations)
		if err != nil {
			return fmt.Errorf("invalid inspirations file %s: %w", opts.Inspirations, err)
		}
		batch = loaded
	}

	rt, err := bootstrap(opts.ConfigPath, opts.Output, opts.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	recorder := metrics.NewRecorder()
	printer := observability.NewPrinter(out)
	var onProgress pipeline.ProgressCallback
	if opts.Verbose {
		onProgress = func(event pipeline.ProgressEvent) {
			_, _ = fmt.Fprintf(out, "[%s] %s\n", event.Step, event.Message)
		}
	}

	svc, err := newService(ctx, rt, recorder, onProgress)
	if err != nil {
		return err
	}
	defer svc.close()

	record, runErr := svc.orchestrator.Run(ctx, batch)
	if record != nil {
		printer.PrintRunRecord(record)
		if record.Publish != nil {
			printer.PrintBatchReport(record.Publish)
		}
	}

	exportMetrics(recorder, opts, rt.logger)

	if runErr != nil {
		return runErr
	}
	if len(record.Errors) > 0 {
		return fmt.Errorf("run %s finished with %d error(s)", record.RunID, len(record.Errors))
	}
	return nil
}

// exportMetrics failures are logged; they never change the run outcome.
func exportMetrics(recorder *metrics.Recorder, opts runOptions, logger *zap.Logger) {
	if opts.MetricsFile != "" {
		if err := recorder.WriteTextfile(opts.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics file", zap.String("path", opts.MetricsFile), zap.Error(err))
		}
	}
	if opts.Pushgateway != "" {
		if err := recorder.Push(opts.Pushgateway); err != nil {
			logger.Warn("Failed to push metrics", zap.String("url", opts.Pushgateway), zap.Error(err))
		}
	}
}
