package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/content-pipeline/internal/observability"
	"github.com/jonathan/content-pipeline/internal/publish"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List publish platforms after config overrides",
	RunE: func(_ *cobra.Command, _ []string) error {
		return listPlatforms(platformsConfigPath, os.Stdout)
	},
}

var platformsConfigPath string

func init() {
	platformsCmd.Flags().StringVar(&platformsConfigPath, "config", "", "Path to config.json file")

	rootCmd.AddCommand(platformsCmd)
}

func listPlatforms(configPath string, out io.Writer) error {
	rt, err := bootstrap(configPath, "", false)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	registry := publish.NewRegistryFromConfig(rt.cfg, rt.logger)
	observability.NewPrinter(out).PrintPlatforms(registry.List())
	return nil
}
