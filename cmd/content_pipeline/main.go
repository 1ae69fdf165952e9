// Package main provides the content_pipeline CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "content_pipeline",
	Short: "Content pipeline: inspirations to published articles",
	Long: `Turns inspiration records into outlines, articles and platform-specific renditions,
then publishes them to the configured platforms under a per-platform daily limit.`,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
