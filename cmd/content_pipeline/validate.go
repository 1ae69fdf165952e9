package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/content-pipeline/internal/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON document against an embedded schema",
	Long:  "Validates an inspiration batch, run record or config document. Exits 1 when validation fails.",
	RunE: func(_ *cobra.Command, _ []string) error {
		return validateDocument(validateSchema, validateFile, os.Stdout)
	},
}

var (
	validateSchema string
	validateFile   string
)

func init() {
	validateCmd.Flags().StringVarP(&validateSchema, "schema", "s", "", "Schema name: "+strings.Join(schemas.Names(), ", ")+" (required)")
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "Path to the JSON document (required)")

	if err := validateCmd.MarkFlagRequired("schema"); err != nil {
		panic(fmt.Sprintf("failed to mark schema flag as required: %v", err))
	}
	if err := validateCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(validateCmd)
}

func validateDocument(schemaName, path string, out io.Writer) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("document not found: %s", path)
	}

	err := schemas.ValidateFile(schemaName, path)
	if err == nil {
		_, _ = fmt.Fprintf(out, "Validation passed: %s is a valid %s document\n", path, schemaName)
		return nil
	}

	var validationErr *schemas.ValidationError
	if errors.As(err, &validationErr) {
		_, _ = fmt.Fprintf(out, "Validation failed: %d error(s)\n", len(validationErr.Errors))
		for _, fe := range validationErr.Errors {
			_, _ = fmt.Fprintf(out, "  - %s: %s\n", fe.Field, fe.Message)
		}
		return fmt.Errorf("%s does not match the %s schema", path, schemaName)
	}
	_, _ = fmt.Fprintf(out, "Validation failed: %v\n", err)
	return err
}
