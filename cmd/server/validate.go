package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/repository"
	"proxy-config-guard/internal/validator"
)

var validateFlags struct {
	dir    string
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the dynamic configuration directory without starting the server",
	Long: `Parse every YAML document in the dynamic directory and check every route,
middleware and service, including references across files.

Exits non-zero when any document is malformed or any entity is invalid.

Examples:
  # Validate the configured directory
  proxy-config-guard validate

  # Validate a checkout before deploying it
  proxy-config-guard validate --dir ./dynamic --format json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateFlags.dir, "dir", "", "directory to validate (defaults to DYNAMIC_DIR)")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text or json")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	dir := validateFlags.dir
	if dir == "" {
		dir = cfg.DynamicDir
	}

	store := repository.NewConfigStore(dir, repository.EntrypointNames{Plain: cfg.EntrypointPlain, Secure: cfg.EntrypointSecure})
	files, err := store.ReadAll()
	if err != nil {
		return err
	}
	state, parseErrs := store.StateFromFiles(files)
	res := validator.ValidateState(state)

	report := model.ValidationReport{
		Errors:   append(parseErrs, res.Errors...),
		Warnings: res.Warnings,
	}
	if report.Errors == nil {
		report.Errors = []model.FieldError{}
	}
	if report.Warnings == nil {
		report.Warnings = []string{}
	}
	report.Valid = len(report.Errors) == 0

	out := cmd.OutOrStdout()
	switch validateFlags.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	case "text":
		fmt.Fprintf(out, "%d files, %d routes, %d middlewares, %d services\n",
			len(files), len(state.Routes), len(state.Middlewares), len(state.Services))
		for _, e := range report.Errors {
			fmt.Fprintf(out, "ERROR   %s\n", e.Error())
		}
		for _, w := range report.Warnings {
			fmt.Fprintf(out, "WARNING %s\n", w)
		}
	default:
		return fmt.Errorf("unknown format %q", validateFlags.format)
	}

	if !report.Valid {
		return fmt.Errorf("%d validation errors", len(report.Errors))
	}
	if validateFlags.format == "text" {
		fmt.Fprintln(out, "OK")
	}
	return nil
}

