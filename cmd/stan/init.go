package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/stan/internal/config"
	"github.com/vango-dev/stan/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		dir     string
		format  string
		backend string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a stan.toml (or stan.json) with default settings.

Examples:
  stan init
  stan init --backend sqlite
  stan init --format json --dir ./config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := config.TOMLFileName
			switch format {
			case "toml":
			case "json":
				name = config.JSONFileName
			default:
				return errors.New(errors.CodeConfigUnsupported).
					WithDetail("Unknown configuration format " + format).
					WithSuggestion("Use --format toml or --format json")
			}

			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil && !force {
				return errors.New(errors.CodeConfigInvalid).
					WithDetail(path + " already exists").
					WithSuggestion("Pass --force to overwrite it")
			}

			cfg := config.New()
			cfg.Backend = backend
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the file to")
	cmd.Flags().StringVar(&format, "format", "toml", "File format (toml, json)")
	cmd.Flags().StringVar(&backend, "backend", config.DefaultBackend, "Backend (file, sqlite)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}
