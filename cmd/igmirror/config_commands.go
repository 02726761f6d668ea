package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"igmirror/internal/config"
	"igmirror/internal/services"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand(ctx))

	return configCmd
}

// newConfigInitCommand writes the sample config to the path given as an
// argument, the --config flag, or the default location, then loads it back
// so the cache and state directories exist before the first auth run.
func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write a sample configuration and create its directories",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(ctx, args)
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return services.Wrap(services.ErrValidation, "config", "init",
						"config file already exists at "+target+" (use --overwrite to replace it)", nil)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}

			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("load sample config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Media cache:    %s\n", cfg.Paths.CacheDir)
			fmt.Fprintf(out, "Token store:    %s (%s)\n", cfg.TokenStore.Backend, storeLocation(cfg))
			if err := cfg.RequireCredentials(); err != nil {
				fmt.Fprintf(out, "Next: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing configuration file")
	return cmd
}

func initTarget(ctx *commandContext, args []string) (string, error) {
	target := ""
	if len(args) > 0 {
		target = strings.TrimSpace(args[0])
	}
	if target == "" {
		target = flagValue(ctx.configFlag)
	}
	if target == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(target)
}

func storeLocation(cfg *config.Config) string {
	switch cfg.TokenStore.Backend {
	case config.BackendPostgres:
		return "dsn configured"
	case config.BackendMemory:
		return "not persisted"
	default:
		return cfg.TokenStore.Path
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configExists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			if err := cfg.RequireCredentials(); err != nil {
				fmt.Fprintf(out, "Warning: %v\n", err)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
