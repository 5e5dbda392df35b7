package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/buildlog-app/buildlog/internal/gateway"
	"github.com/buildlog-app/buildlog/pkg/config"
	"github.com/buildlog-app/buildlog/pkg/logger"
)

var buildVersion = "dev"

// env is what every command needs: configuration, a logger and the backend client.
type env struct {
	cfg config.AppConfig
	log *slog.Logger
	gw  *gateway.Client
}

func loadEnv(verbose bool) (*env, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	cfg := config.LoadAppConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	log := logger.NewText(os.Stderr, "buildlogctl", level)
	gw, err := gateway.New(gateway.ConfigFromApp(cfg), gateway.WithLocation(cfg.Location()))
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, gw: gw}, nil
}

func main() {
	var verbose bool
	rootCmd := &cobra.Command{
		Use:           "buildlogctl",
		Short:         "Manage BuildLog projects from the terminal",
		Version:       buildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests to stderr")

	withEnv := func(run func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(verbose)
			if err != nil {
				return err
			}
			return run(cmd, args, e)
		}
	}

	rootCmd.AddCommand(loginCmd(withEnv))
	rootCmd.AddCommand(logoutCmd(withEnv))
	rootCmd.AddCommand(projectsCmd(withEnv))
	rootCmd.AddCommand(exportCmd(withEnv))
	rootCmd.AddCommand(statsCmd(withEnv))
	rootCmd.AddCommand(setupCmd(withEnv))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
