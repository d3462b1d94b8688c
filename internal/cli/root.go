// Package cli implements the appraiserctl command tree.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/appraiser/internal/config"
	"github.com/okian/appraiser/pkg/logger"
)

const defaultServer = "http://localhost:8000"

type envKey struct{}

// env is the per-invocation state shared by subcommands.
type env struct {
	cfg *config.Config
	out io.Writer
}

func withEnv(ctx context.Context, e *env) context.Context {
	return context.WithValue(ctx, envKey{}, e)
}

func getEnv(ctx context.Context) *env {
	return ctx.Value(envKey{}).(*env)
}

// NewRootCmd builds the appraiserctl command tree.
func NewRootCmd() *cobra.Command {
	var (
		catalogPath string
		logLevel    string
		logFormat   string
	)

	root := &cobra.Command{
		Use:           "appraiserctl",
		Short:         "appraiserctl values player cosmetic inventories against the price list.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			if catalogPath != "" {
				cfg.CatalogPath = catalogPath
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			// Logs go to stderr so stdout stays machine-readable.
			if err := logger.InitWith(cmd.ErrOrStderr(), logFormat); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				return fmt.Errorf("set log level: %w", err)
			}
			cmd.SetContext(withEnv(cmd.Context(), &env{cfg: cfg, out: cmd.OutOrStdout()}))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&catalogPath, "catalog", "", "price list path (overrides catalog_path)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides log_level)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console, text or json")

	root.AddCommand(newValueCmd(), newCatalogCmd(), newRemoteCmd(), newLeaderboardCmd())
	return root
}

// Execute runs the command tree with ctx and returns the first error.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
