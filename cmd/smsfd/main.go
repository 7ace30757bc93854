// Command smsfd runs the SMSF login session service and its maintenance tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/goSession/internal/app"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/spf13/cobra"
)

var errCacheUnavailable = errors.New("session cache unavailable")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:           "smsfd",
		Short:         "SMSF login session service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				return os.Setenv("SMSF_ENV_FILE", envFile)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before the environment (default .env)")

	cmd.AddCommand(
		newServeCommand(),
		newSweepCommand(),
		newMigrateCommand(),
		newSessionsCommand(),
		newForceLogoutCommand(),
	)
	return cmd
}

// withApp loads configuration, builds the App and hands it to fn with a
// context cancelled on SIGINT or SIGTERM.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and sweep expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return a.Run(ctx)
			})
		},
	}
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired and corrupt session records once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if !a.Manager.IsAvailable(ctx) {
					return errCacheUnavailable
				}
				removed := a.Manager.CleanupExpired(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d session(s)\n", removed)
				return nil
			})
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the accounts table in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.EnsureSchema(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "accounts schema ready")
				return nil
			})
		},
	}
}

func newSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions <account>",
		Short: "Print the number of live sessions of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if !a.Manager.IsAvailable(ctx) {
					return errCacheUnavailable
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d active session(s)\n", args[0], a.Manager.ActiveSessionCount(ctx, args[0]))
				return nil
			})
		},
	}
}

func newForceLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "force-logout <account>",
		Short: "Delete every session of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if !a.Manager.IsAvailable(ctx) {
					return errCacheUnavailable
				}
				removed := a.Auth.ForceLogout(ctx, args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %d session(s)\n", args[0], removed)
				return nil
			})
		},
	}
}
