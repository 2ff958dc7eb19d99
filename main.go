package main

import (
	"fmt"
	"os"

	"github.com/manasa1349/payment-gateway-task/config"
	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "payment-gateway",
		Short:         "Payment gateway API and async settlement workers",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(allCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	utils.ConfigureLogger(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), runOptions{api: true, migrate: !skipMigrate})
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not migrate and seed on startup")
	return cmd
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the payment, refund and webhook queue consumers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), runOptions{workers: true})
		},
	}
}

func allCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run the API and the workers in one process",
		Long: `Run the API and the workers in one process.

With QUEUE_DRIVER=memory this is the only mode that processes jobs, since
the in-memory queue is not shared between processes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), runOptions{api: true, workers: true, migrate: !skipMigrate})
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not migrate and seed on startup")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed the test merchant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := config.InitDB(cfg)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err == nil {
				defer sqlDB.Close()
			}
			return migrate(db, cfg)
		},
	}
}
