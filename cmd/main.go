package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gcs2autoclass/internal/app"
	"gcs2autoclass/internal/config"
	"gcs2autoclass/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gcs2autoclass",
	Short: "Migrate GCS buckets to Autoclass with a terminal storage class",
	Long: `A concurrent migration tool that enables Autoclass on a list of GCS buckets
and sets their terminal storage class, with retry, checkpointing, and a
per-bucket CSV report.`,
	RunE:          runMigration,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.Flags().String("project", "", "Default GCP project for buckets without an explicit project")
	rootCmd.Flags().String("input", "", "Input file with one bucket per line, or project,bucket (required)")
	rootCmd.Flags().String("output", "", "Output CSV file (default <input>_output.csv)")
	rootCmd.Flags().String("terminal-class", "ARCHIVE", "Autoclass terminal storage class (ARCHIVE or NEARLINE)")
	rootCmd.Flags().Int("concurrency", 20, "Number of concurrent workers")
	rootCmd.Flags().Int("retries", 5, "Maximum attempts per remote call")
	rootCmd.Flags().Int("retry-backoff-ms", 1000, "Initial retry backoff in milliseconds")
	rootCmd.Flags().Float64("retry-jitter", 0.2, "Backoff jitter fraction")
	rootCmd.Flags().Int("call-timeout-ms", 30000, "Timeout per remote call in milliseconds")
	rootCmd.Flags().String("checkpoint", "./checkpoint.db", "Checkpoint database file (empty to disable)")
	rootCmd.Flags().Bool("resume", false, "Skip buckets completed in a previous run")
	rootCmd.Flags().Bool("skip-migrated", true, "Skip buckets already in Autoclass with the terminal class")
	rootCmd.Flags().Bool("dry-run", false, "List buckets without migrating")
	rootCmd.Flags().String("metrics-addr", "", "Address for the Prometheus /metrics server (empty to disable)")
	rootCmd.Flags().String("log-level", "info", "Log level (debug/info/warn/error)")
	rootCmd.Flags().Bool("show-progress", true, "Show progress display")
}

func runMigration(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Received shutdown signal, gracefully stopping...")
		cancel()
	}()

	migrator, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	summary, err := migrator.Run(ctx)

	if closeErr := migrator.Close(); closeErr != nil {
		log.Error("Error closing migrator", zap.Error(closeErr))
	}

	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d buckets failed to migrate", summary.Failed, summary.Total)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
