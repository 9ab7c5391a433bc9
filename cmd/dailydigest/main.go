package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/deusflow/dailydigest/internal/app"
	"github.com/deusflow/dailydigest/internal/catalog"
	"github.com/deusflow/dailydigest/internal/config"
	"github.com/deusflow/dailydigest/internal/digest"
	"github.com/deusflow/dailydigest/internal/logger"
	"github.com/deusflow/dailydigest/internal/metrics"
)

var (
	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dailydigest",
	Short: "Curate RSS feeds into a categorized daily digest",
	Long: `dailydigest fetches a catalog of RSS and Atom feeds, drops stale,
paywalled and low-quality entries, and publishes the best articles per
category.

Examples:
  dailydigest run                      # Curate one edition now
  dailydigest run --edition evening    # Force the edition label
  dailydigest serve                    # Morning and evening editions on cron
  dailydigest check                    # Validate the catalog and exit`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real environment variables win.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		log = logger.Init(logger.Options{Debug: cfg.Debug, Format: cfg.LogFormat})
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Curate and publish one digest",
	RunE:  runOnce,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the morning and evening editions on schedule",
	RunE:  serve,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the source catalog",
	RunE:  check,
}

func init() {
	runCmd.Flags().String("edition", "", "edition label (default: derived from run time)")
	runCmd.Flags().String("at", "", "run time as RFC3339 (default: now)")
	serveCmd.Flags().Bool("now", false, "run one edition immediately on start")

	rootCmd.AddCommand(runCmd, serveCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	edition, _ := cmd.Flags().GetString("edition")
	at, _ := cmd.Flags().GetString("at")

	params := digest.RunParams{Edition: edition}
	if at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		params.RunAt = t
	}
	if params.Edition != "" && params.Edition != digest.EditionMorning && params.Edition != digest.EditionEvening {
		return fmt.Errorf("invalid --edition %q", params.Edition)
	}

	ctx, stop := signalContext()
	defer stop()

	m := metrics.New()
	if cfg.MonitoringEnabled {
		srv := startMonitoringServer(cfg.MonitoringPort, m)
		defer shutdownServer(srv)
	}

	a, err := app.New(ctx, cfg, m, log, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	if params.RunAt.IsZero() {
		params.RunAt = time.Now().In(cfg.Location())
	}
	_, err = a.RunOnce(ctx, params)
	return err
}

func serve(cmd *cobra.Command, _ []string) error {
	immediate, _ := cmd.Flags().GetBool("now")

	ctx, stop := signalContext()
	defer stop()

	m := metrics.New()
	if cfg.MonitoringEnabled {
		srv := startMonitoringServer(cfg.MonitoringPort, m)
		defer shutdownServer(srv)
	}

	a, err := app.New(ctx, cfg, m, log, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	loc := cfg.Location()
	job := func(ctx context.Context, edition string) error {
		_, err := a.RunOnce(ctx, digest.RunParams{Edition: edition, RunAt: time.Now().In(loc)})
		return err
	}

	sched, err := app.NewScheduler(loc, cfg.MorningHour, cfg.EveningHour, job, logger.Component(log, "scheduler"))
	if err != nil {
		return err
	}

	if immediate {
		now := time.Now().In(loc)
		if err := job(ctx, digest.EditionFor(now)); err != nil {
			log.Error("initial run failed", "error", err)
		}
	}

	sched.Start(ctx)
	<-ctx.Done()
	log.Info("shutting down")
	sched.Stop()
	return nil
}

func check(cmd *cobra.Command, _ []string) error {
	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		var err error
		if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "catalog ok: %d sources, %d feeds, %d categories\n",
		len(cat.Sources), len(cat.Feeds()), len(cat.Categories))
	return nil
}
