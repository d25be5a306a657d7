package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"MomentumDashboard/internal/config"
	"MomentumDashboard/internal/logger"
	"MomentumDashboard/internal/notifier"
	"MomentumDashboard/internal/pipeline"
	"MomentumDashboard/internal/scheduler"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	configPath string
	watchlist  string
	output     string
	source     string
	lookback   int
	parallel   int
}

// newRootCmd creates the root command. Without a subcommand it runs once.
func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Stock momentum dashboard",
		Long: `dashboard reads a watchlist, resolves dividend-adjusted closes at fixed
month anchors and writes an annualized momentum report as an xlsx workbook.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", defaultConfigPath(), "configuration file path")
	flags.StringVar(&opts.watchlist, "watchlist", "", "watchlist workbook (overrides watchlist_path)")
	flags.StringVar(&opts.output, "output", "", "report workbook (overrides output_path)")
	flags.StringVar(&opts.source, "source", "", "price source: yahoo, eodhd or financego")
	flags.IntVar(&opts.lookback, "lookback", 0, "lookback window in calendar days")
	flags.IntVar(&opts.parallel, "parallel", 0, "tickers resolved concurrently")

	return rootCmd
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate the report once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}
}

func newWatchCmd(opts *options) *cobra.Command {
	var now bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the report on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd, opts, now)
		},
	}
	cmd.Flags().BoolVar(&now, "now", false, "also run immediately on start")
	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load, validate and print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
			return nil
		},
	})
	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dashboard %s\n", version)
		},
	}
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("watchlist") {
		cfg.WatchlistPath = opts.watchlist
	}
	if flags.Changed("output") {
		cfg.OutputPath = opts.output
	}
	if flags.Changed("source") {
		cfg.Source.Provider = opts.source
	}
	if flags.Changed("lookback") {
		cfg.LookbackDays = opts.lookback
	}
	if flags.Changed("parallel") {
		cfg.Parallelism = opts.parallel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup builds the logger, pipeline and optional Telegram notifier.
func setup(cmd *cobra.Command, opts *options) (*pipeline.Pipeline, *notifier.TelegramNotifier, *log.Logger, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	lg := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stderr)

	src, err := pipeline.NewSource(cfg, lg)
	if err != nil {
		return nil, nil, nil, err
	}
	lg.Info().Str("source", src.Name()).Msg("data source")

	p := pipeline.New(cfg, src, lg)
	p.Console = cmd.OutOrStdout()

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.Enabled() {
		tn = notifier.NewTelegramNotifier(notifier.TelegramOptions{
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
			Proxy:    cfg.Proxy,
			Logger:   lg,
		})
		p.Notifier = tn
	}
	return p, tn, lg, nil
}

func runOnce(cmd *cobra.Command, opts *options) error {
	p, _, _, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report saved to: %s\n", res.Output)
	return nil
}

func watch(cmd *cobra.Command, opts *options, now bool) error {
	p, tn, lg, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(ctx, func(ctx context.Context) (string, error) {
		res, err := p.Run(ctx)
		if err != nil {
			return "", err
		}
		return notifier.FormatRunSummary(res.Summary, res.Output, res.At), nil
	}, lg)
	if err := sched.Register(p.Config.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		lg.Info().Msg("telegram polling started")
	}
	if now {
		go sched.RunNow()
	}

	lg.Info().Time("next_run", sched.Next()).Msg("dashboard is watching, press Ctrl+C to stop")
	<-ctx.Done()
	lg.Info().Msg("shutdown signal received, stopping")
	return nil
}
