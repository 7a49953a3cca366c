package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pricemirror/internal/config"
	"pricemirror/internal/report"
	"pricemirror/internal/scheduler"
	"pricemirror/internal/symbols"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath string
	logLevel   string
	plain      bool
	file       string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "pricemirror",
		Short:        "Keep a same-day mirror of daily price history and report windowed statistics",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "configuration file (default $PRICEMIRROR_CONFIG or "+config.DefaultPath+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	root.PersistentFlags().BoolVar(&opts.plain, "plain", false, "disable terminal styling")

	root.AddCommand(newRefreshCmd(opts))
	root.AddCommand(newReportCmd(opts))
	root.AddCommand(newMirrorCmd(opts))
	root.AddCommand(newDaemonCmd(opts))
	return root
}

func newRefreshCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh [SYMBOL...]",
		Short: "Refresh the cache for the given symbols and print the load summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			syms, err := symbols.Resolve(args, a.symbolsFile(opts), a.cfg.Symbols)
			if err != nil {
				return err
			}
			res := a.Refresh(cmd.Context(), syms)
			report.NewRenderer(cmd.OutOrStdout(), a.styled(opts)).Summary(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "file listing one symbol per line")
	return cmd
}

func newReportCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [SYMBOL...]",
		Short: "Refresh the cache and print window statistics per symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			syms, err := symbols.Resolve(args, a.symbolsFile(opts), a.cfg.Symbols)
			if err != nil {
				return err
			}
			res := a.Refresh(cmd.Context(), syms)

			tickers, err := report.Build(cmd.Context(), res.Resolved, a.cfg.Report.Windows, a.now())
			if err != nil {
				return err
			}
			r := report.NewRenderer(cmd.OutOrStdout(), a.styled(opts))
			r.Tickers(tickers)
			if len(tickers) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			r.Summary(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "file listing one symbol per line")
	return cmd
}

func newMirrorCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror [SYMBOL...]",
		Short: "Print window statistics from the Parquet mirror without contacting providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			syms := symbols.FromArgs(args)
			if len(syms) == 0 && opts.file != "" {
				if syms, err = symbols.ReadFile(opts.file); err != nil {
					return err
				}
			}
			res, err := a.FromMirror(cmd.Context(), syms)
			if err != nil {
				return err
			}

			tickers, err := report.Build(cmd.Context(), res.Resolved, a.cfg.Report.Windows, a.now())
			if err != nil {
				return err
			}
			r := report.NewRenderer(cmd.OutOrStdout(), a.styled(opts))
			r.Tickers(tickers)
			if len(tickers) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			r.Summary(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "file listing one symbol per line")
	return cmd
}

func newDaemonCmd(opts *options) *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Refresh on the configured cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			job := func(ctx context.Context) error {
				syms, err := symbols.Resolve(nil, a.symbolsFile(opts), a.cfg.Symbols)
				if err != nil {
					return err
				}
				a.Refresh(ctx, syms)
				return nil
			}

			s := scheduler.New(ctx)
			if err := s.Register("refresh", a.cfg.Schedule.RefreshCron, job); err != nil {
				return err
			}
			if runNow {
				s.RunNow("refresh", job)
			}
			s.Start()
			a.log.Info("daemon started", "cron", a.cfg.Schedule.RefreshCron, "next", s.Next())

			<-ctx.Done()
			s.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "file listing one symbol per line")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run one refresh before waiting for the schedule")
	return cmd
}

// loadConfig applies .env, then the YAML file, then flag overrides.
func loadConfig(opts *options) (*config.Config, error) {
	_ = godotenv.Load()

	path := opts.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
