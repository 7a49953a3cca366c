package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"pricemirror/internal/cache"
	"pricemirror/internal/config"
	"pricemirror/internal/domain"
	"pricemirror/internal/loader"
	"pricemirror/internal/source"
	"pricemirror/internal/store"
	"pricemirror/internal/util"
)

// app holds everything a command needs for one process lifetime.
type app struct {
	cfg    *config.Config
	loader *loader.Loader
	mirror store.SeriesStore // nil when storage.parquet_dir is unset
	runs   store.RunRecorder
	now    util.Clock
	log    *slog.Logger

	sources []*source.Guarded // primary, secondary
	logFile *os.File
}

// limiterBurst is how many provider calls may go out back to back before the
// per-minute budget applies.
const limiterBurst = 5

func setup(opts *options) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, now: time.Now}
	if err := a.initLogging(); err != nil {
		return nil, err
	}

	c, err := cache.New(cfg.Storage.CacheDir, a.now)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("cache directory: %w", err)
	}

	timeout, _ := cfg.Loader.Timeout()
	yahoo, alpaca := source.NewYahoo(), source.NewAlpaca(source.AlpacaOptions{
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
		DataURL:   cfg.Alpaca.DataURL,
		BaseURL:   cfg.Alpaca.BaseURL,
		Feed:      cfg.Alpaca.Feed,
	})
	a.sources = []*source.Guarded{
		source.Guard(yahoo, timeout, util.NewRateLimiter(yahoo.Name(), cfg.Loader.RateLimitPerMin, limiterBurst)),
		source.Guard(alpaca, timeout, util.NewRateLimiter(alpaca.Name(), cfg.SecondaryRate(), limiterBurst)),
	}
	primary, secondary := a.sources[0], a.sources[1]

	a.loader, err = loader.New(loader.Config{
		MaxWorkers:      cfg.Loader.MaxWorkers,
		BatchSize:       cfg.Loader.BatchSize,
		MaxLookbackDays: cfg.Loader.MaxLookbackDays,
	}, c, primary, secondary, a.now)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Storage.ParquetDir != "" {
		a.mirror = store.NewParquetStore(cfg.Storage.ParquetDir)
	}

	a.runs = store.NoopRecorder{}
	if cfg.Storage.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			a.log.Warn("run store directory unavailable, using noop", "err", err)
		} else if rs, err := store.NewRunStore(cfg.Storage.SQLitePath); err != nil {
			a.log.Warn("init sqlite run store failed, using noop", "err", err)
		} else {
			a.runs = rs
		}
	}
	return a, nil
}

// initLogging installs the default logger: stdout, plus a daily file under
// logging.dir when configured.
func (a *app) initLogging() error {
	var w io.Writer = os.Stdout
	if dir := a.cfg.Logging.Dir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		name := filepath.Join(dir, fmt.Sprintf("pricemirror-%s.log", time.Now().Format(util.DateLayout)))
		f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		a.logFile = f
		w = io.MultiWriter(os.Stdout, f)
	}
	util.SetDefault(util.NewLoggerTo(w, a.cfg.Logging.Level, a.cfg.Logging.Format))
	a.log = slog.Default().With("component", "pricemirror")
	return nil
}

// Refresh runs one load cycle, then mirrors the resolved series and records
// the run. Mirror and history failures are logged only.
func (a *app) Refresh(ctx context.Context, symbols []domain.Symbol) loader.Result {
	started := time.Now()
	res := a.loader.Run(ctx, symbols)

	if a.mirror != nil {
		if err := store.MirrorAll(ctx, a.mirror, res.Resolved, runtime.NumCPU()); err != nil {
			a.log.Error("parquet mirror failed", "err", err)
		}
	}

	for _, src := range a.sources {
		if n := src.Throttled(); n > 0 {
			a.log.Info("provider throttled", "source", src.Name(), "waits", n)
		}
	}

	if _, err := a.runs.RecordRun(ctx, started, res); err != nil {
		a.log.Error("recording run failed", "err", err)
	}
	if rs, ok := a.runs.(*store.RunStore); ok {
		for _, sym := range res.Unresolved {
			if n, err := rs.UnresolvedStreak(ctx, sym.String()); err == nil && n > 1 {
				a.log.Warn("symbol repeatedly unresolved", "symbol", sym, "runs", n)
			}
		}
	}
	return res
}

// FromMirror loads stored series for symbols, or every mirrored symbol when
// symbols is empty. The result has the shape of a load so it can be reported
// the same way.
func (a *app) FromMirror(ctx context.Context, symbols []domain.Symbol) (loader.Result, error) {
	if a.mirror == nil {
		return loader.Result{}, errors.New("storage.parquet_dir is not configured")
	}
	started := time.Now()
	resolved, missing, err := store.LoadAll(ctx, a.mirror, symbols, runtime.NumCPU())
	if err != nil {
		return loader.Result{}, err
	}
	return loader.Result{
		Resolved:   resolved,
		Unresolved: missing,
		Processed:  len(resolved) + len(missing),
		Elapsed:    time.Since(started),
	}, nil
}

func (a *app) symbolsFile(opts *options) string {
	if opts.file != "" {
		return opts.file
	}
	return a.cfg.SymbolsFile
}

func (a *app) styled(opts *options) bool {
	return !opts.plain && !a.cfg.Report.Plain
}

// Close releases the run store and log file.
func (a *app) Close() {
	if a.runs != nil {
		if err := a.runs.Close(); err != nil && a.log != nil {
			a.log.Warn("closing run store", "err", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
