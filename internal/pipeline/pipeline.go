// Package pipeline runs one dashboard generation: load the watchlist,
// collect prices, render the report and announce the result.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/collector"
	"MomentumDashboard/internal/config"
	"MomentumDashboard/internal/logger"
	"MomentumDashboard/internal/model"
	"MomentumDashboard/internal/notifier"
	"MomentumDashboard/internal/report"
	"MomentumDashboard/internal/signal"
	"MomentumDashboard/internal/watchlist"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/phuslu/log"
)

// Pipeline wires the stages of a run. Notifier and Console are optional.
type Pipeline struct {
	Config   *config.Config
	Source   collector.Source
	Notifier notifier.Notifier
	// Console receives a table preview of the rows when set.
	Console io.Writer
	Logger  *log.Logger
	// Now returns the run time; time.Now when nil.
	Now func() time.Time
}

// Result describes a finished run.
type Result struct {
	RunID   string
	Output  string
	At      time.Time
	Records []model.MomentumRecord
	Summary signal.Summary
}

// New creates a Pipeline for cfg reading prices from src.
func New(cfg *config.Config, src collector.Source, lg *log.Logger) *Pipeline {
	if lg == nil {
		lg = logger.Nop()
	}
	return &Pipeline{Config: cfg, Source: src, Logger: lg}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run performs one generation. The previous report is replaced only when
// every stage succeeded.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	cfg := p.Config
	res := &Result{RunID: uuid.NewString(), Output: cfg.OutputPath, At: p.now()}

	lg := *p.Logger
	lg.Context = log.NewContext(nil).Str("run_id", res.RunID).Value()
	lg.Info().Str("source", p.Source.Name()).Str("watchlist", cfg.WatchlistPath).Msg("run started")

	err := p.run(ctx, &lg, res)
	if err != nil {
		lg.Error().Err(err).Msg("run failed")
		p.notify(ctx, &lg, notifier.FormatFailure(err, res.At))
		return nil, err
	}

	lg.Info().Int("rows", len(res.Records)).Str("output", res.Output).
		Int("all_up", len(res.Summary.Up)).Int("all_down", len(res.Summary.Down)).
		Int("unresolved", len(res.Summary.Unresolved)).Msg("run finished")
	p.notify(ctx, &lg, notifier.FormatRunSummary(res.Summary, res.Output, res.At))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, lg *log.Logger, res *Result) error {
	cfg := p.Config
	entries, err := watchlist.Load(cfg.WatchlistPath, watchlist.Options{
		SheetName:  cfg.SheetName,
		HeaderRows: cfg.HeaderRows,
		Tickers:    cfg.Tickers,
	})
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}
	lg.Info().Int("tickers", len(entries)).Msg("watchlist loaded")

	col := collector.NewCollector(p.Source, cfg.AnchorMonths, cfg.LookbackDays, lg)
	col.Parallelism = cfg.Parallelism
	col.TolerateErrors = cfg.TolerateFetchErrors
	col.Today = func() calendar.Date { return calendar.FromTime(res.At) }

	records, err := col.CollectAll(ctx, entries)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	res.Records = records
	res.Summary = signal.Summarize(records, cfg.ThresholdPct)

	renderer := report.NewRenderer(report.Options{
		SheetName: cfg.SheetName,
		Months:    cfg.AnchorMonths,
		Threshold:  cfg.ThresholdPct,
		Source:     p.Source.Name(),
		HeaderRows: null.IntFrom(int64(cfg.HeaderRows)),
	})
	if err := renderer.Write(cfg.OutputPath, records, res.At); err != nil {
		return err
	}

	if p.Console != nil {
		if err := report.PrintTable(p.Console, records, cfg.AnchorMonths, cfg.ThresholdPct); err != nil {
			lg.Warn().Err(err).Msg("print table")
		}
	}
	return nil
}

func (p *Pipeline) notify(ctx context.Context, lg *log.Logger, text string) {
	if p.Notifier == nil {
		return
	}
	if err := p.Notifier.Notify(ctx, text); err != nil {
		lg.Error().Err(err).Msg("send notification")
	}
}
