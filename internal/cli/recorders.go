package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/vvka-141/pgfastload/internal/config"
	"github.com/vvka-141/pgfastload/internal/journal"
	"github.com/vvka-141/pgfastload/internal/metrics"
	"github.com/vvka-141/pgfastload/internal/metrics/datadog"
	"github.com/vvka-141/pgfastload/internal/scheduler"
	"github.com/vvka-141/pgfastload/internal/services"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// recorders are the optional run observers: the journal and the metrics
// backend. Both are nil when disabled.
type recorders struct {
	logger  fastload.Logger
	journal *journal.Journal
	run     *journal.Run
	backend metrics.Backend
}

func startRecorders(ctx context.Context, cfg fastload.LoadConfig, dd config.DatadogConfig, ddFlag bool, logger fastload.Logger) (*recorders, error) {
	r := &recorders{logger: logger}

	if cfg.JournalPath != "" {
		j, err := journal.Open(ctx, cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		mode := "load"
		if cfg.Script {
			mode = "script"
		}
		run, err := j.StartRun(ctx, journal.RunInfo{Mode: mode, Input: cfg.InputPath, Workers: cfg.Workers}, logger)
		if err != nil {
			_ = j.Close()
			return nil, err
		}
		logger.Verbose("Journal run %s in %s", run.ID, cfg.JournalPath)
		r.journal, r.run = j, run
	}

	if ddFlag || dd.Enabled {
		flushEvery, err := config.ParseDuration("metrics.datadog.flush_interval", dd.FlushInterval)
		if err != nil {
			r.closeJournal()
			return nil, fmt.Errorf("pgfastload.yaml: %v: %w", err, fastload.ErrInvalidConfig)
		}
		backend, err := datadog.NewBackend(context.WithoutCancel(ctx), datadog.Options{
			Prefix:     dd.Prefix,
			Site:       dd.Site,
			Tags:       dd.Tags,
			FlushEvery: flushEvery,
		})
		if err != nil {
			r.closeJournal()
			return nil, err
		}
		r.backend = backend
	}
	return r, nil
}

func (r *recorders) observers() []scheduler.Observer {
	var obs []scheduler.Observer
	if r.run != nil {
		obs = append(obs, r.run)
	}
	if r.backend != nil {
		obs = append(obs, metrics.NewRecorder(r.backend))
	}
	return obs
}

// finish records the final status and flushes metrics. Failures here are
// warnings; the load result stands.
func (r *recorders) finish(report *services.Report, runErr error) {
	if r.run != nil {
		var summary scheduler.Summary
		if report != nil {
			summary = report.Summary
		}
		if err := r.run.Finish(context.Background(), runStatus(runErr), summary); err != nil {
			r.logger.Warn("journal: %v", err)
		}
	}
	r.closeJournal()

	if r.backend != nil {
		if err := r.backend.Close(); err != nil {
			r.logger.Warn("metrics: %v", err)
		}
	}
}

func (r *recorders) closeJournal() {
	if r.journal == nil {
		return
	}
	if err := r.journal.Close(); err != nil {
		r.logger.Warn("journal: %v", err)
	}
	r.journal, r.run = nil, nil
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return journal.StatusSucceeded
	case errors.Is(err, context.Canceled):
		return journal.StatusCancelled
	default:
		return journal.StatusFailed
	}
}
