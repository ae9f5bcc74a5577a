// Package poller periodically re-fetches step records for a run and rebuilds
// the live graph, notifying subscribers when the picture changes.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/docuphase/rungraph/internal/graph"
	"github.com/docuphase/rungraph/internal/logging"
	"github.com/docuphase/rungraph/pkg/schema"
)

// StepSource fetches the current step records for a run. Satisfied by the
// store; tests supply an in-memory fake.
type StepSource interface {
	ListSteps(ctx context.Context, runID string) ([]schema.Step, error)
}

// Update carries a freshly rebuilt live graph.
type Update struct {
	RunID string
	Graph *graph.Graph
	At    time.Time
}

// UpdateFunc receives graph updates. Called from the polling goroutine.
type UpdateFunc func(Update)

// SnapshotFunc receives the graph on the snapshot schedule, regardless of
// whether it changed since the last poll.
type SnapshotFunc func(Update)

// Config tunes a Poller.
type Config struct {
	// Interval between polls. Defaults to 5s.
	Interval time.Duration

	// SnapshotCron is an optional five-field cron expression. When set, the
	// snapshot callback fires on that schedule.
	SnapshotCron string
}

// Poller drives the fetch-reconcile-notify loop for one run.
type Poller struct {
	source   StepSource
	def      schema.NormalizedDefinition
	runID    string
	interval time.Duration
	logger   *slog.Logger

	onUpdate   UpdateFunc
	onSnapshot SnapshotFunc
	schedule   cron.Schedule
	nextSnap   time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	lastGraph []byte // JSON fingerprint of the last delivered graph
}

// New creates a Poller for the given run. The definition is fixed for the
// poller's lifetime; only step records are re-fetched.
func New(source StepSource, def schema.NormalizedDefinition, runID string, cfg Config, logger *slog.Logger) (*Poller, error) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	p := &Poller{
		source:   source,
		def:      def,
		runID:    runID,
		interval: interval,
		logger:   logger,
	}

	if cfg.SnapshotCron != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		schedule, err := parser.Parse(cfg.SnapshotCron)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot cron %q: %w", cfg.SnapshotCron, err)
		}
		p.schedule = schedule
		p.nextSnap = schedule.Next(time.Now().UTC())
	}

	return p, nil
}

// OnUpdate registers the change callback. Must be called before Start.
func (p *Poller) OnUpdate(fn UpdateFunc) { p.onUpdate = fn }

// OnSnapshot registers the snapshot callback. Must be called before Start.
func (p *Poller) OnSnapshot(fn SnapshotFunc) { p.onSnapshot = fn }

// Start launches the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.done != nil {
		p.mu.Unlock()
		return fmt.Errorf("poller already started")
	}

	pollCtx, cancel := context.WithCancel(logging.WithRunID(ctx, p.runID))
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.loop(pollCtx)
	p.logger.InfoContext(pollCtx, "poller started", slog.Duration("interval", p.interval))
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Deliver an initial graph immediately.
	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick fetches steps, rebuilds the live graph and notifies on change.
func (p *Poller) tick(ctx context.Context) {
	update, changed, err := p.refresh(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "poll failed", slog.String("error", err.Error()))
		return
	}

	if changed && p.onUpdate != nil {
		p.onUpdate(update)
	}

	if p.schedule != nil && !update.At.Before(p.nextSnap) {
		p.nextSnap = p.schedule.Next(update.At)
		if p.onSnapshot != nil {
			p.onSnapshot(update)
		}
	}
}

// RefreshOnce fetches and rebuilds a single time, bypassing change detection.
// Used by one-shot render paths.
func (p *Poller) RefreshOnce(ctx context.Context) (*graph.Graph, error) {
	steps, err := p.source.ListSteps(ctx, p.runID)
	if err != nil {
		return nil, err
	}
	return graph.BuildLiveRunGraph(p.def, steps), nil
}

func (p *Poller) refresh(ctx context.Context) (Update, bool, error) {
	g, err := p.RefreshOnce(ctx)
	if err != nil {
		return Update{}, false, err
	}

	fingerprint, err := json.Marshal(g)
	if err != nil {
		return Update{}, false, fmt.Errorf("fingerprint graph: %w", err)
	}

	changed := !bytes.Equal(fingerprint, p.lastGraph)
	if changed {
		p.lastGraph = fingerprint
		p.logger.InfoContext(ctx, "graph changed",
			slog.Int("nodes", len(g.Nodes)),
			slog.Int("edges", len(g.Edges)),
		)
	}

	return Update{RunID: p.runID, Graph: g, At: time.Now().UTC()}, changed, nil
}

// Stop shuts down the polling loop and waits for it to exit.
func (p *Poller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return nil
	}

	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil

	p.logger.Info("poller stopped")
	return nil
}
