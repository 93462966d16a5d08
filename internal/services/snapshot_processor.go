package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Snapshotter writes a point-in-time export of every card.
type Snapshotter interface {
	Backfill(ctx context.Context) (int, error)
}

// SnapshotProcessorConfig holds configuration for the snapshot processor
type SnapshotProcessorConfig struct {
	// Interval between snapshots (default: 24h)
	Interval time.Duration

	// RunOnStart takes a snapshot as soon as the processor starts
	RunOnStart bool
}

func DefaultSnapshotProcessorConfig() SnapshotProcessorConfig {
	return SnapshotProcessorConfig{
		Interval:   24 * time.Hour,
		RunOnStart: true,
	}
}

// SnapshotProcessor periodically exports card balances so the sheet can be
// reconciled even if ledger events were lost.
type SnapshotProcessor struct {
	snapshotter Snapshotter
	config      SnapshotProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	runs    int
}

func NewSnapshotProcessor(s Snapshotter, config SnapshotProcessorConfig) *SnapshotProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultSnapshotProcessorConfig().Interval
	}
	return &SnapshotProcessor{
		snapshotter: s,
		config:      config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SnapshotProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("snapshot processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Snapshot processor started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SnapshotProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Snapshot processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Snapshot processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *SnapshotProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Runs returns how many snapshots have been attempted.
func (p *SnapshotProcessor) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func (p *SnapshotProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	if p.config.RunOnStart {
		p.snapshot(ctx)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.snapshot(ctx)
		}
	}
}

func (p *SnapshotProcessor) snapshot(ctx context.Context) {
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()

	n, err := p.snapshotter.Backfill(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Snapshot failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "Snapshot completed", "cards", n)
}
