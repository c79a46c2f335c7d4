// Package pipeline orchestrates a full generation run: fetch the
// feed, classify each record, reconcile against the blocks on disk,
// and write what changed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/everstacklabs/blocksmith/internal/block"
	"github.com/everstacklabs/blocksmith/internal/classify"
	"github.com/everstacklabs/blocksmith/internal/config"
	"github.com/everstacklabs/blocksmith/internal/feed"
	"github.com/everstacklabs/blocksmith/internal/reconcile"
	"github.com/everstacklabs/blocksmith/internal/report"
	"github.com/everstacklabs/blocksmith/internal/validate"
)

// ExitCode constants for the CLI.
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitChanges = 2 // Changes detected (diff mode)
)

// snapshotFile is where the raw feed payload is archived after a live
// API run, next to the blocks it produced.
const snapshotFile = "together_api_response.json"

// Options control one run.
type Options struct {
	// DryRun evaluates everything but writes nothing.
	DryRun bool
	// Force rewrites blocks whose content did not change.
	Force bool
	// SkipFree drops records with explicit zero pricing before
	// classification.
	SkipFree bool
	// Bump is the version component incremented on content change.
	Bump reconcile.Bump
}

// Pipeline wires a feed source to the classifier and the block store.
type Pipeline struct {
	cfg        *config.Config
	source     feed.Source
	classifier *classify.Classifier
}

// New assembles a pipeline for the given source.
func New(cfg *config.Config, source feed.Source) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		source: source,
		classifier: classify.New(classify.Config{
			AutocompleteAllowList: cfg.AutocompleteModels,
			ApplyContextThreshold: cfg.ApplyContextThreshold,
		}),
	}
}

// Result is the outcome of one run.
type Result struct {
	ChangeSet *reconcile.ChangeSet
	Stats     *report.Stats
}

// Run executes one generation pass. Individual records never abort
// the batch: invalid ones are counted and skipped, and per-block
// write failures are logged while the run moves on.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	store, err := block.Load(p.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("loading existing blocks: %w", err)
	}
	for _, mf := range store.Malformed {
		slog.Warn("unreadable block treated as absent", "path", mf.Path, "error", mf.Err)
	}

	records, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching model feed: %w", err)
	}
	slog.Info("feed loaded", "source", p.source.Name(), "records", len(records))

	if !opts.DryRun {
		p.saveSnapshot()
	}

	cs := &reconcile.ChangeSet{}
	stats := report.NewStats()
	stats.Total = len(records)

	writer := block.NewWriter(p.cfg.OutputDir)
	seen := make(map[string]bool, len(records))

	for i, rec := range records {
		if rec.ID != "" {
			// First occurrence wins when the feed repeats an id.
			if seen[rec.ID] {
				slog.Debug("duplicate record in feed", "model", rec.ID)
				continue
			}
			seen[rec.ID] = true
		}

		if opts.SkipFree && rec.Free() {
			stats.SkippedFree++
			slog.Debug("skipping free model", "model", rec.ID)
			continue
		}

		summary, err := p.classifier.Classify(rec)
		if err != nil {
			if errors.Is(err, classify.ErrExcluded) {
				stats.Excluded++
				slog.Debug("model excluded", "model", rec.ID, "type", rec.Type)
			} else {
				stats.Invalid++
				slog.Warn("record skipped", "error", err)
			}
			continue
		}

		stats.Observe(rec.ID, rec.DisplayName, summary)

		outcome := reconcile.Reconcile(summary, store.Get(rec.ID), reconcile.Options{
			Force: opts.Force,
			Bump:  opts.Bump,
		})
		if outcome.Decision == reconcile.Unchanged {
			cs.Unchanged++
			continue
		}

		doc := block.Build(rec, summary, outcome.Version)

		if vr := validate.ValidateDocument(doc, block.Filename(doc.Name)); vr.HasErrors() {
			stats.Failed++
			for _, issue := range vr.Errors() {
				slog.Error("generated block failed validation",
					"model", rec.ID, "field", issue.Field, "message", issue.Message)
			}
			continue
		}

		if !opts.DryRun {
			if _, err := writer.Write(doc); err != nil {
				stats.Failed++
				slog.Error("writing block failed", "model", rec.ID, "error", err)
				continue
			}
		}

		entry := reconcile.Entry{
			ID:          rec.ID,
			DisplayName: rec.DisplayName,
			Version:     outcome.Version,
			Changes:     outcome.Changes,
		}
		switch outcome.Decision {
		case reconcile.Create:
			cs.Created = append(cs.Created, entry)
		case reconcile.Update:
			cs.Updated = append(cs.Updated, entry)
		}
		slog.Info("block "+outcome.Decision.String(),
			"model", rec.ID, "name", rec.DisplayName, "version", outcome.Version)

		if n := i + 1; n%10 == 0 {
			slog.Debug("progress", "processed", n, "total", len(records))
		}
	}

	cs.Stale = store.StaleIDs(seen)
	for _, id := range cs.Stale {
		slog.Warn("block has no matching feed record", "model", id)
	}

	if !opts.DryRun && cs.HasChanges() {
		if err := block.WriteManifest(p.cfg.OutputDir); err != nil {
			return nil, fmt.Errorf("regenerating manifest: %w", err)
		}
	}

	slog.Info("run complete",
		"created", len(cs.Created),
		"updated", len(cs.Updated),
		"unchanged", cs.Unchanged,
		"stale", len(cs.Stale),
		"excluded", stats.Excluded,
		"invalid", stats.Invalid,
		"skipped_free", stats.SkippedFree,
		"failed", stats.Failed,
		"dry_run", opts.DryRun)

	return &Result{ChangeSet: cs, Stats: stats}, nil
}

// Diff evaluates the feed against the blocks on disk without writing
// anything.
func (p *Pipeline) Diff(ctx context.Context, opts Options) (*Result, error) {
	opts.DryRun = true
	return p.Run(ctx, opts)
}

// saveSnapshot archives the raw feed payload when the source exposes
// one, so a run can be replayed later with --input-file.
func (p *Pipeline) saveSnapshot() {
	snap, ok := p.source.(feed.Snapshotter)
	if !ok {
		return
	}
	raw := snap.Snapshot()
	if len(raw) == 0 {
		return
	}
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		slog.Warn("could not save feed snapshot", "error", err)
		return
	}
	path := filepath.Join(p.cfg.OutputDir, snapshotFile)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		slog.Warn("could not save feed snapshot", "error", err)
		return
	}
	slog.Debug("feed snapshot saved", "path", path)
}
