// Package feed retrieves model records from the Together AI listing
// API or from a local snapshot of it.
package feed

import "context"

// Record is one model entry as reported by the listing feed.
type Record struct {
	ID            string   `json:"id"`
	Object        string   `json:"object,omitempty"`
	Created       int64    `json:"created,omitempty"`
	Type          string   `json:"type"`
	DisplayName   string   `json:"display_name"`
	Organization  string   `json:"organization,omitempty"`
	Description   string   `json:"description,omitempty"`
	ContextLength int      `json:"context_length,omitempty"`
	Pricing       *Pricing `json:"pricing,omitempty"`
}

// Pricing is the per-token cost attached to a record. Units are
// whatever the feed reports; the generator only ever checks for zero.
type Pricing struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// Free reports whether the record carries explicit zero pricing.
// Records without a pricing object are not considered free.
func (r Record) Free() bool {
	return r.Pricing != nil && r.Pricing.Input == 0 && r.Pricing.Output == 0
}

// Source produces the model records for one run.
type Source interface {
	// Name identifies the source in logs and reports.
	Name() string
	// Fetch returns every record the source knows about.
	Fetch(ctx context.Context) ([]Record, error)
}

// Snapshotter is implemented by sources that can hand back the raw
// feed payload for archival alongside the generated blocks.
type Snapshotter interface {
	Snapshot() []byte
}
