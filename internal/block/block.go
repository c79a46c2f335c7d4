// Package block defines the versioned YAML block files the generator
// maintains, one per model, and the machinery to read and write them.
package block

import (
	"sort"

	"github.com/everstacklabs/blocksmith/internal/classify"
	"github.com/everstacklabs/blocksmith/internal/feed"
)

const (
	// SchemaVersion is the only block schema this generator emits.
	SchemaVersion = "v1"

	// ProviderSlug is stamped into every generated model entry.
	ProviderSlug = "together"

	// APIKeyTemplate is the input placeholder consumers substitute at
	// install time.
	APIKeyTemplate = "${{ inputs.TOGETHER_API_KEY }}"
)

// Document is one block file. Struct order is the canonical key order
// in freshly written files.
type Document struct {
	Name        string  `yaml:"name"`
	Version     string  `yaml:"version"`
	Schema      string  `yaml:"schema"`
	Description string  `yaml:"description,omitempty"`
	Models      []Model `yaml:"models"`
}

// Model is a catalog entry inside a block. The generator always emits
// exactly one per document.
type Model struct {
	Name              string             `yaml:"name"`
	Provider          string             `yaml:"provider"`
	Model             string             `yaml:"model"`
	Type              string             `yaml:"type,omitempty"`
	APIKey            string             `yaml:"apiKey"`
	CompletionOptions *CompletionOptions `yaml:"defaultCompletionOptions,omitempty"`
	Roles             []string           `yaml:"roles"`
}

// CompletionOptions carries per-model completion defaults.
type CompletionOptions struct {
	ContextLength int `yaml:"contextLength"`
}

// Build assembles the block document for one classified record.
// Context length is omitted entirely when the feed does not report
// one.
func Build(rec feed.Record, sum classify.Summary, version string) *Document {
	roles := make([]string, len(sum.Roles))
	for i, r := range sum.Roles {
		roles[i] = string(r)
	}

	m := Model{
		Name:     rec.DisplayName,
		Provider: ProviderSlug,
		Model:    rec.ID,
		Type:     sum.Type,
		APIKey:   APIKeyTemplate,
		Roles:    roles,
	}
	if sum.ContextLength > 0 {
		m.CompletionOptions = &CompletionOptions{ContextLength: sum.ContextLength}
	}

	return &Document{
		Name:        rec.DisplayName,
		Version:     version,
		Schema:      SchemaVersion,
		Description: rec.Description,
		Models:      []Model{m},
	}
}

// ModelID returns the model identifier the block describes, or ""
// when the document has no model entry.
func (d *Document) ModelID() string {
	if len(d.Models) == 0 {
		return ""
	}
	return d.Models[0].Model
}

// Summary recovers the classification persisted in the block so it
// can be compared against a fresh one. ok is false when the document
// has no model entry.
func (d *Document) Summary() (classify.Summary, bool) {
	if len(d.Models) == 0 {
		return classify.Summary{}, false
	}
	m := d.Models[0]

	sum := classify.Summary{Type: m.Type}
	if m.CompletionOptions != nil {
		sum.ContextLength = m.CompletionOptions.ContextLength
	}
	for _, r := range m.Roles {
		sum.Roles = append(sum.Roles, classify.Role(r))
	}
	sort.Slice(sum.Roles, func(i, j int) bool { return sum.Roles[i] < sum.Roles[j] })

	return sum, true
}
