// Package reconcile decides, for each classified model, whether its
// block must be created, rewritten with a version bump, or left
// alone.
package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"

	"github.com/everstacklabs/blocksmith/internal/block"
	"github.com/everstacklabs/blocksmith/internal/classify"
)

// Decision states what the generator must do with a block.
type Decision int

const (
	Create Decision = iota
	Update
	Unchanged
)

func (d Decision) String() string {
	switch d {
	case Create:
		return "create"
	case Update:
		return "update"
	case Unchanged:
		return "unchanged"
	}
	return "unknown"
}

// Bump selects which version component an update increments.
type Bump string

const (
	BumpPatch Bump = "patch"
	BumpMinor Bump = "minor"
	BumpMajor Bump = "major"
)

// ParseBump validates a bump name from a flag or config value.
func ParseBump(s string) (Bump, error) {
	switch Bump(s) {
	case BumpPatch, BumpMinor, BumpMajor:
		return Bump(s), nil
	}
	return "", fmt.Errorf("invalid bump %q (want patch, minor, or major)", s)
}

// initialVersion is assigned to brand-new blocks and to blocks whose
// recorded version cannot be parsed.
const initialVersion = "1.0.0"

// Options control reconciliation.
type Options struct {
	// Force rewrites a block even when its content is unchanged. The
	// version still only moves when content actually differs.
	Force bool

	// Bump is the component incremented on content change. Empty
	// means BumpMinor. Major is never chosen automatically; it only
	// happens when the operator asks for it here.
	Bump Bump
}

// Outcome is the verdict for a single model.
type Outcome struct {
	Decision Decision
	Version  string
	Changes  []FieldChange
}

// Reconcile compares a fresh summary against the prior artifact. A
// nil prior means the model has never been generated, or its previous
// block was unreadable; either way the result is Create at 1.0.0.
//
// Versions never move backwards: an unchanged block keeps its
// version, a changed one bumps the requested component and zeroes the
// ones below it.
func Reconcile(next classify.Summary, prior *block.Artifact, opts Options) Outcome {
	if opts.Bump == "" {
		opts.Bump = BumpMinor
	}

	if prior == nil {
		return Outcome{Decision: Create, Version: initialVersion}
	}

	prev, ok := prior.Doc.Summary()
	prevVersion := prior.Doc.Version

	if ok && next.Equal(prev) {
		if opts.Force {
			// Rewrite with identical content, version stays put.
			return Outcome{Decision: Update, Version: currentVersion(prior.Doc.Name, prevVersion)}
		}
		return Outcome{Decision: Unchanged, Version: prevVersion}
	}

	return Outcome{
		Decision: Update,
		Version:  nextVersion(prior.Doc.Name, prevVersion, opts.Bump),
		Changes:  fieldChanges(prev, next),
	}
}

// currentVersion keeps a parseable prior version as-is so a forced
// rewrite can repair a block whose version field is broken.
func currentVersion(name, prev string) string {
	if _, err := semver.NewVersion(prev); err != nil {
		slog.Warn("block has invalid version, resetting", "block", name, "version", prev)
		return initialVersion
	}
	return prev
}

// nextVersion bumps the requested component. An unparseable prior
// version restarts the block at 1.0.0.
func nextVersion(name, prev string, bump Bump) string {
	v, err := semver.NewVersion(prev)
	if err != nil {
		slog.Warn("block has invalid version, resetting", "block", name, "version", prev)
		return initialVersion
	}

	var next semver.Version
	switch bump {
	case BumpPatch:
		next = v.IncPatch()
	case BumpMajor:
		next = v.IncMajor()
	default:
		next = v.IncMinor()
	}
	return next.String()
}
