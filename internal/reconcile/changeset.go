package reconcile

import "github.com/everstacklabs/blocksmith/internal/classify"

// FieldChange records one summary field difference for reporting.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// fieldChanges lists what moved between two summaries.
func fieldChanges(prev, next classify.Summary) []FieldChange {
	var changes []FieldChange

	if prev.Type != next.Type {
		changes = append(changes, FieldChange{Field: "type", Old: prev.Type, New: next.Type})
	}
	if prev.ContextLength != next.ContextLength {
		changes = append(changes, FieldChange{
			Field: "contextLength",
			Old:   prev.ContextLength,
			New:   next.ContextLength,
		})
	}

	added, removed := roleDiff(prev.Roles, next.Roles)
	if len(added) > 0 {
		changes = append(changes, FieldChange{Field: "roles.added", New: added})
	}
	if len(removed) > 0 {
		changes = append(changes, FieldChange{Field: "roles.removed", Old: removed})
	}

	return changes
}

// roleDiff returns the roles gained and lost between two sets.
func roleDiff(prev, next []classify.Role) (added, removed []classify.Role) {
	prevSet := make(map[classify.Role]bool, len(prev))
	for _, r := range prev {
		prevSet[r] = true
	}
	nextSet := make(map[classify.Role]bool, len(next))
	for _, r := range next {
		nextSet[r] = true
	}

	for _, r := range next {
		if !prevSet[r] {
			added = append(added, r)
		}
	}
	for _, r := range prev {
		if !nextSet[r] {
			removed = append(removed, r)
		}
	}
	return added, removed
}

// Entry pairs a model with its reconciliation outcome.
type Entry struct {
	ID          string
	DisplayName string
	Version     string
	Changes     []FieldChange
}

// ChangeSet aggregates the outcomes of one run.
type ChangeSet struct {
	Created   []Entry
	Updated   []Entry
	Unchanged int
	// Stale lists identifiers with a block on disk but no feed
	// record. They are reported, never deleted.
	Stale []string
}

// HasChanges reports whether anything was (or would be) written.
func (cs *ChangeSet) HasChanges() bool {
	return len(cs.Created) > 0 || len(cs.Updated) > 0
}

// TotalChanged counts blocks written this run.
func (cs *ChangeSet) TotalChanged() int {
	return len(cs.Created) + len(cs.Updated)
}
