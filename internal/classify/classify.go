// Package classify derives the role tags a model record earns in the
// block catalog.
package classify

import (
	"errors"
	"fmt"
	"sort"

	"github.com/everstacklabs/blocksmith/internal/feed"
)

// Role is a capability tag consumed by downstream tooling.
type Role string

const (
	RoleChat         Role = "chat"
	RoleAutocomplete Role = "autocomplete"
	RoleApply        Role = "apply"
	RoleEdit         Role = "edit"
	RoleEmbed        Role = "embed"
	RoleRerank       Role = "rerank"
)

// KnownRoles enumerates every role that may appear in a block, whether
// assigned by the classifier or added by hand.
var KnownRoles = map[Role]bool{
	RoleChat:         true,
	RoleAutocomplete: true,
	RoleApply:        true,
	RoleEdit:         true,
	RoleEmbed:        true,
	RoleRerank:       true,
}

// DefaultApplyThreshold is the context length at or above which a
// model earns the apply role.
const DefaultApplyThreshold = 8192

// baseRoles maps a declared model type to the role it always carries.
// Types absent from this table never produce a block.
var baseRoles = map[string]Role{
	"chat":      RoleChat,
	"language":  RoleChat,
	"embedding": RoleEmbed,
	"rerank":    RoleRerank,
}

// excludedTypes are declared types that are out of catalog scope.
var excludedTypes = map[string]bool{
	"image":      true,
	"audio":      true,
	"moderation": true,
	"multimodal": true,
}

var (
	// ErrExcluded marks records whose type is out of catalog scope.
	// An expected filtering outcome, not a failure.
	ErrExcluded = errors.New("model type not applicable")

	// ErrInvalidRecord marks records missing required fields.
	ErrInvalidRecord = errors.New("invalid model record")
)

// Summary is the normalized classification of one record. Roles are
// sorted and duplicate-free.
type Summary struct {
	Type          string
	Roles         []Role
	ContextLength int
}

// HasRole reports whether the summary carries a role.
func (s Summary) HasRole(role Role) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Equal reports whether two summaries are semantically identical:
// same type, same context length, and the same role set regardless of
// order. This is the comparison that decides whether a block gets
// rewritten.
func (s Summary) Equal(other Summary) bool {
	if s.Type != other.Type || s.ContextLength != other.ContextLength {
		return false
	}
	return equalRoleSets(s.Roles, other.Roles)
}

func equalRoleSets(a, b []Role) bool {
	as := make(map[Role]bool, len(a))
	for _, r := range a {
		as[r] = true
	}
	bs := make(map[Role]bool, len(b))
	for _, r := range b {
		bs[r] = true
	}
	if len(as) != len(bs) {
		return false
	}
	for r := range as {
		if !bs[r] {
			return false
		}
	}
	return true
}

// Config carries the classification policy.
type Config struct {
	// AutocompleteAllowList holds model identifiers or display names
	// approved for the autocomplete role.
	AutocompleteAllowList []string

	// ApplyContextThreshold is the minimum context length for the
	// apply role. Zero or negative means DefaultApplyThreshold.
	ApplyContextThreshold int
}

// Classifier assigns roles to model records. It holds no mutable
// state; two classifiers built from the same Config always agree.
type Classifier struct {
	allow     map[string]bool
	threshold int
}

// New builds a classifier from the given policy.
func New(cfg Config) *Classifier {
	threshold := cfg.ApplyContextThreshold
	if threshold <= 0 {
		threshold = DefaultApplyThreshold
	}
	allow := make(map[string]bool, len(cfg.AutocompleteAllowList))
	for _, name := range cfg.AutocompleteAllowList {
		allow[name] = true
	}
	return &Classifier{allow: allow, threshold: threshold}
}

// Classify maps a record to its role summary.
//
// Records typed image, audio, moderation, or multimodal return
// ErrExcluded, as does any type the catalog does not recognize.
// Records missing an identifier, display name, or type return
// ErrInvalidRecord.
func (c *Classifier) Classify(rec feed.Record) (Summary, error) {
	if rec.ID == "" {
		return Summary{}, fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	if rec.DisplayName == "" {
		return Summary{}, fmt.Errorf("%w: %s missing display_name", ErrInvalidRecord, rec.ID)
	}
	if rec.Type == "" {
		return Summary{}, fmt.Errorf("%w: %s missing type", ErrInvalidRecord, rec.ID)
	}

	if excludedTypes[rec.Type] {
		return Summary{}, fmt.Errorf("%w: type %q", ErrExcluded, rec.Type)
	}
	base, ok := baseRoles[rec.Type]
	if !ok {
		return Summary{}, fmt.Errorf("%w: unrecognized type %q", ErrExcluded, rec.Type)
	}

	roles := []Role{base}

	// Long-context models can hold a whole file plus the rewrite
	// instructions, which is what apply needs.
	if rec.ContextLength >= c.threshold {
		roles = append(roles, RoleApply)
	}

	// Allow-list membership is the only gate for autocomplete.
	// Context length and type never factor in.
	if c.allow[rec.ID] || c.allow[rec.DisplayName] {
		roles = append(roles, RoleAutocomplete)
	}

	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	return Summary{
		Type:          rec.Type,
		Roles:         roles,
		ContextLength: rec.ContextLength,
	}, nil
}
