// Package validate checks block files against the catalog schema
// before they are published.
package validate

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/everstacklabs/blocksmith/internal/block"
	"github.com/everstacklabs/blocksmith/internal/classify"
)

// Severity classifies validation issues.
type Severity int

const (
	SeverityError   Severity = iota // Blocks the write
	SeverityWarning                 // Reported but doesn't block
)

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity
	Block    string
	Field    string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s — %s", sev, i.Block, i.Field, i.Message)
}

// Result holds all validation issues.
type Result struct {
	Issues []Issue
}

// HasErrors returns true if there are any blocking errors.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (r *Result) Errors() []Issue {
	var errs []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			errs = append(errs, i)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (r *Result) Warnings() []Issue {
	var warns []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			warns = append(warns, i)
		}
	}
	return warns
}

// Known model type values (warn on unknown, don't block).
var knownTypes = map[string]bool{
	"chat":      true,
	"language":  true,
	"embedding": true,
	"rerank":    true,
}

// ValidateDocument checks a single block for schema compliance.
// filename, when non-empty, is also checked against the name-derived
// path so blocks never drift away from their deterministic location.
func ValidateDocument(d *block.Document, filename string) *Result {
	r := &Result{}

	label := d.Name
	if label == "" {
		label = filepath.Base(filename)
	}

	// Required top-level fields
	if d.Name == "" {
		r.Issues = append(r.Issues, Issue{SeverityError, label, "name", "required field is empty"})
	}
	if d.Version == "" {
		r.Issues = append(r.Issues, Issue{SeverityError, label, "version", "required field is empty"})
	} else if _, err := semver.NewVersion(d.Version); err != nil {
		r.Issues = append(r.Issues, Issue{SeverityError, label, "version",
			fmt.Sprintf("%q is not valid semver", d.Version)})
	}
	if d.Schema != block.SchemaVersion {
		r.Issues = append(r.Issues, Issue{SeverityError, label, "schema",
			fmt.Sprintf("schema %q, expected %q", d.Schema, block.SchemaVersion)})
	}
	if len(d.Models) == 0 {
		r.Issues = append(r.Issues, Issue{SeverityError, label, "models", "at least one model entry required"})
		return r
	}
	if len(d.Models) > 1 {
		r.Issues = append(r.Issues, Issue{SeverityWarning, label, "models",
			fmt.Sprintf("%d model entries, generator emits one", len(d.Models))})
	}

	for idx, m := range d.Models {
		field := func(f string) string { return fmt.Sprintf("models[%d].%s", idx, f) }

		if m.Name == "" {
			r.Issues = append(r.Issues, Issue{SeverityError, label, field("name"), "required field is empty"})
		}
		if m.Provider != block.ProviderSlug {
			r.Issues = append(r.Issues, Issue{SeverityError, label, field("provider"),
				fmt.Sprintf("provider %q, expected %q", m.Provider, block.ProviderSlug)})
		}
		if m.Model == "" {
			r.Issues = append(r.Issues, Issue{SeverityError, label, field("model"), "required field is empty"})
		}
		if m.APIKey == "" {
			r.Issues = append(r.Issues, Issue{SeverityError, label, field("apiKey"), "required field is empty"})
		}
		if len(m.Roles) == 0 {
			r.Issues = append(r.Issues, Issue{SeverityError, label, field("roles"), "at least one role required"})
		}
		for _, role := range m.Roles {
			if !classify.KnownRoles[classify.Role(role)] {
				r.Issues = append(r.Issues, Issue{SeverityWarning, label, field("roles"),
					fmt.Sprintf("unknown role %q", role)})
			}
		}
		if m.Type != "" && !knownTypes[m.Type] {
			r.Issues = append(r.Issues, Issue{SeverityWarning, label, field("type"),
				fmt.Sprintf("unknown type %q", m.Type)})
		}
		if m.CompletionOptions == nil {
			if m.Type == "chat" || m.Type == "language" {
				r.Issues = append(r.Issues, Issue{SeverityWarning, label, field("defaultCompletionOptions"),
					"chat model without a context length"})
			}
		} else {
			cl := m.CompletionOptions.ContextLength
			if cl <= 0 {
				r.Issues = append(r.Issues, Issue{SeverityError, label, field("defaultCompletionOptions.contextLength"),
					fmt.Sprintf("value %d must be positive", cl)})
			} else if cl > 2_000_000 {
				r.Issues = append(r.Issues, Issue{SeverityWarning, label, field("defaultCompletionOptions.contextLength"),
					fmt.Sprintf("value %d looks implausible", cl)})
			}
		}
	}

	// Naming consistency: the file must sit where the name says.
	if d.Name != "" && filename != "" {
		actual := filepath.Base(filename)
		expected := block.Filename(d.Name)
		if actual != expected {
			r.Issues = append(r.Issues, Issue{SeverityError, label, "name",
				fmt.Sprintf("filename %q does not match name %q (expected %q)", actual, d.Name, expected)})
		}
	}

	return r
}

// ValidateDir validates every block in a directory. Unparseable files
// come back as errors rather than aborting the walk.
func ValidateDir(dir string) (*Result, error) {
	st, err := block.Load(dir)
	if err != nil {
		return nil, err
	}

	r := &Result{}
	for _, mf := range st.Malformed {
		r.Issues = append(r.Issues, Issue{SeverityError, filepath.Base(mf.Path), "yaml", mf.Err.Error()})
	}

	ids := make([]string, 0, len(st.ByID))
	for id := range st.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		art := st.ByID[id]
		res := ValidateDocument(art.Doc, art.Path)
		r.Issues = append(r.Issues, res.Issues...)
	}

	return r, nil
}

// FormatResult formats validation results for display.
func FormatResult(r *Result) string {
	if len(r.Issues) == 0 {
		return "Validation passed: no issues found."
	}

	var b strings.Builder
	errors := r.Errors()
	warnings := r.Warnings()

	if len(errors) > 0 {
		b.WriteString(fmt.Sprintf("Errors (%d):\n", len(errors)))
		for _, e := range errors {
			b.WriteString(fmt.Sprintf("  %s\n", e))
		}
	}

	if len(warnings) > 0 {
		b.WriteString(fmt.Sprintf("Warnings (%d):\n", len(warnings)))
		for _, w := range warnings {
			b.WriteString(fmt.Sprintf("  %s\n", w))
		}
	}

	return b.String()
}
