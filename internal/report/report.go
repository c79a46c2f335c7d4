// Package report accumulates per-run statistics and renders them for
// the terminal.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/everstacklabs/blocksmith/internal/classify"
)

// Stats tracks what happened to each record during a run.
type Stats struct {
	Total       int
	Excluded    int
	Invalid     int
	SkippedFree int
	Failed      int
	WithContext int

	typeCounts map[string]int
	roleCounts map[string]int
	roleModels map[string][]string

	// autocompleteSeen holds both the id and display name of every
	// model that earned autocomplete, for auditing the allow-list.
	autocompleteSeen map[string]bool
}

// NewStats returns an empty collector.
func NewStats() *Stats {
	return &Stats{
		typeCounts:       make(map[string]int),
		roleCounts:       make(map[string]int),
		roleModels:       make(map[string][]string),
		autocompleteSeen: make(map[string]bool),
	}
}

// Observe records one classified model.
func (s *Stats) Observe(id, displayName string, sum classify.Summary) {
	s.typeCounts[sum.Type]++
	if sum.ContextLength > 0 {
		s.WithContext++
	}
	for _, r := range sum.Roles {
		role := string(r)
		s.roleCounts[role]++
		s.roleModels[role] = append(s.roleModels[role], displayName)
	}
	if sum.HasRole(classify.RoleAutocomplete) {
		s.autocompleteSeen[id] = true
		s.autocompleteSeen[displayName] = true
	}
}

// MissingAutocomplete returns allow-list entries that matched no feed
// record this run. Usually a sign the model was renamed or retired.
func (s *Stats) MissingAutocomplete(allowList []string) []string {
	var missing []string
	for _, name := range allowList {
		if !s.autocompleteSeen[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// Render writes the summary tables and per-role rosters to w.
func (s *Stats) Render(w io.Writer, allowList []string) {
	fmt.Fprintln(w, "\n=== Summary Statistics ===")
	fmt.Fprintf(w, "Records: %d total, %d excluded, %d invalid, %d skipped (free), %d failed\n",
		s.Total, s.Excluded, s.Invalid, s.SkippedFree, s.Failed)
	fmt.Fprintf(w, "With context length: %d\n\n", s.WithContext)

	if len(s.typeCounts) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"Type", "Models"})
		for _, row := range sortedCounts(s.typeCounts) {
			tw.AppendRow(table.Row{row.name, row.count})
		}
		tw.Render()
	}

	if len(s.roleCounts) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"Role", "Models"})
		for _, row := range sortedCounts(s.roleCounts) {
			tw.AppendRow(table.Row{row.name, row.count})
		}
		tw.Render()
	}

	for _, row := range sortedCounts(s.roleCounts) {
		fmt.Fprintf(w, "\n%s (%d):\n", row.name, row.count)
		for _, name := range s.roster(row.name) {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	}

	if missing := s.MissingAutocomplete(allowList); len(missing) > 0 {
		fmt.Fprintln(w, "\nAllow-listed models not found in the feed:")
		for _, name := range missing {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	}
}

// roster lists the models carrying a role. The autocomplete roster is
// always printed in full since it mirrors the allow-list; other roles
// get truncated past five entries.
func (s *Stats) roster(role string) []string {
	names := append([]string(nil), s.roleModels[role]...)
	sort.Strings(names)

	if role == string(classify.RoleAutocomplete) || len(names) <= 5 {
		return names
	}
	truncated := names[:3]
	return append(truncated, fmt.Sprintf("... and %d more", len(names)-3))
}

type countRow struct {
	name  string
	count int
}

// sortedCounts orders a counter by descending count, then name, so
// output is stable run to run.
func sortedCounts(counts map[string]int) []countRow {
	rows := make([]countRow, 0, len(counts))
	for name, count := range counts {
		rows = append(rows, countRow{name: name, count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].name < rows[j].name
	})
	return rows
}
