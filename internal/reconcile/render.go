package reconcile

import (
	"fmt"
	"strings"
)

// RenderSummary formats a changeset for terminal output.
func RenderSummary(cs *ChangeSet) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Blocks: %d new, %d updated, %d unchanged",
		len(cs.Created), len(cs.Updated), cs.Unchanged)
	if len(cs.Stale) > 0 {
		fmt.Fprintf(&b, ", %d stale", len(cs.Stale))
	}

	for _, e := range cs.Created {
		fmt.Fprintf(&b, "\n  + %s (v%s)", e.DisplayName, e.Version)
	}
	for _, e := range cs.Updated {
		fmt.Fprintf(&b, "\n  ~ %s (v%s)", e.DisplayName, e.Version)
		for _, c := range e.Changes {
			switch c.Field {
			case "roles.added":
				fmt.Fprintf(&b, "\n      roles added: %s", joinAny(c.New))
			case "roles.removed":
				fmt.Fprintf(&b, "\n      roles removed: %s", joinAny(c.Old))
			default:
				fmt.Fprintf(&b, "\n      %s: %v -> %v", c.Field, c.Old, c.New)
			}
		}
	}
	for _, id := range cs.Stale {
		fmt.Fprintf(&b, "\n  - %s (no longer in feed)", id)
	}

	return b.String()
}

func joinAny(v any) string {
	return strings.Trim(fmt.Sprintf("%v", v), "[]")
}
