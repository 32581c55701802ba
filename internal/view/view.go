// Package view derives list presentation state from a cache snapshot.
// Every function is pure: same snapshot in, same result out.
package view

import (
	"strings"

	"github.com/rpggio/trackboard/internal/domain/project"
)

// All selects every status in FilterByStatus.
const All project.Status = "all"

// FilterByStatus keeps projects whose status equals status, or everything for All.
func FilterByStatus(snapshot []project.Project, status project.Status) []project.Project {
	out := make([]project.Project, 0, len(snapshot))
	for _, p := range snapshot {
		if status == All || status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// Search keeps projects whose name or summary contains query, ignoring case
// and surrounding whitespace. An empty query keeps everything.
func Search(snapshot []project.Project, query string) []project.Project {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]project.Project, 0, len(snapshot))
	for _, p := range snapshot {
		if q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Summary), q) {
			out = append(out, p)
		}
	}
	return out
}

// CountsByStatus counts projects per status. Every known status is present.
func CountsByStatus(snapshot []project.Project) map[project.Status]int {
	counts := make(map[project.Status]int, len(project.Statuses))
	for _, s := range project.Statuses {
		counts[s] = 0
	}
	for _, p := range snapshot {
		counts[p.Status]++
	}
	return counts
}

// Query combines a status filter with a text search.
type Query struct {
	Status project.Status
	Text   string
}

// Apply filters by status, then searches.
func (q Query) Apply(snapshot []project.Project) []project.Project {
	return Search(FilterByStatus(snapshot, q.Status), q.Text)
}
