package project

import "time"

// Changed reports whether in differs from current in any mutable field.
func Changed(current Project, in Input) bool {
	return current.Name != in.Name ||
		current.Status != in.Status ||
		current.DueDate != in.DueDate ||
		current.AssignedTo != in.AssignedTo ||
		current.Summary != in.Summary
}

// Merge applies in to current field by field. UpdatedAt moves to now only when a
// mutable field changed. ID and CreatedAt are never touched.
func Merge(current Project, in Input, now time.Time) (Project, bool) {
	changed := Changed(current, in)

	next := current
	next.Name = in.Name
	next.Status = in.Status
	next.DueDate = in.DueDate
	next.AssignedTo = in.AssignedTo
	next.Summary = in.Summary
	if changed {
		next.UpdatedAt = now
	}
	return next, changed
}
