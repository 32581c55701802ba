package project

import (
	"strings"
	"time"
)

// Status represents the workflow state of a project
type Status string

const (
	StatusToDo       Status = "To-Do"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusToDo, StatusInProgress, StatusCompleted}

// DueDateLayout is the calendar date format used for DueDate.
const DueDateLayout = "2006-01-02"

// TempIDPrefix marks ids synthesized locally for records the server has not confirmed.
const TempIDPrefix = "temp-"

// Project is a tracked unit of work
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	DueDate    string    `json:"dueDate"`
	AssignedTo int       `json:"assignedTo"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Input carries the mutable fields accepted by create and update.
type Input struct {
	Name       string `json:"name" validate:"required"`
	Status     Status `json:"status" validate:"required,oneof=To-Do 'In Progress' Completed"`
	DueDate    string `json:"dueDate" validate:"required,datetime=2006-01-02"`
	AssignedTo int    `json:"assignedTo" validate:"required,gte=1"`
	Summary    string `json:"summary" validate:"required"`
}

// InputOf extracts the mutable fields of p.
func InputOf(p Project) Input {
	return Input{
		Name:       p.Name,
		Status:     p.Status,
		DueDate:    p.DueDate,
		AssignedTo: p.AssignedTo,
		Summary:    p.Summary,
	}
}

// IsTemporaryID reports whether id was generated locally rather than by the server.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Clone returns a copy of the slice so callers never share backing arrays.
func Clone(projects []Project) []Project {
	if projects == nil {
		return nil
	}
	out := make([]Project, len(projects))
	copy(out, projects)
	return out
}

// Trimmed returns in with surrounding whitespace removed from text fields.
func (in Input) Trimmed() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Summary = strings.TrimSpace(in.Summary)
	in.DueDate = strings.TrimSpace(in.DueDate)
	return in
}
