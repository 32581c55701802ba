package mcp

import (
	"context"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/rpggio/trackboard/internal/view"
)

// ProjectFields are the mutable project fields. Every field is optional in the
// schema so that missing values come back as VALIDATION_FAILED with field names.
type ProjectFields struct {
	Name       string `json:"name,omitempty" jsonschema:"project display name"`
	Status     string `json:"status,omitempty" jsonschema:"one of To-Do, In Progress, Completed"`
	DueDate    string `json:"dueDate,omitempty" jsonschema:"due date as YYYY-MM-DD"`
	AssignedTo int    `json:"assignedTo,omitempty" jsonschema:"assignee user id"`
	Summary    string `json:"summary,omitempty" jsonschema:"short description of the work"`
}

func (f ProjectFields) input() project.Input {
	return project.Input{
		Name:       f.Name,
		Status:     project.Status(f.Status),
		DueDate:    f.DueDate,
		AssignedTo: f.AssignedTo,
		Summary:    f.Summary,
	}
}

type listInput struct{}

type searchInput struct {
	Status string `json:"status,omitempty" jsonschema:"status filter; all or empty matches every status"`
	Text   string `json:"text,omitempty" jsonschema:"case-insensitive substring of name or summary"`
}

type updateInput struct {
	ID         string `json:"id" jsonschema:"project id"`
	Name       string `json:"name,omitempty" jsonschema:"project display name"`
	Status     string `json:"status,omitempty" jsonschema:"one of To-Do, In Progress, Completed"`
	DueDate    string `json:"dueDate,omitempty" jsonschema:"due date as YYYY-MM-DD"`
	AssignedTo int    `json:"assignedTo,omitempty" jsonschema:"assignee user id"`
	Summary    string `json:"summary,omitempty" jsonschema:"short description of the work"`
}

func (in updateInput) fields() ProjectFields {
	return ProjectFields{
		Name:       in.Name,
		Status:     in.Status,
		DueDate:    in.DueDate,
		AssignedTo: in.AssignedTo,
		Summary:    in.Summary,
	}
}

type deleteInput struct {
	ID string `json:"id" jsonschema:"project id"`
}

// ProjectOutput is the wire form of a project returned by tools.
type ProjectOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	DueDate    string `json:"dueDate"`
	AssignedTo int    `json:"assignedTo"`
	Summary    string `json:"summary"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// ProjectsOutput wraps a project list.
type ProjectsOutput struct {
	Projects []ProjectOutput `json:"projects"`
	Total    int             `json:"total"`
}

// CountsOutput reports how many projects are in each status.
type CountsOutput struct {
	ToDo       int `json:"toDo"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}

func registerTools(server *sdkmcp.Server, projects ProjectService) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List every project in insertion order",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ listInput) (*sdkmcp.CallToolResult, ProjectsOutput, error) {
		list, err := projects.List(ctx)
		if err != nil {
			return nil, ProjectsOutput{}, MapError(err)
		}
		return nil, projectsOutput(list), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "search_projects",
		Description: "Filter projects by status and search text",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in searchInput) (*sdkmcp.CallToolResult, ProjectsOutput, error) {
		list, err := projects.List(ctx)
		if err != nil {
			return nil, ProjectsOutput{}, MapError(err)
		}
		q := view.Query{Status: project.Status(in.Status), Text: in.Text}
		return nil, projectsOutput(q.Apply(list)), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "project_counts",
		Description: "Count projects per status",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ listInput) (*sdkmcp.CallToolResult, CountsOutput, error) {
		list, err := projects.List(ctx)
		if err != nil {
			return nil, CountsOutput{}, MapError(err)
		}
		counts := view.CountsByStatus(list)
		return nil, CountsOutput{
			ToDo:       counts[project.StatusToDo],
			InProgress: counts[project.StatusInProgress],
			Completed:  counts[project.StatusCompleted],
			Total:      len(list),
		}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_project",
		Description: "Create a project. All five fields are required.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProjectFields) (*sdkmcp.CallToolResult, ProjectOutput, error) {
		created, err := projects.Create(ctx, in.input())
		if err != nil {
			return nil, ProjectOutput{}, MapError(err)
		}
		return nil, projectOutput(*created), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_project",
		Description: "Replace the fields of an existing project. All five fields are required.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in updateInput) (*sdkmcp.CallToolResult, ProjectOutput, error) {
		updated, err := projects.Update(ctx, in.ID, in.fields().input())
		if err != nil {
			return nil, ProjectOutput{}, MapError(err)
		}
		return nil, projectOutput(*updated), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_project",
		Description: "Delete a project and return the removed record",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in deleteInput) (*sdkmcp.CallToolResult, ProjectOutput, error) {
		deleted, err := projects.Delete(ctx, in.ID)
		if err != nil {
			return nil, ProjectOutput{}, MapError(err)
		}
		return nil, projectOutput(*deleted), nil
	})
}

func projectOutput(p project.Project) ProjectOutput {
	return ProjectOutput{
		ID:         p.ID,
		Name:       p.Name,
		Status:     string(p.Status),
		DueDate:    p.DueDate,
		AssignedTo: p.AssignedTo,
		Summary:    p.Summary,
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func projectsOutput(list []project.Project) ProjectsOutput {
	out := ProjectsOutput{Projects: make([]ProjectOutput, 0, len(list)), Total: len(list)}
	for _, p := range list {
		out.Projects = append(out.Projects, projectOutput(p))
	}
	return out
}
