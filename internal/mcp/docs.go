package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `trackboard tracks projects: name, status, due date, assignee and summary.

Statuses are exactly "To-Do", "In Progress" and "Completed". Due dates are YYYY-MM-DD.
assignedTo is a user id (1 or greater).

Workflow:
1) Orient with project_counts, then list_projects or search_projects.
2) create_project and update_project need all five fields. update_project replaces them,
   so send the current values for fields you are not changing.
3) Tool errors carry a code. TRANSIENT failures are safe to retry once; VALIDATION_FAILED
   and PROJECT_NOT_FOUND are not.

Docs: trackboard://docs/fields`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "trackboard://docs/fields",
		Name:        "docs_fields",
		Title:       "Project fields",
		Description: "Field formats, validation rules and timestamp behaviour.",
		Content: `# Project fields

| Field | Format | Rule |
|---|---|---|
| name | text | required |
| status | "To-Do", "In Progress", "Completed" | required |
| dueDate | YYYY-MM-DD | required |
| assignedTo | integer user id | required, 1 or greater |
| summary | text | required |

- ` + "`id`" + `, ` + "`createdAt`" + ` and ` + "`updatedAt`" + ` are assigned by the server.
- ` + "`updatedAt`" + ` only changes when an update actually changes a field.
- The backend fails a small share of calls on purpose. Those errors have code TRANSIENT.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
