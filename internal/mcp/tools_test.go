package mcp

import (
	"context"
	"encoding/json"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/rpggio/trackboard/internal/store/memory"
	"github.com/stretchr/testify/require"
)

type alwaysFail struct{}

func (alwaysFail) ShouldFail(project.Operation) bool { return true }

func connect(t *testing.T, svc ProjectService) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewServer(Config{Projects: svc})
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any, out any) *sdkmcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	if out != nil && !res.IsError {
		text, ok := res.Content[0].(*sdkmcp.TextContent)
		require.True(t, ok)
		require.NoError(t, json.Unmarshal([]byte(text.Text), out))
	}
	return res
}

func errorText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func demoService() *project.Service {
	return project.NewService(memory.NewDemo(), nil)
}

func TestListProjects(t *testing.T) {
	cs := connect(t, demoService())

	var out ProjectsOutput
	callTool(t, cs, "list_projects", nil, &out)
	require.Equal(t, 5, out.Total)
	require.Len(t, out.Projects, 5)
	require.Equal(t, "1", out.Projects[0].ID)
	require.NotEmpty(t, out.Projects[0].CreatedAt)
}

func TestSearchAndCounts(t *testing.T) {
	cs := connect(t, demoService())

	var counts CountsOutput
	callTool(t, cs, "project_counts", nil, &counts)
	require.Equal(t, 5, counts.Total)
	require.Equal(t, counts.Total, counts.ToDo+counts.InProgress+counts.Completed)

	var completed ProjectsOutput
	callTool(t, cs, "search_projects", map[string]any{"status": "Completed"}, &completed)
	require.Equal(t, counts.Completed, completed.Total)
	for _, p := range completed.Projects {
		require.Equal(t, "Completed", p.Status)
	}

	var none ProjectsOutput
	callTool(t, cs, "search_projects", map[string]any{"text": "no such project anywhere"}, &none)
	require.Zero(t, none.Total)
	require.NotNil(t, none.Projects)
}

func TestCreateUpdateDelete(t *testing.T) {
	cs := connect(t, demoService())

	var created ProjectOutput
	callTool(t, cs, "create_project", map[string]any{
		"name":       "Docs refresh",
		"status":     "To-Do",
		"dueDate":    "2026-01-15",
		"assignedTo": 3,
		"summary":    "Rewrite the getting started guide",
	}, &created)
	require.NotEmpty(t, created.ID)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)

	var updated ProjectOutput
	callTool(t, cs, "update_project", map[string]any{
		"id":         created.ID,
		"name":       "Docs refresh",
		"status":     "In Progress",
		"dueDate":    "2026-01-15",
		"assignedTo": 3,
		"summary":    "Rewrite the getting started guide",
	}, &updated)
	require.Equal(t, "In Progress", updated.Status)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)

	var deleted ProjectOutput
	callTool(t, cs, "delete_project", map[string]any{"id": created.ID}, &deleted)
	require.Equal(t, created.ID, deleted.ID)

	var list ProjectsOutput
	callTool(t, cs, "list_projects", nil, &list)
	require.Equal(t, 5, list.Total)
}

func TestToolErrors(t *testing.T) {
	cs := connect(t, demoService())

	res := callTool(t, cs, "create_project", map[string]any{"name": "Only a name"}, nil)
	require.Contains(t, errorText(t, res), "VALIDATION_FAILED")
	require.Contains(t, errorText(t, res), "status")

	res = callTool(t, cs, "delete_project", map[string]any{"id": "missing"}, nil)
	require.Contains(t, errorText(t, res), "PROJECT_NOT_FOUND")
}

func TestTransientToolError(t *testing.T) {
	svc := project.NewService(memory.NewDemo(), nil, project.WithFaults(alwaysFail{}))
	cs := connect(t, svc)

	res := callTool(t, cs, "list_projects", nil, nil)
	text := errorText(t, res)
	require.Contains(t, text, "TRANSIENT")
	require.Contains(t, text, "Failed to fetch projects")
}

func TestDocsResource(t *testing.T) {
	cs := connect(t, demoService())

	res, err := cs.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "trackboard://docs/fields"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "YYYY-MM-DD")
}

func TestMapError(t *testing.T) {
	require.Nil(t, MapError(nil))

	var apiErr *APIError
	err := MapError(&project.ValidationError{Fields: []string{"name", "summary"}})
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "VALIDATION_FAILED", apiErr.Code)
	require.Contains(t, apiErr.Message, "name, summary")

	err = MapError(&project.TransientError{Op: project.OpDelete})
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "TRANSIENT", apiErr.Code)

	plain := context.Canceled
	require.Equal(t, plain, MapError(plain))
}
