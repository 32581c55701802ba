package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpggio/trackboard/internal/client"
	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/rpggio/trackboard/internal/store/memory"
	"github.com/rpggio/trackboard/internal/transport"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T, opts ...project.Option) *client.Client {
	t.Helper()
	svc := project.NewService(memory.NewDemo(), nil, opts...)
	server := httptest.NewServer(transport.NewServer(svc))
	t.Cleanup(server.Close)
	return client.New(server.URL)
}

func validInput() project.Input {
	return project.Input{
		Name:       "Onboarding Flow",
		Status:     project.StatusInProgress,
		DueDate:    "2024-07-01",
		AssignedTo: 2,
		Summary:    "Rework the onboarding flow",
	}
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	api := newAPI(t)

	created, err := api.Create(ctx, validInput())
	require.NoError(t, err)
	require.Equal(t, validInput(), project.InputOf(*created))

	list, err := api.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 6)
	require.Equal(t, *created, list[5])

	in := validInput()
	in.Status = project.StatusCompleted
	updated, err := api.Update(ctx, created.ID, in)
	require.NoError(t, err)
	require.Equal(t, project.StatusCompleted, updated.Status)
	require.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	removed, err := api.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, removed.ID)
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		api := newAPI(t)
		in := validInput()
		in.Name = ""
		_, err := api.Create(ctx, in)
		require.ErrorIs(t, err, project.ErrValidation)

		var serr *client.StatusError
		require.True(t, errors.As(err, &serr))
		require.Equal(t, http.StatusBadRequest, serr.Status)
		require.Equal(t, []string{"name"}, serr.Fields)
		require.Equal(t, "Missing required fields", client.Message(err))
	})

	t.Run("not found", func(t *testing.T) {
		api := newAPI(t)
		_, err := api.Delete(ctx, "missing")
		require.ErrorIs(t, err, project.ErrNotFound)
		require.Equal(t, "Project not found", client.Message(err))
	})

	t.Run("transient", func(t *testing.T) {
		api := newAPI(t, project.WithFaults(project.FailAlways(project.OpCreate)))
		_, err := api.Create(ctx, validInput())
		require.ErrorIs(t, err, project.ErrTransient)
		require.Equal(t, "Failed to create project. Please try again.", client.Message(err))
	})
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	api := client.New(server.URL, client.WithTimeout(50*time.Millisecond))
	_, err := api.List(context.Background())
	require.ErrorIs(t, err, client.ErrTimeout)
	require.NotErrorIs(t, err, client.ErrNetwork)
	require.Equal(t, client.MsgTimeout, client.Message(err))
}

func TestClient_ContextDeadlineIsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.New(server.URL).List(ctx)
	require.ErrorIs(t, err, client.ErrTimeout)
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := client.New(url).List(context.Background())
	require.ErrorIs(t, err, client.ErrNetwork)
	require.Equal(t, client.MsgNetwork, client.Message(err))
}

func TestClient_CallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.New(server.URL).List(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, client.ErrNetwork)
}

func TestMessage_Unknown(t *testing.T) {
	require.Equal(t, "", client.Message(nil))
	require.Equal(t, client.MsgUnknown, client.Message(errors.New("boom")))
	require.Equal(t, client.MsgUnknown, client.Message(&client.StatusError{Status: 418}))
}
