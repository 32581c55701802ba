package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/rpggio/trackboard/internal/repository"
	"github.com/stretchr/testify/require"
)

func testProject(id string) *project.Project {
	ts := time.Date(2024, 1, 15, 10, 0, 0, 123_000_000, time.UTC)
	return &project.Project{
		ID:         id,
		Name:       "Project " + id,
		Status:     project.StatusInProgress,
		DueDate:    "2024-03-15",
		AssignedTo: 2,
		Summary:    "Summary for " + id,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

func TestProjectStore_InsertAndGet(t *testing.T) {
	store := NewProjectStore(NewTestDB(t))
	ctx := context.Background()

	proj := testProject("p1")
	require.NoError(t, store.Insert(ctx, proj))

	retrieved, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, proj, retrieved)

	_, err = store.Get(ctx, "nonexistent")
	require.Equal(t, repository.ErrNotFound, err)
}

func TestProjectStore_InsertDuplicate(t *testing.T) {
	store := NewProjectStore(NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testProject("p1")))
	require.ErrorIs(t, store.Insert(ctx, testProject("p1")), repository.ErrConflict)
}

func TestProjectStore_ListInsertionOrder(t *testing.T) {
	store := NewProjectStore(NewTestDB(t))
	ctx := context.Background()

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.Insert(ctx, testProject(id)))
	}

	list, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "zeta", list[0].ID)
	require.Equal(t, "alpha", list[1].ID)
	require.Equal(t, "mid", list[2].ID)
}

func TestProjectStore_Replace(t *testing.T) {
	store := NewProjectStore(NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testProject("p1")))
	require.NoError(t, store.Insert(ctx, testProject("p2")))

	updated := testProject("p1")
	updated.Status = project.StatusCompleted
	updated.UpdatedAt = updated.UpdatedAt.Add(time.Hour)
	require.NoError(t, store.Replace(ctx, updated))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "p1", list[0].ID, "replace keeps position")
	require.Equal(t, *updated, list[0])

	require.NoError(t, store.Replace(ctx, testProject("missing")))
	list, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestProjectStore_Remove(t *testing.T) {
	store := NewProjectStore(NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testProject("p1")))

	removed, err := store.Remove(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", removed.ID)

	_, err = store.Remove(ctx, "p1")
	require.Equal(t, repository.ErrNotFound, err)
}

func TestProjectStore_Seed(t *testing.T) {
	store := NewProjectStore(NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Seed(ctx, project.DemoProjects()))
	require.NoError(t, store.Seed(ctx, project.DemoProjects()))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, project.DemoProjects(), list)
}

func TestProjectStore_BacksService(t *testing.T) {
	store := NewProjectStore(NewTestDB(t))
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	svc := project.NewService(store, nil, project.WithClock(func() time.Time { return clock }))

	created, err := svc.Create(ctx, project.InputOf(*testProject("ignored")))
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	same, err := svc.Update(ctx, created.ID, project.InputOf(*created))
	require.NoError(t, err)
	require.Equal(t, created.UpdatedAt, same.UpdatedAt)

	in := project.InputOf(*created)
	in.Summary = "changed"
	changed, err := svc.Update(ctx, created.ID, in)
	require.NoError(t, err)
	require.Equal(t, clock, changed.UpdatedAt)

	stored, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, *changed, *stored)
}
