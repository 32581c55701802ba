package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/rpggio/trackboard/internal/repository"
)

const timeLayout = time.RFC3339Nano

// ProjectStore implements project.Store for SQLite
type ProjectStore struct {
	db *DB
}

// NewProjectStore creates a new ProjectStore
func NewProjectStore(db *DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Seed inserts projects that are not already present.
func (s *ProjectStore) Seed(ctx context.Context, projects []project.Project) error {
	for i := range projects {
		err := s.Insert(ctx, &projects[i])
		if err != nil && !errors.Is(err, repository.ErrConflict) {
			return err
		}
	}
	return nil
}

// List returns all projects in insertion order
func (s *ProjectStore) List(ctx context.Context) ([]project.Project, error) {
	query := `
		SELECT id, name, status, due_date, assigned_to, summary, created_at, updated_at
		FROM projects
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []project.Project{}
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *proj)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return projects, nil
}

// Get retrieves a project by ID
func (s *ProjectStore) Get(ctx context.Context, id string) (*project.Project, error) {
	query := `
		SELECT id, name, status, due_date, assigned_to, summary, created_at, updated_at
		FROM projects
		WHERE id = ?
	`

	proj, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return proj, nil
}

// Insert appends a new project
func (s *ProjectStore) Insert(ctx context.Context, proj *project.Project) error {
	query := `
		INSERT INTO projects (id, name, status, due_date, assigned_to, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		proj.ID,
		proj.Name,
		string(proj.Status),
		proj.DueDate,
		proj.AssignedTo,
		proj.Summary,
		proj.CreatedAt.UTC().Format(timeLayout),
		proj.UpdatedAt.UTC().Format(timeLayout),
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	return nil
}

// Replace overwrites the stored row with proj.ID. Missing rows are left alone.
func (s *ProjectStore) Replace(ctx context.Context, proj *project.Project) error {
	query := `
		UPDATE projects
		SET name = ?, status = ?, due_date = ?, assigned_to = ?, summary = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := s.db.ExecContext(ctx, query,
		proj.Name,
		string(proj.Status),
		proj.DueDate,
		proj.AssignedTo,
		proj.Summary,
		proj.CreatedAt.UTC().Format(timeLayout),
		proj.UpdatedAt.UTC().Format(timeLayout),
		proj.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to replace project: %w", err)
	}

	return nil
}

// Remove deletes a project and returns the removed row
func (s *ProjectStore) Remove(ctx context.Context, id string) (*project.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	selectQuery := `
		SELECT id, name, status, due_date, assigned_to, summary, created_at, updated_at
		FROM projects
		WHERE id = ?
	`
	proj, err := scanProject(tx.QueryRowContext(ctx, selectQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return proj, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*project.Project, error) {
	var (
		proj               project.Project
		status             string
		createdAt, updated string
	)
	err := row.Scan(
		&proj.ID,
		&proj.Name,
		&status,
		&proj.DueDate,
		&proj.AssignedTo,
		&proj.Summary,
		&createdAt,
		&updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	proj.Status = project.Status(status)
	if proj.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if proj.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &proj, nil
}
