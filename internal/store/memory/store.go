// Package memory holds the process-local project store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/rpggio/trackboard/internal/repository"
)

// Store keeps projects in a slice guarded by a mutex. Order is insertion order.
type Store struct {
	mu       sync.RWMutex
	projects []project.Project
}

// New creates a store holding a copy of initial.
func New(initial ...project.Project) (*Store, error) {
	s := &Store{}
	seen := make(map[string]struct{}, len(initial))
	for _, p := range initial {
		if _, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("seeding project %q: %w", p.ID, repository.ErrConflict)
		}
		seen[p.ID] = struct{}{}
		s.projects = append(s.projects, p)
	}
	return s, nil
}

// NewDemo creates a store seeded with the demo projects.
func NewDemo() *Store {
	return &Store{projects: project.DemoProjects()}
}

func (s *Store) List(ctx context.Context) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := project.Clone(s.projects)
	if out == nil {
		out = []project.Project{}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	p := s.projects[i]
	return &p, nil
}

func (s *Store) Insert(ctx context.Context, proj *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(proj.ID) >= 0 {
		return repository.ErrConflict
	}
	s.projects = append(s.projects, *proj)
	return nil
}

// Replace overwrites the record with proj.ID in place. Absent ids are ignored.
func (s *Store) Replace(ctx context.Context, proj *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(proj.ID); i >= 0 {
		s.projects[i] = *proj
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	removed := s.projects[i]
	s.projects = append(s.projects[:i], s.projects[i+1:]...)
	return &removed, nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.projects {
		if s.projects[i].ID == id {
			return i
		}
	}
	return -1
}
