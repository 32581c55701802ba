package cache

import (
	"context"

	"github.com/rpggio/trackboard/internal/domain/project"
)

// Pending tracks one mutation from optimistic apply to reconciliation.
type Pending struct {
	op       project.Operation
	id       string
	tempID   string
	rollback []project.Project

	done   chan struct{}
	result *project.Project
	err    error
}

// Operation returns the mutation kind.
func (p *Pending) Operation() project.Operation { return p.op }

// TempID returns the temporary id of a create, or "" for other operations.
func (p *Pending) TempID() string { return p.tempID }

// Rollback returns a copy of the snapshot captured before the optimistic change.
func (p *Pending) Rollback() []project.Project { return project.Clone(p.rollback) }

// Done is closed once the mutation has been reconciled or rolled back.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the mutation resolves and returns the server record or
// the remote error unchanged.
func (p *Pending) Wait(ctx context.Context) (*project.Project, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return p.result, p.err
	}
}

func (p *Pending) resolve(result *project.Project, err error) {
	p.result = result
	p.err = err
	close(p.done)
}
