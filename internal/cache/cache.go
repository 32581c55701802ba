// Package cache keeps a client-side copy of the project list and applies
// mutations optimistically before the server confirms them.
//
// Every mutation runs in three phases. The optimistic change is applied
// synchronously and the pre-change snapshot is kept as the rollback point.
// The remote call then runs in its own goroutine. When it returns, the cache
// either reconciles the snapshot with the server record or restores the
// rollback point, and the caller's Pending handle resolves.
//
// Rollback restores the whole snapshot captured when the mutation started.
// If another mutation applied its optimistic change after that point, the
// rollback erases it until that mutation reconciles.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/trackboard/internal/domain/project"
)

// ErrSuperseded is returned by Refresh when a newer fetch or a local change
// happened while it was in flight. The fetched list is discarded.
var ErrSuperseded = errors.New("refresh superseded")

// DefaultSettleTimeout bounds the refetch that follows successful mutations.
const DefaultSettleTimeout = 30 * time.Second

// Remote is the request layer the cache mirrors. Both client.Client and
// project.Service satisfy it.
type Remote interface {
	List(ctx context.Context) ([]project.Project, error)
	Create(ctx context.Context, in project.Input) (*project.Project, error)
	Update(ctx context.Context, id string, in project.Input) (*project.Project, error)
	Delete(ctx context.Context, id string) (*project.Project, error)
}

// Cache holds the current snapshot. It is safe for concurrent use.
type Cache struct {
	remote        Remote
	logger        *slog.Logger
	now           func() time.Time
	newTempID     func() string
	settleTimeout time.Duration

	mu           sync.Mutex
	snapshot     []project.Project
	generation   uint64
	changed      chan struct{}
	inflight     map[string]int
	pending      int
	settleNeeded bool
	settling     bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for optimistic timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTempIDs overrides temporary id generation.
func WithTempIDs(newTempID func() string) Option {
	return func(c *Cache) {
		if newTempID != nil {
			c.newTempID = newTempID
		}
	}
}

// WithSnapshot starts the cache with a known list instead of an empty one.
func WithSnapshot(projects []project.Project) Option {
	return func(c *Cache) {
		c.snapshot = project.Clone(projects)
	}
}

// WithSettleTimeout bounds each settle refetch.
func WithSettleTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.settleTimeout = d
		}
	}
}

// New creates a cache over remote.
func New(remote Remote, opts ...Option) *Cache {
	c := &Cache{
		remote:        remote,
		logger:        slog.New(slog.DiscardHandler),
		now:           time.Now,
		newTempID:     project.NewTempID,
		settleTimeout: DefaultSettleTimeout,
		changed:       make(chan struct{}),
		inflight:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.snapshot == nil {
		c.snapshot = []project.Project{}
	}
	return c
}

// Snapshot returns a copy of the current list.
func (c *Cache) Snapshot() []project.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return project.Clone(c.snapshot)
}

// Changed returns a channel that is closed on the next snapshot change.
func (c *Cache) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// InFlight reports whether a mutation of the record with id is awaiting the server.
func (c *Cache) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[id] > 0
}

// Refresh fetches the full list and replaces the snapshot, unless a newer
// fetch or a local change happened meanwhile.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	projects, err := c.remote.List(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		c.logger.DebugContext(ctx, "discarding superseded fetch", "generation", gen, "current", c.generation)
		return ErrSuperseded
	}
	if projects == nil {
		projects = []project.Project{}
	}
	c.snapshot = project.Clone(projects)
	c.notifyLocked()
	return nil
}

// Create appends a record with a temporary id and sends the create to the server.
func (c *Cache) Create(ctx context.Context, in project.Input) *Pending {
	in = in.Trimmed()
	c.mu.Lock()
	tempID := c.newTempID()
	now := c.timestamp()
	optimistic := project.Project{
		ID:         tempID,
		Name:       in.Name,
		Status:     in.Status,
		DueDate:    in.DueDate,
		AssignedTo: in.AssignedTo,
		Summary:    in.Summary,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	p := c.beginLocked(project.OpCreate, tempID)
	p.tempID = tempID
	c.snapshot = append(c.snapshot, optimistic)
	c.notifyLocked()
	c.mu.Unlock()

	go c.complete(ctx, p, func(ctx context.Context) (*project.Project, error) {
		return c.remote.Create(ctx, in)
	})
	return p
}

// Update patches the record with id and sends the update to the server.
// UpdatedAt only moves when a field changes. An unknown id leaves the
// snapshot untouched and the server decides.
func (c *Cache) Update(ctx context.Context, id string, in project.Input) *Pending {
	in = in.Trimmed()
	c.mu.Lock()
	p := c.beginLocked(project.OpUpdate, id)
	if i := indexOf(c.snapshot, id); i >= 0 {
		next := project.Clone(c.snapshot)
		next[i], _ = project.Merge(next[i], in, c.timestamp())
		c.snapshot = next
		c.notifyLocked()
	}
	c.mu.Unlock()

	go c.complete(ctx, p, func(ctx context.Context) (*project.Project, error) {
		return c.remote.Update(ctx, id, in)
	})
	return p
}

// Delete removes the record with id and sends the delete to the server.
func (c *Cache) Delete(ctx context.Context, id string) *Pending {
	c.mu.Lock()
	p := c.beginLocked(project.OpDelete, id)
	if i := indexOf(c.snapshot, id); i >= 0 {
		c.snapshot = removeAt(c.snapshot, i)
		c.notifyLocked()
	}
	c.mu.Unlock()

	go c.complete(ctx, p, func(ctx context.Context) (*project.Project, error) {
		return c.remote.Delete(ctx, id)
	})
	return p
}

func (c *Cache) beginLocked(op project.Operation, id string) *Pending {
	p := &Pending{
		op:       op,
		id:       id,
		rollback: project.Clone(c.snapshot),
		done:     make(chan struct{}),
	}
	c.pending++
	c.inflight[id]++
	return p
}

func (c *Cache) complete(ctx context.Context, p *Pending, call func(context.Context) (*project.Project, error)) {
	result, err := call(ctx)

	c.mu.Lock()
	if err != nil {
		c.snapshot = project.Clone(p.rollback)
		c.logger.InfoContext(ctx, "rolled back optimistic change", "operation", string(p.op), "id", p.id, "error", err)
		// The record is gone on the server, so the snapshot is stale.
		if errors.Is(err, project.ErrNotFound) {
			c.settleNeeded = true
		}
	} else {
		c.reconcileLocked(p, result)
		c.settleNeeded = true
	}
	c.notifyLocked()

	if c.inflight[p.id]--; c.inflight[p.id] <= 0 {
		delete(c.inflight, p.id)
	}
	c.pending--
	runSettle := c.pending == 0 && c.settleNeeded && !c.settling
	if runSettle {
		c.settleNeeded = false
		c.settling = true
	}
	c.mu.Unlock()

	if runSettle {
		c.settle(context.WithoutCancel(ctx))
	}
	p.resolve(result, err)
}

func (c *Cache) reconcileLocked(p *Pending, result *project.Project) {
	if result == nil && p.op != project.OpDelete {
		return
	}
	next := project.Clone(c.snapshot)
	switch p.op {
	case project.OpCreate:
		temp := indexOf(next, p.tempID)
		switch {
		case indexOf(next, result.ID) >= 0:
			if temp >= 0 {
				next = removeAt(next, temp)
			}
		case temp >= 0:
			next[temp] = *result
		default:
			next = append(next, *result)
		}
	case project.OpUpdate:
		if i := indexOf(next, result.ID); i >= 0 {
			next[i] = *result
		}
	case project.OpDelete:
		if i := indexOf(next, p.id); i >= 0 {
			next = removeAt(next, i)
		}
	}
	c.snapshot = next
}

// settle refetches once no mutation is pending. Mutations that succeed while
// a settle is running ask for one more pass.
func (c *Cache) settle(ctx context.Context) {
	for {
		fetchCtx, cancel := context.WithTimeout(ctx, c.settleTimeout)
		err := c.Refresh(fetchCtx)
		cancel()

		c.mu.Lock()
		switch {
		case errors.Is(err, ErrSuperseded):
			if c.pending > 0 {
				c.settleNeeded = true
			}
		case err != nil:
			c.logger.WarnContext(ctx, "settle refetch failed", "error", err)
		}
		if !c.settleNeeded || c.pending > 0 {
			c.settling = false
			c.mu.Unlock()
			return
		}
		c.settleNeeded = false
		c.mu.Unlock()
	}
}

func (c *Cache) timestamp() time.Time {
	return c.now().UTC().Truncate(time.Millisecond)
}

func (c *Cache) notifyLocked() {
	c.generation++
	close(c.changed)
	c.changed = make(chan struct{})
}

func indexOf(projects []project.Project, id string) int {
	for i := range projects {
		if projects[i].ID == id {
			return i
		}
	}
	return -1
}

func removeAt(projects []project.Project, i int) []project.Project {
	out := make([]project.Project, 0, len(projects)-1)
	out = append(out, projects[:i]...)
	return append(out, projects[i+1:]...)
}
