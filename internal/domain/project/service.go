package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/trackboard/internal/repository"
)

// Recorder receives per-operation outcomes. It is satisfied by telemetry.Metrics.
type Recorder interface {
	ObserveRequest(op Operation, outcome string, elapsed time.Duration)
	FaultInjected(op Operation)
}

// Outcome labels passed to Recorder.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeNotFound   = "not_found"
	OutcomeTransient  = "transient"
	OutcomeError      = "error"
)

// Service validates intents and applies them to the Store.
type Service struct {
	store    Store
	faults   FaultPolicy
	latency  map[Operation]time.Duration
	now      func() time.Time
	newID    func() string
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithFaults sets the transient fault policy. The default never fails.
func WithFaults(policy FaultPolicy) Option {
	return func(s *Service) {
		if policy != nil {
			s.faults = policy
		}
	}
}

// WithLatency delays each operation by a fixed duration before it runs.
func WithLatency(latency map[Operation]time.Duration) Option {
	return func(s *Service) {
		s.latency = make(map[Operation]time.Duration, len(latency))
		for op, d := range latency {
			s.latency[op] = d
		}
	}
}

// WithClock overrides the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides server id assignment.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithRecorder reports operation outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// NewService creates a new project service.
func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:  store,
		faults: NoFaults{},
		now:    time.Now,
		newID:  NewID,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns a server id: creation time in milliseconds plus a random suffix.
func NewID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("project_%d_%s", time.Now().UnixMilli(), suffix)
}

// NewTempID returns a locally generated placeholder id.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// List returns every project in insertion order.
func (s *Service) List(ctx context.Context) (projects []Project, err error) {
	defer s.observe(OpList, time.Now(), &err)

	if err := s.wait(ctx, OpList); err != nil {
		return nil, err
	}
	if err := s.injectFault(ctx, OpList); err != nil {
		return nil, err
	}

	projects, err = s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	proj, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

// Create validates in, assigns an id and timestamps, and stores the new project.
func (s *Service) Create(ctx context.Context, in Input) (proj *Project, err error) {
	defer s.observe(OpCreate, time.Now(), &err)

	if err := s.wait(ctx, OpCreate); err != nil {
		return nil, err
	}
	in = in.Trimmed()
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	if err := s.injectFault(ctx, OpCreate); err != nil {
		return nil, err
	}

	now := s.timestamp()
	proj = &Project{
		ID:         s.newID(),
		Name:       in.Name,
		Status:     in.Status,
		DueDate:    in.DueDate,
		AssignedTo: in.AssignedTo,
		Summary:    in.Summary,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Insert(ctx, proj); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.InfoContext(ctx, "project created", "id", proj.ID, "name", proj.Name)
	return proj, nil
}

// Update replaces the mutable fields of an existing project. UpdatedAt only moves
// when at least one field actually changed.
func (s *Service) Update(ctx context.Context, id string, in Input) (proj *Project, err error) {
	defer s.observe(OpUpdate, time.Now(), &err)

	if err := s.wait(ctx, OpUpdate); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in = in.Trimmed()
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	if err := s.injectFault(ctx, OpUpdate); err != nil {
		return nil, err
	}

	updated, changed := Merge(*current, in, s.timestamp())
	if err := s.store.Replace(ctx, &updated); err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}

	s.logger.InfoContext(ctx, "project updated", "id", updated.ID, "changed", changed)
	return &updated, nil
}

// Delete removes a project and returns the removed record.
func (s *Service) Delete(ctx context.Context, id string) (proj *Project, err error) {
	defer s.observe(OpDelete, time.Now(), &err)

	if err := s.wait(ctx, OpDelete); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.injectFault(ctx, OpDelete); err != nil {
		return nil, err
	}

	proj, err = s.store.Remove(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("deleting project: %w", err)
	}

	s.logger.InfoContext(ctx, "project deleted", "id", proj.ID)
	return proj, nil
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) injectFault(ctx context.Context, op Operation) error {
	if !s.faults.ShouldFail(op) {
		return nil
	}
	if s.recorder != nil {
		s.recorder.FaultInjected(op)
	}
	s.logger.WarnContext(ctx, "injected transient fault", "operation", string(op))
	return &TransientError{Op: op}
}

func (s *Service) wait(ctx context.Context, op Operation) error {
	d := s.latency[op]
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) observe(op Operation, start time.Time, errp *error) {
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveRequest(op, OutcomeOf(*errp), time.Since(start))
}

// OutcomeOf classifies err into a Recorder outcome label.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrTransient):
		return OutcomeTransient
	default:
		return OutcomeError
	}
}
