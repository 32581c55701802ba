package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/rpggio/trackboard/internal/cache"
	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/rpggio/trackboard/internal/retry"
)

// retryRemote applies the read policy to List and the write policy to mutations.
type retryRemote struct {
	remote cache.Remote
	read   retry.Policy
	write  retry.Policy
	logger *slog.Logger
}

func (r *retryRemote) List(ctx context.Context) ([]project.Project, error) {
	return retry.Do(ctx, r.read, r.remote.List, r.notify(project.OpList))
}

func (r *retryRemote) Create(ctx context.Context, in project.Input) (*project.Project, error) {
	return retry.Do(ctx, r.write, func(ctx context.Context) (*project.Project, error) {
		return r.remote.Create(ctx, in)
	}, r.notify(project.OpCreate))
}

func (r *retryRemote) Update(ctx context.Context, id string, in project.Input) (*project.Project, error) {
	return retry.Do(ctx, r.write, func(ctx context.Context) (*project.Project, error) {
		return r.remote.Update(ctx, id, in)
	}, r.notify(project.OpUpdate))
}

func (r *retryRemote) Delete(ctx context.Context, id string) (*project.Project, error) {
	return retry.Do(ctx, r.write, func(ctx context.Context) (*project.Project, error) {
		return r.remote.Delete(ctx, id)
	}, r.notify(project.OpDelete))
}

func (r *retryRemote) notify(op project.Operation) retry.Notify {
	return func(err error, delay time.Duration) {
		r.logger.Warn("retrying request", "operation", string(op), "delay", delay, "error", err)
	}
}
