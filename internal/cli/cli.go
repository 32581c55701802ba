// Package cli implements the trackboard command line client on top of the
// optimistic cache and the derived view.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/rpggio/trackboard/internal/cache"
	"github.com/rpggio/trackboard/internal/client"
	"github.com/rpggio/trackboard/internal/config"
	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/rpggio/trackboard/internal/retry"
	"github.com/rpggio/trackboard/internal/users"
	"github.com/rpggio/trackboard/internal/view"
)

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage")

const usage = `usage: trackboard <command> [flags]

commands:
  list     [-status S] [-q text]   list projects
  counts                           count projects per status
  create   -name -status -due -assignee -summary
  update   -id [-name] [-status] [-due] [-assignee] [-summary]
  delete   -id
  users                            list the user directory`

// Config holds the client settings.
type Config struct {
	APIURL       string
	Timeout      time.Duration
	UsersURL     string
	UsersTimeout time.Duration
	UsersTTL     time.Duration
	UsersRetry   retry.Policy
	Read         retry.Policy
	Write        retry.Policy
	Logger       *slog.Logger
}

// ConfigFrom derives client settings from the shared configuration.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		APIURL:       cfg.Client.BaseURL,
		Timeout:      cfg.Client.Timeout,
		UsersURL:     cfg.Users.BaseURL,
		UsersTimeout: cfg.Users.Timeout,
		UsersTTL:     cfg.Users.TTL,
		UsersRetry:   users.DefaultRetry,
		Read:         retry.Read,
		Write:        retry.Write,
	}
}

// App runs commands against one API.
type App struct {
	out   io.Writer
	cache *cache.Cache
	users *users.Directory
}

// New creates an App that writes its output to out.
func New(cfg Config, out io.Writer) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	api := client.New(cfg.APIURL, client.WithTimeout(cfg.Timeout), client.WithLogger(logger))
	remote := &retryRemote{remote: api, read: cfg.Read, write: cfg.Write, logger: logger}
	dirOpts := []users.Option{
		users.WithBaseURL(cfg.UsersURL),
		users.WithHTTPClient(&http.Client{Timeout: cfg.UsersTimeout}),
		users.WithLogger(logger),
	}
	if cfg.UsersRetry != (retry.Policy{}) {
		dirOpts = append(dirOpts, users.WithRetry(cfg.UsersRetry))
	}
	return &App{
		out:   out,
		cache: cache.New(remote, cache.WithLogger(logger)),
		users: users.New(cfg.UsersTTL, dirOpts...),
	}
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command\n%s", ErrUsage, usage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return a.list(ctx, rest)
	case "counts":
		return a.counts(ctx)
	case "create":
		return a.create(ctx, rest)
	case "update":
		return a.update(ctx, rest)
	case "delete":
		return a.remove(ctx, rest)
	case "users":
		return a.listUsers(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, cmd, usage)
	}
}

// Describe returns the text shown to the user for err.
func Describe(err error) string {
	var serr *client.StatusError
	switch {
	case errors.Is(err, ErrUsage):
		return err.Error()
	case errors.Is(err, client.ErrTimeout), errors.Is(err, client.ErrNetwork), errors.As(err, &serr):
		return client.Message(err)
	default:
		return err.Error()
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *App) list(ctx context.Context, args []string) error {
	var q view.Query
	var status string
	fs := newFlagSet("list")
	fs.StringVar(&status, "status", string(view.All), "status filter")
	fs.StringVar(&q.Text, "q", "", "search text")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	q.Status = project.Status(status)

	if err := a.cache.Refresh(ctx); err != nil {
		return err
	}
	snapshot := a.cache.Snapshot()
	visible := q.Apply(snapshot)

	// A directory failure leaves directory nil and every assignee unresolved.
	directory, _ := a.users.List(ctx)

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tDUE\tASSIGNEE")
	for _, p := range visible {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Status, p.DueDate, users.Resolve(directory, p.AssignedTo).Label())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d of %d projects\n", len(visible), len(snapshot))
	return nil
}

func (a *App) counts(ctx context.Context) error {
	if err := a.cache.Refresh(ctx); err != nil {
		return err
	}
	counts := view.CountsByStatus(a.cache.Snapshot())
	for _, status := range project.Statuses {
		fmt.Fprintf(a.out, "%s: %d\n", status, counts[status])
	}
	return nil
}

type fieldFlags struct {
	name     string
	status   string
	due      string
	assignee int
	summary  string
}

func (f *fieldFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "project name")
	fs.StringVar(&f.status, "status", "", "To-Do, In Progress or Completed")
	fs.StringVar(&f.due, "due", "", "due date (YYYY-MM-DD)")
	fs.IntVar(&f.assignee, "assignee", 0, "assignee user id")
	fs.StringVar(&f.summary, "summary", "", "summary")
}

// apply overwrites the fields of in that were set on the command line.
func (f *fieldFlags) apply(fs *flag.FlagSet, in project.Input) project.Input {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "name":
			in.Name = f.name
		case "status":
			in.Status = project.Status(f.status)
		case "due":
			in.DueDate = f.due
		case "assignee":
			in.AssignedTo = f.assignee
		case "summary":
			in.Summary = f.summary
		}
	})
	return in
}

func (a *App) create(ctx context.Context, args []string) error {
	var fields fieldFlags
	fs := newFlagSet("create")
	fields.register(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	created, err := a.cache.Create(ctx, fields.apply(fs, project.Input{})).Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created %s\n", created.ID)
	return nil
}

func (a *App) update(ctx context.Context, args []string) error {
	var id string
	var fields fieldFlags
	fs := newFlagSet("update")
	fs.StringVar(&id, "id", "", "project id")
	fields.register(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if id == "" {
		return fmt.Errorf("%w: update requires -id", ErrUsage)
	}

	if err := a.cache.Refresh(ctx); err != nil {
		return err
	}
	var current project.Input
	for _, p := range a.cache.Snapshot() {
		if p.ID == id {
			current = project.InputOf(p)
			break
		}
	}

	updated, err := a.cache.Update(ctx, id, fields.apply(fs, current)).Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated %s (%s)\n", updated.ID, updated.Status)
	return nil
}

func (a *App) remove(ctx context.Context, args []string) error {
	var id string
	fs := newFlagSet("delete")
	fs.StringVar(&id, "id", "", "project id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if id == "" {
		return fmt.Errorf("%w: delete requires -id", ErrUsage)
	}

	deleted, err := a.cache.Delete(ctx, id).Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %s\n", deleted.ID)
	return nil
}

func (a *App) listUsers(ctx context.Context) error {
	list, err := a.users.List(ctx)
	if err != nil {
		return errors.New(users.Message(err))
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL")
	for _, u := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", u.ID, u.Name, u.Email)
	}
	return tw.Flush()
}
