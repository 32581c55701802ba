package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/rpggio/trackboard/internal/domain/project"
)

var (
	// ErrTimeout indicates the request did not complete before its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrNetwork indicates the server could not be reached.
	ErrNetwork = errors.New("network error")
)

// User-facing messages for failures that carry no server message.
const (
	MsgTimeout = "Request timed out. The server may be busy. Please try again."
	MsgNetwork = "Network error. Please check your connection and try again."
	MsgUnknown = "An error occurred"
)

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Status  int
	Message string
	Fields  []string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Unwrap maps the status onto the request layer taxonomy so callers can use
// errors.Is with project.ErrValidation, project.ErrNotFound or project.ErrTransient.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == http.StatusBadRequest:
		return project.ErrValidation
	case e.Status == http.StatusNotFound:
		return project.ErrNotFound
	case e.Status == http.StatusTooManyRequests, e.Status >= http.StatusInternalServerError:
		return project.ErrTransient
	default:
		return nil
	}
}

// Message returns text suitable for showing to a user.
func Message(err error) string {
	var serr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return MsgTimeout
	case errors.Is(err, ErrNetwork):
		return MsgNetwork
	case errors.As(err, &serr) && serr.Message != "":
		return serr.Message
	default:
		return MsgUnknown
	}
}

// Classify wraps a transport failure in ErrTimeout or ErrNetwork. Caller
// cancellation is returned as is.
func Classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
