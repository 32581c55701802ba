package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rpggio/trackboard/internal/client"
	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/stretchr/testify/require"
)

func fast(p Policy) Policy {
	p.BaseDelay = time.Millisecond
	p.MaxDelay = 4 * time.Millisecond
	return p
}

func failing(errs ...error) (func(context.Context) (string, error), *int) {
	calls := 0
	return func(context.Context) (string, error) {
		calls++
		if calls <= len(errs) {
			return "", errs[calls-1]
		}
		return "ok", nil
	}, &calls
}

func transientErr() error {
	return &project.TransientError{Op: project.OpList}
}

func timeoutErr() error {
	return fmt.Errorf("%w: %w", client.ErrTimeout, context.DeadlineExceeded)
}

func networkErr() error {
	return fmt.Errorf("%w: connection refused", client.ErrNetwork)
}

func TestClassify(t *testing.T) {
	require.Equal(t, Permanent, Classify(&project.ValidationError{Fields: []string{"name"}}))
	require.Equal(t, Permanent, Classify(&client.StatusError{Status: 404}))
	require.Equal(t, Permanent, Classify(&client.StatusError{Status: 400}))
	require.Equal(t, Transient, Classify(&client.StatusError{Status: 503}))
	require.Equal(t, Transient, Classify(networkErr()))
	require.Equal(t, Timeout, Classify(timeoutErr()))
	require.Equal(t, Permanent, Classify(context.Canceled))
	require.Equal(t, Permanent, Classify(errors.New("other")))
}

func TestDo_ReadRetriesTransientTwice(t *testing.T) {
	op, calls := failing(transientErr(), transientErr())
	v, err := Do(context.Background(), fast(Read), op, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 3, *calls)

	op, calls = failing(transientErr(), transientErr(), transientErr())
	_, err = Do(context.Background(), fast(Read), op, nil)
	require.ErrorIs(t, err, project.ErrTransient)
	require.Equal(t, 3, *calls)
}

func TestDo_ReadRetriesTimeoutOnce(t *testing.T) {
	op, calls := failing(timeoutErr())
	_, err := Do(context.Background(), fast(Read), op, nil)
	require.NoError(t, err)
	require.Equal(t, 2, *calls)

	op, calls = failing(timeoutErr(), timeoutErr())
	_, err = Do(context.Background(), fast(Read), op, nil)
	require.ErrorIs(t, err, client.ErrTimeout)
	require.Equal(t, 2, *calls)
}

func TestDo_WriteRetriesTransientOnce(t *testing.T) {
	op, calls := failing(transientErr(), transientErr())
	_, err := Do(context.Background(), fast(Write), op, nil)
	require.ErrorIs(t, err, project.ErrTransient)
	require.Equal(t, 2, *calls)
}

func TestDo_WriteNeverRetriesTimeoutsOrNetwork(t *testing.T) {
	for _, failure := range []error{timeoutErr(), networkErr()} {
		op, calls := failing(failure)
		_, err := Do(context.Background(), fast(Write), op, nil)
		require.ErrorIs(t, err, failure)
		require.Equal(t, 1, *calls)
	}
}

func TestDo_NeverRetriesClientErrors(t *testing.T) {
	for _, failure := range []error{
		&project.ValidationError{Fields: []string{"name"}},
		project.ErrNotFound,
		&client.StatusError{Status: 400, Message: "Missing required fields"},
	} {
		op, calls := failing(failure)
		_, err := Do(context.Background(), fast(Read), op, nil)
		require.Equal(t, failure, err)
		require.Equal(t, 1, *calls)
	}
}

func TestDo_NotifiesDelays(t *testing.T) {
	var delays []time.Duration
	op, _ := failing(transientErr(), transientErr())
	_, err := Do(context.Background(), fast(Read), op, func(_ error, d time.Duration) {
		delays = append(delays, d)
	})
	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestDo_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Read
	p.BaseDelay = time.Hour
	p.MaxDelay = time.Hour

	op := func(context.Context) (string, error) {
		cancel()
		return "", transientErr()
	}
	_, err := Do(ctx, p, op, nil)
	require.Error(t, err)
}

func TestPolicy_BackOffSchedule(t *testing.T) {
	b := Read.NewBackOff()
	b.Reset()

	var got []time.Duration
	for range 6 {
		got = append(got, b.NextBackOff())
	}
	require.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second,
	}, got)
}
