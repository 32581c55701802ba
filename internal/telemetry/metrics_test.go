package telemetry_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rpggio/trackboard/internal/domain/project"
	"github.com/rpggio/trackboard/internal/store/memory"
	"github.com/rpggio/trackboard/internal/telemetry"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountsServiceOutcomes(t *testing.T) {
	ctx := context.Background()
	metrics := telemetry.New()
	svc := project.NewService(memory.NewDemo(), nil,
		project.WithRecorder(metrics),
		project.WithFaults(project.FailAlways(project.OpDelete)),
	)

	_, err := svc.List(ctx)
	require.NoError(t, err)
	_, err = svc.List(ctx)
	require.NoError(t, err)
	_, err = svc.Delete(ctx, "1")
	require.ErrorIs(t, err, project.ErrTransient)
	_, err = svc.Update(ctx, "nope", project.Input{})
	require.ErrorIs(t, err, project.ErrNotFound)

	require.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(`
# HELP trackboard_requests_total Project operations by outcome.
# TYPE trackboard_requests_total counter
trackboard_requests_total{operation="delete",outcome="transient"} 1
trackboard_requests_total{operation="list",outcome="ok"} 2
trackboard_requests_total{operation="update",outcome="not_found"} 1
`), "trackboard_requests_total"))

	require.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(`
# HELP trackboard_faults_injected_total Transient faults injected by the fault policy.
# TYPE trackboard_faults_injected_total counter
trackboard_faults_injected_total{operation="delete"} 1
`), "trackboard_faults_injected_total"))
}

func TestMetrics_Handler(t *testing.T) {
	metrics := telemetry.New()
	metrics.ObserveRequest(project.OpCreate, project.OutcomeOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `trackboard_request_duration_seconds_count{operation="create"} 1`)
}
