package rls

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_TracksStepsAndForwards(t *testing.T) {
	observer := &testutil.RecordingSink{}
	rec := NewRecorder(discardLogger(), observer)

	rec.ReportStep("a", domain.StepLoading)
	rec.ReportStep("b", domain.StepLoading)
	rec.ReportStep("a", domain.StepSuccess)
	rec.Section("Phase")
	rec.Warnf("careful %d", 1)

	assert.Equal(t, []domain.StepState{
		{Step: "a", Status: domain.StepSuccess},
		{Step: "b", Status: domain.StepLoading},
	}, rec.Steps())
	assert.Len(t, observer.Statuses, 3)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.True(t, strings.HasPrefix(entries[0].Message, "="))
	assert.Contains(t, entries[0].Message, " Phase ")
	assert.Equal(t, domain.SeverityWarning, entries[1].Severity)
	assert.Equal(t, []string{"careful 1"}, observer.Messages(domain.SeverityWarning))
}

func TestRecorder_Fail(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		wantStatus int
		wantType   string
	}{
		{"validation", domain.ErrValidation("bad"), 0, 400, "ValidationError"},
		{"service", &domain.ServiceError{Service: "glue", Code: "AccessDeniedException", Status: 403, Message: "no"}, 0, 403, "AccessDeniedException"},
		{"override", domain.ErrNotFound("gone"), 500, 500, "NotFoundError"},
		{"plain", errors.New("boom"), 0, 500, "InternalError"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewRecorder(discardLogger(), nil)
			rec.ReportStep("step", domain.StepLoading)

			out := rec.Fail("step", tc.err, tc.status)

			assert.Equal(t, tc.wantStatus, out.Status)
			assert.Equal(t, tc.wantType, out.ErrorType)
			assert.Equal(t, "step", out.FailedAt)
			assert.Equal(t, tc.err.Error(), out.Message)
			assert.Equal(t, domain.StepError, out.Steps[0].Status)
			assert.False(t, out.OK())
		})
	}
}

func TestRecorder_Succeed(t *testing.T) {
	out := NewRecorder(discardLogger(), nil).Succeed("done")

	assert.True(t, out.OK())
	assert.Equal(t, 200, out.Status)
	require.Len(t, out.Log, 1)
	assert.Equal(t, "done", out.Log[0].Message)
}
