package rls

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"qs-rls-manager/internal/domain"
)

const separatorWidth = 60

// Recorder is the pipeline sink handed to every phase. It keeps the
// append-only log and the latest status per step, mirrors every line to
// slog, and forwards both to an optional observer.
type Recorder struct {
	mu       sync.Mutex
	logger   *slog.Logger
	observer domain.PipelineSink
	now      func() time.Time

	steps []domain.StepState
	index map[string]int
	log   []domain.LogEntry
}

// NewRecorder creates a Recorder. observer may be nil.
func NewRecorder(logger *slog.Logger, observer domain.PipelineSink) *Recorder {
	return &Recorder{
		logger:   logger,
		observer: observer,
		now:      time.Now,
		index:    make(map[string]int),
	}
}

var _ domain.PipelineSink = (*Recorder)(nil)

// ReportStep records the latest status of step.
func (r *Recorder) ReportStep(step string, status domain.StepStatus) {
	r.mu.Lock()
	if i, ok := r.index[step]; ok {
		r.steps[i].Status = status
	} else {
		r.index[step] = len(r.steps)
		r.steps = append(r.steps, domain.StepState{Step: step, Status: status})
	}
	r.mu.Unlock()

	r.logger.Debug("pipeline step", "step", step, "status", status)
	if r.observer != nil {
		r.observer.ReportStep(step, status)
	}
}

// Log appends one line.
func (r *Recorder) Log(severity domain.Severity, message string) {
	r.mu.Lock()
	r.log = append(r.log, domain.LogEntry{Time: r.now(), Severity: severity, Message: message})
	r.mu.Unlock()

	switch severity {
	case domain.SeverityError:
		r.logger.Error(message)
	case domain.SeverityWarning:
		r.logger.Warn(message)
	default:
		r.logger.Info(message)
	}
	if r.observer != nil {
		r.observer.Log(severity, message)
	}
}

// Infof appends a formatted INFO line.
func (r *Recorder) Infof(format string, args ...any) {
	r.Log(domain.SeverityInfo, fmt.Sprintf(format, args...))
}

// Warnf appends a formatted WARNING line.
func (r *Recorder) Warnf(format string, args ...any) {
	r.Log(domain.SeverityWarning, fmt.Sprintf(format, args...))
}

// Errorf appends a formatted ERROR line.
func (r *Recorder) Errorf(format string, args ...any) {
	r.Log(domain.SeverityError, fmt.Sprintf(format, args...))
}

// Section writes a separator line announcing the next phase.
func (r *Recorder) Section(title string) {
	pad := separatorWidth - len(title) - 2
	if pad < 4 {
		pad = 4
	}
	left := pad / 2
	r.Log(domain.SeverityInfo, strings.Repeat("=", left)+" "+title+" "+strings.Repeat("=", pad-left))
}

// Steps returns a copy of the step states in first-reported order.
func (r *Recorder) Steps() []domain.StepState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.StepState(nil), r.steps...)
}

// Entries returns a copy of the log.
func (r *Recorder) Entries() []domain.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LogEntry(nil), r.log...)
}

// Succeed builds a 200 outcome.
func (r *Recorder) Succeed(message string) *domain.Outcome {
	r.Infof("%s", message)
	return &domain.Outcome{
		Status:  200,
		Message: message,
		Steps:   r.Steps(),
		Log:     r.Entries(),
	}
}

// Fail marks step as failed and builds the outcome from err's classification.
// A non-zero status overrides the classified one.
func (r *Recorder) Fail(step string, err error, status int) *domain.Outcome {
	classified, errorType := domain.Classify(err)
	if status == 0 {
		status = classified
	}
	r.ReportStep(step, domain.StepError)
	r.Errorf("%s failed: %v", step, err)
	return &domain.Outcome{
		Status:    status,
		Message:   err.Error(),
		ErrorType: errorType,
		FailedAt:  step,
		Steps:     r.Steps(),
		Log:       r.Entries(),
	}
}
