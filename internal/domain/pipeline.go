package domain

import (
	"time"
)

// StepStatus is the state of one pipeline phase.
type StepStatus string

// Step statuses.
const (
	StepLoading StepStatus = "LOADING"
	StepSuccess StepStatus = "SUCCESS"
	StepError   StepStatus = "ERROR"
)

// Severity tags a pipeline log line.
type Severity string

// Log severities.
const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// PipelineSink receives step transitions and log lines from a running pipeline.
type PipelineSink interface {
	ReportStep(step string, status StepStatus)
	Log(severity Severity, message string)
}

// LogEntry is one line of the append-only pipeline log.
type LogEntry struct {
	Time     time.Time
	Severity Severity
	Message  string
}

// StepState is the latest status of a pipeline step.
type StepState struct {
	Step   string
	Status StepStatus
}

// Outcome is what a publish, delete or rollback pipeline returns. Status is
// HTTP-style: 200 on success, otherwise the failing step's classification.
type Outcome struct {
	Status    int
	Message   string
	ErrorType string
	FailedAt  string
	Steps     []StepState
	Log       []LogEntry
}

// OK reports whether the pipeline succeeded.
func (o *Outcome) OK() bool { return o.Status >= 200 && o.Status < 300 }
