package rls

import (
	"context"
	"fmt"
	"time"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/metrics"
)

// DefaultPollInterval is the fixed delay before every ingestion status check.
const DefaultPollInterval = 5 * time.Second

// Monitor waits for ingestion jobs to finish. It polls at a fixed interval
// with no attempt limit; only ctx bounds the wait.
type Monitor struct {
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	metrics  *metrics.Metrics
}

// NewMonitor creates a Monitor. A non-positive interval means DefaultPollInterval.
func NewMonitor(interval time.Duration, m *metrics.Metrics) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{interval: interval, sleep: sleepContext, metrics: m}
}

// Wait polls the ingestion until it reaches a terminal state. FAILED and
// CANCELLED jobs, and statuses the monitor does not know, are returned as
// *domain.IngestionError.
func (m *Monitor) Wait(ctx context.Context, bi domain.BIService, dataSetID, ingestionID string, sink domain.PipelineSink) (*domain.Ingestion, error) {
	sink.Log(domain.SeverityInfo, fmt.Sprintf("Waiting for ingestion %s on dataset %s", ingestionID, dataSetID))
	for poll := 1; ; poll++ {
		if err := m.sleep(ctx, m.interval); err != nil {
			return nil, fmt.Errorf("waiting for ingestion %s: %w", ingestionID, err)
		}

		ing, err := bi.DescribeIngestion(ctx, dataSetID, ingestionID)
		if err != nil {
			m.metrics.ObservePoll("ERROR")
			sink.Log(domain.SeverityError, fmt.Sprintf("Ingestion %s: status check %d failed: %v", ingestionID, poll, err))
			return nil, fmt.Errorf("describe ingestion %s: %w", ingestionID, err)
		}
		m.metrics.ObservePoll(ing.Status)

		switch ing.Status {
		case domain.IngestionQueued, domain.IngestionInitialized, domain.IngestionRunning:
			sink.Log(domain.SeverityInfo, fmt.Sprintf("Ingestion %s: %s (check %d)", ingestionID, ing.Status, poll))
		case domain.IngestionCompleted:
			sink.Log(domain.SeverityInfo, fmt.Sprintf("Ingestion %s completed after %d checks", ingestionID, poll))
			return ing, nil
		case domain.IngestionFailed, domain.IngestionCancelled:
			ierr := &domain.IngestionError{
				IngestionID: ingestionID,
				Status:      ing.Status,
				ErrorType:   ing.ErrorType,
				Message:     ing.ErrorMessage,
			}
			sink.Log(domain.SeverityError, fmt.Sprintf("Ingestion %s %s: %s %s", ingestionID, ing.Status, ing.ErrorType, ing.ErrorMessage))
			return ing, ierr
		default:
			ierr := &domain.IngestionError{
				IngestionID: ingestionID,
				Status:      "UNKNOWN_STATUS",
				ErrorType:   ing.Status,
				Message:     fmt.Sprintf("unknown ingestion status %q", ing.Status),
			}
			sink.Log(domain.SeverityError, fmt.Sprintf("Ingestion %s reported unknown status %q", ingestionID, ing.Status))
			return ing, ierr
		}
	}
}

// awaitMutation waits on m's ingestion if it started one.
func (m *Monitor) awaitMutation(ctx context.Context, bi domain.BIService, mut *domain.DataSetMutation, sink domain.PipelineSink) error {
	if !mut.Pending() {
		return nil
	}
	id := mut.DataSetID
	if id == "" {
		id, _ = domain.DataSetIDFromARN(mut.Arn)
	}
	_, err := m.Wait(ctx, bi, id, mut.IngestionID, sink)
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
