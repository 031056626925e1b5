package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/logger"
)

// RunSink persists audit records, e.g. the BigQuery repository.
type RunSink interface {
	InsertRun(ctx context.Context, rec domain.RunRecord) error
}

// RunRecorder publishes audit records as RecordRunJobs.
type RunRecorder struct {
	pub        Publisher
	maxRetries int
}

// NewRunRecorder creates a RunRecorder. maxRetries <= 0 uses DefaultMaxRetries.
func NewRunRecorder(pub Publisher, maxRetries int) *RunRecorder {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &RunRecorder{pub: pub, maxRetries: maxRetries}
}

// Record enqueues rec for persistence.
func (r *RunRecorder) Record(ctx context.Context, rec domain.RunRecord) error {
	job := &RecordRunJob{
		JobID:      rec.RunID,
		Record:     rec,
		MaxRetries: r.maxRetries,
	}
	if err := r.pub.PublishRecordRun(ctx, job); err != nil {
		return fmt.Errorf("RunRecorder.Record: %w", err)
	}
	return nil
}

// NewRecordRunHandler returns a JobHandler writing records to sink. A nil
// sink only logs the record.
func NewRecordRunHandler(sink RunSink) JobHandler {
	return func(ctx context.Context, job Job) error {
		j, ok := job.(*RecordRunJob)
		if !ok {
			return fmt.Errorf("unexpected job type %q", job.GetType())
		}

		rec := j.Record
		log := logger.FromContext(ctx)
		log.Info().
			Str("run_id", rec.RunID).
			Int64("user_id", rec.UserID).
			Str("intent", string(rec.Intent)).
			Str("status", string(rec.Status)).
			Str("failure", rec.Failure).
			Strs("degraded", rec.Degraded).
			Dur("duration", rec.FinishedAt.Sub(rec.StartedAt)).
			Msg("Pipeline run recorded")

		if sink == nil {
			return nil
		}
		return sink.InsertRun(ctx, rec)
	}
}
