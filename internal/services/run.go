package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vadiminshakov/finbook/internal/domain"
)

// Result counts the records a job wrote.
type Result struct {
	Updated int
	Failed  int
}

// Job is one bookkeeping pass over the finance databases.
type Job interface {
	Kind() domain.RunKind
	Run(ctx context.Context, logger *zap.Logger) (Result, error)
}

type journal interface {
	Save(record domain.RunRecord) error
}

// Execute runs job under a fresh run id and records the outcome in j when it is not nil.
// The job's error is returned unchanged.
func Execute(ctx context.Context, job Job, logger *zap.Logger, j journal) error {
	runID := uuid.NewString()
	l := logger.With(zap.String("job", string(job.Kind())), zap.String("run_id", runID))

	started := time.Now().UTC()
	l.Info("Starting run")

	res, err := job.Run(ctx, l)

	record := domain.RunRecord{
		ID:         runID,
		Kind:       job.Kind(),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Updated:    res.Updated,
		Failed:     res.Failed,
	}
	if err != nil {
		record.Error = err.Error()
	}

	if j != nil {
		if jerr := j.Save(record); jerr != nil {
			l.Warn("Failed to record run in journal", zap.Error(jerr))
		}
	}

	if err != nil {
		l.Error("Run failed", zap.Int("updated", res.Updated), zap.Int("failed", res.Failed), zap.Error(err))
		return err
	}

	l.Info("Run finished",
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
		zap.Duration("took", record.FinishedAt.Sub(started)))
	return nil
}
