package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PurgeFunc deletes rows older than cutoff inside tx and reports how many went.
type PurgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

type purgeRecorder interface {
	AddPurged(job string, rows int64)
}

// RetentionJobParams configure a single retention sweep.
type RetentionJobParams struct {
	Name      string
	Logger    *logger.Logger
	DB        txRunner
	Retention time.Duration
	Purge     PurgeFunc
	Metrics   purgeRecorder
}

type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	retention time.Duration
	purge     PurgeFunc
	metrics   purgeRecorder
	now       func() time.Time
}

// NewRetentionJob builds a job that purges rows older than the retention window.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("job name required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Purge == nil {
		return nil, fmt.Errorf("purge func required")
	}
	if params.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive")
	}
	return &retentionJob{
		name:      params.Name,
		logg:      params.Logger,
		db:        params.DB,
		retention: params.Retention,
		purge:     params.Purge,
		metrics:   params.Metrics,
		now:       time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	if j.metrics != nil {
		j.metrics.AddPurged(j.name, deleted)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}), "retention sweep complete")
	return nil
}
