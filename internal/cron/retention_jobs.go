package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/campusbite/orderflow/pkg/logger"
)

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	defaultMirrorRetention       = 90 * 24 * time.Hour
)

type notificationPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type mirrorPruner interface {
	DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationRetentionJob deletes notifications older than retention.
func NewNotificationRetentionJob(repo notificationPruner, retention time.Duration, logg *logger.Logger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if retention <= 0 {
		retention = defaultNotificationRetention
	}
	return newRetentionJob("notification-retention", retention, repo.DeleteOlderThan, logg)
}

// NewMirrorRetentionJob deletes delivered and cancelled rows of the tracked
// order mirror once they have been settled for longer than retention.
func NewMirrorRetentionJob(repo mirrorPruner, retention time.Duration, logg *logger.Logger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("tracked order repository required")
	}
	if retention <= 0 {
		retention = defaultMirrorRetention
	}
	return newRetentionJob("tracked-order-retention", retention, repo.DeleteSettledBefore, logg)
}

type retentionJob struct {
	name      string
	retention time.Duration
	prune     func(ctx context.Context, cutoff time.Time) (int64, error)
	logg      *logger.Logger
	now       func() time.Time
}

func newRetentionJob(name string, retention time.Duration, prune func(context.Context, time.Time) (int64, error), logg *logger.Logger) (*retentionJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &retentionJob{name: name, retention: retention, prune: prune, logg: logg, now: time.Now}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}), "retention sweep complete")
	return nil
}
