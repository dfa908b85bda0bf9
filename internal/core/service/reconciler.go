package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
	"github.com/rdsops/snapshot-reconciler/internal/core/ports"
	apperrors "github.com/rdsops/snapshot-reconciler/internal/errors"
)

const DefaultPollInterval = 5 * time.Second

// Reconciler drives a single snapshot to its desired state. It holds no
// state between invocations; every Reconcile call re-derives its decisions
// from a fresh provider lookup.
type Reconciler struct {
	provider     ports.SnapshotProvider
	logger       ports.Logger
	pollInterval time.Duration
}

func NewReconciler(provider ports.SnapshotProvider, logger ports.Logger, pollInterval time.Duration) (*Reconciler, error) {
	if provider == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "snapshot provider cannot be nil")
	}
	if logger == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "logger cannot be nil")
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Reconciler{
		provider:     provider,
		logger:       logger,
		pollInterval: pollInterval,
	}, nil
}

// Reconcile converges the snapshot named in req to the desired state and,
// when req.Wait is set and a mutation happened, blocks until the provider
// reports the terminal status or req.WaitTimeout expires.
func (r *Reconciler) Reconcile(ctx context.Context, req domain.ReconcileRequest) (domain.ReconcileResult, error) {
	if err := req.Validate(); err != nil {
		return domain.ReconcileResult{}, err
	}

	record, found, err := r.provider.Describe(ctx, req.SnapshotID)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeResourceNotFound) {
			found = false
		} else {
			return domain.ReconcileResult{}, apperrors.Wrap(err, apperrors.CodePlatformAPIError,
				fmt.Sprintf("looking up snapshot %q", req.SnapshotID))
		}
	}

	switch req.State {
	case domain.StatePresent:
		return r.ensurePresent(ctx, req, record, found)
	case domain.StateAbsent:
		return r.ensureAbsent(ctx, req, record, found)
	default:
		// Validate already rejected anything else.
		return domain.ReconcileResult{}, apperrors.New(apperrors.CodeInternal,
			fmt.Sprintf("unhandled desired state %q", req.State))
	}
}

func (r *Reconciler) ensurePresent(ctx context.Context, req domain.ReconcileRequest, record domain.SnapshotRecord, found bool) (domain.ReconcileResult, error) {
	if found {
		if record.Status == domain.StatusDeleting {
			// Recreating under an identifier the platform is still tearing
			// down collides remotely. Surface the conflict instead of racing
			// the deletion.
			return domain.ReconcileResult{}, apperrors.NewUserFacing(apperrors.CodeResourceConflict,
				fmt.Sprintf("snapshot %q is currently being deleted and cannot be recreated yet", req.SnapshotID),
				"Wait for the deletion to finish, then re-run with state present.")
		}
		r.logger.Debugf(ctx, "Snapshot %s already exists with status %q, nothing to do", req.SnapshotID, record.Status)
		return domain.ReconcileResult{Record: record, Changed: false, Present: true}, nil
	}

	r.logger.Infof(ctx, "Creating snapshot %s from instance %s", req.SnapshotID, req.SourceInstanceID)
	created, err := r.provider.Create(ctx, req.SnapshotID, req.SourceInstanceID, req.Tags)
	if err != nil {
		return domain.ReconcileResult{}, apperrors.Wrap(err, apperrors.CodePlatformAPIError,
			fmt.Sprintf("creating snapshot %q from instance %q", req.SnapshotID, req.SourceInstanceID))
	}

	if !req.Wait {
		return domain.ReconcileResult{Record: created, Changed: true, Present: true}, nil
	}

	final, err := r.awaitStatus(ctx, req.SnapshotID, domain.StatusAvailable, created.Status, time.Now().Add(req.WaitTimeout))
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	return domain.ReconcileResult{Record: final, Changed: true, Present: true}, nil
}

func (r *Reconciler) ensureAbsent(ctx context.Context, req domain.ReconcileRequest, record domain.SnapshotRecord, found bool) (domain.ReconcileResult, error) {
	if !found {
		r.logger.Debugf(ctx, "Snapshot %s does not exist, nothing to delete", req.SnapshotID)
		return domain.ReconcileResult{Changed: false, Present: false}, nil
	}

	if record.Status == domain.StatusDeleting {
		r.logger.Debugf(ctx, "Snapshot %s is already being deleted, not re-issuing delete", req.SnapshotID)
		return domain.ReconcileResult{Record: record, Changed: false, Present: true}, nil
	}

	r.logger.Infof(ctx, "Deleting snapshot %s (status %q)", req.SnapshotID, record.Status)
	deleted, err := r.provider.Delete(ctx, req.SnapshotID)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeResourceNotFound) {
			// The snapshot vanished between lookup and delete. The desired
			// state holds, so report success.
			r.logger.Debugf(ctx, "Snapshot %s disappeared before delete, treating as deleted", req.SnapshotID)
			return domain.ReconcileResult{Changed: true, Present: false}, nil
		}
		return domain.ReconcileResult{}, apperrors.Wrap(err, apperrors.CodePlatformAPIError,
			fmt.Sprintf("deleting snapshot %q", req.SnapshotID))
	}

	if !req.Wait {
		return domain.ReconcileResult{Record: deleted, Changed: true, Present: true}, nil
	}

	last, err := r.awaitGone(ctx, req.SnapshotID, deleted.Status, time.Now().Add(req.WaitTimeout))
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	return domain.ReconcileResult{Record: last, Changed: true, Present: false}, nil
}

// awaitStatus polls until the snapshot reports target. lastStatus seeds the
// status included in a timeout error in case the first poll never happens.
func (r *Reconciler) awaitStatus(ctx context.Context, snapshotID, target, lastStatus string, deadline time.Time) (domain.SnapshotRecord, error) {
	for {
		record, found, err := r.provider.Describe(ctx, snapshotID)
		if err != nil {
			return domain.SnapshotRecord{}, apperrors.Wrap(err, apperrors.CodePlatformAPIError,
				fmt.Sprintf("polling snapshot %q while waiting for status %q", snapshotID, target))
		}
		if !found {
			return domain.SnapshotRecord{}, apperrors.New(apperrors.CodeResourceNotFound,
				fmt.Sprintf("snapshot %q disappeared while waiting for status %q", snapshotID, target))
		}
		if record.Status == target {
			return record, nil
		}
		lastStatus = record.Status

		if err := r.waitForNextPoll(ctx, snapshotID, lastStatus, deadline); err != nil {
			return domain.SnapshotRecord{}, err
		}
	}
}

// awaitGone polls until the snapshot no longer exists. Absence is the
// success terminal here, not an error. Returns the last record observed
// before the snapshot went away.
func (r *Reconciler) awaitGone(ctx context.Context, snapshotID, lastStatus string, deadline time.Time) (domain.SnapshotRecord, error) {
	var last domain.SnapshotRecord
	for {
		record, found, err := r.provider.Describe(ctx, snapshotID)
		if err != nil {
			if apperrors.Is(err, apperrors.CodeResourceNotFound) {
				return last, nil
			}
			return domain.SnapshotRecord{}, apperrors.Wrap(err, apperrors.CodePlatformAPIError,
				fmt.Sprintf("polling snapshot %q while waiting for deletion", snapshotID))
		}
		if !found {
			return last, nil
		}
		last = record
		lastStatus = record.Status

		if err := r.waitForNextPoll(ctx, snapshotID, lastStatus, deadline); err != nil {
			return domain.SnapshotRecord{}, err
		}
	}
}

// waitForNextPoll enforces the deadline before sleeping so an expired wait
// fails immediately instead of sleeping past it.
func (r *Reconciler) waitForNextPoll(ctx context.Context, snapshotID, lastStatus string, deadline time.Time) error {
	if !time.Now().Before(deadline) {
		return apperrors.NewUserFacing(apperrors.CodeTimeout,
			fmt.Sprintf("timed out waiting for snapshot %q (last observed status %q)", snapshotID, lastStatus),
			"The snapshot may still converge on its own; re-run with a longer --wait-timeout to keep watching.")
	}

	r.logger.Debugf(ctx, "Snapshot %s status is %q, polling again in %s", snapshotID, lastStatus, r.pollInterval)

	timer := time.NewTimer(r.pollInterval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return apperrors.Wrap(ctx.Err(), apperrors.CodeTimeout,
			fmt.Sprintf("wait for snapshot %q interrupted (last observed status %q)", snapshotID, lastStatus))
	}
}
