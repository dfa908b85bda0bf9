package domain

import (
	"fmt"
	"time"

	apperrors "github.com/rdsops/snapshot-reconciler/internal/errors"
)

type DesiredState string

const (
	StatePresent DesiredState = "present"
	StateAbsent  DesiredState = "absent"
)

// ReconcileRequest is the caller's declarative intent for one snapshot.
// Built once per invocation, read-only afterwards.
type ReconcileRequest struct {
	State            DesiredState
	SnapshotID       string
	SourceInstanceID string
	Wait             bool
	WaitTimeout      time.Duration
	Tags             map[string]string
}

// Validate rejects requests that can never succeed before any provider call
// is made.
func (r ReconcileRequest) Validate() error {
	if r.SnapshotID == "" {
		return apperrors.NewUserFacing(apperrors.CodeConfigValidation,
			"snapshot identifier is required",
			"Pass --snapshot with the DB snapshot identifier to manage.")
	}
	switch r.State {
	case StatePresent:
		if r.SourceInstanceID == "" {
			return apperrors.NewUserFacing(apperrors.CodeConfigValidation,
				fmt.Sprintf("source instance is required to create snapshot %q", r.SnapshotID),
				"Pass --source-instance with the DB instance identifier when state is present.")
		}
	case StateAbsent:
	default:
		return apperrors.NewUserFacing(apperrors.CodeConfigValidation,
			fmt.Sprintf("invalid desired state %q", r.State),
			"Use --state present or --state absent.")
	}
	if r.Wait && r.WaitTimeout <= 0 {
		return apperrors.NewUserFacing(apperrors.CodeConfigValidation,
			"wait timeout must be positive when --wait is set",
			"Pass --wait-timeout with a duration such as 300s.")
	}
	return nil
}

// ReconcileResult is the outcome of one reconciliation. Changed reports
// whether a mutating call was issued (or, for the delete race, would have
// been needed); Present reports whether the snapshot exists afterwards, as
// far as the last provider read showed.
type ReconcileResult struct {
	Record  SnapshotRecord
	Changed bool
	Present bool
}
