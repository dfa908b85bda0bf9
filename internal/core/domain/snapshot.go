package domain

import "time"

// Well-known RDS snapshot status values. The provider owns the status
// vocabulary; these are the only values the reconciler gives meaning to,
// everything else is treated as "still converging".
const (
	StatusAvailable = "available"
	StatusCreating  = "creating"
	StatusDeleting  = "deleting"
)

// SnapshotRecord is the normalized view of a remote DB snapshot. Records are
// only ever built from provider responses; a zero ID means the snapshot does
// not exist.
type SnapshotRecord struct {
	ID               string
	ARN              string
	Status           string
	SnapshotType     string
	SourceInstanceID string
	AvailabilityZone string
	Engine           string
	EngineVersion    string
	AllocatedGiB     int32
	IOPS             int32
	Encrypted        bool
	AccountID        string
	CreatedAt        *time.Time
	InstanceCreated  *time.Time
	Tags             map[string]string
}

// Exists reports whether the record describes a real remote snapshot, as
// opposed to the zero value used for "not found".
func (r SnapshotRecord) Exists() bool {
	return r.ID != ""
}

// InstanceRecord is the normalized view of the source DB instance, used by
// the facts operation only.
type InstanceRecord struct {
	ID               string
	Status           string
	Engine           string
	EngineVersion    string
	AvailabilityZone string
	AllocatedGiB     int32
	CreatedAt        *time.Time
}

// InstanceFacts bundles a source instance with its manual snapshots.
type InstanceFacts struct {
	Instance      InstanceRecord
	InstanceFound bool
	Snapshots     []SnapshotRecord
}
