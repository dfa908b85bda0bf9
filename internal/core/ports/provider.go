package ports

import (
	"context"

	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
)

// SnapshotProvider is the sole boundary to the remote platform. Implementations
// translate platform responses into domain records and classify failures with
// the internal/errors codes (RESOURCE_NOT_FOUND, PLATFORM_THROTTLED,
// PLATFORM_AUTH_ERROR, PLATFORM_API_ERROR) so the reconciler never inspects
// platform-specific error types.
//
// Mutating calls (Create, Delete) must hit the platform exactly once per
// invocation; retry policy belongs to the caller, not the provider.
type SnapshotProvider interface {
	Type() string

	// Describe looks up a snapshot by id. Absence is a normal outcome,
	// reported as found=false with a nil error.
	Describe(ctx context.Context, snapshotID string) (domain.SnapshotRecord, bool, error)

	// Create takes a new snapshot of sourceID. Tags are attached as part of
	// the create call itself.
	Create(ctx context.Context, snapshotID, sourceID string, tags map[string]string) (domain.SnapshotRecord, error)

	// Delete removes a snapshot and returns the record as reported by the
	// delete call, typically still in a transitional status. A not-found
	// rejection surfaces as a RESOURCE_NOT_FOUND-classified error; folding
	// that into success is the reconciler's decision.
	Delete(ctx context.Context, snapshotID string) (domain.SnapshotRecord, error)

	// List returns all manual snapshots of a source instance.
	List(ctx context.Context, sourceID string) ([]domain.SnapshotRecord, error)

	// SourceInstance looks up the source DB instance, absence reported as
	// found=false with a nil error.
	SourceInstance(ctx context.Context, sourceID string) (domain.InstanceRecord, bool, error)
}
