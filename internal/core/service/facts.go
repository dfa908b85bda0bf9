package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
	"github.com/rdsops/snapshot-reconciler/internal/core/ports"
	apperrors "github.com/rdsops/snapshot-reconciler/internal/errors"
)

// FactsService gathers the read-only view of a source instance and its
// manual snapshots. No mutation, no waiting.
type FactsService struct {
	provider ports.SnapshotProvider
	logger   ports.Logger
}

func NewFactsService(provider ports.SnapshotProvider, logger ports.Logger) (*FactsService, error) {
	if provider == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "snapshot provider cannot be nil")
	}
	if logger == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "logger cannot be nil")
	}
	return &FactsService{provider: provider, logger: logger}, nil
}

// Gather fetches the instance description and the snapshot list
// concurrently; both are independent reads against the provider.
func (s *FactsService) Gather(ctx context.Context, sourceID string) (domain.InstanceFacts, error) {
	if sourceID == "" {
		return domain.InstanceFacts{}, apperrors.NewUserFacing(apperrors.CodeConfigValidation,
			"source instance identifier is required",
			"Pass --source-instance with the DB instance identifier to inspect.")
	}

	var facts domain.InstanceFacts
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		instance, found, err := s.provider.SourceInstance(gctx, sourceID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodePlatformAPIError,
				fmt.Sprintf("describing instance %q", sourceID))
		}
		facts.Instance = instance
		facts.InstanceFound = found
		return nil
	})

	g.Go(func() error {
		snapshots, err := s.provider.List(gctx, sourceID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodePlatformAPIError,
				fmt.Sprintf("listing snapshots of instance %q", sourceID))
		}
		facts.Snapshots = snapshots
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.InstanceFacts{}, err
	}

	s.logger.Debugf(ctx, "Gathered %d snapshot(s) for instance %s (instance found: %t)",
		len(facts.Snapshots), sourceID, facts.InstanceFound)
	return facts, nil
}
