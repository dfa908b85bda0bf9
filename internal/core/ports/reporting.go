package ports

import (
	"context"

	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
)

type Reporter interface {
	ReportResult(ctx context.Context, req domain.ReconcileRequest, result domain.ReconcileResult) error
	ReportFacts(ctx context.Context, facts domain.InstanceFacts) error
}
