package app

import (
	"context"

	"github.com/rdsops/snapshot-reconciler/internal/config"
	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
	"github.com/rdsops/snapshot-reconciler/internal/core/ports"
	"github.com/rdsops/snapshot-reconciler/internal/core/service"
)

// Application ties the reconciler, the facts service and the reporter
// together for the CLI.
type Application struct {
	Reconciler *service.Reconciler
	Facts      *service.FactsService
	Reporter   ports.Reporter
	Logger     ports.Logger
	Config     *config.Config
}

// RunReconcile executes one desired-state reconciliation and reports the
// outcome.
func (a *Application) RunReconcile(ctx context.Context, req domain.ReconcileRequest) error {
	a.Logger.Infof(ctx, "Reconciling snapshot %s to state %q (wait: %t)", req.SnapshotID, req.State, req.Wait)

	result, err := a.Reconciler.Reconcile(ctx, req)
	if err != nil {
		a.Logger.Errorf(ctx, err, "Reconciliation of snapshot %s failed", req.SnapshotID)
		return err
	}

	a.Logger.Infof(ctx, "Reconciliation of snapshot %s finished (changed: %t)", req.SnapshotID, result.Changed)
	return a.Reporter.ReportResult(ctx, req, result)
}

// RunFacts gathers and reports the read-only snapshot facts of an instance.
func (a *Application) RunFacts(ctx context.Context, sourceID string) error {
	a.Logger.Infof(ctx, "Gathering snapshot facts for instance %s", sourceID)

	facts, err := a.Facts.Gather(ctx, sourceID)
	if err != nil {
		a.Logger.Errorf(ctx, err, "Gathering facts for instance %s failed", sourceID)
		return err
	}

	return a.Reporter.ReportFacts(ctx, facts)
}
