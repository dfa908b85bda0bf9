package json

import (
	"context"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
	"github.com/rdsops/snapshot-reconciler/internal/core/ports"
	apperrors "github.com/rdsops/snapshot-reconciler/internal/errors"
)

const ReporterTypeJSON = "json"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct{}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

func NewReporter(cfg Config, logger ports.Logger) (*Reporter, error) {
	return &Reporter{
		config: cfg,
		writer: os.Stdout,
		logger: logger,
	}, nil
}

type jsonSnapshot struct {
	ID               string            `json:"id"`
	ARN              string            `json:"arn,omitempty"`
	Status           string            `json:"status"`
	SnapshotType     string            `json:"snapshot_type,omitempty"`
	SourceInstanceID string            `json:"source_instance_id,omitempty"`
	AvailabilityZone string            `json:"availability_zone,omitempty"`
	Engine           string            `json:"engine,omitempty"`
	EngineVersion    string            `json:"engine_version,omitempty"`
	AllocatedGiB     int32             `json:"allocated_storage_gib,omitempty"`
	IOPS             int32             `json:"iops,omitempty"`
	Encrypted        bool              `json:"encrypted"`
	AccountID        string            `json:"account_id,omitempty"`
	CreatedAt        *time.Time        `json:"created_at,omitempty"`
	Tags             map[string]string `json:"tags,omitempty"`
}

type jsonResult struct {
	DesiredState string        `json:"desired_state"`
	SnapshotID   string        `json:"snapshot_id"`
	Changed      bool          `json:"changed"`
	Present      bool          `json:"present"`
	Snapshot     *jsonSnapshot `json:"snapshot,omitempty"`
}

type jsonInstance struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	Engine           string     `json:"engine,omitempty"`
	EngineVersion    string     `json:"engine_version,omitempty"`
	AvailabilityZone string     `json:"availability_zone,omitempty"`
	AllocatedGiB     int32      `json:"allocated_storage_gib,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

type jsonFacts struct {
	Instance      *jsonInstance  `json:"instance,omitempty"`
	InstanceFound bool           `json:"instance_found"`
	Snapshots     []jsonSnapshot `json:"snapshots"`
}

func (r *Reporter) ReportResult(ctx context.Context, req domain.ReconcileRequest, result domain.ReconcileResult) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	doc := jsonResult{
		DesiredState: string(req.State),
		SnapshotID:   req.SnapshotID,
		Changed:      result.Changed,
		Present:      result.Present,
	}
	if result.Present && result.Record.Exists() {
		snapshot := mapSnapshot(result.Record)
		doc.Snapshot = &snapshot
	}

	return r.encode(doc)
}

func (r *Reporter) ReportFacts(ctx context.Context, facts domain.InstanceFacts) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	doc := jsonFacts{
		InstanceFound: facts.InstanceFound,
		Snapshots:     make([]jsonSnapshot, 0, len(facts.Snapshots)),
	}
	if facts.InstanceFound {
		doc.Instance = &jsonInstance{
			ID:               facts.Instance.ID,
			Status:           facts.Instance.Status,
			Engine:           facts.Instance.Engine,
			EngineVersion:    facts.Instance.EngineVersion,
			AvailabilityZone: facts.Instance.AvailabilityZone,
			AllocatedGiB:     facts.Instance.AllocatedGiB,
			CreatedAt:        facts.Instance.CreatedAt,
		}
	}
	for _, s := range facts.Snapshots {
		doc.Snapshots = append(doc.Snapshots, mapSnapshot(s))
	}

	return r.encode(doc)
}

func mapSnapshot(record domain.SnapshotRecord) jsonSnapshot {
	return jsonSnapshot{
		ID:               record.ID,
		ARN:              record.ARN,
		Status:           record.Status,
		SnapshotType:     record.SnapshotType,
		SourceInstanceID: record.SourceInstanceID,
		AvailabilityZone: record.AvailabilityZone,
		Engine:           record.Engine,
		EngineVersion:    record.EngineVersion,
		AllocatedGiB:     record.AllocatedGiB,
		IOPS:             record.IOPS,
		Encrypted:        record.Encrypted,
		AccountID:        record.AccountID,
		CreatedAt:        record.CreatedAt,
		Tags:             record.Tags,
	}
}

func (r *Reporter) encode(doc any) error {
	encoder := jsonAPI.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to encode JSON report")
	}
	return nil
}
