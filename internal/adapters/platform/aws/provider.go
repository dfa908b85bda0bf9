// Package aws wires the AWS SDK configuration chain to the snapshot
// provider port.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/rdsops/snapshot-reconciler/internal/adapters/platform/aws/rdssnapshot"
	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
	"github.com/rdsops/snapshot-reconciler/internal/core/ports"
	"github.com/rdsops/snapshot-reconciler/internal/errors"
)

const ProviderTypeAWS = "aws"

// Config carries the small slice of AWS client settings this tool exposes.
// Credentials flow through the SDK's default chain (env, shared config,
// role); they are never handled here.
type Config struct {
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

type Provider struct {
	awsConfig aws.Config
	snapshots *rdssnapshot.Client
	logger    ports.Logger
}

func NewProvider(ctx context.Context, cfg Config, logger ports.Logger) (*Provider, error) {
	if logger == nil {
		return nil, errors.New(errors.CodeConfigValidation, "logger cannot be nil for AWS provider")
	}

	var optFns []func(*config.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		optFns = append(optFns, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigValidation, "failed to load AWS configuration")
	}

	return &Provider{
		awsConfig: awsConfig,
		snapshots: rdssnapshot.NewClient(awsConfig, logger),
		logger:    logger,
	}, nil
}

func (p *Provider) Type() string {
	return ProviderTypeAWS
}

func (p *Provider) Describe(ctx context.Context, snapshotID string) (domain.SnapshotRecord, bool, error) {
	return p.snapshots.Describe(ctx, snapshotID)
}

func (p *Provider) Create(ctx context.Context, snapshotID, sourceID string, tags map[string]string) (domain.SnapshotRecord, error) {
	return p.snapshots.Create(ctx, snapshotID, sourceID, tags)
}

func (p *Provider) Delete(ctx context.Context, snapshotID string) (domain.SnapshotRecord, error) {
	return p.snapshots.Delete(ctx, snapshotID)
}

func (p *Provider) List(ctx context.Context, sourceID string) ([]domain.SnapshotRecord, error) {
	return p.snapshots.List(ctx, sourceID)
}

func (p *Provider) SourceInstance(ctx context.Context, sourceID string) (domain.InstanceRecord, bool, error) {
	return p.snapshots.SourceInstance(ctx, sourceID)
}

// Region exposes the resolved region for logging.
func (p *Provider) Region() string {
	return p.awsConfig.Region
}
