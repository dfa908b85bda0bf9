// Package rdssnapshot is the RDS-backed implementation of the snapshot
// provider boundary. It issues the describe/create/delete calls, translates
// API objects into domain records and classifies API failures; all
// reconciliation policy lives above it.
package rdssnapshot

import (
	"context"
	stderrs "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	awserrors "github.com/rdsops/snapshot-reconciler/internal/adapters/platform/aws/errors"
	"github.com/rdsops/snapshot-reconciler/internal/adapters/platform/aws/limiter"
	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
	"github.com/rdsops/snapshot-reconciler/internal/core/ports"
	apperrors "github.com/rdsops/snapshot-reconciler/internal/errors"
)

// Only manual snapshots are managed; automated ones belong to the platform's
// backup schedule.
const snapshotTypeManual = "manual"

type rdsAPI interface {
	DescribeDBSnapshots(ctx context.Context, params *rds.DescribeDBSnapshotsInput, optFns ...func(*rds.Options)) (*rds.DescribeDBSnapshotsOutput, error)
	CreateDBSnapshot(ctx context.Context, params *rds.CreateDBSnapshotInput, optFns ...func(*rds.Options)) (*rds.CreateDBSnapshotOutput, error)
	DeleteDBSnapshot(ctx context.Context, params *rds.DeleteDBSnapshotInput, optFns ...func(*rds.Options)) (*rds.DeleteDBSnapshotOutput, error)
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

type stsAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Client talks to the RDS API for one AWS account/region. Mutating calls go
// out exactly once; the SDK's automatic retries are disabled for them so a
// flaky network cannot double-create a snapshot.
type Client struct {
	rdsClient rdsAPI
	stsClient stsAPI
	logger    ports.Logger
	accountID string
}

func NewClient(cfg aws.Config, logger ports.Logger) *Client {
	return &Client{
		rdsClient: rds.NewFromConfig(cfg),
		stsClient: sts.NewFromConfig(cfg),
		logger:    logger,
	}
}

// Describe looks up one manual snapshot. Absence is reported as found=false,
// not as an error.
func (c *Client) Describe(ctx context.Context, snapshotID string) (domain.SnapshotRecord, bool, error) {
	if err := limiter.Wait(ctx, c.logger); err != nil {
		return domain.SnapshotRecord{}, false, awserrors.Handle(ctx, "DB snapshot", snapshotID, err)
	}

	output, err := c.rdsClient.DescribeDBSnapshots(ctx, &rds.DescribeDBSnapshotsInput{
		DBSnapshotIdentifier: aws.String(snapshotID),
		SnapshotType:         aws.String(snapshotTypeManual),
	})
	if err != nil {
		var notFound *types.DBSnapshotNotFoundFault
		if stderrs.As(err, &notFound) {
			return domain.SnapshotRecord{}, false, nil
		}
		return domain.SnapshotRecord{}, false, awserrors.Handle(ctx, "DB snapshot", snapshotID, err)
	}

	if len(output.DBSnapshots) != 1 {
		// DescribeDBSnapshots with an identifier returns one snapshot or
		// DBSnapshotNotFoundFault; anything else is a provider anomaly.
		return domain.SnapshotRecord{}, false, apperrors.New(apperrors.CodePlatformAPIError,
			fmt.Sprintf("unexpected number of DB snapshots for %q: %d", snapshotID, len(output.DBSnapshots)))
	}

	return mapSnapshotToDomain(output.DBSnapshots[0], c.callerAccountID(ctx)), true, nil
}

func (c *Client) Create(ctx context.Context, snapshotID, sourceID string, tags map[string]string) (domain.SnapshotRecord, error) {
	if err := limiter.Wait(ctx, c.logger); err != nil {
		return domain.SnapshotRecord{}, awserrors.Handle(ctx, "DB snapshot", snapshotID, err)
	}

	c.logger.Debugf(ctx, "Issuing CreateDBSnapshot for %s (source instance %s)", snapshotID, sourceID)
	output, err := c.rdsClient.CreateDBSnapshot(ctx, &rds.CreateDBSnapshotInput{
		DBSnapshotIdentifier: aws.String(snapshotID),
		DBInstanceIdentifier: aws.String(sourceID),
		Tags:                 mapTags(tags),
	}, disableMutationRetries)
	if err != nil {
		return domain.SnapshotRecord{}, awserrors.Handle(ctx, "DB snapshot", snapshotID, err)
	}
	if output.DBSnapshot == nil {
		return domain.SnapshotRecord{}, apperrors.New(apperrors.CodePlatformAPIError,
			fmt.Sprintf("CreateDBSnapshot for %q returned no snapshot", snapshotID))
	}

	return mapSnapshotToDomain(*output.DBSnapshot, c.callerAccountID(ctx)), nil
}

// Delete returns the record as reported by the delete call, normally still
// in status "deleting". A not-found rejection comes back classified as
// RESOURCE_NOT_FOUND for the reconciler to fold into success.
func (c *Client) Delete(ctx context.Context, snapshotID string) (domain.SnapshotRecord, error) {
	if err := limiter.Wait(ctx, c.logger); err != nil {
		return domain.SnapshotRecord{}, awserrors.Handle(ctx, "DB snapshot", snapshotID, err)
	}

	c.logger.Debugf(ctx, "Issuing DeleteDBSnapshot for %s", snapshotID)
	output, err := c.rdsClient.DeleteDBSnapshot(ctx, &rds.DeleteDBSnapshotInput{
		DBSnapshotIdentifier: aws.String(snapshotID),
	}, disableMutationRetries)
	if err != nil {
		return domain.SnapshotRecord{}, awserrors.Handle(ctx, "DB snapshot", snapshotID, err)
	}
	if output.DBSnapshot == nil {
		return domain.SnapshotRecord{}, apperrors.New(apperrors.CodePlatformAPIError,
			fmt.Sprintf("DeleteDBSnapshot for %q returned no snapshot", snapshotID))
	}

	return mapSnapshotToDomain(*output.DBSnapshot, c.callerAccountID(ctx)), nil
}

// List returns every manual snapshot of a source instance, following
// pagination.
func (c *Client) List(ctx context.Context, sourceID string) ([]domain.SnapshotRecord, error) {
	input := &rds.DescribeDBSnapshotsInput{
		DBInstanceIdentifier: aws.String(sourceID),
		SnapshotType:         aws.String(snapshotTypeManual),
	}
	paginator := rds.NewDescribeDBSnapshotsPaginator(c.rdsClient, input)

	accountID := c.callerAccountID(ctx)
	var records []domain.SnapshotRecord
	pageNum := 0
	for paginator.HasMorePages() {
		if err := limiter.Wait(ctx, c.logger); err != nil {
			return nil, awserrors.Handle(ctx, "DB snapshot list", sourceID, err)
		}

		pageNum++
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, awserrors.Handle(ctx, "DB snapshot list", sourceID,
				fmt.Errorf("page %d: %w", pageNum, err))
		}
		for _, snapshot := range output.DBSnapshots {
			records = append(records, mapSnapshotToDomain(snapshot, accountID))
		}
	}

	c.logger.Debugf(ctx, "Listed %d manual snapshot(s) for instance %s across %d page(s)",
		len(records), sourceID, pageNum)
	return records, nil
}

func (c *Client) SourceInstance(ctx context.Context, sourceID string) (domain.InstanceRecord, bool, error) {
	if err := limiter.Wait(ctx, c.logger); err != nil {
		return domain.InstanceRecord{}, false, awserrors.Handle(ctx, "DB instance", sourceID, err)
	}

	output, err := c.rdsClient.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(sourceID),
	})
	if err != nil {
		var notFound *types.DBInstanceNotFoundFault
		if stderrs.As(err, &notFound) {
			return domain.InstanceRecord{}, false, nil
		}
		return domain.InstanceRecord{}, false, awserrors.Handle(ctx, "DB instance", sourceID, err)
	}

	if len(output.DBInstances) != 1 {
		return domain.InstanceRecord{}, false, apperrors.New(apperrors.CodePlatformAPIError,
			fmt.Sprintf("unexpected number of DB instances for %q: %d", sourceID, len(output.DBInstances)))
	}

	return mapInstanceToDomain(output.DBInstances[0]), true, nil
}

// callerAccountID resolves and caches the AWS account id for record
// enrichment. STS failures degrade to an empty account id with a warning.
func (c *Client) callerAccountID(ctx context.Context) string {
	if c.accountID != "" {
		return c.accountID
	}
	output, err := c.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		c.logger.Warnf(ctx, "Proceeding without AWS account ID due to STS error: %v", err)
		return ""
	}
	if output.Account == nil {
		c.logger.Warnf(ctx, "AWS caller identity response did not contain an account ID")
		return ""
	}
	c.accountID = *output.Account
	return c.accountID
}

func disableMutationRetries(o *rds.Options) {
	o.RetryMaxAttempts = 1
}
