package rdssnapshot

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
)

// mapSnapshotToDomain builds a SnapshotRecord from a provider response.
// Every field comes straight from the API object; nothing is guessed.
func mapSnapshotToDomain(snapshot types.DBSnapshot, accountID string) domain.SnapshotRecord {
	record := domain.SnapshotRecord{
		ID:               aws.ToString(snapshot.DBSnapshotIdentifier),
		ARN:              aws.ToString(snapshot.DBSnapshotArn),
		Status:           aws.ToString(snapshot.Status),
		SnapshotType:     aws.ToString(snapshot.SnapshotType),
		SourceInstanceID: aws.ToString(snapshot.DBInstanceIdentifier),
		AvailabilityZone: aws.ToString(snapshot.AvailabilityZone),
		Engine:           aws.ToString(snapshot.Engine),
		EngineVersion:    aws.ToString(snapshot.EngineVersion),
		AllocatedGiB:     aws.ToInt32(snapshot.AllocatedStorage),
		IOPS:             aws.ToInt32(snapshot.Iops),
		Encrypted:        aws.ToBool(snapshot.Encrypted),
		AccountID:        accountID,
		CreatedAt:        snapshot.SnapshotCreateTime,
		InstanceCreated:  snapshot.InstanceCreateTime,
	}

	if len(snapshot.TagList) > 0 {
		record.Tags = make(map[string]string, len(snapshot.TagList))
		for _, tag := range snapshot.TagList {
			record.Tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
		}
	}

	return record
}

func mapInstanceToDomain(instance types.DBInstance) domain.InstanceRecord {
	return domain.InstanceRecord{
		ID:               aws.ToString(instance.DBInstanceIdentifier),
		Status:           aws.ToString(instance.DBInstanceStatus),
		Engine:           aws.ToString(instance.Engine),
		EngineVersion:    aws.ToString(instance.EngineVersion),
		AvailabilityZone: aws.ToString(instance.AvailabilityZone),
		AllocatedGiB:     aws.ToInt32(instance.AllocatedStorage),
		CreatedAt:        instance.InstanceCreateTime,
	}
}

func mapTags(tags map[string]string) []types.Tag {
	if len(tags) == 0 {
		return nil
	}
	mapped := make([]types.Tag, 0, len(tags))
	for key, value := range tags {
		mapped = append(mapped, types.Tag{
			Key:   aws.String(key),
			Value: aws.String(value),
		})
	}
	return mapped
}
