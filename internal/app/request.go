package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/rdsops/snapshot-reconciler/internal/config"
	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
	apperrors "github.com/rdsops/snapshot-reconciler/internal/errors"
	"github.com/rdsops/snapshot-reconciler/pkg/convert"
)

// RequestInput is the raw per-invocation input from CLI flags, before
// defaults are merged in.
type RequestInput struct {
	State            string
	SnapshotID       string
	SourceInstanceID string
	Wait             bool
	WaitTimeout      time.Duration
	TagPairs         []string
}

// BuildRequest merges flag input with config-file defaults into the
// read-only request handed to the reconciler. Flag tags win over default
// tags on key collision.
func BuildRequest(input RequestInput, defaults config.RequestDefaults) (domain.ReconcileRequest, error) {
	tags, err := convert.ToStringMap(defaults.Tags)
	if err != nil {
		return domain.ReconcileRequest{}, apperrors.WrapUserFacing(err, apperrors.CodeConfigValidation,
			"invalid default tags in configuration",
			"Tag values in the config file must be scalar.")
	}

	flagTags, err := parseTagPairs(input.TagPairs)
	if err != nil {
		return domain.ReconcileRequest{}, err
	}
	if len(flagTags) > 0 {
		if tags == nil {
			tags = make(map[string]string, len(flagTags))
		}
		for k, v := range flagTags {
			tags[k] = v
		}
	}

	waitTimeout := input.WaitTimeout
	if waitTimeout == 0 {
		waitTimeout = defaults.WaitTimeout
	}

	req := domain.ReconcileRequest{
		State:            domain.DesiredState(input.State),
		SnapshotID:       input.SnapshotID,
		SourceInstanceID: input.SourceInstanceID,
		Wait:             input.Wait,
		WaitTimeout:      waitTimeout,
		Tags:             tags,
	}

	if err := req.Validate(); err != nil {
		return domain.ReconcileRequest{}, err
	}
	return req, nil
}

// parseTagPairs turns repeated key=value flag values into a tag map.
func parseTagPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	tags := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, apperrors.NewUserFacing(apperrors.CodeConfigValidation,
				fmt.Sprintf("invalid tag %q, expected key=value", pair),
				"Pass tags as --tags key=value, repeated or comma-separated.")
		}
		tags[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	if len(tags) == 0 {
		return nil, nil
	}
	return tags, nil
}
