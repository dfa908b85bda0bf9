package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/rdsops/snapshot-reconciler/internal/errors"
)

// Classify maps an AWS SDK error onto the application error taxonomy:
// RESOURCE_NOT_FOUND, PLATFORM_THROTTLED, PLATFORM_AUTH_ERROR or
// PLATFORM_API_ERROR. The reconciler only ever branches on these codes,
// never on SDK types.
func Classify(err error) errors.Code {
	if err == nil {
		return errors.CodeUnknown
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return errors.CodePlatformAPIError
	}

	if code, ok := apiErrorCode(err); ok {
		switch {
		case isNotFoundCode(code):
			return errors.CodeResourceNotFound
		case isThrottleCode(code):
			return errors.CodeThrottled
		case isAuthCode(code):
			return errors.CodePlatformAuth
		}
	}

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "AuthFailure"),
		strings.Contains(errMsg, "UnauthorizedOperation"),
		strings.Contains(errMsg, "AccessDenied"):
		return errors.CodePlatformAuth
	case strings.Contains(errMsg, "NotFound"),
		strings.Contains(errMsg, "not found"),
		strings.Contains(errMsg, "not exist"):
		return errors.CodeResourceNotFound
	case strings.Contains(errMsg, "Throttling"),
		strings.Contains(errMsg, "Rate exceeded"):
		return errors.CodeThrottled
	}

	return errors.CodePlatformAPIError
}

// Handle wraps an AWS error with its classification and a message naming
// the resource, so callers can diagnose without re-querying the platform.
func Handle(ctx context.Context, resourceType, resourceID string, err error) error {
	if err == nil {
		return errors.New(errors.CodeInternal,
			fmt.Sprintf("unexpected nil error in AWS error handler for %s", resourceType))
	}

	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), errors.CodePlatformAPIError,
			fmt.Sprintf("context canceled during AWS %s API call", resourceType))
	}

	code := Classify(err)
	switch code {
	case errors.CodeResourceNotFound:
		return errors.Wrap(err, code, fmt.Sprintf("%s %q not found", resourceType, resourceID))
	case errors.CodePlatformAuth:
		return errors.Wrap(err, code,
			fmt.Sprintf("AWS authentication error accessing %s %q", resourceType, resourceID))
	case errors.CodeThrottled:
		return errors.Wrap(err, code,
			fmt.Sprintf("AWS throttled request for %s %q", resourceType, resourceID))
	default:
		return errors.Wrap(err, code, fmt.Sprintf("failed to access %s %q", resourceType, resourceID))
	}
}

func apiErrorCode(err error) (string, bool) {
	// Plain ErrorCode carriers first so test doubles work without smithy.
	if coded, ok := err.(interface{ ErrorCode() string }); ok && coded != nil {
		return coded.ErrorCode(), true
	}

	var apiErr smithy.APIError
	if stderrs.As(err, &apiErr) && apiErr != nil {
		return apiErr.ErrorCode(), true
	}
	return "", false
}

func isNotFoundCode(code string) bool {
	switch code {
	case "DBSnapshotNotFound",
		"DBSnapshotNotFoundFault",
		"DBInstanceNotFound",
		"DBInstanceNotFoundFault",
		"ResourceNotFoundException",
		"NotFoundException":
		return true
	}
	return false
}

func isThrottleCode(code string) bool {
	switch code {
	case "Throttling",
		"ThrottlingException",
		"RequestLimitExceeded",
		"SnapshotQuotaExceeded",
		"TooManyRequestsException":
		return true
	}
	return false
}

func isAuthCode(code string) bool {
	switch code {
	case "AuthFailure",
		"UnauthorizedOperation",
		"AccessDenied",
		"AccessDeniedException",
		"InvalidClientTokenId":
		return true
	}
	return false
}
