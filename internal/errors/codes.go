package errors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeConfigValidation Code = "CONFIG_VALIDATION_ERROR"
	CodeConfigReadError  Code = "CONFIG_READ_ERROR"
	CodeConfigParseError Code = "CONFIG_PARSE_ERROR"
	CodeResourceNotFound Code = "RESOURCE_NOT_FOUND"
	CodeResourceConflict Code = "RESOURCE_CONFLICT"
	CodePlatformAPIError Code = "PLATFORM_API_ERROR"
	CodePlatformAuth     Code = "PLATFORM_AUTH_ERROR"
	CodeThrottled        Code = "PLATFORM_THROTTLED"
	CodeTimeout          Code = "TIMEOUT_ERROR"
)

func (c Code) String() string {
	return string(c)
}
