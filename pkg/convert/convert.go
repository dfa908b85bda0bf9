package convert

import "fmt"

var errNotMap = fmt.Errorf("input data is not a map")
var errNotStringValue = fmt.Errorf("map value is not a string")

// ToStringMap converts map[string]any or map[string]string to
// map[string]string. Non-string scalar values (config files hand tags over
// untyped) are rendered with fmt.Sprintf. Returns a nil map for nil input.
func ToStringMap(data any) (map[string]string, error) {
	if data == nil {
		return nil, nil
	}
	if m, ok := data.(map[string]string); ok {
		return m, nil
	}
	if mAny, ok := data.(map[string]any); ok {
		result := make(map[string]string, len(mAny))
		for k, v := range mAny {
			switch value := v.(type) {
			case string:
				result[k] = value
			case bool, int, int32, int64, float32, float64:
				result[k] = fmt.Sprintf("%v", value)
			default:
				return nil, fmt.Errorf("key '%s': %w (type %T)", k, errNotStringValue, v)
			}
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: input type %T", errNotMap, data)
}
