package merge

// Truthy reports whether a committed value carries information. Empty
// strings, zero numbers, false and empty collections are falsy; everything
// else, including the "N/A" marker, is truthy.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case string:
		return val != ""
	case bool:
		return val
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
