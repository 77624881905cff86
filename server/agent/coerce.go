package agent

import "strconv"

// coerceArguments converts stringified primitive argument values from
// the model into typed values before dispatch. The coercion is lossy:
// "007" becomes the integer 7. Non-string values and strings that match
// no literal pattern pass through unchanged.
func coerceArguments(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = coerceValue(v)
	}
	return out
}

func coerceValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
