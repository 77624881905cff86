package agent

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// multiplyTool is the built-in arithmetic tool.
type multiplyTool struct{}

func (multiplyTool) Name() string { return "multiply" }

func (multiplyTool) Description() string {
	return "Multiply two numbers `a` and `b`. Input must be a JSON string with numeric keys `a` and `b`."
}

func (multiplyTool) Call(_ context.Context, input string) (string, error) {
	var payload struct {
		A json.Number `json:"a"`
		B json.Number `json:"b"`
	}
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		return "", errors.Wrap(err, "parse input")
	}

	a, errA := payload.A.Float64()
	b, errB := payload.B.Float64()
	if errA != nil || errB != nil {
		return "", errors.New("a and b must be numbers")
	}

	product := a * b
	if product == float64(int64(product)) {
		return strconv.FormatInt(int64(product), 10), nil
	}
	return strconv.FormatFloat(product, 'f', -1, 64), nil
}

// RegisterBuiltins adds the always-available tools to a registry.
func RegisterBuiltins(r *Registry) error {
	_, err := r.Register(multiplyTool{}, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "integer", "description": "First factor"},
			"b": map[string]any{"type": "integer", "description": "Second factor"},
		},
		"required": []string{"a", "b"},
	})
	return err
}
