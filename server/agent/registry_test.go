package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type namedTool struct{ name, description string }

func (t namedTool) Name() string                                 { return t.name }
func (t namedTool) Description() string                          { return t.description }
func (t namedTool) Call(context.Context, string) (string, error) { return "", nil }

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry()

	_, err := r.Register(namedTool{name: "weather"}, nil)
	require.NoError(t, err)

	_, err = r.Register(namedTool{name: "weather"}, nil)
	require.Error(t, err)
}

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()

	var ids []string
	for _, name := range []string{"zulu", "alpha", "mike"} {
		id, err := r.Register(namedTool{name: name}, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.Equal(t, ids, r.IDs())

	all := r.All()
	require.Len(t, all, 3)
	require.Equal(t, "zulu", all[0].Name)
	require.Equal(t, "alpha", all[1].Name)
	require.Equal(t, "mike", all[2].Name)
}

func TestRegistrySubsetSkipsUnknownIDs(t *testing.T) {
	r := NewRegistry()
	id, err := r.Register(namedTool{name: "weather"}, nil)
	require.NoError(t, err)

	subset := r.Subset([]string{id, "no-such-id"})
	require.Len(t, subset, 1)
	require.Contains(t, subset, "weather")
}

func TestRegistryDefs(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))

	defs := r.Defs(r.IDs())
	require.Len(t, defs, 1)

	fn, ok := defs[0]["function"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "multiply", fn["name"])

	params, ok := fn["parameters"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, params["required"])
	props, ok := params["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "a")
	require.Contains(t, props, "b")
}

func TestMultiplyTool(t *testing.T) {
	ctx := context.Background()
	tool := multiplyTool{}

	out, err := tool.Call(ctx, `{"a":2,"b":3}`)
	require.NoError(t, err)
	require.Equal(t, "6", out)

	out, err = tool.Call(ctx, `{"a":2.5,"b":2}`)
	require.NoError(t, err)
	require.Equal(t, "5", out)

	out, err = tool.Call(ctx, `{"a":1.5,"b":0.5}`)
	require.NoError(t, err)
	require.Equal(t, "0.75", out)

	_, err = tool.Call(ctx, `{"a":"x","b":3}`)
	require.Error(t, err)
}
