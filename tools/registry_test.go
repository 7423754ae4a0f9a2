package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) (*Registry, *CustomProvider) {
	t.Helper()
	custom := NewCustomProvider()
	return NewRegistry(zap.NewNop(), NewNativeProvider(), custom), custom
}

func TestRegistry_Resolve_Native(t *testing.T) {
	reg, _ := newTestRegistry(t)

	h, ok := reg.Resolve("simple_research_tool")
	require.True(t, ok)
	assert.Equal(t, "simple_research_tool", h.Name())
	assert.Equal(t, KindNative, h.Kind())
}

func TestRegistry_Resolve_Custom(t *testing.T) {
	reg, custom := newTestRegistry(t)
	custom.Register("echo", "echoes the input", func(_ context.Context, input string) (string, error) {
		return input, nil
	})

	h, ok := reg.Resolve("echo")
	require.True(t, ok)
	assert.Equal(t, KindCustom, h.Kind())

	out, err := h.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRegistry_Resolve_NativeTakesPriority(t *testing.T) {
	reg, custom := newTestRegistry(t)
	custom.Register("read_records", "shadowing custom tool", func(_ context.Context, _ string) (string, error) {
		return "custom", nil
	})

	h, ok := reg.Resolve("read_records")
	require.True(t, ok)
	assert.Equal(t, KindNative, h.Kind())
}

func TestRegistry_Resolve_FreshInstancePerCall(t *testing.T) {
	reg, _ := newTestRegistry(t)

	h1, ok := reg.Resolve("read_records")
	require.True(t, ok)
	h2, ok := reg.Resolve("read_records")
	require.True(t, ok)
	assert.NotSame(t, h1, h2)
}

func TestRegistry_ResolveAll_SkipsUnknown(t *testing.T) {
	reg, _ := newTestRegistry(t)

	handles := reg.ResolveAll([]string{"read_records", "no_such_tool", "generate_report"})
	require.Len(t, handles, 2)
	assert.Equal(t, "read_records", handles[0].Name())
	assert.Equal(t, "generate_report", handles[1].Name())
}

func TestRegistry_ResolveAll_Empty(t *testing.T) {
	reg, _ := newTestRegistry(t)
	assert.Empty(t, reg.ResolveAll(nil))
}

func TestRegistry_Names_Deduplicated(t *testing.T) {
	reg, custom := newTestRegistry(t)
	custom.Register("read_records", "duplicate name", func(_ context.Context, _ string) (string, error) {
		return "", nil
	})
	custom.Register("zz_custom", "a custom tool", func(_ context.Context, _ string) (string, error) {
		return "", nil
	})

	names := reg.Names()
	seen := make(map[string]int)
	for _, n := range names {
		seen[n]++
	}
	assert.Equal(t, 1, seen["read_records"])
	assert.Equal(t, 1, seen["zz_custom"])
}
