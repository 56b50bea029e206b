package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumTool(optFns ...FunctionToolOption) *FunctionTool {
	return NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
		optFns...,
	)
}

func TestFunctionTool_Call(t *testing.T) {
	result, err := sumTool().Call(context.Background(), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	_, err := sumTool().Call(context.Background(), map[string]any{"a": 2.0})
	require.Error(t, err)
	toolErr, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Equal(t, "calculate_sum", toolErr.Tool)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	failing := NewFunctionTool("fail", "always fails", map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("boom")
		})
	_, err := failing.Call(context.Background(), map[string]any{})
	require.Error(t, err)
	toolErr, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
}

func TestFunctionTool_CustomToolErrorForwarded(t *testing.T) {
	custom := NewFunctionTool("custom", "returns custom error", map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, NewToolError("custom", "not found", "NOT_FOUND")
		})
	_, err := custom.Call(context.Background(), map[string]any{})
	toolErr, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", toolErr.Code)
}

func TestFunctionToolFromStruct(t *testing.T) {
	type args struct {
		City string `json:"city" description:"City name"`
	}
	ft := NewFunctionToolFromStruct("weather", "Get the weather", args{},
		func(ctx context.Context, a map[string]any) (any, error) {
			return "sunny in " + a["city"].(string), nil
		})
	result, err := ft.Call(context.Background(), map[string]any{"city": "Berlin"})
	assert.NoError(t, err)
	assert.Equal(t, "sunny in Berlin", result)

	_, err = ft.Call(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestReturnsDirect(t *testing.T) {
	assert.False(t, ReturnsDirect(sumTool()))
	assert.True(t, ReturnsDirect(sumTool(WithReturnDirect(true))))
}

func TestRegistry_ResolveAndErrors(t *testing.T) {
	r := MustNewRegistry(sumTool())

	resolved, err := r.Resolve("calculate_sum")
	assert.NoError(t, err)
	assert.Equal(t, "calculate_sum", resolved.Name())

	_, err = r.Resolve("missing")
	require.Error(t, err)
	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "missing", resErr.Name)
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := MustNewRegistry(sumTool())
	assert.Error(t, r.Register(sumTool()))
}

func TestRegistry_Definitions(t *testing.T) {
	weather := NewFunctionTool("weather", "Get the weather", map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) { return "sunny", nil })
	r := MustNewRegistry(sumTool(), weather)

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "calculate_sum", defs[0].Name)
	assert.Equal(t, "weather", defs[1].Name)

	subset := r.DefinitionsFor([]string{"weather"})
	require.Len(t, subset, 1)
	assert.Equal(t, "weather", subset[0].Name)

	assert.Equal(t, []string{"calculate_sum", "weather"}, r.Names())
}
