package severity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VectorBits/Reentry/src/internal/callgraph"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"critical", Critical, false},
		{" High ", High, false},
		{"MEDIUM", Medium, false},
		{"low", Low, false},
		{"info", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, Critical.AtLeast(High))
	assert.True(t, Medium.AtLeast(Medium))
	assert.False(t, Low.AtLeast(Medium))
	assert.Greater(t, High.Rank(), Medium.Rank())
}

func TestClassify(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		status Status
		shape  Shape
		want   Level
	}{
		{CallbackConfirmed, ShapeOpaque, Critical},
		{CallbackConfirmed, ShapeHook, Critical},
		{CallbackPossible, ShapeHook, High},
		{CallbackPossible, ShapeInterface, High},
		{CallbackPossible, ShapeOpaque, Medium},
		{CallbackNone, ShapeInterface, Low},
		{CallbackNone, ShapeOpaque, Low},
	}
	for _, tt := range tests {
		t.Run(string(tt.status)+"_"+string(tt.shape), func(t *testing.T) {
			assert.Equal(t, tt.want, p.Classify(tt.status, tt.shape).Severity)
		})
	}
}

func TestShapeOf(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name  string
		edges []*callgraph.Edge
		want  Shape
	}{
		{"raw_address", []*callgraph.Edge{{CalleeType: "address"}}, ShapeOpaque},
		{"no_edges", nil, ShapeOpaque},
		{"interface", []*callgraph.Edge{{ViaInterface: "IPool"}}, ShapeInterface},
		{"state_receiver", []*callgraph.Edge{{ViaInterface: "IPool", ReceiverIsState: true}}, ShapeHook},
		{"hinted_name", []*callgraph.Edge{{ViaInterface: "IFlashLoanReceiver"}}, ShapeHook},
		{"any_edge_hooks", []*callgraph.Edge{{ViaInterface: "IPool"}, {ViaInterface: "ISwapCallback"}}, ShapeHook},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShapeOf(tt.edges))
		})
	}

	p.HookHints = nil
	assert.Equal(t, ShapeInterface, p.ShapeOf([]*callgraph.Edge{{ViaInterface: "IFlashLoanReceiver"}}))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.Hook.Severity = "severe"
	assert.ErrorContains(t, bad.Validate(), "hook")

	bad = DefaultPolicy()
	bad.None.Label = ""
	assert.ErrorContains(t, bad.Validate(), "empty label")
}
