package nodes_test

import (
	"context"
	"testing"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModifyAuthLevel(t *testing.T) {
	tests := []struct {
		name   string
		shared map[string]any
		value  any
		want   int
	}{
		{"Absent Level Counts As Zero", nil, 10, 10},
		{"No Floor Clamping", map[string]any{domain.KeyAuthLevel: 5}, -10, -5},
		{"Decoded JSON Level", map[string]any{domain.KeyAuthLevel: float64(2)}, 3, 5},
		{"String Config Value", nil, "4", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := nodes.NewModifyAuthLevel(domain.NodeDecl{ID: "m", Type: nodes.TypeModifyAuthLevel, Config: map[string]any{"value": tt.value}})
			require.NoError(t, err)

			action, err := node.Process(context.Background(), &domain.Request{}, domain.NewNodeState("m", tt.shared, nil, nil))
			require.NoError(t, err)
			assert.Equal(t, "outcome", action.Outcome)
			assert.Equal(t, tt.want, action.SharedUpdates[domain.KeyAuthLevel])
		})
	}
}

func TestModifyAuthLevel_BadConfig(t *testing.T) {
	_, err := nodes.NewModifyAuthLevel(domain.NodeDecl{Config: map[string]any{"value": "ten"}})
	assert.Error(t, err)
}
