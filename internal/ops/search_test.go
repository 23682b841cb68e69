package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/relicdex/internal/errors"
)

func TestSearch_RanksRelatedChunkFirst(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	_, err := Build(ctx, database, cfg, nil, BuildInput{Source: catalog(t, t.TempDir()), Collection: "items"})
	require.NoError(t, err)

	out, err := Search(ctx, database, cfg, SearchInput{Collection: "items", Query: "frost lantern", MinRelevance: float64Ptr(0)})
	require.NoError(t, err)
	require.NotEmpty(t, out.Hits)
	assert.Equal(t, "act2_frost_lantern", out.Hits[0].ID)
	assert.Equal(t, "relevance", out.Sort)

	for i := 1; i < len(out.Hits); i++ {
		assert.GreaterOrEqual(t, out.Hits[i-1].Score, out.Hits[i].Score)
	}
}

func TestSearch_LimitAndRelevanceFloor(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	_, err := Build(ctx, database, cfg, nil, BuildInput{Source: catalog(t, t.TempDir()), Collection: "items"})
	require.NoError(t, err)

	out, err := Search(ctx, database, cfg, SearchInput{Collection: "items", Query: "item", Limit: 2, MinRelevance: float64Ptr(0)})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out.Hits), 2)

	out, err = Search(ctx, database, cfg, SearchInput{Collection: "items", Query: "sunlit blade", MinRelevance: float64Ptr(1)})
	require.NoError(t, err)
	for _, h := range out.Hits {
		assert.InDelta(t, 1, h.Score, 1e-6)
	}
}

func TestSearch_NoMatchesIsEmptyNotNil(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	_, err := Build(ctx, database, cfg, nil, BuildInput{Source: writeWorkbook(t, t.TempDir(), sheet{name: "Act1"}), Collection: "empty"})
	require.NoError(t, err)

	out, err := Search(ctx, database, cfg, SearchInput{Collection: "empty", Query: "anything"})
	require.NoError(t, err)
	assert.NotNil(t, out.Hits)
	assert.Empty(t, out.Hits)
}

func TestSearch_Validation(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input SearchInput
		code  errors.ErrorCode
	}{
		{"missing query", SearchInput{Collection: "items"}, errors.ErrInvalidRequest},
		{"blank query", SearchInput{Collection: "items", Query: "   "}, errors.ErrInvalidRequest},
		{"long query", SearchInput{Collection: "items", Query: strings.Repeat("a", MaxQueryLength+1)}, errors.ErrInvalidRequest},
		{"bad relevance", SearchInput{Collection: "items", Query: "a", MinRelevance: float64Ptr(2)}, errors.ErrInvalidRequest},
		{"missing collection", SearchInput{Collection: "nope", Query: "a"}, errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Search(ctx, database, cfg, tt.input)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 5, clampLimit(0, 5, 50))
	assert.Equal(t, 5, clampLimit(-3, 5, 50))
	assert.Equal(t, 7, clampLimit(7, 5, 50))
	assert.Equal(t, 50, clampLimit(500, 5, 50))
}
