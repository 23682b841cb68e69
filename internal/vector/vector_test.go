package vector

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat32Bytes_RoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3, 0}

	data, err := Float32SliceToBytes(in)
	require.NoError(t, err)
	assert.Len(t, data, 4+4*len(in))

	out, err := BytesToFloat32Slice(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBytesToFloat32Slice_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated length", []byte{1, 0}},
		{"length exceeds data", []byte{9, 0, 0, 0, 0, 0, 0, 0}},
		{"negative length", []byte{0xff, 0xff, 0xff, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BytesToFloat32Slice(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}

	_, err := CosineSimilarity([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"item", "sunlit", "blade", "itemid", "act1", "sunlit", "blade"},
		Tokenize("Item: Sunlit Blade\nItemID: act1_sunlit_blade"))
	assert.Equal(t, []string{"strasse"}, Tokenize("STRAẞE"))
	assert.Empty(t, Tokenize(" -- !! "))
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	a, err := e.Embed(context.Background(), "Sunlit Blade. Rarity: Rare")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "Sunlit Blade. Rarity: Rare")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, 64, e.Dimensions())
}

func TestHashEmbedder_UnitLength(t *testing.T) {
	v, err := NewHashEmbedder(0).Embed(context.Background(), "a lantern that never dims")
	require.NoError(t, err)
	require.Len(t, v, DefaultDimensions)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1, math.Sqrt(sum), 1e-5)
}

func TestHashEmbedder_EmptyTextIsZero(t *testing.T) {
	v, err := NewHashEmbedder(16).Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), v)
}

func TestHashEmbedder_RelatedTextScoresHigher(t *testing.T) {
	e := NewHashEmbedder(DefaultDimensions)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "sunlit blade")
	related, _ := e.Embed(ctx, "Item: Sunlit Blade\nRarity: Rare. Type: Sword\nA blade that glows at dawn.\nItemID: act1_sunlit_blade")
	unrelated, _ := e.Embed(ctx, "Item: Rope\nRarity: Common\nFifty feet of hemp.\nItemID: rope")

	hi, err := CosineSimilarity(query, related)
	require.NoError(t, err)
	lo, err := CosineSimilarity(query, unrelated)
	require.NoError(t, err)
	assert.Greater(t, hi, lo)
}

func TestHashEmbedder_CaseInsensitive(t *testing.T) {
	e := NewHashEmbedder(32)
	a, _ := e.Embed(context.Background(), "SUNLIT BLADE")
	b, _ := e.Embed(context.Background(), "sunlit blade")
	assert.Equal(t, a, b)
}

func TestHashEmbedder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHashEmbedder(8).Embed(ctx, "torch")
	assert.ErrorIs(t, err, context.Canceled)
}
