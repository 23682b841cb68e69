package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/relicdex/internal/errors"
)

// TestFullWorkflow exercises the complete collection lifecycle:
// preview → build → search → fetch → list chunks → export → rebuild → drop → fetch (not found)
func TestFullWorkflow(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	source := catalog(t, t.TempDir())

	// 1. Preview
	preview, err := Preview(ctx, cfg, nil, PreviewInput{Source: source})
	require.NoError(t, err)
	require.Equal(t, 4, preview.Chunks.Len())

	// 2. Build
	built, err := Build(ctx, database, cfg, nil, BuildInput{Source: source, Collection: "relics"})
	require.NoError(t, err)
	require.Equal(t, preview.Chunks.Len(), built.Chunks)

	// 3. Search
	found, err := Search(ctx, database, cfg, SearchInput{Collection: "relics", Query: "sunlit blade", MinRelevance: float64Ptr(0)})
	require.NoError(t, err)
	require.NotEmpty(t, found.Hits)
	require.Equal(t, "act1_sunlit_blade", found.Hits[0].ID)

	// 4. Fetch the hit; stored text matches the preview
	fetched, err := FetchChunk(ctx, database, FetchChunkInput{Collection: "relics", ID: found.Hits[0].ID})
	require.NoError(t, err)
	want, _ := preview.Chunks.Get("act1_sunlit_blade")
	require.Equal(t, want, fetched.Text)

	// 5. List chunks in emission order
	listed, err := ListChunks(ctx, database, ListChunksInput{Collection: "relics"})
	require.NoError(t, err)
	ids := make([]string, len(listed.Items))
	for i, c := range listed.Items {
		ids[i] = c.ID
	}
	require.Equal(t, preview.Chunks.IDs(), ids)

	// 6. Export
	outDir := t.TempDir()
	cfg.AllowedPaths = []string{outDir}
	exported, err := Export(ctx, database, cfg, ExportInput{Collection: "relics", Path: filepath.Join(outDir, "relics.jsonl")})
	require.NoError(t, err)
	require.Equal(t, 4, exported.Count)

	// 7. Rebuild without the flag fails, with it succeeds
	_, err = Build(ctx, database, cfg, nil, BuildInput{Source: source, Collection: "relics"})
	require.True(t, errors.Is(err, errors.ErrCollectionExists))
	rebuilt, err := Build(ctx, database, cfg, nil, BuildInput{Source: source, Collection: "relics", Rebuild: true})
	require.NoError(t, err)
	require.True(t, rebuilt.Replaced)

	// 8. Drop
	_, err = DropCollection(ctx, database, DropCollectionInput{Collection: "relics"})
	require.NoError(t, err)

	// 9. Fetch - verify 404
	_, err = FetchChunk(ctx, database, FetchChunkInput{Collection: "relics", ID: "act1_sunlit_blade"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
