package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/relicdex/internal/errors"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestExport_HappyPath(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	_, err := Build(ctx, database, cfg, nil, BuildInput{Source: catalog(t, t.TempDir()), Collection: "items"})
	require.NoError(t, err)

	outDir := t.TempDir()
	cfg.AllowedPaths = []string{outDir}
	exportPath := filepath.Join(outDir, "items.jsonl")

	out, err := Export(ctx, database, cfg, ExportInput{Collection: "items", Path: exportPath})
	require.NoError(t, err)
	assert.Equal(t, exportPath, out.Path)
	assert.Equal(t, 4, out.Count)

	lines := readLines(t, exportPath)
	require.Len(t, lines, 5)

	var header ExportHeader
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &header))
	assert.True(t, header.RelicdexExport)
	assert.Equal(t, "items", header.Collection)
	assert.NotEmpty(t, header.RunID)

	var rec ExportRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "act1_sunlit_blade", rec.ID)
	assert.True(t, strings.HasPrefix(rec.Text, "Item: Sunlit Blade\n"))

	// No temp files left behind.
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExport_DefaultPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	database, cfg := setupOps(t)
	ctx := context.Background()
	_, err := Build(ctx, database, cfg, nil, BuildInput{Source: catalog(t, t.TempDir()), Collection: "items"})
	require.NoError(t, err)

	out, err := Export(ctx, database, cfg, ExportInput{Collection: "items"})
	require.NoError(t, err)

	dir, err := DefaultExportsDir()
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(out.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(out.Path), "items-"))
	assert.Len(t, readLines(t, out.Path), 5)
}

func TestExport_RejectsPathOutsideAllowedDirs(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	_, err := Build(ctx, database, cfg, nil, BuildInput{Source: catalog(t, t.TempDir()), Collection: "items"})
	require.NoError(t, err)

	_, err = Export(ctx, database, cfg, ExportInput{Collection: "items", Path: filepath.Join(t.TempDir(), "x.jsonl")})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestExport_MissingCollection(t *testing.T) {
	database, cfg := setupOps(t)

	_, err := Export(context.Background(), database, cfg, ExportInput{Collection: "nope", Path: "/tmp/x.jsonl"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestExport_OverwritesExistingFile(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	_, err := Build(ctx, database, cfg, nil, BuildInput{Source: catalog(t, t.TempDir()), Collection: "items"})
	require.NoError(t, err)

	outDir := t.TempDir()
	cfg.AllowedPaths = []string{outDir}
	exportPath := filepath.Join(outDir, "items.jsonl")
	require.NoError(t, os.WriteFile(exportPath, []byte("old\n"), 0600))

	_, err = Export(ctx, database, cfg, ExportInput{Collection: "items", Path: exportPath})
	require.NoError(t, err)
	assert.Len(t, readLines(t, exportPath), 5)
}
