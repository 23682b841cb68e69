package ops

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hpungsan/relicdex/internal/config"
	"github.com/hpungsan/relicdex/internal/db"
)

var itemHeader = []any{"Name", "Rarity", "Type", "Properties", "Area", "Location", "Description"}

type sheet struct {
	name string
	rows [][]any
}

// writeWorkbook saves an .xlsx file with an Index sheet followed by sheets.
func writeWorkbook(t *testing.T, dir string, sheets ...sheet) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Index"))
	require.NoError(t, f.SetSheetRow("Index", "A1", &[]any{"Contents"}))

	for _, s := range sheets {
		_, err := f.NewSheet(s.name)
		require.NoError(t, err)
		rows := append([][]any{itemHeader}, s.rows...)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(s.name, cell, &values))
		}
	}

	path := filepath.Join(dir, "items.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func catalog(t *testing.T, dir string) string {
	return writeWorkbook(t, dir,
		sheet{name: "Act1", rows: [][]any{
			{"Sunlit Blade", "Rare", "Sword", "Glows", "Cathedral", "Altar", "A blade that glows at dawn."},
			{"Torch", "Common", "Tool", "", "", "", "Lights dark places."},
			{"Rope", "Common", "Tool", "", "Cellar", "", "Fifty feet of hemp."},
		}},
		sheet{name: "Act2", rows: [][]any{
			{"Frost Lantern", "Epic", "Lantern", "Cold light", "Peaks", "Summit", "A lantern that never dims."},
		}},
	)
}

func longDescription() string {
	return strings.Repeat("The hilt is wrapped in old leather. ", 60)
}

func setupOps(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, config.DefaultConfig()
}

func float64Ptr(f float64) *float64 { return &f }
