package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/relicdex/internal/config"
	"github.com/hpungsan/relicdex/internal/db"
	"github.com/hpungsan/relicdex/internal/errors"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Collection string // required
	Path       string // optional, default: ~/.relicdex/exports/<collection>-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of an export file.
type ExportHeader struct {
	RelicdexExport bool   `json:"_relicdex_export"`
	SchemaVersion  string `json:"schema_version"`
	Collection     string `json:"collection"`
	RunID          string `json:"run_id"`
	Source         string `json:"source"`
	ExportedAt     int64  `json:"exported_at"`
}

// ExportRecord is one chunk line of an export file.
type ExportRecord struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Export writes a collection's chunks, in emission order, to a JSONL file.
// The file is written to a temp file and renamed into place, so an existing file
// survives a failed export.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	name, err := ValidateCollectionName(input.Collection)
	if err != nil {
		return nil, err
	}
	coll, err := db.GetCollection(ctx, database, name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	exportPath := input.Path
	if exportPath == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		exportPath = filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl", SanitizeForFilename(name), now.Format("2006-01-02T150405")))
	}
	if err := ValidateExportPath(exportPath, cfg); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)

	header := ExportHeader{
		RelicdexExport: true,
		SchemaVersion:  "1.0",
		Collection:     coll.Name,
		RunID:          coll.RunID,
		Source:         coll.SourcePath,
		ExportedAt:     now.Unix(),
	}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewInternal(err)
	}

	count := 0
	err = db.ScanEmbeddings(ctx, database, name, func(c db.Chunk) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(ExportRecord{ID: c.ID, Text: c.Text}); err != nil {
			return errors.NewInternal(err)
		}
		count++
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink placed at the destination meanwhile.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}

	// On Windows os.Rename fails if the destination exists; the existing file is kept.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}
