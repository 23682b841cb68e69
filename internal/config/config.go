package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/relicdex/internal/errors"
)

// Token counter names accepted in TokenCounter.
const (
	CounterChars = "chars"
	CounterWords = "words"
)

// Config holds application configuration.
type Config struct {
	// MaxChunkSize is the largest chunk, in counter units, kept whole.
	MaxChunkSize int `json:"max_chunk_size"`

	// LineTokenBudget bounds each sub-chunk of an oversized block.
	LineTokenBudget int `json:"line_token_budget"`

	// TokenCounter selects how sub-chunk budgets are measured: "chars" or "words".
	TokenCounter string `json:"token_counter,omitempty"`

	// ExcludedSheet names the index sheet skipped during extraction (case-insensitive).
	ExcludedSheet string `json:"excluded_sheet,omitempty"`

	// ExtractWorkers is the number of sheets read in parallel.
	ExtractWorkers int `json:"extract_workers,omitempty"`

	// EmbeddingDimensions is the vector size used when building and searching.
	// Changing it requires rebuilding existing collections.
	EmbeddingDimensions int `json:"embedding_dimensions,omitempty"`

	// SearchLimit is the default number of search hits.
	SearchLimit int `json:"search_limit,omitempty"`

	// MinRelevance is the default score floor for search hits, in [0,1].
	// A zero value in a config file means "inherit".
	MinRelevance float64 `json:"min_relevance,omitempty"`

	// AllowedPaths is an allowlist of directories for export.
	// Paths outside ~/.relicdex/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxChunkSize:        1024,
		LineTokenBudget:     128,
		TokenCounter:        CounterChars,
		ExcludedSheet:       "Index",
		ExtractWorkers:      1,
		EmbeddingDimensions: 256,
		SearchLimit:         5,
		MinRelevance:        0.2,
	}
}

// Validate reports the first invalid setting as a CONFIGURATION error.
func (c *Config) Validate() error {
	switch {
	case c.MaxChunkSize <= 0:
		return errors.NewConfiguration(fmt.Sprintf("max_chunk_size must be positive, got %d", c.MaxChunkSize))
	case c.LineTokenBudget <= 0:
		return errors.NewConfiguration(fmt.Sprintf("line_token_budget must be positive, got %d", c.LineTokenBudget))
	case c.TokenCounter != CounterChars && c.TokenCounter != CounterWords:
		return errors.NewConfiguration(fmt.Sprintf("token_counter must be %q or %q, got %q", CounterChars, CounterWords, c.TokenCounter))
	case c.ExtractWorkers < 0:
		return errors.NewConfiguration(fmt.Sprintf("extract_workers must not be negative, got %d", c.ExtractWorkers))
	case c.EmbeddingDimensions <= 0:
		return errors.NewConfiguration(fmt.Sprintf("embedding_dimensions must be positive, got %d", c.EmbeddingDimensions))
	case c.SearchLimit < 0:
		return errors.NewConfiguration(fmt.Sprintf("search_limit must not be negative, got %d", c.SearchLimit))
	case c.MinRelevance < 0 || c.MinRelevance > 1:
		return errors.NewConfiguration(fmt.Sprintf("min_relevance must be within [0,1], got %g", c.MinRelevance))
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.relicdex.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.relicdex) and repo (.relicdex) directories.
// Repo config is found by walking upward from startDir to find the nearest .relicdex/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .relicdex/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".relicdex", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.MaxChunkSize = pickInt(overlay.MaxChunkSize, base.MaxChunkSize)
	result.LineTokenBudget = pickInt(overlay.LineTokenBudget, base.LineTokenBudget)
	result.ExtractWorkers = pickInt(overlay.ExtractWorkers, base.ExtractWorkers)
	result.EmbeddingDimensions = pickInt(overlay.EmbeddingDimensions, base.EmbeddingDimensions)
	result.SearchLimit = pickInt(overlay.SearchLimit, base.SearchLimit)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.TokenCounter = strings.TrimSpace(overlay.TokenCounter)
	if result.TokenCounter == "" {
		result.TokenCounter = base.TokenCounter
	}
	result.ExcludedSheet = strings.TrimSpace(overlay.ExcludedSheet)
	if result.ExcludedSheet == "" {
		result.ExcludedSheet = base.ExcludedSheet
	}

	result.MinRelevance = overlay.MinRelevance
	if result.MinRelevance == 0 {
		result.MinRelevance = base.MinRelevance
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
