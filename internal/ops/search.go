package ops

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/relicdex/internal/config"
	"github.com/hpungsan/relicdex/internal/db"
	"github.com/hpungsan/relicdex/internal/errors"
	"github.com/hpungsan/relicdex/internal/vector"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Collection   string   // required
	Query        string   // required
	Limit        int      // default: config search_limit, max: 50
	MinRelevance *float64 // default: config min_relevance
}

// SearchHit is one ranked chunk.
type SearchHit struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Collection string      `json:"collection"`
	Query      string      `json:"query"`
	Hits       []SearchHit `json:"hits"`
	Sort       string      `json:"sort"` // "relevance"
}

// Search ranks the chunks of a collection by cosine similarity to the query.
// Hits below the relevance floor are dropped; ties keep emission order.
func Search(ctx context.Context, database *sql.DB, cfg *config.Config, input SearchInput) (*SearchOutput, error) {
	name, err := ValidateCollectionName(input.Collection)
	if err != nil {
		return nil, err
	}
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds %d characters", MaxQueryLength))
	}

	def := DefaultSearchLimit
	minRel := 0.0
	if cfg != nil {
		if cfg.SearchLimit > 0 {
			def = cfg.SearchLimit
		}
		minRel = cfg.MinRelevance
	}
	limit := clampLimit(input.Limit, def, MaxSearchLimit)
	if input.MinRelevance != nil {
		minRel = *input.MinRelevance
	}
	if minRel < 0 || minRel > 1 {
		return nil, errors.NewInvalidRequest("min_relevance must be within [0,1]")
	}

	coll, err := db.GetCollection(ctx, database, name)
	if err != nil {
		return nil, err
	}

	qvec, err := NewEmbedder(coll.Dimensions).Embed(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	hits := []SearchHit{}
	err = db.ScanEmbeddings(ctx, database, name, func(c db.Chunk) error {
		score, err := vector.CosineSimilarity(qvec, c.Embedding)
		if err != nil {
			return errors.NewInternal(fmt.Errorf("chunk %q: %w", c.ID, err))
		}
		if score >= minRel {
			hits = append(hits, SearchHit{ID: c.ID, Text: c.Text, Score: score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	return &SearchOutput{
		Collection: name,
		Query:      query,
		Hits:       hits,
		Sort:       "relevance",
	}, nil
}
