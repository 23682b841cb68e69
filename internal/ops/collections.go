package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/relicdex/internal/db"
)

// ListCollectionsOutput contains all stored collections.
type ListCollectionsOutput struct {
	Items []db.Collection `json:"items"`
}

// ListCollections returns every collection ordered by name.
func ListCollections(ctx context.Context, database *sql.DB) (*ListCollectionsOutput, error) {
	items, err := db.ListCollections(ctx, database)
	if err != nil {
		return nil, err
	}
	return &ListCollectionsOutput{Items: items}, nil
}

// DropCollectionInput contains parameters for the DropCollection operation.
type DropCollectionInput struct {
	Collection string // required
}

// DropCollectionOutput contains the result of the DropCollection operation.
type DropCollectionOutput struct {
	Collection string `json:"collection"`
	Dropped    bool   `json:"dropped"`
}

// DropCollection deletes a collection and all of its chunks.
func DropCollection(ctx context.Context, database *sql.DB, input DropCollectionInput) (*DropCollectionOutput, error) {
	name, err := ValidateCollectionName(input.Collection)
	if err != nil {
		return nil, err
	}
	if err := db.DeleteCollection(ctx, database, name); err != nil {
		return nil, err
	}
	return &DropCollectionOutput{Collection: name, Dropped: true}, nil
}
