package chunk

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Chunk is one unit handed to the indexer.
type Chunk struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Chunks maps chunk ids to chunk text in emission order.
type Chunks struct {
	m *orderedmap.OrderedMap[string, string]
}

func newChunks() *Chunks {
	return &Chunks{m: orderedmap.New[string, string]()}
}

// Len returns the number of chunks.
func (c *Chunks) Len() int { return c.m.Len() }

// Get returns the text stored under id.
func (c *Chunks) Get(id string) (string, bool) { return c.m.Get(id) }

// Has reports whether id is present.
func (c *Chunks) Has(id string) bool {
	_, ok := c.m.Get(id)
	return ok
}

// IDs returns the chunk ids in emission order.
func (c *Chunks) IDs() []string {
	ids := make([]string, 0, c.m.Len())
	for pair := c.m.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return ids
}

// All returns the chunks in emission order.
func (c *Chunks) All() []Chunk {
	out := make([]Chunk, 0, c.m.Len())
	for pair := c.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Chunk{ID: pair.Key, Text: pair.Value})
	}
	return out
}

// Each calls fn for every chunk in emission order and stops at the first error.
func (c *Chunks) Each(fn func(id, text string) error) error {
	for pair := c.m.Oldest(); pair != nil; pair = pair.Next() {
		if err := fn(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON encodes the chunks as a JSON object whose keys keep emission order.
func (c *Chunks) MarshalJSON() ([]byte, error) {
	return c.m.MarshalJSON()
}

func (c *Chunks) set(id, text string) {
	c.m.Set(id, text)
}
