// Package record defines the canonical catalog entry produced by extraction
// and the identity rules used to deduplicate entries.
package record

import "strings"

// Fields holds the free-text attributes of a catalog entry. Every field is optional;
// only Name must be non-blank for a Record to be kept.
type Fields struct {
	Name        string
	Rarity      string
	Category    string
	Properties  string
	Area        string
	Location    string
	Description string
	Source      string
}

// Key identifies a record for deduplication: the case-folded name and source.
// Key is comparable and can be used as a map key.
type Key struct {
	Name   string
	Source string
}

// Record is an immutable catalog entry. Two records are the same entry when their
// keys are equal, regardless of the other attributes.
type Record struct {
	fields Fields
	key    Key
}

// New creates a Record from the given attributes.
func New(f Fields) Record {
	return Record{
		fields: f,
		key:    Key{Name: Normalize(f.Name), Source: Normalize(f.Source)},
	}
}

// Fields returns a copy of the record's attributes.
func (r Record) Fields() Fields { return r.fields }

// Name returns the record's display name.
func (r Record) Name() string { return r.fields.Name }

// Source returns the name of the sheet the record came from.
func (r Record) Source() string { return r.fields.Source }

// Key returns the record's identity key.
func (r Record) Key() Key { return r.key }

// SameAs reports whether r and other identify the same catalog entry.
func (r Record) SameAs(other Record) bool { return r.key == other.key }

// IsBlank reports whether the record has no usable name.
func (r Record) IsBlank() bool { return strings.TrimSpace(r.fields.Name) == "" }

// ID returns the record's derived item identifier (see ItemID).
func (r Record) ID() string { return ItemID(r.fields.Name, r.fields.Source) }

// Dedupe keeps the first record seen for every key, in input order, and then
// drops records with a blank name.
func Dedupe(records []Record) []Record {
	seen := make(map[Key]bool, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if seen[r.key] {
			continue
		}
		seen[r.key] = true
		out = append(out, r)
	}

	kept := out[:0]
	for _, r := range out {
		if !r.IsBlank() {
			kept = append(kept, r)
		}
	}
	return kept
}
