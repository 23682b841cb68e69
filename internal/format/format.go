// Package format renders records into the line-oriented text stream consumed by
// the chunker.
//
// Each record becomes a block:
//
//	Item: <name>
//	Rarity: <rarity>. Type: <category>. Properties: <properties>. Location: <area> - <location>. Source: <source>
//	Description: <description>
//	ItemID: <id>
//	--------------------
//
// Blank attributes are omitted. The separator is matched literally by the chunker
// and is not escaped inside field values.
package format

import (
	"strings"

	"github.com/hpungsan/relicdex/internal/record"
)

// Separator delimits rendered records in the text stream.
const Separator = "--------------------"

// Line prefixes shared with the chunker.
const (
	ItemPrefix   = "Item:"
	ItemIDPrefix = "ItemID:"
)

// Format renders records, in order, into a single text stream.
// It returns "" for an empty input.
func Format(records []record.Record) string {
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	for _, r := range records {
		writeBlock(&b, r)
	}
	return b.String()
}

func writeBlock(b *strings.Builder, r record.Record) {
	f := r.Fields()

	b.WriteString(ItemPrefix + " " + f.Name + "\n")
	if props := propertyLine(f); props != "" {
		b.WriteString(props + "\n")
	}
	if !isBlank(f.Description) {
		b.WriteString("Description: " + f.Description + "\n")
	}
	b.WriteString(ItemIDPrefix + " " + r.ID() + "\n")
	b.WriteString(Separator + "\n")
}

// propertyLine joins the non-blank attributes in fixed order with ". ".
func propertyLine(f record.Fields) string {
	var parts []string
	if !isBlank(f.Rarity) {
		parts = append(parts, "Rarity: "+f.Rarity)
	}
	if !isBlank(f.Category) {
		parts = append(parts, "Type: "+f.Category)
	}
	if !isBlank(f.Properties) {
		parts = append(parts, "Properties: "+f.Properties)
	}
	if loc := locationText(f.Area, f.Location); loc != "" {
		parts = append(parts, "Location: "+loc)
	}
	if !isBlank(f.Source) {
		parts = append(parts, "Source: "+f.Source)
	}
	return strings.Join(parts, ". ")
}

func locationText(area, location string) string {
	var parts []string
	if !isBlank(area) {
		parts = append(parts, area)
	}
	if !isBlank(location) {
		parts = append(parts, location)
	}
	return strings.Join(parts, " - ")
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
