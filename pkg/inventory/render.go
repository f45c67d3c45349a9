package inventory

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/oascanon/pkg/oasview"
)

const maxLocationWidth = 72

var columns = []string{"KIND", "ID", "LOCATION", "SCHEMA"}

// Render writes entries as an aligned table. Column widths are measured in
// terminal cells.
func Render(w io.Writer, entries []Entry) error {
	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, columns)
	for _, e := range entries {
		rows = append(rows, []string{
			string(e.Kind),
			e.ID,
			runewidth.Truncate(e.Location, maxLocationWidth, "…"),
			SchemaSummary(e),
		})
	}

	widths := make([]int, len(columns))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	bw := bufio.NewWriter(w)
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				bw.WriteString(cell)
				break
			}
			bw.WriteString(runewidth.FillRight(cell, widths[i]))
			bw.WriteString("  ")
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// SchemaSummary describes the schema of e in a few words: the target of a
// passed-through reference, or the declared types of a canonical schema.
func SchemaSummary(e Entry) string {
	switch {
	case e.Schema == nil:
		return "-"
	case e.Schema.IsRef():
		return "-> " + e.Schema.Ref
	}
	view := oasview.View(e.Schema)
	if view == nil {
		return "-"
	}
	var parts []string
	for _, t := range view.GetType() {
		parts = append(parts, string(t))
	}
	if view.Nullable != nil && *view.Nullable {
		parts = append(parts, "null")
	}
	switch {
	case len(view.AllOf) > 0:
		parts = append(parts, "allOf")
	case len(view.AnyOf) > 0:
		parts = append(parts, "anyOf")
	case len(view.OneOf) > 0:
		parts = append(parts, "oneOf")
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, "|")
}

// Document lays entries out as a sequence in document order. Canonical
// schema graphs are embedded as they are, so shared and cyclic subschemas
// stay shared.
func Document(entries []Entry) *yaml.Node {
	root := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, e := range entries {
		item := mapping()
		put(item, "location", str(e.Location))
		put(item, "kind", str(string(e.Kind)))
		if e.ID != "" {
			put(item, "id", str(e.ID))
		}
		if e.Schema != nil {
			if e.Schema.ID != "" && e.Schema.ID != e.ID {
				put(item, "schemaId", str(e.Schema.ID))
			}
			put(item, "schema", e.Schema.Node)
		}
		if e.Kept != nil {
			put(item, "kept", e.Kept)
		}
		root.Content = append(root.Content, item)
	}
	return root
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func put(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, str(key), value)
}
