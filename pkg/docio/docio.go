// Package docio reads API description documents into yaml.v3 node graphs and
// writes canonical graphs back out, including graphs that contain cycles.
package docio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned when the input holds no document.
var ErrEmptyDocument = errors.New("docio: empty document")

// Format is the surface syntax of a document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Sniff guesses the format of data from its first significant byte. JSON
// with comments counts as JSON.
func Sniff(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) == 0 {
		return FormatYAML
	}
	switch trimmed[0] {
	case '{', '[', '/':
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes one document. JSON input may carry // and /* */ comments
// and trailing commas. The returned node is a yaml.DocumentNode.
func Parse(data []byte) (*yaml.Node, error) {
	if Sniff(data) == FormatJSON {
		// Comments are blanked in place, so line numbers in errors still
		// match the input.
		data = jsonc.ToJSON(data)
	}

	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, ErrEmptyDocument
	}
	return &doc, nil
}

// ReadFile reads and parses the document stored at path.
func ReadFile(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
