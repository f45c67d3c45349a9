package canon

import (
	"testing"

	"gopkg.in/yaml.v3"
)

// mustParse decodes a YAML fixture into a document node.
func mustParse(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return &doc
}

// at evaluates a local path against doc, failing the test when it is missing.
func at(t *testing.T, doc *yaml.Node, path string) *yaml.Node {
	t.Helper()
	n := evaluatePointer(doc, path)
	if n == nil {
		t.Fatalf("fixture has no node at %s", path)
	}
	return n
}

func keysOf(n *yaml.Node) []string {
	var keys []string
	for _, e := range Entries(n) {
		keys = append(keys, e.Key)
	}
	return keys
}

func str(v string) *yaml.Node { return newString(v) }

func mapping(pairs ...*yaml.Node) *yaml.Node {
	m := newMapping()
	m.Content = append(m.Content, pairs...)
	return m
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}
