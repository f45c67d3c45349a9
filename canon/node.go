package canon

import (
	"gopkg.in/yaml.v3"
)

// NodeKind is the closed set of node shapes the engine distinguishes.
// Entity translators switch on it after Resolve.
type NodeKind uint8

const (
	KindAbsent NodeKind = iota
	KindScalar
	KindSequence
	KindMapping
	KindPointer
)

func (k NodeKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

const refKey = "$ref"

// maxAliasHops bounds alias-to-alias chains in hand-built graphs. Parsed
// documents never chain aliases.
const maxAliasHops = 32

// unwrap strips document wrappers and follows YAML aliases to the anchored node.
func unwrap(n *yaml.Node) *yaml.Node {
	for i := 0; n != nil && i < maxAliasHops; i++ {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

// Classify narrows a node to one of the NodeKind variants. Aliases are
// followed, pointers are not. A null scalar is absent.
func Classify(n *yaml.Node) NodeKind {
	n = unwrap(n)
	if n == nil {
		return KindAbsent
	}
	switch n.Kind {
	case yaml.MappingNode:
		if _, ok := pointerRef(n); ok {
			return KindPointer
		}
		return KindMapping
	case yaml.SequenceNode:
		return KindSequence
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return KindAbsent
		}
		return KindScalar
	default:
		return KindAbsent
	}
}

// IsPointer reports whether n is a mapping holding a string $ref.
func IsPointer(n *yaml.Node) bool {
	_, ok := pointerRef(unwrap(n))
	return ok
}

// PointerRef returns the locator of a Pointer Node.
func PointerRef(n *yaml.Node) (string, bool) {
	return pointerRef(unwrap(n))
}

func pointerRef(n *yaml.Node) (string, bool) {
	if n == nil || n.Kind != yaml.MappingNode {
		return "", false
	}
	v := unwrap(field(n, refKey))
	if v == nil || v.Kind != yaml.ScalarNode || v.ShortTag() != "!!str" {
		return "", false
	}
	return v.Value, true
}

// Field returns the value stored under key in a mapping, following aliases
// on both the mapping and the value. Pointers are not followed.
func Field(n *yaml.Node, key string) *yaml.Node {
	return unwrap(field(unwrap(n), key))
}

// field returns the raw value node stored under key in mapping n.
func field(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if scalarKey(n.Content[i]) == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// fieldIndex returns the content index of key's key node in mapping n, or -1.
func fieldIndex(n *yaml.Node, key string) int {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if scalarKey(n.Content[i]) == key {
			return i
		}
	}
	return -1
}

func scalarKey(k *yaml.Node) string {
	k = unwrap(k)
	if k == nil || k.Kind != yaml.ScalarNode {
		return ""
	}
	return k.Value
}

// StringValue returns the value of a string scalar.
func StringValue(n *yaml.Node) (string, bool) {
	n = unwrap(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" {
		return "", false
	}
	return n.Value, true
}

// Entry is one key/value pair of a mapping.
type Entry struct {
	Key   string
	Value *yaml.Node
}

// Entries returns the pairs of a mapping in document order, or nil for any
// other node. Values are unwrapped from aliases but pointers are kept.
func Entries(n *yaml.Node) []Entry {
	n = unwrap(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]Entry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, Entry{Key: scalarKey(n.Content[i]), Value: unwrap(n.Content[i+1])})
	}
	return out
}

// Items returns the elements of a sequence, unwrapped from aliases.
func Items(n *yaml.Node) []*yaml.Node {
	n = unwrap(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]*yaml.Node, 0, len(n.Content))
	for _, el := range n.Content {
		out = append(out, unwrap(el))
	}
	return out
}

func isMapping(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.MappingNode
}

// shallowCopy duplicates a node and its content slice. Children are shared.
// The anchor stays with the source.
func shallowCopy(n *yaml.Node) *yaml.Node {
	cp := *n
	cp.Anchor = ""
	cp.Content = append([]*yaml.Node(nil), n.Content...)
	return &cp
}

func newString(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// setField replaces the value stored under key, or appends the pair.
// It only ever touches n's own content slice.
func setField(n *yaml.Node, key string, value *yaml.Node) {
	if i := fieldIndex(n, key); i >= 0 {
		n.Content[i+1] = value
		return
	}
	n.Content = append(n.Content, newString(key), value)
}
