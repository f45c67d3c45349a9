package canon

import "gopkg.in/yaml.v3"

// Shape predicates for entity translators. They inspect a node after
// Resolve; a pointer never satisfies any of them.

func plainMapping(n *yaml.Node) *yaml.Node {
	n = unwrap(n)
	if !isMapping(n) || IsPointer(n) {
		return nil
	}
	return n
}

func hasAnyField(n *yaml.Node, keys ...string) bool {
	for _, k := range keys {
		if fieldIndex(n, k) >= 0 {
			return true
		}
	}
	return false
}

// IsSchema reports whether n is an inline schema object.
func IsSchema(n *yaml.Node) bool {
	return plainMapping(n) != nil
}

// IsSecurityScheme reports whether n has a string type.
func IsSecurityScheme(n *yaml.Node) bool {
	m := plainMapping(n)
	if m == nil {
		return false
	}
	_, ok := StringValue(Field(m, "type"))
	return ok
}

// IsBaseParameter reports whether n carries any parameter or header field.
func IsBaseParameter(n *yaml.Node) bool {
	m := plainMapping(n)
	return m != nil && hasAnyField(m, "description", "required", "content", "style", "examples", "example", "schema", "name")
}

// IsHeader reports whether n is a header object.
func IsHeader(n *yaml.Node) bool {
	return IsBaseParameter(n)
}

// IsServer reports whether n has a string url.
func IsServer(n *yaml.Node) bool {
	m := plainMapping(n)
	if m == nil {
		return false
	}
	_, ok := StringValue(Field(m, "url"))
	return ok
}

// IsServerVariable reports whether n has a scalar string, boolean or number default.
func IsServerVariable(n *yaml.Node) bool {
	m := plainMapping(n)
	if m == nil {
		return false
	}
	d := Field(m, "default")
	if d == nil || d.Kind != yaml.ScalarNode {
		return false
	}
	switch d.ShortTag() {
	case "!!str", "!!bool", "!!int", "!!float":
		return true
	}
	return false
}

// IsResponse reports whether n carries any response field.
func IsResponse(n *yaml.Node) bool {
	m := plainMapping(n)
	return m != nil && hasAnyField(m, "description", "headers", "content", "links")
}

// IsOAuthFlow reports whether n has a scopes mapping.
func IsOAuthFlow(n *yaml.Node) bool {
	m := plainMapping(n)
	return m != nil && isMapping(Field(m, "scopes"))
}

// IsRequestBody reports whether n has a content mapping.
func IsRequestBody(n *yaml.Node) bool {
	m := plainMapping(n)
	return m != nil && isMapping(Field(m, "content"))
}
