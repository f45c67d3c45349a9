package canon

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Dialect identifies the description format a document is written in.
type Dialect string

const (
	DialectUnknown    Dialect = "unknown"
	DialectSwagger2   Dialect = "swagger-2.0"
	DialectOpenAPI30  Dialect = "openapi-3.0"
	DialectOpenAPI31  Dialect = "openapi-3.1"
	DialectAsyncAPI2  Dialect = "asyncapi-2"
	DialectJSONSchema Dialect = "json-schema"
)

// DraftSevenDialect is the $schema identifier of canonical schemas.
const DraftSevenDialect = "http://json-schema.org/draft-07/schema#"

// DetectDialect inspects the top-level version markers of doc.
func DetectDialect(doc *yaml.Node) Dialect {
	root := unwrap(doc)
	if !isMapping(root) {
		return DialectUnknown
	}
	if v, ok := versionField(root, "swagger"); ok && strings.HasPrefix(v, "2") {
		return DialectSwagger2
	}
	if v, ok := versionField(root, "openapi"); ok {
		switch {
		case strings.HasPrefix(v, "3.0"):
			return DialectOpenAPI30
		case strings.HasPrefix(v, "3."):
			return DialectOpenAPI31
		}
		return DialectUnknown
	}
	if v, ok := versionField(root, "asyncapi"); ok && strings.HasPrefix(v, "2") {
		return DialectAsyncAPI2
	}
	if _, ok := StringValue(Field(root, "$schema")); ok {
		return DialectJSONSchema
	}
	for _, key := range []string{"type", "properties", "definitions", "$defs", "allOf", "anyOf", "oneOf"} {
		if Field(root, key) != nil {
			return DialectJSONSchema
		}
	}
	return DialectUnknown
}

// versionField accepts both quoted and bare numeric version scalars.
func versionField(root *yaml.Node, key string) (string, bool) {
	v := Field(root, key)
	if v == nil || v.Kind != yaml.ScalarNode {
		return "", false
	}
	return v.Value, true
}

// DeclaredSchemaDialect returns the document's jsonSchemaDialect, if it
// declares one as a string.
func DeclaredSchemaDialect(doc *yaml.Node) (string, bool) {
	return StringValue(Field(doc, "jsonSchemaDialect"))
}
