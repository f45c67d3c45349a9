// Package oasview exposes canonical schemas as typed speakeasy oas3 schemas.
//
// The view covers the validation keywords (type, enum, const, numeric,
// string and array bounds, required) and the container keywords. Vendor
// extensions are carried over. Unresolved references become empty schemas
// tagged with RefExtension, since the view never follows them.
package oasview

import (
	"strings"

	"github.com/speakeasy-api/openapi/extensions"
	"github.com/speakeasy-api/openapi/jsonschema/oas3"
	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/oascanon/canon"
)

// RefExtension carries the locator of a reference the view did not follow.
const RefExtension = "x-canonical-ref"

type jsonSchema = oas3.JSONSchema[oas3.Referenceable]

// View converts a canonical schema into an *oas3.Schema. Shared and cyclic
// subschemas map to one *oas3.Schema instance each.
func View(s *canon.Schema) *oas3.Schema {
	if s == nil || s.Node == nil {
		return nil
	}
	v := &viewer{memo: make(map[*yaml.Node]*oas3.Schema)}
	return v.schema(s.Node)
}

type viewer struct {
	memo map[*yaml.Node]*oas3.Schema
}

func (v *viewer) schema(n *yaml.Node) *oas3.Schema {
	n = unalias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	if out, ok := v.memo[n]; ok {
		return out
	}
	out := &oas3.Schema{}
	v.memo[n] = out

	if ref, ok := canon.PointerRef(n); ok {
		out.Extensions = extensions.New()
		out.Extensions.Set(RefExtension, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ref})
		return out
	}

	for _, e := range canon.Entries(n) {
		v.keyword(out, e.Key, e.Value)
	}
	return out
}

func (v *viewer) keyword(out *oas3.Schema, key string, val *yaml.Node) {
	switch key {
	case "type":
		v.setType(out, val)
	case "nullable":
		out.Nullable = boolPtr(val)
	case "enum":
		out.Enum = canon.Items(val)
	case "const":
		out.Const = val
	case "minimum":
		out.Minimum = floatPtr(val)
	case "maximum":
		out.Maximum = floatPtr(val)
	case "multipleOf":
		out.MultipleOf = floatPtr(val)
	case "minLength":
		out.MinLength = intPtr(val)
	case "maxLength":
		out.MaxLength = intPtr(val)
	case "minItems":
		out.MinItems = intPtr(val)
	case "maxItems":
		out.MaxItems = intPtr(val)
	case "pattern":
		out.Pattern = stringPtr(val)
	case "format":
		out.Format = stringPtr(val)
	case "uniqueItems":
		out.UniqueItems = boolPtr(val)
	case "required":
		for _, item := range canon.Items(val) {
			if s, ok := canon.StringValue(item); ok {
				out.Required = append(out.Required, s)
			}
		}
	case "items":
		out.Items = v.child(val)
	case "prefixItems":
		out.PrefixItems = v.list(val)
	case "not":
		out.Not = v.child(val)
	case "additionalProperties":
		out.AdditionalProperties = v.child(val)
	case "allOf":
		out.AllOf = append(out.AllOf, v.list(val)...)
	case "anyOf":
		out.AnyOf = append(out.AnyOf, v.list(val)...)
	case "oneOf":
		out.OneOf = v.list(val)
	case "properties":
		v.setProperties(out, val)
	default:
		if strings.HasPrefix(key, "x-") {
			if out.Extensions == nil {
				out.Extensions = extensions.New()
			}
			out.Extensions.Set(key, val)
		}
	}
}

// setType maps a type name, or a list of names, onto the view. A list of one
// name plus "null" becomes a nullable single type; longer lists become anyOf.
func (v *viewer) setType(out *oas3.Schema, val *yaml.Node) {
	if name, ok := canon.StringValue(val); ok {
		out.Type = oas3.NewTypeFromString(oas3.SchemaType(name))
		return
	}
	var names []string
	nullable := false
	for _, item := range canon.Items(val) {
		name, ok := canon.StringValue(item)
		switch {
		case !ok:
		case name == string(oas3.SchemaTypeNull):
			nullable = true
		default:
			names = append(names, name)
		}
	}
	switch len(names) {
	case 0:
		if nullable {
			out.Type = oas3.NewTypeFromString(oas3.SchemaTypeNull)
		}
		return
	case 1:
		out.Type = oas3.NewTypeFromString(oas3.SchemaType(names[0]))
	default:
		for _, name := range names {
			out.AnyOf = append(out.AnyOf, oas3.NewJSONSchemaFromSchema[oas3.Referenceable](&oas3.Schema{
				Type: oas3.NewTypeFromString(oas3.SchemaType(name)),
			}))
		}
	}
	if nullable {
		t := true
		out.Nullable = &t
	}
}

// child wraps a subschema. Boolean subschemas become their schema
// equivalents: true is {} and false is {not: {}}.
func (v *viewer) child(val *yaml.Node) *jsonSchema {
	val = unalias(val)
	if val == nil {
		return nil
	}
	if val.Kind == yaml.ScalarNode {
		b := boolPtr(val)
		if b == nil {
			return nil
		}
		if *b {
			return oas3.NewJSONSchemaFromSchema[oas3.Referenceable](&oas3.Schema{})
		}
		return oas3.NewJSONSchemaFromSchema[oas3.Referenceable](&oas3.Schema{
			Not: oas3.NewJSONSchemaFromSchema[oas3.Referenceable](&oas3.Schema{}),
		})
	}
	s := v.schema(val)
	if s == nil {
		return nil
	}
	return oas3.NewJSONSchemaFromSchema[oas3.Referenceable](s)
}

func (v *viewer) list(val *yaml.Node) []*jsonSchema {
	var out []*jsonSchema
	for _, item := range canon.Items(val) {
		if js := v.child(item); js != nil {
			out = append(out, js)
		}
	}
	return out
}

func (v *viewer) setProperties(out *oas3.Schema, val *yaml.Node) {
	entries := canon.Entries(val)
	if len(entries) == 0 {
		return
	}
	props := sequencedmap.New[string, *jsonSchema]()
	for _, e := range entries {
		if js := v.child(e.Value); js != nil {
			props.Set(e.Key, js)
		}
	}
	out.Properties = props
}

func unalias(n *yaml.Node) *yaml.Node {
	for hops := 0; n != nil && n.Kind == yaml.AliasNode && hops < 32; hops++ {
		n = n.Alias
	}
	if n != nil && n.Kind == yaml.AliasNode {
		return nil
	}
	return n
}

func boolPtr(n *yaml.Node) *bool {
	n = unalias(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() != "!!bool" {
		return nil
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return nil
	}
	return &b
}

func floatPtr(n *yaml.Node) *float64 {
	n = unalias(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return nil
	}
	var f float64
	if err := n.Decode(&f); err != nil {
		return nil
	}
	return &f
}

func intPtr(n *yaml.Node) *int64 {
	n = unalias(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return nil
	}
	var i int64
	if err := n.Decode(&i); err != nil {
		return nil
	}
	return &i
}

func stringPtr(n *yaml.Node) *string {
	s, ok := canon.StringValue(n)
	if !ok {
		return nil
	}
	return &s
}
