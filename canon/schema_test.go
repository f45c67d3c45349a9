package canon

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func schemaDialect(t *testing.T, s *Schema) string {
	t.Helper()
	v, _ := StringValue(Field(s.Node, "$schema"))
	return v
}

func extensionID(t *testing.T, s *Schema) string {
	t.Helper()
	v, _ := StringValue(Field(Field(s.Node, "x-canonical"), "id"))
	return v
}

// TestCanonicalizeIdempotent tests that the same node canonicalizes to the same instance
func TestCanonicalizeIdempotent(t *testing.T) {
	doc := mustParse(t, `
Pet:
  type: object
  properties:
    name: {type: string}
`)
	ctx := NewContext(doc)
	defer ctx.Close()

	pet := at(t, doc, "#/Pet")
	first := ctx.Canonicalize(pet)
	second := ctx.Canonicalize(pet)
	if first == nil || first != second {
		t.Fatalf("expected the same *Schema twice, got %p and %p", first, second)
	}
	if first.Node == pet {
		t.Error("canonical node must be a copy of the source")
	}
	if got := schemaDialect(t, first); got != DraftSevenDialect {
		t.Errorf("expected draft-07 marker, got %q", got)
	}
	if first.ID == "" || extensionID(t, first) != first.ID {
		t.Errorf("expected id %q under x-canonical, got %q", first.ID, extensionID(t, first))
	}
	if Field(pet, "$schema") != nil || Field(pet, "x-canonical") != nil {
		t.Error("source node was modified")
	}
}

// TestCanonicalizeMutualCycle tests that mutually recursive allOf lists terminate and reference each other
func TestCanonicalizeMutualCycle(t *testing.T) {
	a := mapping()
	b := mapping()
	a.Content = []*yaml.Node{str("allOf"), sequence(b)}
	b.Content = []*yaml.Node{str("allOf"), sequence(a)}
	doc := mapping(str("a"), a, str("b"), b)

	ctx := NewContext(doc)
	defer ctx.Close()

	ca := ctx.Canonicalize(a)
	cb := ctx.Canonicalize(b)
	if ca == nil || cb == nil {
		t.Fatal("expected both schemas to canonicalize")
	}
	if got := Field(ca.Node, "allOf").Content[0]; got != cb.Node {
		t.Errorf("A.allOf[0] should be canonical B, got %s", nodeSummary(got))
	}
	if got := Field(cb.Node, "allOf").Content[0]; got != ca.Node {
		t.Errorf("B.allOf[0] should be canonical A, got %s", nodeSummary(got))
	}
	if cb.ID == "" || schemaDialect(t, cb) != DraftSevenDialect {
		t.Error("B requested directly must carry an id and the dialect marker")
	}
}

// TestCanonicalizePromotesNestedSchema tests that requesting a nested schema directly promotes the embedded node in place
func TestCanonicalizePromotesNestedSchema(t *testing.T) {
	doc := mustParse(t, `
Child: &child
  type: string
Parent:
  type: object
  properties:
    child: *child
`)
	ctx := NewContext(doc)
	defer ctx.Close()

	parent := ctx.Canonicalize(at(t, doc, "#/Parent"))
	nested := Field(Field(parent.Node, "properties"), "child")
	if diff := cmp.Diff([]string{"type"}, keysOf(nested)); diff != "" {
		t.Fatalf("nested child before promotion (-want +got):\n%s", diff)
	}
	parentID := parent.ID

	child := ctx.Canonicalize(at(t, doc, "#/Child"))
	if child.Node != nested {
		t.Fatal("promoted schema should be the node embedded in Parent")
	}
	if diff := cmp.Diff([]string{"type", "x-canonical", "$schema"}, keysOf(nested)); diff != "" {
		t.Errorf("nested child after promotion (-want +got):\n%s", diff)
	}
	if child.ID == "" || extensionID(t, child) != child.ID {
		t.Errorf("promoted schema should carry its id, got %q", child.ID)
	}
	if again := ctx.Canonicalize(at(t, doc, "#/Parent")); again != parent || again.ID != parentID {
		t.Error("promoting a child must not replace the parent result")
	}
	if ctx.Canonicalize(at(t, doc, "#/Child")) != child {
		t.Error("promotion should happen once")
	}
}

// TestCanonicalizeCyclicAnchors tests that YAML anchor cycles map onto the canonical node
func TestCanonicalizeCyclicAnchors(t *testing.T) {
	doc := mustParse(t, `
Node: &node
  type: object
  properties:
    children:
      type: array
      items: *node
`)
	ctx := NewContext(doc)
	defer ctx.Close()

	s := ctx.Canonicalize(at(t, doc, "#/Node"))
	items := Field(Field(Field(s.Node, "properties"), "children"), "items")
	if items != s.Node {
		t.Errorf("items should point back at the canonical Node, got %s", nodeSummary(items))
	}
}

// TestCanonicalizeDropsNonSchemaEntries tests that non-mapping entries of container lists are dropped
func TestCanonicalizeDropsNonSchemaEntries(t *testing.T) {
	doc := mustParse(t, `
s:
  anyOf:
    - type: string
    - not-a-schema
    - type: number
    - null
`)
	ctx := NewContext(doc)
	defer ctx.Close()

	src := at(t, doc, "#/s")
	s := ctx.Canonicalize(src)

	var types []string
	for _, item := range Items(Field(s.Node, "anyOf")) {
		v, _ := StringValue(Field(item, "type"))
		types = append(types, v)
	}
	if diff := cmp.Diff([]string{"string", "number"}, types); diff != "" {
		t.Errorf("anyOf mismatch (-want +got):\n%s", diff)
	}
	if n := len(Field(src, "anyOf").Content); n != 4 {
		t.Errorf("source anyOf was modified, has %d entries", n)
	}
}

// TestCanonicalizeKeepsScalarContainers tests that boolean container values are kept
func TestCanonicalizeKeepsScalarContainers(t *testing.T) {
	doc := mustParse(t, `
s:
  type: object
  additionalProperties: false
  items: true
`)
	ctx := NewContext(doc)
	defer ctx.Close()

	s := ctx.Canonicalize(at(t, doc, "#/s"))
	if v := Field(s.Node, "additionalProperties"); v == nil || v.Value != "false" {
		t.Errorf("additionalProperties should stay false, got %s", nodeSummary(v))
	}
	if v := Field(s.Node, "items"); v == nil || v.Value != "true" {
		t.Errorf("items should stay true, got %s", nodeSummary(v))
	}
}

// TestCanonicalizeKeyOrderAndDialectMarker tests key order, the dialect marker and x-canonical merging
func TestCanonicalizeKeyOrderAndDialectMarker(t *testing.T) {
	doc := mustParse(t, `
s:
  $schema: http://json-schema.org/draft-04/schema#
  type: object
  x-canonical:
    owner: payments
  properties:
    b: {type: string}
    a: {type: integer}
`)
	ctx := NewContext(doc)
	defer ctx.Close()

	src := at(t, doc, "#/s")
	s := ctx.Canonicalize(src)

	if diff := cmp.Diff([]string{"$schema", "type", "x-canonical", "properties"}, keysOf(s.Node)); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "a"}, keysOf(Field(s.Node, "properties"))); diff != "" {
		t.Errorf("properties order mismatch (-want +got):\n%s", diff)
	}
	if got := schemaDialect(t, s); got != DraftSevenDialect {
		t.Errorf("expected draft-07 marker, got %q", got)
	}
	if diff := cmp.Diff([]string{"owner", "id"}, keysOf(Field(s.Node, "x-canonical"))); diff != "" {
		t.Errorf("x-canonical keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"owner"}, keysOf(Field(src, "x-canonical"))); diff != "" {
		t.Errorf("source x-canonical was modified (-want +got):\n%s", diff)
	}
}

// TestCanonicalizeDeclaredDialect tests that a declared jsonSchemaDialect disables conversion
func TestCanonicalizeDeclaredDialect(t *testing.T) {
	doc := mustParse(t, `
openapi: 3.1.0
jsonSchemaDialect: https://spec.openapis.org/oas/3.1/dialect/base
components:
  schemas:
    Pet:
      type: object
      allOf:
        - {type: object}
      properties:
        name: {type: string}
`)
	ctx := NewContext(doc)
	defer ctx.Close()

	src := at(t, doc, "#/components/schemas/Pet")
	s := ctx.Canonicalize(src)

	if diff := cmp.Diff([]string{"$schema", "type", "allOf", "properties", "x-canonical"}, keysOf(s.Node)); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	if got := schemaDialect(t, s); got != "https://spec.openapis.org/oas/3.1/dialect/base" {
		t.Errorf("expected the declared dialect, got %q", got)
	}
	if Field(s.Node, "properties") != Field(src, "properties") {
		t.Error("properties must stay the same instance")
	}
	if Field(s.Node, "allOf") != Field(src, "allOf") {
		t.Error("allOf must stay the same instance")
	}
	if ctx.Canonicalize(src) != s {
		t.Error("declared-dialect output must be memoized")
	}
}

// TestCanonicalizeDeclaredDialectKeepsOwnMarker tests that a schema's own $schema wins over the declared dialect
func TestCanonicalizeDeclaredDialectKeepsOwnMarker(t *testing.T) {
	doc := mustParse(t, `
jsonSchemaDialect: https://example.com/dialect
s:
  type: string
  $schema: https://json-schema.org/draft/2020-12/schema
`)
	ctx := NewContext(doc)
	defer ctx.Close()

	s := ctx.Canonicalize(at(t, doc, "#/s"))
	if diff := cmp.Diff([]string{"$schema", "type", "x-canonical"}, keysOf(s.Node)); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	if got := schemaDialect(t, s); got != "https://json-schema.org/draft/2020-12/schema" {
		t.Errorf("the schema's own marker should win, got %q", got)
	}
}

// TestCanonicalizePointers tests how root and nested pointers are canonicalized
func TestCanonicalizePointers(t *testing.T) {
	doc := mustParse(t, `
components:
  schemas:
    Owner:
      type: object
      properties:
        pet: {$ref: '#/components/schemas/Pet'}
    Pet:
      type: string
    Loop:
      $ref: '#/components/schemas/Loop'
    Remote:
      $ref: 'common.yaml#/Pet'
    Missing:
      $ref: '#/components/schemas/Nobody'
    Alias:
      $ref: '#/components/schemas/Pet'
`)
	ctx := NewContext(doc)
	defer ctx.Close()

	t.Run("nested pointers stay references", func(t *testing.T) {
		owner := ctx.Canonicalize(at(t, doc, "#/components/schemas/Owner"))
		pet := Field(Field(owner.Node, "properties"), "pet")
		if pet != at(t, doc, "#/components/schemas/Owner/properties/pet") {
			t.Errorf("nested pointer should be kept as is, got %s", nodeSummary(pet))
		}
		ref, ok := ctx.References().Get("#/components/schemas/Pet")
		if !ok || ref.Value != "Pet" {
			t.Errorf("nested pointer should be recorded, got %+v", ref)
		}
	})

	t.Run("root pointer resolves to target schema", func(t *testing.T) {
		alias := ctx.Canonicalize(at(t, doc, "#/components/schemas/Alias"))
		pet := ctx.Canonicalize(at(t, doc, "#/components/schemas/Pet"))
		if alias != pet {
			t.Error("a pointer and its target must share one canonical schema")
		}
	})

	t.Run("cyclic pointer passes through", func(t *testing.T) {
		loop := at(t, doc, "#/components/schemas/Loop")
		s := ctx.Canonicalize(loop)
		if !s.IsRef() || s.Node != loop || s.Ref != "#/components/schemas/Loop" {
			t.Errorf("expected passthrough of the pointer, got %+v", s)
		}
		if ctx.Canonicalize(loop) != s {
			t.Error("passthrough must be memoized")
		}
		if ref, _ := ctx.References().Get("#/components/schemas/Loop"); ref.Resolved {
			t.Error("cyclic pointer must be recorded unresolved")
		}
	})

	t.Run("external pointer passes through", func(t *testing.T) {
		remote := at(t, doc, "#/components/schemas/Remote")
		s := ctx.Canonicalize(remote)
		if !s.IsRef() || s.Node != remote {
			t.Errorf("expected passthrough of the pointer, got %+v", s)
		}
	})

	t.Run("dangling pointer keeps an id", func(t *testing.T) {
		missing := at(t, doc, "#/components/schemas/Missing")
		s := ctx.Canonicalize(missing)
		if s == nil || s.IsRef() || s.Node == missing {
			t.Fatalf("expected an annotated copy, got %+v", s)
		}
		if ref, _ := StringValue(Field(s.Node, "$ref")); ref != "#/components/schemas/Nobody" {
			t.Errorf("copy lost its locator, got %q", ref)
		}
		if s.ID == "" || extensionID(t, s) != s.ID {
			t.Error("dangling pointer copy should carry its id")
		}
		if Field(missing, "x-canonical") != nil {
			t.Error("source pointer was modified")
		}
	})
}

// TestCanonicalizeInlineLocalRefs tests that nested local pointers are inlined when configured
func TestCanonicalizeInlineLocalRefs(t *testing.T) {
	doc := mustParse(t, `
Owner:
  type: object
  properties:
    pet: {$ref: '#/Pet'}
Pet:
  type: string
`)
	ctx := NewContext(doc, Options{InlineLocalRefs: true})
	defer ctx.Close()

	owner := ctx.Canonicalize(at(t, doc, "#/Owner"))
	pet := ctx.Canonicalize(at(t, doc, "#/Pet"))
	if got := Field(Field(owner.Node, "properties"), "pet"); got != pet.Node {
		t.Errorf("inlined pointer should be the canonical Pet, got %s", nodeSummary(got))
	}
	if pet.ID == "" {
		t.Error("promoted schema should carry an id")
	}
}

// TestCanonicalizeNonSchemas tests that non-mapping inputs yield nil
func TestCanonicalizeNonSchemas(t *testing.T) {
	doc := mustParse(t, `
scalar: text
list: [1, 2]
`)
	ctx := NewContext(doc)
	defer ctx.Close()

	for _, n := range []*yaml.Node{nil, at(t, doc, "#/scalar"), at(t, doc, "#/list")} {
		if s := ctx.Canonicalize(n); s != nil {
			t.Errorf("expected nil for %s, got %+v", nodeSummary(n), s)
		}
	}
}

// TestTranslateSchemaKeys tests the id keys used in service and operation scope
func TestTranslateSchemaKeys(t *testing.T) {
	doc := mustParse(t, `
one: {type: string}
two: {type: string}
three: {type: integer}
`)
	ctx := NewContext(doc)
	defer ctx.Close()

	ctx.EnterService("svc")
	one := ctx.TranslateSchema(at(t, doc, "#/one"))
	two := ctx.TranslateSchema(at(t, doc, "#/two"))
	three := ctx.TranslateSchema(at(t, doc, "#/three"))
	if one.ID != two.ID {
		t.Error("identical content in service scope should share an id")
	}
	if one.ID == three.ID {
		t.Error("different content in service scope should get different ids")
	}
	if one == two {
		t.Error("distinct instances are still converted separately")
	}

	named := ctx.TranslateSchemaPair("Pet", mustParse(t, `{type: object}`))
	if named.ID != ctx.Generate(IDSchema, Discriminators{Key: "Pet"}) {
		t.Error("explicit key should drive the id")
	}
}

// TestClosedContextPanics tests that a closed Context panics with ErrNoContext
func TestClosedContextPanics(t *testing.T) {
	ctx := NewContext(mustParse(t, `{}`))
	ctx.Close()
	ctx.Close()

	defer func() {
		r := recover()
		if r != ErrNoContext {
			t.Fatalf("expected ErrNoContext panic, got %v", r)
		}
	}()
	ctx.Canonicalize(mapping())
}

// TestNilContextPanics tests that a nil Context panics with ErrNoContext
func TestNilContextPanics(t *testing.T) {
	var ctx *Context
	defer func() {
		if r := recover(); r != ErrNoContext {
			t.Fatalf("expected ErrNoContext panic, got %v", r)
		}
	}()
	ctx.Resolve(mapping())
}
