package canon

import (
	"gopkg.in/yaml.v3"
)

// Schema is a Canonical Schema. Node is the rewritten mapping, or the source
// pointer itself when Ref is set.
//
// A subschema first reached inside another schema carries no id. When it is
// later requested directly it is promoted in place: its Node gains the id
// extension and the $schema marker, and every earlier output embedding that
// Node sees the new keys. An embedded canonical node and the direct result for
// the same source are always one instance.
type Schema struct {
	ID   string
	Node *yaml.Node
	Ref  string
}

// IsRef reports whether s is an unresolved pointer passed through unchanged.
func (s *Schema) IsRef() bool {
	return s != nil && s.Ref != ""
}

type schemaEntry struct {
	schema *Schema
	// rooted entries carry an id and the dialect marker. Entries created while
	// recursing into containers are rooted when first requested directly.
	rooted bool
}

// containerKeywords hold a subschema or a list of subschemas.
var containerKeywords = []string{
	"allOf",
	"anyOf",
	"oneOf",
	"not",
	"items",
	"additionalProperties",
	"additionalItems",
}

const (
	propertiesKey = "properties"
	schemaKey     = "$schema"
	idKey         = "id"
)

// Canonicalize rewrites a schema node into canonical form with an id derived
// from an empty key in the current scope. See TranslateSchemaPair.
func (c *Context) Canonicalize(node *yaml.Node) *Schema {
	return c.TranslateSchemaPair("", node)
}

// TranslateSchema canonicalizes node. In service scope the id key is the
// node's Shared Key, so every occurrence of one component collapses into
// one id; elsewhere the key is empty.
func (c *Context) TranslateSchema(node *yaml.Node) *Schema {
	c.mustBeActive()
	key := ""
	if c.scope == ScopeService {
		if target := c.Resolve(node); target != nil && !IsPointer(target) {
			key = c.SharedKey(target)
		}
	}
	return c.TranslateSchemaPair(key, node)
}

// TranslateSchemaPair canonicalizes node under an explicit id key, as used
// for named components.
//
// Local pointers are resolved first. A pointer that cannot be resolved
// (cycle or external locator) is passed through as a reference. A dangling
// local pointer yields a copy of the pointer carrying an id. Anything that
// is not a mapping yields nil. Every other node is converted once per
// Context; later calls return the same *Schema.
func (c *Context) TranslateSchemaPair(key string, node *yaml.Node) *Schema {
	c.mustBeActive()

	src := unwrap(node)
	target := c.Resolve(src)
	if target == nil {
		ref, ok := pointerRef(src)
		if !ok {
			return nil
		}
		return c.danglingSchema(key, src, ref)
	}
	if ref, ok := pointerRef(target); ok {
		return c.referenceSchema(target, ref)
	}
	if target.Kind != yaml.MappingNode {
		return nil
	}

	nid := c.arena.id(target)
	if entry, ok := c.schemas[nid]; ok {
		if !entry.rooted {
			entry.rooted = true
			c.finalize(entry.schema, key, target)
		}
		return entry.schema
	}

	if c.hasDeclaredDialect {
		s := &Schema{Node: c.withDeclaredDialect(target)}
		c.schemas[nid] = &schemaEntry{schema: s, rooted: true}
		c.attachID(s, key, target)
		return s
	}

	s := c.convert(target)
	c.schemas[nid].rooted = true
	c.finalize(s, key, target)
	return s
}

// referenceSchema passes an unresolved pointer through unchanged.
func (c *Context) referenceSchema(pointer *yaml.Node, ref string) *Schema {
	nid := c.arena.id(pointer)
	if entry, ok := c.schemas[nid]; ok {
		return entry.schema
	}
	c.SyncReference(pointer)
	s := &Schema{Node: pointer, Ref: ref}
	c.schemas[nid] = &schemaEntry{schema: s, rooted: true}
	return s
}

// danglingSchema keeps a pointer whose target does not exist, tagged with
// the canonical dialect and an id so that callers can still name it.
func (c *Context) danglingSchema(key string, pointer *yaml.Node, ref string) *Schema {
	nid := c.arena.id(pointer)
	if entry, ok := c.schemas[nid]; ok {
		return entry.schema
	}
	c.log.Warnf("dangling reference %s kept as schema", ref)
	c.SyncReference(pointer)

	var s *Schema
	if c.hasDeclaredDialect {
		s = &Schema{Node: c.withDeclaredDialect(pointer)}
		c.attachID(s, key, pointer)
	} else {
		s = &Schema{Node: shallowCopy(pointer)}
		c.finalize(s, key, pointer)
	}
	c.schemas[nid] = &schemaEntry{schema: s, rooted: true}
	return s
}

// finalize attaches the id and the canonical dialect marker.
func (c *Context) finalize(s *Schema, key string, source *yaml.Node) {
	c.attachID(s, key, source)
	setField(s.Node, schemaKey, newString(c.opts.CanonicalDialect))
}

// attachID stores a fresh id under the extension key, keeping any other
// keys the source extension mapping already had.
func (c *Context) attachID(s *Schema, key string, source *yaml.Node) {
	s.ID = c.Generate(IDSchema, Discriminators{Key: key})

	ext := newMapping()
	if existing := Field(source, c.opts.ExtensionKey); isMapping(existing) && !IsPointer(existing) {
		ext = shallowCopy(existing)
	}
	setField(ext, idKey, newString(s.ID))
	setField(s.Node, c.opts.ExtensionKey, ext)
}

// withDeclaredDialect builds {$schema, ...source}. The source's own $schema
// wins over the declared one; nested values are shared with the source.
func (c *Context) withDeclaredDialect(source *yaml.Node) *yaml.Node {
	out := newMapping()
	out.Style = source.Style
	dialect := field(source, schemaKey)
	if dialect == nil {
		dialect = newString(c.declaredDialect)
	}
	out.Content = append(out.Content, newString(schemaKey), dialect)
	for i := 0; i+1 < len(source.Content); i += 2 {
		if scalarKey(source.Content[i]) == schemaKey {
			continue
		}
		out.Content = append(out.Content, source.Content[i], source.Content[i+1])
	}
	return out
}

// convert produces the canonical copy of a schema mapping. The copy is
// registered before its containers are visited, so a cycle reaching n again
// gets the copy being built.
func (c *Context) convert(n *yaml.Node) *Schema {
	nid := c.arena.id(n)
	if entry, ok := c.schemas[nid]; ok {
		return entry.schema
	}

	cp := shallowCopy(n)
	s := &Schema{Node: cp}
	c.schemas[nid] = &schemaEntry{schema: s}

	for _, kw := range containerKeywords {
		i := fieldIndex(cp, kw)
		if i < 0 {
			continue
		}
		v := unwrap(cp.Content[i+1])
		if v == nil {
			continue
		}
		switch v.Kind {
		case yaml.SequenceNode:
			cp.Content[i+1] = c.convertSequence(kw, v)
		case yaml.MappingNode:
			cp.Content[i+1] = c.convertChild(v)
		}
	}

	if i := fieldIndex(cp, propertiesKey); i >= 0 {
		if props := unwrap(cp.Content[i+1]); isMapping(props) {
			cp.Content[i+1] = c.convertProperties(props)
		}
	}
	return s
}

// convertSequence drops entries that are not mappings.
func (c *Context) convertSequence(keyword string, seq *yaml.Node) *yaml.Node {
	out := shallowCopy(seq)
	out.Content = out.Content[:0:0]
	for i, el := range seq.Content {
		u := unwrap(el)
		if !isMapping(u) {
			c.log.Debugf("dropping %s[%d]: %s is not a schema", keyword, i, nodeSummary(el))
			continue
		}
		out.Content = append(out.Content, c.convertChild(u))
	}
	return out
}

func (c *Context) convertProperties(props *yaml.Node) *yaml.Node {
	out := shallowCopy(props)
	for i := 1; i < len(out.Content); i += 2 {
		if v := unwrap(out.Content[i]); isMapping(v) {
			out.Content[i] = c.convertChild(v)
		}
	}
	return out
}

// convertChild canonicalizes a nested mapping. Nested pointers stay
// references unless InlineLocalRefs is set and they resolve to a schema.
func (c *Context) convertChild(n *yaml.Node) *yaml.Node {
	if !IsPointer(n) {
		return c.convert(n).Node
	}
	if c.opts.InlineLocalRefs {
		if target := c.Resolve(n); isMapping(target) && !IsPointer(target) {
			return c.convert(target).Node
		}
	}
	return c.SyncReference(n)
}
