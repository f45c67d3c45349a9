package canon

import (
	"gopkg.in/yaml.v3"
)

// Scope is the kind of entity a translator is currently inside.
type Scope uint8

const (
	ScopeService Scope = iota
	ScopePath
	ScopeOperation
)

func (s Scope) String() string {
	switch s {
	case ScopeService:
		return "service"
	case ScopePath:
		return "path"
	case ScopeOperation:
		return "operation"
	default:
		return "unknown"
	}
}

// IDs is the scope registry: the ids of the enclosing service, path and
// operation. Empty fields mean "not inside one".
type IDs struct {
	Service   string
	Path      string
	Operation string
}

// Context is the per-document state threaded through resolution, id
// generation and canonicalization. A Context serves one translation and must
// not be shared between goroutines.
type Context struct {
	root *yaml.Node
	opts Options
	log  Logger
	gen  *Generator

	arena      *arena
	references References
	sharedKeys map[NodeID]string
	schemas    map[NodeID]*schemaEntry

	scope       Scope
	ids         IDs
	annotations *Annotations

	declaredDialect    string
	hasDeclaredDialect bool

	closed bool
}

// NewContext opens a Translation Context over doc. Only the first Options
// value is used; its zero fields take their defaults.
func NewContext(doc *yaml.Node, opts ...Options) *Context {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	o = o.withDefaults()

	var logger Logger
	switch {
	case o.Logger != nil:
		logger = o.Logger
	case o.LogLevel != "":
		logger = NewLogger(ParseLogLevel(o.LogLevel), nil)
	default:
		logger = newNoopLogger()
	}

	gen := NewGenerator(o.Hasher)
	gen.skipHashing = o.SkipHashing

	c := &Context{
		root:        unwrap(doc),
		opts:        o,
		log:         logger,
		gen:         gen,
		arena:       newArena(),
		references:  make(References),
		sharedKeys:  make(map[NodeID]string),
		schemas:     make(map[NodeID]*schemaEntry),
		scope:       ScopeService,
		annotations: newAnnotations(),
	}
	c.declaredDialect, c.hasDeclaredDialect = DeclaredSchemaDialect(c.root)
	if c.hasDeclaredDialect {
		c.log.With(map[string]any{"dialect": c.declaredDialect}).Infof("document declares a schema dialect, structural conversion disabled")
	}
	return c
}

// Close releases the Context. Any later use panics with ErrNoContext.
func (c *Context) Close() {
	if c == nil || c.closed {
		return
	}
	c.closed = true
	c.arena = nil
	c.references = nil
	c.sharedKeys = nil
	c.schemas = nil
	c.annotations = nil
}

func (c *Context) mustBeActive() {
	if c == nil || c.closed {
		panic(ErrNoContext)
	}
}

// Document returns the root node the Context was opened over.
func (c *Context) Document() *yaml.Node {
	c.mustBeActive()
	return c.root
}

// Options returns the effective options.
func (c *Context) Options() Options {
	c.mustBeActive()
	return c.opts
}

// Logger returns the Context logger.
func (c *Context) Logger() Logger {
	c.mustBeActive()
	return c.log
}

// References returns the Reference Table. It is owned by the Context.
func (c *Context) References() References {
	c.mustBeActive()
	return c.references
}

// Annotations returns the annotation side-table.
func (c *Context) Annotations() *Annotations {
	c.mustBeActive()
	return c.annotations
}

// NodeID returns the arena index of n, assigning one on first visit.
func (c *Context) NodeID(n *yaml.Node) NodeID {
	c.mustBeActive()
	return c.arena.id(unwrap(n))
}

func (c *Context) Scope() Scope {
	c.mustBeActive()
	return c.scope
}

func (c *Context) SetScope(s Scope) {
	c.mustBeActive()
	c.scope = s
}

func (c *Context) IDs() IDs {
	c.mustBeActive()
	return c.ids
}

func (c *Context) SetIDs(ids IDs) {
	c.mustBeActive()
	c.ids = ids
}

// Generate returns the Canonical ID of an entity. An empty ParentID is
// filled from the scope registry: path and operation ids hang off the
// service, every other kind off the nearest enclosing scope.
func (c *Context) Generate(kind IDKind, d Discriminators) string {
	c.mustBeActive()
	if d.ParentID == "" && kind != IDService {
		d.ParentID = c.defaultParent(kind)
	}
	return c.gen.Generate(kind, d)
}

// GenerateRaw returns an id for an ad hoc template.
func (c *Context) GenerateRaw(template string) string {
	c.mustBeActive()
	return c.gen.GenerateRaw(template)
}

func (c *Context) defaultParent(kind IDKind) string {
	switch kind {
	case IDPath, IDOperation:
		return c.ids.Service
	}
	switch {
	case c.ids.Operation != "":
		return c.ids.Operation
	case c.ids.Path != "":
		return c.ids.Path
	default:
		return c.ids.Service
	}
}

// EnterService starts a new service scope and returns its id.
func (c *Context) EnterService(key string) string {
	c.mustBeActive()
	id := c.gen.Generate(IDService, Discriminators{Key: key})
	c.ids = IDs{Service: id}
	c.scope = ScopeService
	return id
}

// EnterPath enters the path scope of path and returns its id.
func (c *Context) EnterPath(path string) string {
	id := c.Generate(IDPath, Discriminators{Path: path})
	c.ids.Path = id
	c.ids.Operation = ""
	c.scope = ScopePath
	return id
}

// EnterOperation enters the operation scope of method on path and returns
// its id.
func (c *Context) EnterOperation(method, path string) string {
	id := c.Generate(IDOperation, Discriminators{Method: method, Path: path})
	c.ids.Operation = id
	c.scope = ScopeOperation
	return id
}

// KeptProperties returns a mapping holding the configured KeepProperties
// keys of node that carry a truthy value, or nil when none do.
func (c *Context) KeptProperties(node *yaml.Node) *yaml.Node {
	c.mustBeActive()
	n := unwrap(node)
	if !isMapping(n) || len(c.opts.KeepProperties) == 0 {
		return nil
	}
	var out *yaml.Node
	for _, key := range c.opts.KeepProperties {
		i := fieldIndex(n, key)
		if i < 0 || !truthy(n.Content[i+1]) {
			continue
		}
		if out == nil {
			out = newMapping()
		}
		setField(out, key, n.Content[i+1])
	}
	return out
}

// KeptPropertyValues merges the mapping values of the configured
// KeepProperties keys of node into one mapping. Later keys win.
func (c *Context) KeptPropertyValues(node *yaml.Node) *yaml.Node {
	kept := c.KeptProperties(node)
	if kept == nil {
		return nil
	}
	out := newMapping()
	for _, e := range Entries(kept) {
		for _, inner := range Entries(e.Value) {
			setField(out, inner.Key, inner.Value)
		}
	}
	if len(out.Content) == 0 {
		return nil
	}
	return out
}

func truthy(n *yaml.Node) bool {
	n = unwrap(n)
	if n == nil {
		return false
	}
	if n.Kind != yaml.ScalarNode {
		return true
	}
	switch n.ShortTag() {
	case "!!null":
		return false
	case "!!bool":
		var b bool
		return n.Decode(&b) == nil && b
	case "!!str":
		return n.Value != ""
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return true
		}
		return f != 0
	}
	return true
}
