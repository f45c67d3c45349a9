package canon

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Reference is one Reference Table record.
type Reference struct {
	Resolved bool
	Value    string
}

// References maps a path expression to the record made on its first
// encounter. Records are never overwritten.
type References map[string]Reference

// Get returns the record for path.
func (r References) Get(path string) (Reference, bool) {
	ref, ok := r[path]
	return ref, ok
}

// Record stores ref under path unless a record already exists, and returns
// the record that is in the table afterwards.
func (r References) Record(path string, ref Reference) Reference {
	if existing, ok := r[path]; ok {
		return existing
	}
	r[path] = ref
	return ref
}

// ComponentName returns the name recorded for path, if any.
func (r References) ComponentName(path string) (string, bool) {
	ref, ok := r[path]
	if !ok || ref.Value == "" {
		return "", false
	}
	return ref.Value, true
}

// componentSections are the local containers whose members are named
// components in the supported dialects.
var componentSections = map[string]int{
	"components":          2, // #/components/<section>/<name>
	"definitions":         1, // #/definitions/<name>
	"parameters":          1,
	"responses":           1,
	"securityDefinitions": 1,
	"$defs":               1,
}

// ComponentNameFromPath derives a component name from a local path such as
// "#/components/schemas/User" or "#/definitions/User". It returns "" for
// paths that do not name a component.
func ComponentNameFromPath(path string) string {
	if !strings.HasPrefix(path, "#/") {
		return ""
	}
	tokens := strings.Split(path[2:], "/")
	depth, ok := componentSections[tokens[0]]
	if !ok || len(tokens) != depth+1 {
		return ""
	}
	name, err := decodePointerToken(tokens[depth])
	if err != nil {
		return ""
	}
	return name
}

// SyncReference records an unresolved pointer in the Reference Table and
// returns the node unchanged. Non-pointers are returned as they are.
func (c *Context) SyncReference(node *yaml.Node) *yaml.Node {
	c.mustBeActive()
	ref, ok := PointerRef(node)
	if !ok {
		return node
	}
	c.references.Record(ref, Reference{Resolved: false, Value: ComponentNameFromPath(ref)})
	return node
}
