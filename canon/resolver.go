package canon

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resolve follows a chain of local pointers starting at node and returns the
// first non-pointer node reached.
//
//   - Non-pointer nodes are returned unchanged (aliases unwrapped).
//   - A path revisited within one chain aborts resolution and the original
//     pointer is returned unresolved.
//   - A pointer to another document is returned unresolved.
//   - A dangling or malformed path resolves to nil.
//
// Every path of a chain that reaches a concrete node is recorded as resolved
// in the Reference Table.
func (c *Context) Resolve(node *yaml.Node) *yaml.Node {
	c.mustBeActive()

	start := unwrap(node)
	ref, ok := pointerRef(start)
	if !ok {
		return start
	}

	visited := make(map[string]struct{}, 2)
	chain := make([]string, 0, 2)
	current := start
	for {
		if !isLocalRef(ref) {
			c.log.Debugf("external reference left unresolved: %s", ref)
			return current
		}
		if _, seen := visited[ref]; seen {
			c.log.Debugf("reference cycle detected at %s", ref)
			return start
		}
		visited[ref] = struct{}{}
		chain = append(chain, ref)

		target := evaluatePointer(c.root, ref)
		if target == nil {
			c.log.Debugf("dangling reference %s", ref)
			return nil
		}

		next, isPointer := pointerRef(target)
		if !isPointer {
			for _, path := range chain {
				c.references.Record(path, Reference{Resolved: true, Value: ComponentNameFromPath(path)})
			}
			return target
		}
		current, ref = target, next
	}
}

// ResolvePath evaluates a local path expression against the Document and
// resolves the result.
func (c *Context) ResolvePath(path string) *yaml.Node {
	c.mustBeActive()
	if !isLocalRef(path) {
		return nil
	}
	target := evaluatePointer(c.root, path)
	if target == nil {
		return nil
	}
	return c.Resolve(target)
}

func isLocalRef(ref string) bool {
	return strings.HasPrefix(ref, "#")
}

// evaluatePointer walks a "#/a/b/0" expression from root. Aliases are
// followed at every step; pointers met half way are not.
func evaluatePointer(root *yaml.Node, ref string) *yaml.Node {
	fragment := strings.TrimPrefix(ref, "#")
	cur := unwrap(root)
	if fragment == "" {
		return cur
	}
	if !strings.HasPrefix(fragment, "/") {
		return nil
	}

	for _, raw := range strings.Split(fragment[1:], "/") {
		if cur == nil {
			return nil
		}
		token, err := decodePointerToken(raw)
		if err != nil {
			return nil
		}
		switch cur.Kind {
		case yaml.MappingNode:
			cur = unwrap(field(cur, token))
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(cur.Content) {
				return nil
			}
			cur = unwrap(cur.Content[idx])
		default:
			return nil
		}
	}
	return cur
}

// decodePointerToken undoes URI percent-encoding and JSON Pointer escaping.
func decodePointerToken(raw string) (string, error) {
	token, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("decoding pointer token %q: %w", raw, err)
	}
	token = strings.ReplaceAll(token, "~1", "/")
	token = strings.ReplaceAll(token, "~0", "~")
	return token, nil
}
