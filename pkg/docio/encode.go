package docio

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Encode writes n as YAML. Mappings and sequences reached more than once,
// including through cycles, are written once with an anchor and referenced
// by alias afterwards. n itself is not modified.
func Encode(w io.Writer, n *yaml.Node) error {
	out := Detach(n)
	if out == nil {
		return fmt.Errorf("encoding document: %w", ErrEmptyDocument)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return enc.Close()
}

// Detach returns a tree copy of the graph rooted at n that yaml.v3 can
// encode: shared containers become anchor/alias pairs and the anchors of
// the source graph are discarded.
func Detach(n *yaml.Node) *yaml.Node {
	root := resolve(n)
	if root == nil {
		return nil
	}
	counts := make(map[*yaml.Node]int)
	countVisits(root, counts)

	d := &detacher{counts: counts, emitted: make(map[*yaml.Node]*yaml.Node)}
	return d.copy(root)
}

// resolve strips document wrappers and follows aliases.
func resolve(n *yaml.Node) *yaml.Node {
	for hops := 0; n != nil && hops < 32; hops++ {
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

func countVisits(n *yaml.Node, counts map[*yaml.Node]int) {
	n = resolve(n)
	if n == nil || n.Kind == yaml.ScalarNode {
		return
	}
	counts[n]++
	if counts[n] > 1 {
		return
	}
	for _, child := range n.Content {
		countVisits(child, counts)
	}
}

type detacher struct {
	counts  map[*yaml.Node]int
	emitted map[*yaml.Node]*yaml.Node
	next    int
}

func (d *detacher) copy(n *yaml.Node) *yaml.Node {
	n = resolve(n)
	if n == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	if n.Kind == yaml.ScalarNode {
		cp := *n
		cp.Anchor = ""
		return &cp
	}

	if first, ok := d.emitted[n]; ok {
		return &yaml.Node{Kind: yaml.AliasNode, Value: first.Anchor, Alias: first}
	}

	cp := *n
	cp.Anchor = ""
	if d.counts[n] > 1 {
		d.next++
		cp.Anchor = fmt.Sprintf("s%d", d.next)
		d.emitted[n] = &cp
	}
	cp.Content = make([]*yaml.Node, len(n.Content))
	for i, child := range n.Content {
		cp.Content[i] = d.copy(child)
	}
	return &cp
}
