package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SharedKey returns a structural fingerprint of node, or "" for scalars and
// absent nodes. Mapping keys are order-insensitive, sequence elements are
// order-sensitive, pointers contribute their locator and are never followed.
// The key of a node instance is computed once per Context.
func (c *Context) SharedKey(node *yaml.Node) string {
	c.mustBeActive()

	n := unwrap(node)
	if n == nil || (n.Kind != yaml.MappingNode && n.Kind != yaml.SequenceNode) {
		return ""
	}

	id := c.arena.id(n)
	if key, ok := c.sharedKeys[id]; ok {
		return key
	}

	kc := newKeyCtx()
	w := newCanonWriter()
	encodeNode(n, kc, w)
	sum := sha256.Sum256(w.bytes())
	key := hex.EncodeToString(sum[:])

	c.sharedKeys[id] = key
	return key
}

// keyCtx holds state for a single fingerprint traversal.
type keyCtx struct {
	inProgress map[*yaml.Node]int    // Cycle detection: node → cycle ID
	nextID     int                   // Next cycle ID to assign
	localMemo  map[*yaml.Node][]byte // Per-call memoization for DAGs
}

func newKeyCtx() *keyCtx {
	return &keyCtx{
		inProgress: make(map[*yaml.Node]int, 64),
		localMemo:  make(map[*yaml.Node][]byte, 256),
		nextID:     1,
	}
}

// encodeNode recursively encodes a node into canonical form.
func encodeNode(n *yaml.Node, ctx *keyCtx, w *canonWriter) {
	n = unwrap(n)
	if n == nil {
		w.writeString("null")
		return
	}
	if n.Kind == yaml.ScalarNode {
		w.writeString(canonicalScalar(n))
		return
	}

	if cached, ok := ctx.localMemo[n]; ok {
		w.write(cached)
		return
	}
	if id, inProgress := ctx.inProgress[n]; inProgress {
		w.writeString(`{"$cycle":` + strconv.Itoa(id) + `}`)
		return
	}

	id := ctx.nextID
	ctx.nextID++
	ctx.inProgress[n] = id

	startPos := w.len()
	switch n.Kind {
	case yaml.SequenceNode:
		w.writeByte('[')
		for i, el := range n.Content {
			if i > 0 {
				w.writeByte(',')
			}
			encodeNode(el, ctx, w)
		}
		w.writeByte(']')

	case yaml.MappingNode:
		type pair struct {
			key   string
			value *yaml.Node
		}
		pairs := make([]pair, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			pairs = append(pairs, pair{scalarKey(n.Content[i]), n.Content[i+1]})
		}
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

		w.writeByte('{')
		for i, p := range pairs {
			if i > 0 {
				w.writeByte(',')
			}
			w.writeString(strconv.Quote(p.key))
			w.writeByte(':')
			encodeNode(p.value, ctx, w)
		}
		w.writeByte('}')

	default:
		w.writeString(fmt.Sprintf(`{"$kind":%d}`, n.Kind))
	}

	delete(ctx.inProgress, n)
	ctx.localMemo[n] = w.bytesFrom(startPos)
}

// canonicalScalar keeps the resolved tag so that 1 and "1" differ.
func canonicalScalar(n *yaml.Node) string {
	return n.ShortTag() + ":" + strconv.Quote(n.Value)
}

// canonWriter is a simple buffer for building canonical representations
type canonWriter struct {
	buf []byte
}

func newCanonWriter() *canonWriter {
	return &canonWriter{buf: make([]byte, 0, 1024)}
}

func (w *canonWriter) write(p []byte) {
	w.buf = append(w.buf, p...)
}

func (w *canonWriter) writeByte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *canonWriter) writeString(s string) {
	w.buf = append(w.buf, s...)
}

func (w *canonWriter) bytes() []byte {
	return w.buf
}

func (w *canonWriter) bytesFrom(start int) []byte {
	return w.buf[start:]
}

func (w *canonWriter) len() int {
	return len(w.buf)
}
