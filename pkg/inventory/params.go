package inventory

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/oascanon/canon"
)

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// join appends escaped reference tokens to a local path.
func join(base string, tokens ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(t))
	}
	return b.String()
}

func itoa(i int) string { return strconv.Itoa(i) }

type paramRef struct {
	location string
	name     string
	node     *yaml.Node
}

// mergeParameters combines path-level and operation-level parameters. An
// operation parameter replaces the path parameter with the same name and
// location; the rest keep their document order, path-level first.
func mergeParameters(ctx *canon.Context, sharedBase string, shared *yaml.Node, ownBase string, own *yaml.Node) []paramRef {
	var out []paramRef
	index := make(map[string]int)
	add := func(base string, list *yaml.Node) {
		for i, item := range canon.Items(list) {
			param := ctx.Resolve(item)
			name, _ := canon.StringValue(canon.Field(param, "name"))
			in, _ := canon.StringValue(canon.Field(param, "in"))
			ref := paramRef{location: join(base, itoa(i)), name: name, node: item}
			if name == "" {
				out = append(out, ref)
				continue
			}
			k := in + "\x00" + name
			if at, ok := index[k]; ok {
				out[at] = ref
				continue
			}
			index[k] = len(out)
			out = append(out, ref)
		}
	}
	add(sharedBase, shared)
	add(ownBase, own)
	return out
}

// stringList returns the string items of a sequence, or nil when n is not a
// sequence.
func stringList(n *yaml.Node) []string {
	items := canon.Items(n)
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := canon.StringValue(item); ok {
			out = append(out, s)
		}
	}
	return out
}
