package canon

import "sort"

// Annotations is a side-table of metadata keyed by Canonical ID. Collaborators
// attach data to entities here instead of on the entities themselves.
type Annotations struct {
	byID map[string]map[string]any
}

func newAnnotations() *Annotations {
	return &Annotations{byID: make(map[string]map[string]any)}
}

// Set stores value under key for the entity id.
func (a *Annotations) Set(id, key string, value any) {
	m, ok := a.byID[id]
	if !ok {
		m = make(map[string]any)
		a.byID[id] = m
	}
	m[key] = value
}

// Get returns the value stored under key for id.
func (a *Annotations) Get(id, key string) (any, bool) {
	v, ok := a.byID[id][key]
	return v, ok
}

// For returns a copy of all annotations of id.
func (a *Annotations) For(id string) map[string]any {
	src := a.byID[id]
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// IDs returns the annotated ids in sorted order.
func (a *Annotations) IDs() []string {
	ids := make([]string, 0, len(a.byID))
	for id := range a.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of annotated entities.
func (a *Annotations) Len() int {
	return len(a.byID)
}
