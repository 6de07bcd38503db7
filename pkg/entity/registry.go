// Package entity gives the host's anonymous design objects stable string ids
// that survive repeated queries for the lifetime of a registry session.
package entity

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

const logPrefix = "entity:registry"

// Kind names a registry partition.
type Kind string

const (
	KindBody       Kind = "body"
	KindSketch     Kind = "sketch"
	KindFeature    Kind = "feature"
	KindComponent  Kind = "component"
	KindParameter  Kind = "parameter"
	KindOccurrence Kind = "occurrence"
	KindJoint      Kind = "joint"
	KindSubEntity  Kind = "sub_entity"
)

// Kinds lists every partition in resolve order.
var Kinds = []Kind{
	KindBody,
	KindSketch,
	KindFeature,
	KindComponent,
	KindParameter,
	KindOccurrence,
	KindJoint,
	KindSubEntity,
}

// Registry is a kind-partitioned bidirectional map between synthesized ids and
// live host objects. A single mutex guards every partition.
type Registry struct {
	mu         sync.Mutex
	partitions map[Kind]map[string]interface{}
	counters   map[Kind]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.resetLocked()
	return r
}

func (r *Registry) resetLocked() {
	r.partitions = make(map[Kind]map[string]interface{}, len(Kinds))
	for _, k := range Kinds {
		r.partitions[k] = make(map[string]interface{})
	}
	r.counters = make(map[Kind]int, len(Kinds))
}

// Register returns obj's id within kind, allocating one on first sight. Objects
// are matched by reference identity, never by value.
func (r *Registry) Register(kind Kind, obj interface{}) (string, error) {
	if obj == nil {
		return "", fmt.Errorf("%s - cannot register nil %s", logPrefix, kind)
	}
	if kind == KindSubEntity {
		return "", fmt.Errorf("%s - sub-entities are registered with RegisterSubEntity", logPrefix)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	part, ok := r.partitions[kind]
	if !ok {
		return "", fmt.Errorf("%s - unknown kind %q", logPrefix, kind)
	}
	return r.registerLocked(kind, part, obj), nil
}

func (r *Registry) registerLocked(kind Kind, part map[string]interface{}, obj interface{}) string {
	if id, ok := findLocked(part, obj); ok {
		return id
	}

	var id string
	if name := displayName(obj); name != "" {
		id = name
		for n := 1; taken(part, id); n++ {
			id = fmt.Sprintf("%s_%d", name, n)
		}
	} else {
		for {
			id = fmt.Sprintf("%s_%d", kind, r.counters[kind])
			r.counters[kind]++
			if !taken(part, id) {
				break
			}
		}
	}
	part[id] = obj
	return id
}

// Get returns the object registered under id in kind.
func (r *Registry) Get(kind Kind, id string) (interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.partitions[kind][id]
	return obj, ok
}

// Resolve looks id up in every partition in Kinds order and returns the first
// match together with its kind.
func (r *Registry) Resolve(id string) (interface{}, Kind, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range Kinds {
		if obj, ok := r.partitions[k][id]; ok {
			return obj, k, true
		}
	}
	return nil, "", false
}

// IDOf returns the id obj is registered under in kind, without allocating.
func (r *Registry) IDOf(kind Kind, obj interface{}) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	part, ok := r.partitions[kind]
	if !ok {
		return "", false
	}
	return findLocked(part, obj)
}

// SubEntityID builds the composite id of a face, edge, vertex, point or curve.
func SubEntityID(parentID, subKind string, index int) string {
	return fmt.Sprintf("%s_%s_%d", parentID, subKind, index)
}

// RegisterSubEntity stores obj under "{parentID}_{subKind}_{index}",
// overwriting whatever was there. No identity de-duplication is done.
func (r *Registry) RegisterSubEntity(parentID, subKind string, index int, obj interface{}) string {
	id := SubEntityID(parentID, subKind, index)
	r.mu.Lock()
	r.partitions[KindSubEntity][id] = obj
	r.mu.Unlock()
	return id
}

// GetSubEntity returns the sub-entity stored under a composite id.
func (r *Registry) GetSubEntity(id string) (interface{}, bool) {
	return r.Get(KindSubEntity, id)
}

// IDs returns the ids registered in kind, sorted.
func (r *Registry) IDs(kind Kind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	part := r.partitions[kind]
	ids := make([]string, 0, len(part))
	for id := range part {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of entries in kind.
func (r *Registry) Len(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.partitions[kind])
}

// Stats returns the entry count of every partition.
func (r *Registry) Stats() map[Kind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Kind]int, len(Kinds))
	for _, k := range Kinds {
		out[k] = len(r.partitions[k])
	}
	return out
}

// Clear empties every partition and resets every unnamed-entity counter.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.resetLocked()
	r.mu.Unlock()
}

// findLocked is a linear identity scan over one partition.
func findLocked(part map[string]interface{}, obj interface{}) (string, bool) {
	for id, existing := range part {
		if sameObject(existing, obj) {
			return id, true
		}
	}
	return "", false
}

func taken(part map[string]interface{}, id string) bool {
	_, ok := part[id]
	return ok
}

// sameObject reports reference identity. Only reference-typed values can be
// identical; everything else is always treated as a distinct object.
func sameObject(a, b interface{}) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == nil || ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Ptr, reflect.Chan, reflect.UnsafePointer:
		return a == b
	}
	return false
}

// displayName returns obj's usable human-readable name, if it has one.
func displayName(obj interface{}) string {
	named, ok := obj.(interface{ Name() string })
	if !ok {
		return ""
	}
	return strings.TrimSpace(named.Name())
}
