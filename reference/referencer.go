package reference

import (
	"github.com/kanrt/kan/ids"
	"github.com/kanrt/kan/reflection"
)

// ReferenceMetaType names the field-meta binding a generated module (or a
// test) attaches to mark a field as an outgoing resource reference to a
// given type (spec.md §4.5 "precomputed referencer-type info storage").
// The registry itself has no built-in notion of "this field is a
// reference"; that knowledge is supplied exactly the way every other
// domain fact in this runtime is (as registry metadata), so the manager
// never special-cases a field kind it cannot already describe via
// reflection.Archetype.
const ReferenceMetaType = "kan_reference_meta_t"

// ReferenceMeta is the meta value bound under ReferenceMetaType: it names
// the type a field refers to.
type ReferenceMeta struct {
	ReferencedType ids.TypeName
}

// ReferencerIndex answers "which struct types can hold a reference to
// type T", precomputed once per registry so umbrella requests don't walk
// every struct's fields on every request (spec.md §4.5 "Umbrella
// requests... using a precomputed referencer-type info storage").
type ReferencerIndex struct {
	referencersOf map[ids.TypeName][]ids.TypeName
}

// BuildReferencerIndex scans every struct in registry for fields bound
// under ReferenceMetaType and indexes, for each referenced type, every
// struct type that can hold such a reference.
func BuildReferencerIndex(registry *reflection.Registry) *ReferencerIndex {
	metaType := ids.Global.Intern(ReferenceMetaType)
	idx := &ReferencerIndex{referencersOf: make(map[ids.TypeName][]ids.TypeName)}
	seen := make(map[[2]ids.TypeName]bool)

	registry.IterateStructs(func(desc *reflection.StructDesc) bool {
		for _, f := range desc.Fields {
			meta, ok := registry.QueryMeta(desc.Name, f.Name, metaType)
			if !ok {
				continue
			}
			rm, ok := meta.(ReferenceMeta)
			if !ok {
				continue
			}
			key := [2]ids.TypeName{rm.ReferencedType, desc.Name}
			if seen[key] {
				continue
			}
			seen[key] = true
			idx.referencersOf[rm.ReferencedType] = append(idx.referencersOf[rm.ReferencedType], desc.Name)
		}
		return true
	})
	return idx
}

// ReferencersOf returns every struct type that can hold a reference to
// target.
func (idx *ReferencerIndex) ReferencersOf(target ids.TypeName) []ids.TypeName {
	return idx.referencersOf[target]
}
