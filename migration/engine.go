package migration

import (
	"github.com/kanrt/kan/ids"
	"github.com/kanrt/kan/reflection"
)

// StructMigrator computes and memoizes struct migration plans between a
// Seed's two registries (spec.md §4.3). Plans are built lazily and cached
// by old-struct name so recursive struct-typed fields reuse the same
// sub-plan instance instead of recomputing it per occurrence.
type StructMigrator struct {
	seed  *Seed
	plans map[ids.Interned]*StructPlan
}

// NewStructMigrator creates a migrator over seed.
func NewStructMigrator(seed *Seed) *StructMigrator {
	return &StructMigrator{seed: seed, plans: make(map[ids.Interned]*StructPlan)}
}

// BuildPlans computes a plan for every struct present in the old registry
// (spec.md §4.3 "Output. Per struct-type present in old"), returning them
// keyed by name. Unknown old types are never produced here since every old
// struct is present in the old registry by construction.
func (m *StructMigrator) BuildPlans() map[ids.Interned]*StructPlan {
	m.seed.Old.IterateStructs(func(desc *reflection.StructDesc) bool {
		m.PlanFor(desc.Name)
		return true
	})
	return m.plans
}

// PlanFor returns the migration plan for the old struct named name,
// computing and caching it on first access. An old type absent from the
// old registry has no plan to compute and returns (nil, false); an old
// type missing from the new registry gets a cached StructRemoved plan
// (spec.md §4.3 "unknown old types become Removed").
func (m *StructMigrator) PlanFor(name ids.Interned) (*StructPlan, bool) {
	if plan, ok := m.plans[name]; ok {
		return plan, true
	}
	oldDesc, ok := m.seed.Old.QueryStruct(name)
	if !ok {
		return nil, false
	}

	// Cache a placeholder before recursing so a (value-type, therefore
	// non-cyclic in practice) struct field referencing its own type finds
	// an in-progress entry rather than looping; it is overwritten below
	// once the real plan is known.
	placeholder := &StructPlan{Kind: StructIdentical, Name: name}
	m.plans[name] = placeholder

	newDesc, ok := m.seed.New.QueryStruct(name)
	if !ok {
		plan := &StructPlan{Kind: StructRemoved, Name: name}
		m.plans[name] = plan
		return plan, true
	}

	fields := m.planFields(oldDesc, newDesc)
	kind := StructChanged
	if structIdentical(oldDesc, newDesc, fields) {
		kind = StructIdentical
	}
	plan := &StructPlan{Kind: kind, Name: name, Fields: fields}
	m.plans[name] = plan
	return plan, true
}

func structIdentical(old, new *reflection.StructDesc, fields []FieldPlan) bool {
	if old.Size != new.Size || old.Alignment != new.Alignment {
		return false
	}
	for _, f := range fields {
		if f.Kind != FieldCopy {
			return false
		}
	}
	return len(fields) == len(old.Fields)
}

// planFields matches old struct fields against new struct fields by name
// (spec.md §4.3 "Matching by InternedString name at each level"),
// producing one plan entry per old field plus one FieldAdded entry per new
// field not matched by name and archetype family.
func (m *StructMigrator) planFields(old, new *reflection.StructDesc) []FieldPlan {
	newByName := make(map[ids.Interned]*reflection.FieldDesc, len(new.Fields))
	for i := range new.Fields {
		newByName[new.Fields[i].Name] = &new.Fields[i]
	}

	var out []FieldPlan
	handled := make(map[ids.Interned]bool, len(old.Fields))
	for i := range old.Fields {
		of := &old.Fields[i]
		nf, ok := newByName[of.Name]
		if !ok {
			out = append(out, FieldPlan{Kind: FieldRemoved, Name: of.Name, OldField: of})
			continue
		}
		if of.Kind != nf.Kind {
			// Archetype family changed: the old slot is gone and the new
			// slot is a fresh addition (spec.md §4.3 "changing archetype
			// family... is Removed+Added").
			out = append(out, FieldPlan{Kind: FieldRemoved, Name: of.Name, OldField: of})
			continue
		}
		handled[of.Name] = true
		out = append(out, m.planField(of, nf))
	}
	for i := range new.Fields {
		nf := &new.Fields[i]
		if handled[nf.Name] {
			continue
		}
		// Genuinely new names, and family-changed fields already emitted as
		// Removed above, both get a FieldAdded entry here.
		out = append(out, FieldPlan{Kind: FieldAdded, Name: nf.Name, NewField: nf})
	}
	return out
}

func findField(fields []reflection.FieldDesc, name ids.Interned) (*reflection.FieldDesc, bool) {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i], true
		}
	}
	return nil, false
}

func (m *StructMigrator) planField(of, nf *reflection.FieldDesc) FieldPlan {
	switch of.Kind {
	case reflection.ArchetypeStruct:
		sub, _ := m.PlanFor(of.StructRef)
		return FieldPlan{Kind: FieldCopy, Name: of.Name, OldField: of, NewField: nf, Sub: sub}

	case reflection.ArchetypeInlineArray, reflection.ArchetypeDynamicArray:
		fp := FieldPlan{Kind: FieldCopy, Name: of.Name, OldField: of, NewField: nf, IsArray: true}
		if of.Item != nil && nf.Item != nil && of.Item.Kind == reflection.ArchetypeStruct && nf.Item.Kind == reflection.ArchetypeStruct {
			fp.ItemSub, _ = m.PlanFor(of.Item.StructRef)
		}
		return fp

	case reflection.ArchetypeSignedInt, reflection.ArchetypeUnsignedInt, reflection.ArchetypeFloating:
		if of.Size == nf.Size {
			return FieldPlan{Kind: FieldCopy, Name: of.Name, OldField: of, NewField: nf}
		}
		kind, convert := numericConverter(of.Kind, of.Size, nf.Size)
		return FieldPlan{Kind: FieldConverted, Name: of.Name, OldField: of, NewField: nf, Conversion: kind, Convert: convert}

	default:
		return FieldPlan{Kind: FieldCopy, Name: of.Name, OldField: of, NewField: nf}
	}
}
