package migration

import "github.com/kanrt/kan/reflection"

// Rebind rewrites each patch's recorded field writes against the new
// registry's layout (spec.md §4.3 "Patch migration rewrites each
// pre-recorded field write via the new offsets and converter closures"):
// writes to a removed field or a field whose target struct was removed are
// dropped, writes to a numerically converted field are passed through
// their plan's Convert closure, everything else passes through unchanged.
func Rebind(migrator *StructMigrator, patches []reflection.Patch) []reflection.Patch {
	out := make([]reflection.Patch, 0, len(patches))
	for _, p := range patches {
		rebound, ok := rebindOne(migrator, p)
		if ok {
			out = append(out, rebound)
		}
	}
	return out
}

func rebindOne(migrator *StructMigrator, p reflection.Patch) (reflection.Patch, bool) {
	plan, ok := migrator.PlanFor(p.TargetType)
	if !ok || plan.Kind == StructRemoved {
		return reflection.Patch{}, false
	}
	if plan.Kind == StructIdentical {
		return p, true
	}

	byName := make(map[uint32]*FieldPlan, len(plan.Fields))
	for i := range plan.Fields {
		byName[uint32(plan.Fields[i].Name)] = &plan.Fields[i]
	}

	writes := make([]reflection.FieldWrite, 0, len(p.Writes))
	for _, w := range p.Writes {
		fp, ok := byName[uint32(w.Field)]
		if !ok || fp.Kind == FieldRemoved {
			continue
		}
		if fp.Kind == FieldConverted && fp.Convert != nil {
			converted, err := fp.Convert(w.Value)
			if err != nil {
				continue
			}
			writes = append(writes, reflection.FieldWrite{Field: w.Field, Value: converted})
			continue
		}
		writes = append(writes, w)
	}
	return reflection.Patch{TargetType: p.TargetType, Writes: writes}, true
}

// Migrate is the single entry point spec.md §4.2 step 5 drives: build a
// Seed, a StructMigrator over it, and rebind the given in-flight patches,
// returning the migrator so callers can also query per-struct plans for
// their own typed-repository migration (e.g. reference/repository rows
// whose row struct is itself registry-described).
func Migrate(old, new *reflection.Registry, patches []reflection.Patch) (*StructMigrator, []reflection.Patch) {
	migrator := NewStructMigrator(NewSeed(old, new))
	migrator.BuildPlans()
	return migrator, Rebind(migrator, patches)
}
