package migration

import (
	"fmt"

	"github.com/kanrt/kan/reflection"
)

// numericConverter builds the value conversion for a primitive field whose
// size changed but whose family (signed/unsigned/floating) did not
// (spec.md §4.3 "Primitive archetype widening/narrowing... is a value
// conversion"). Patch values are carried as Go's own int64/uint64/float64,
// so widening is a no-op reinterpretation and narrowing truncates.
func numericConverter(kind reflection.Archetype, oldSize, newSize uintptr) (ConversionKind, func(old any) (any, error)) {
	widening := newSize > oldSize
	convKind := ConversionNarrow
	if widening {
		convKind = ConversionWiden
	}

	switch kind {
	case reflection.ArchetypeSignedInt:
		return convKind, func(old any) (any, error) {
			v, ok := old.(int64)
			if !ok {
				return nil, fmt.Errorf("migration: expected int64 patch value, got %T", old)
			}
			return truncateSigned(v, newSize), nil
		}
	case reflection.ArchetypeUnsignedInt:
		return convKind, func(old any) (any, error) {
			v, ok := old.(uint64)
			if !ok {
				return nil, fmt.Errorf("migration: expected uint64 patch value, got %T", old)
			}
			return truncateUnsigned(v, newSize), nil
		}
	case reflection.ArchetypeFloating:
		return convKind, func(old any) (any, error) {
			v, ok := old.(float64)
			if !ok {
				return nil, fmt.Errorf("migration: expected float64 patch value, got %T", old)
			}
			if newSize == 4 {
				return float64(float32(v)), nil
			}
			return v, nil
		}
	default:
		return ConversionNone, nil
	}
}

func truncateSigned(v int64, size uintptr) int64 {
	switch size {
	case 1:
		return int64(int8(v))
	case 2:
		return int64(int16(v))
	case 4:
		return int64(int32(v))
	default:
		return v
	}
}

func truncateUnsigned(v uint64, size uintptr) uint64 {
	switch size {
	case 1:
		return uint64(uint8(v))
	case 2:
		return uint64(uint16(v))
	case 4:
		return uint64(uint32(v))
	default:
		return v
	}
}
