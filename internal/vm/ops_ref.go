package vm

import "github.com/zym-lang/zym/internal/value"

// derefRef reads through r, following a chain of non-slot references up to
// value.MaxFlattenDepth (spec.md §4.3.3, §9): a SLOT_*-created reference
// never flattens, so its immediately aliased value is returned even when
// that value is itself a Reference.
func (vm *VM) derefRef(r *value.Reference) (value.Value, error) {
	v, err := vm.readRefOnce(r)
	if err != nil {
		return value.Null, err
	}
	if r.IsSlot {
		return v, nil
	}
	for depth := 0; depth < value.MaxFlattenDepth; depth++ {
		next, ok := v.Obj.(*value.Reference)
		if !v.IsObject() || !ok {
			return v, nil
		}
		v, err = vm.readRefOnce(next)
		if err != nil {
			return value.Null, err
		}
		if next.IsSlot {
			return v, nil
		}
	}
	return value.Null, vm.runtimeErrf("reference chain exceeds maximum depth %d", value.MaxFlattenDepth)
}

// readRefOnce reads through exactly one reference hop, without flattening.
func (vm *VM) readRefOnce(r *value.Reference) (value.Value, error) {
	switch r.Kind {
	case value.RefLocal:
		return r.Frame.Registers[r.Slot], nil
	case value.RefGlobal:
		v, ok := r.Globals.Get(r.Name)
		if !ok {
			return value.Null, vm.runtimeErrf("undefined global %q", r.Name)
		}
		return v, nil
	case value.RefUpvalue:
		return r.Upvalue.Get(), nil
	case value.RefIndex:
		return vm.indexGet(r.Container, r.Index)
	case value.RefProperty:
		return vm.fieldGetByName(r.Container, r.Property)
	default:
		return value.Null, vm.runtimeErrf("unknown reference kind")
	}
}

// setRef writes val through r, matching OpRefSet's "write through a
// Reference" contract. A slot reference writes to its immediate target
// only; a plain reference also writes to its immediate target — the
// flattening OpDeref performs is a read-side convenience, not something
// spec.md extends to writes (writing through an intermediate reference cell
// rather than its ultimate target would silently rebind the alias instead
// of updating the value it currently points at).
func (vm *VM) setRef(r *value.Reference, val value.Value) error {
	switch r.Kind {
	case value.RefLocal:
		r.Frame.Registers[r.Slot] = val
		return nil
	case value.RefGlobal:
		r.Globals.Set(r.Name, val)
		return nil
	case value.RefUpvalue:
		r.Upvalue.Set(val)
		return nil
	case value.RefIndex:
		return vm.indexSet(r.Container, r.Index, val)
	case value.RefProperty:
		return vm.fieldSetByName(r.Container, r.Property, val)
	default:
		return vm.runtimeErrf("unknown reference kind")
	}
}
