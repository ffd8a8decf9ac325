package vm

import "github.com/zym-lang/zym/internal/value"

// indexGet implements OpIndexGet and the RefIndex reference-read path: list
// indexing requires a numeric index and bounds-checks it (spec.md §3's List
// "Get" contract), map indexing requires a string key and returns null on a
// miss rather than erroring (a pragmatic choice: Zym maps have no separate
// "has" opcode, so a missing-key error would make every speculative lookup
// a two-step dance of typeof/contains-first).
func (vm *VM) indexGet(container, idx value.Value) (value.Value, error) {
	if !container.IsObject() {
		return value.Null, vm.runtimeErrf("cannot index into a value of type %s", container.TypeName())
	}
	switch c := container.Obj.(type) {
	case *value.List:
		if !idx.IsNumber() {
			return value.Null, vm.runtimeErrf("list index must be a number, got %s", idx.TypeName())
		}
		v, ok := c.Get(int(idx.AsNumber()))
		if !ok {
			return value.Null, vm.runtimeErrf("list index %d out of range (length %d)", int(idx.AsNumber()), c.Len())
		}
		return v, nil
	case *value.Map:
		key, ok := idx.Obj.(*value.String)
		if !idx.IsObject() || !ok {
			return value.Null, vm.runtimeErrf("map key must be a string, got %s", idx.TypeName())
		}
		v, found := c.Get(key.Go())
		if !found {
			return value.Null, nil
		}
		return v, nil
	default:
		return value.Null, vm.runtimeErrf("cannot index into a value of type %s", container.TypeName())
	}
}

// indexSet implements OpIndexSet and the RefIndex reference-write path.
func (vm *VM) indexSet(container, idx, val value.Value) error {
	if !container.IsObject() {
		return vm.runtimeErrf("cannot index into a value of type %s", container.TypeName())
	}
	switch c := container.Obj.(type) {
	case *value.List:
		if !idx.IsNumber() {
			return vm.runtimeErrf("list index must be a number, got %s", idx.TypeName())
		}
		if !c.Set(int(idx.AsNumber()), val) {
			return vm.runtimeErrf("list index %d out of range (length %d)", int(idx.AsNumber()), c.Len())
		}
		return nil
	case *value.Map:
		key, ok := idx.Obj.(*value.String)
		if !idx.IsObject() || !ok {
			return vm.runtimeErrf("map key must be a string, got %s", idx.TypeName())
		}
		c.Set(key.Go(), val)
		return nil
	default:
		return vm.runtimeErrf("cannot index into a value of type %s", container.TypeName())
	}
}

func (vm *VM) fieldGetByName(obj value.Value, name string) (value.Value, error) {
	si, ok := structOf(obj)
	if !ok {
		return value.Null, vm.runtimeErrf("cannot access field %q of a value of type %s", name, obj.TypeName())
	}
	v, found := si.Get(name)
	if !found {
		return value.Null, vm.runtimeErrf("%s has no field %q", si.Schema.Name, name)
	}
	return v, nil
}

func (vm *VM) fieldSetByName(obj value.Value, name string, val value.Value) error {
	si, ok := structOf(obj)
	if !ok {
		return vm.runtimeErrf("cannot access field %q of a value of type %s", name, obj.TypeName())
	}
	if !si.Set(name, val) {
		return vm.runtimeErrf("%s has no field %q", si.Schema.Name, name)
	}
	return nil
}

func structOf(v value.Value) (*value.StructInstance, bool) {
	if !v.IsObject() {
		return nil, false
	}
	si, ok := v.Obj.(*value.StructInstance)
	return si, ok
}

// execNewList handles OpNewList: A=target, B=startReg, C=count, copying a
// register range into a freshly allocated list.
func (vm *VM) execNewList(f *Frame, a, b, c uint8) {
	elems := make([]value.Value, c)
	copy(elems, f.Registers[b:b+c])
	lst := value.NewList(elems)
	vm.track(lst, len(elems)*16)
	f.Registers[a] = value.Obj(lst)
}

// execNewMap handles OpNewMap: A=target, Bx=size hint. Population happens
// through subsequent OpIndexSet instructions against the same register.
func (vm *VM) execNewMap(f *Frame, a uint8, bx int16) {
	m := value.NewMap(int(bx))
	vm.track(m, int(bx)*32)
	f.Registers[a] = value.Obj(m)
}

// execFieldGet handles OpFieldGet: A=dest, B=obj, C=field-name constant
// index.
func (vm *VM) execFieldGet(f *Frame, a, b, c uint8) error {
	nameConst := f.Chunk.Constants[c]
	name, ok := nameConst.Obj.(*value.String)
	if !ok {
		return vm.runtimeErrf("FIELD_GET: constant %d is not a string", c)
	}
	v, err := vm.fieldGetByName(f.Registers[b], name.Go())
	if err != nil {
		return err
	}
	f.Registers[a] = v
	return nil
}

// execFieldSet handles OpFieldSet: A=obj, B=field-name constant index,
// C=value.
func (vm *VM) execFieldSet(f *Frame, a, b, c uint8) error {
	nameConst := f.Chunk.Constants[b]
	name, ok := nameConst.Obj.(*value.String)
	if !ok {
		return vm.runtimeErrf("FIELD_SET: constant %d is not a string", b)
	}
	return vm.fieldSetByName(f.Registers[a], name.Go(), f.Registers[c])
}

// execStructSpread handles OpStructSpread: copy every field of R[B] into
// R[A] by name (`...other` inside a named struct literal). Fields present
// in the source but absent from the destination schema are skipped rather
// than erroring, matching struct literals' permissive spread semantics.
func (vm *VM) execStructSpread(f *Frame, a, b uint8) error {
	dst, ok := structOf(f.Registers[a])
	if !ok {
		return vm.runtimeErrf("struct spread target is not a struct")
	}
	src, ok := structOf(f.Registers[b])
	if !ok {
		return vm.runtimeErrf("struct spread source is not a struct")
	}
	for _, name := range src.Schema.Fields {
		v, _ := src.Get(name)
		dst.Set(name, v)
	}
	return nil
}

// execStructNew handles OpStructNew: A=start register of N positional
// values (N = len(schema.Fields)), Bx=schema constant index. The new
// instance overwrites R[A].
func (vm *VM) execStructNew(f *Frame, a uint8, bx int16) error {
	schemaConst := f.Chunk.Constants[bx]
	schema, ok := schemaConst.Obj.(*value.StructSchema)
	if !ok {
		return vm.runtimeErrf("STRUCT_NEW: constant %d is not a struct schema", bx)
	}
	inst := value.NewStructInstance(schema)
	copy(inst.Fields, f.Registers[a:int(a)+len(schema.Fields)])
	vm.track(inst, len(inst.Fields)*16)
	f.Registers[a] = value.Obj(inst)
	return nil
}

// execStructNewNamed handles OpStructNewNamed: A=target, Bx=schema
// constant index; creates an empty-fields instance immediately, to be
// filled by the OpFieldSet/OpStructSpread instructions that follow,
// targeting the same register.
func (vm *VM) execStructNewNamed(f *Frame, a uint8, bx int16) error {
	schemaConst := f.Chunk.Constants[bx]
	schema, ok := schemaConst.Obj.(*value.StructSchema)
	if !ok {
		return vm.runtimeErrf("STRUCT_NEW_NAMED: constant %d is not a struct schema", bx)
	}
	inst := value.NewStructInstance(schema)
	vm.track(inst, len(inst.Fields)*16)
	f.Registers[a] = value.Obj(inst)
	return nil
}
