// Package bytecode implements Zym's versioned, tagged bytecode container
// (spec.md §4.4): a magic-prefixed header, a type-tagged constant pool, the
// packed instruction stream, and an optional parallel line-number array.
// Grounded on funxy's internal/vm/bundle.go (magic + version byte +
// payload framing, staged-decode-then-validate posture), but generalized
// from funxy's gob-encoded payload to spec.md's own explicit binary layout:
// the container format here is specified down to the byte, so gob (which
// encodes its own schema) isn't an option the way it was for funxy's
// internal Bundle type.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/config"
	"github.com/zym-lang/zym/internal/value"
	"github.com/zym-lang/zym/internal/zymerr"
)

// Constant pool type tags (spec.md §4.4).
const (
	tagNumber      byte = 0x01
	tagString      byte = 0x02
	tagNull        byte = 0x03
	tagFalse       byte = 0x04
	tagTrue        byte = 0x05
	tagFunction    byte = 0x06
	tagStructSchema byte = 0x07
	tagEnumSchema  byte = 0x08
	tagEnumValue   byte = 0x09
)

// Marshal encodes c as a top-level bytecode container, with entryFile
// recorded as the module's entry source name (spec.md §4.4's "entry-file
// name"). entryFile may be empty, which is encoded as absent (length −1).
func Marshal(c *chunk.Chunk, entryFile string) ([]byte, error) {
	w := new(bytes.Buffer)
	w.WriteString(config.BytecodeMagic)
	w.WriteByte(config.BytecodeVersion)
	if err := writeOptionalString(w, entryFile, entryFile != ""); err != nil {
		return nil, serializeErr(c.Name, err)
	}
	if err := writeChunkBody(w, c); err != nil {
		return nil, serializeErr(c.Name, err)
	}
	return w.Bytes(), nil
}

// Unmarshal decodes a container produced by Marshal. Strings are allocated
// through interner so the returned chunk's constant pool shares canonical
// *value.String objects with the rest of the running program, exactly like
// every other string-producing path (spec.md §3).
//
// Decoding builds entirely into local values and only returns the finished
// *chunk.Chunk on success (spec.md §7: "stage into a local chunk and swap
// on success"), so a truncated or corrupt input never hands back a
// partially populated chunk.
func Unmarshal(data []byte, interner *value.Interner) (c *chunk.Chunk, entryFile string, err error) {
	r := &reader{buf: data}
	magic, err := r.readN(len(config.BytecodeMagic))
	if err != nil {
		return nil, "", serializeErr("<bytecode>", err)
	}
	if string(magic) != config.BytecodeMagic {
		return nil, "", serializeErr("<bytecode>", fmt.Errorf("bad magic %q", magic))
	}
	version, err := r.readU8()
	if err != nil {
		return nil, "", serializeErr("<bytecode>", err)
	}
	if version != config.BytecodeVersion {
		return nil, "", serializeErr("<bytecode>", fmt.Errorf("unsupported version %d (want %d)", version, config.BytecodeVersion))
	}
	entry, hasEntry, err := r.readOptionalString()
	if err != nil {
		return nil, "", serializeErr("<bytecode>", err)
	}
	if hasEntry {
		entryFile = entry
	}
	body, err := readChunkBody(r, interner)
	if err != nil {
		return nil, "", serializeErr(entryFile, err)
	}
	return body, entryFile, nil
}

// serializeErr wraps err as a *zymerr.Diagnostic tagged KindSerialize, the
// same diagnostic shape every other stage (lexer, parser, compiler, loader)
// reports failures in. Serialization errors have no source line to point
// at, so Line stays 0 and module carries whatever file-scoped name is
// available (the chunk's own name on encode, the entry-file name once
// decoded far enough to know it on decode).
func serializeErr(module string, err error) error {
	return &zymerr.Diagnostic{Kind: zymerr.KindSerialize, Module: module, Message: err.Error()}
}

// writeChunkBody writes the constants/code/lines triple shared by both the
// top-level container and a nested function constant's own chunk (spec.md
// §4.4: "nested chunk bytes (recursive encoding)" reuses this same shape).
func writeChunkBody(w *bytes.Buffer, c *chunk.Chunk) error {
	if err := writeInt32(w, int32(len(c.Constants))); err != nil {
		return err
	}
	for i, k := range c.Constants {
		if err := writeConstant(w, k); err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
	}
	if err := writeInt32(w, int32(len(c.Code))); err != nil {
		return err
	}
	for _, ins := range c.Code {
		if err := binary.Write(w, binary.LittleEndian, ins); err != nil {
			return err
		}
	}
	if len(c.Lines) == 0 {
		return writeInt32(w, 0)
	}
	if err := writeInt32(w, int32(len(c.Lines))); err != nil {
		return err
	}
	for _, ln := range c.Lines {
		if err := binary.Write(w, binary.LittleEndian, ln); err != nil {
			return err
		}
	}
	return nil
}

func readChunkBody(r *reader, interner *value.Interner) (*chunk.Chunk, error) {
	constCount, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	if constCount < 0 {
		return nil, fmt.Errorf("negative constant count %d", constCount)
	}
	constants := make([]value.Value, constCount)
	for i := range constants {
		v, err := readConstant(r, interner)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		constants[i] = v
	}

	insCount, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	if insCount < 0 {
		return nil, fmt.Errorf("negative instruction count %d", insCount)
	}
	code := make([]uint32, insCount)
	for i := range code {
		word, err := r.readU32()
		if err != nil {
			return nil, err
		}
		code[i] = word
	}

	lineCount, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	var lines []int32
	if lineCount != 0 {
		if lineCount != insCount {
			return nil, fmt.Errorf("line-info count %d does not match instruction count %d", lineCount, insCount)
		}
		lines = make([]int32, lineCount)
		for i := range lines {
			word, err := r.readU32()
			if err != nil {
				return nil, err
			}
			lines[i] = int32(word)
		}
	}

	c := chunk.New("")
	c.Constants = constants
	c.Code = code
	c.Lines = lines
	return c, nil
}

// writeConstant encodes one constant-pool entry. Anything that captures a
// native context, native closure, native function, or reference is
// rejected (spec.md §4.4): those kinds have no wire representation and can
// only ever exist at runtime, never in a chunk a compiler produced.
func writeConstant(w *bytes.Buffer, v value.Value) error {
	switch v.Kind {
	case value.KindNull:
		return w.WriteByte(tagNull)
	case value.KindBool:
		if v.AsBool() {
			return w.WriteByte(tagTrue)
		}
		return w.WriteByte(tagFalse)
	case value.KindNumber:
		if err := w.WriteByte(tagNumber); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, v.AsNumber())
	case value.KindEnum:
		if err := w.WriteByte(tagEnumValue); err != nil {
			return err
		}
		schema := v.AsEnumSchema()
		if err := writeInt32(w, int32(schema.TypeID)); err != nil {
			return err
		}
		return writeInt32(w, int32(v.AsEnumVariant()))
	case value.KindObject:
		return writeObjectConstant(w, v.Obj)
	default:
		return fmt.Errorf("unknown value kind %v", v.Kind)
	}
}

func writeObjectConstant(w *bytes.Buffer, obj value.Object) error {
	switch o := obj.(type) {
	case *value.String:
		if err := w.WriteByte(tagString); err != nil {
			return err
		}
		return writeRequiredString(w, o.Go())
	case *value.Function:
		return writeFunctionConstant(w, o)
	case *value.StructSchema:
		if err := w.WriteByte(tagStructSchema); err != nil {
			return err
		}
		if err := writeRequiredString(w, o.Name); err != nil {
			return err
		}
		if err := writeInt32(w, int32(len(o.Fields))); err != nil {
			return err
		}
		for _, f := range o.Fields {
			if err := writeRequiredString(w, f); err != nil {
				return err
			}
		}
		return nil
	case *value.EnumSchema:
		if err := w.WriteByte(tagEnumSchema); err != nil {
			return err
		}
		if err := writeRequiredString(w, o.Name); err != nil {
			return err
		}
		if err := writeInt32(w, int32(o.TypeID)); err != nil {
			return err
		}
		if err := writeInt32(w, int32(len(o.Variants))); err != nil {
			return err
		}
		for _, v := range o.Variants {
			if err := writeRequiredString(w, v); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("non-serializable constant of type %s", obj.TypeName())
	}
}

func writeFunctionConstant(w *bytes.Buffer, fn *value.Function) error {
	if err := w.WriteByte(tagFunction); err != nil {
		return err
	}
	if err := writeInt32(w, int32(fn.Arity)); err != nil {
		return err
	}
	if err := writeInt32(w, int32(fn.MaxRegs)); err != nil {
		return err
	}
	if err := writeInt32(w, int32(fn.UpvalueCount)); err != nil {
		return err
	}
	// Upvalue capture descriptors live inline in the owning chunk's code
	// stream as OpNop-encoded words immediately after OpClosure (see
	// chunk.EmitUpvalueCapture); the function constant itself carries only
	// the count, so there is nothing further to write here per upvalue.
	if err := writeOptionalString(w, fn.Name, fn.Name != ""); err != nil {
		return err
	}
	moduleName := moduleNameOf(fn)
	if err := writeOptionalString(w, moduleName, moduleName != ""); err != nil {
		return err
	}
	if fn.Arity > 0 {
		for _, q := range fn.ParamQuals {
			if err := w.WriteByte(byte(q)); err != nil {
				return err
			}
		}
	}
	if err := w.WriteByte(byte(fn.QualSig)); err != nil {
		return err
	}
	nested, ok := fn.Chunk.(*chunk.Chunk)
	if !ok {
		return fmt.Errorf("function %q: Chunk is not a *chunk.Chunk", fn.Name)
	}
	var body bytes.Buffer
	if err := writeChunkBody(&body, nested); err != nil {
		return fmt.Errorf("function %q: nested chunk: %w", fn.Name, err)
	}
	if err := writeInt32(w, int32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// moduleNameOf recovers a Function's originating module name from its own
// nested chunk, since value.Function has no ModuleName field of its own
// (the chunk it owns already carries one).
func moduleNameOf(fn *value.Function) string {
	if c, ok := fn.Chunk.(*chunk.Chunk); ok {
		return c.Name
	}
	return ""
}

func readConstant(r *reader, interner *value.Interner) (value.Value, error) {
	tag, err := r.readU8()
	if err != nil {
		return value.Value{}, err
	}
	switch tag {
	case tagNull:
		return value.Null, nil
	case tagFalse:
		return value.Bool(false), nil
	case tagTrue:
		return value.Bool(true), nil
	case tagNumber:
		f, err := r.readFloat64()
		if err != nil {
			return value.Value{}, err
		}
		return value.Number(f), nil
	case tagString:
		s, err := r.readRequiredString()
		if err != nil {
			return value.Value{}, err
		}
		return value.Obj(interner.Intern(s)), nil
	case tagEnumValue:
		typeID, err := r.readInt32()
		if err != nil {
			return value.Value{}, err
		}
		variant, err := r.readInt32()
		if err != nil {
			return value.Value{}, err
		}
		// An EnumValue constant references a schema by TypeID but carries
		// no copy of the schema itself (spec.md §4.4's tag 0x09 payload is
		// just the two int32s); the schema constant that defines this
		// TypeID must already have been decoded earlier in the same pool
		// for the loader to resolve it, exactly as the enum's own
		// EnumSchema constant precedes any EnumVal referencing it in the
		// compiler's own emission order.
		return enumPlaceholder(uint32(typeID), int(variant)), nil
	case tagFunction:
		return readFunctionConstant(r, interner)
	case tagStructSchema:
		name, err := r.readRequiredString()
		if err != nil {
			return value.Value{}, err
		}
		count, err := r.readInt32()
		if err != nil {
			return value.Value{}, err
		}
		fields := make([]string, count)
		for i := range fields {
			fields[i], err = r.readRequiredString()
			if err != nil {
				return value.Value{}, err
			}
		}
		return value.Obj(value.NewStructSchema(name, fields)), nil
	case tagEnumSchema:
		name, err := r.readRequiredString()
		if err != nil {
			return value.Value{}, err
		}
		typeID, err := r.readInt32()
		if err != nil {
			return value.Value{}, err
		}
		count, err := r.readInt32()
		if err != nil {
			return value.Value{}, err
		}
		variants := make([]string, count)
		for i := range variants {
			variants[i], err = r.readRequiredString()
			if err != nil {
				return value.Value{}, err
			}
		}
		schema := value.NewEnumSchema(name, variants)
		schema.TypeID = uint32(typeID)
		return value.Obj(schema), nil
	default:
		return value.Value{}, fmt.Errorf("unknown constant type tag 0x%02x", tag)
	}
}

func readFunctionConstant(r *reader, interner *value.Interner) (value.Value, error) {
	arity, err := r.readInt32()
	if err != nil {
		return value.Value{}, err
	}
	maxRegs, err := r.readInt32()
	if err != nil {
		return value.Value{}, err
	}
	upvalCount, err := r.readInt32()
	if err != nil {
		return value.Value{}, err
	}
	name, hasName, err := r.readOptionalString()
	if err != nil {
		return value.Value{}, err
	}
	moduleName, _, err := r.readOptionalString()
	if err != nil {
		return value.Value{}, err
	}
	quals := make([]value.Qualifier, arity)
	if arity > 0 {
		for i := range quals {
			b, err := r.readU8()
			if err != nil {
				return value.Value{}, err
			}
			quals[i] = value.Qualifier(b)
		}
	}
	sigByte, err := r.readU8()
	if err != nil {
		return value.Value{}, err
	}
	bodySize, err := r.readInt32()
	if err != nil {
		return value.Value{}, err
	}
	bodyBytes, err := r.readN(int(bodySize))
	if err != nil {
		return value.Value{}, err
	}
	nestedReader := &reader{buf: bodyBytes}
	nested, err := readChunkBody(nestedReader, interner)
	if err != nil {
		return value.Value{}, fmt.Errorf("nested chunk: %w", err)
	}
	nested.Name = moduleName

	fnName := ""
	if hasName {
		fnName = name
	}
	fn := &value.Function{
		Name:         fnName,
		MangledName:  fmt.Sprintf("%s@%d", fnName, arity),
		Arity:        int(arity),
		ParamQuals:   quals,
		QualSig:      value.QualifierSignature(sigByte),
		MaxRegs:      int(maxRegs),
		UpvalueCount: int(upvalCount),
		Chunk:        nested,
	}
	return value.Obj(fn), nil
}

// enumPlaceholder builds an EnumVal for deserialization from a bare
// TypeID/variant pair with no schema pointer available; callers that need
// the schema resolved by identity (the loader, after decoding a whole
// program's constant pools) patch Obj in afterward by TypeID lookup. Kept
// as its own function rather than inlined so that patch step has one
// documented seam to hook into.
func enumPlaceholder(typeID uint32, variant int) value.Value {
	return value.Value{Kind: value.KindEnum, Data: uint64(variant), Obj: &value.EnumSchema{TypeID: typeID}}
}

func writeInt32(w *bytes.Buffer, n int32) error {
	return binary.Write(w, binary.LittleEndian, n)
}

func writeRequiredString(w *bytes.Buffer, s string) error {
	if err := writeInt32(w, int32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

// writeOptionalString writes s length-prefixed when present, or a −1
// length marker when not (spec.md §4.4's "length (−1 if absent)" fields).
func writeOptionalString(w *bytes.Buffer, s string, present bool) error {
	if !present {
		return writeInt32(w, -1)
	}
	return writeRequiredString(w, s)
}

// reader is a cursor over an in-memory byte slice with bounds-checked
// reads, so a truncated container is always a clean error rather than a
// panic (spec.md §7: "unexpected EOF during a nested read ... is a
// deserialization failure").
type reader struct {
	buf []byte
	pos int
}

func (r *reader) readN(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("unexpected EOF reading %d bytes", n)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readU8() (byte, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readU32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readInt32() (int32, error) {
	u, err := r.readU32()
	return int32(u), err
}

func (r *reader) readFloat64() (float64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	bits := binary.LittleEndian.Uint64(b)
	return math.Float64frombits(bits), nil
}

func (r *reader) readRequiredString() (string, error) {
	n, err := r.readInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("negative string length %d", n)
	}
	b, err := r.readN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readOptionalString reads a length-prefixed string that may be absent
// (encoded as length −1).
func (r *reader) readOptionalString() (s string, present bool, err error) {
	n, err := r.readInt32()
	if err != nil {
		return "", false, err
	}
	if n < 0 {
		return "", false, nil
	}
	b, err := r.readN(int(n))
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}
