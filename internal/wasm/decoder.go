package wasm

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/wasmone/wasmone/internal/ieee754"
	"github.com/wasmone/wasmone/internal/leb128"
)

// magic is the 4-byte "\0asm" preamble every WebAssembly binary opens with.
var magic = [4]byte{0x00, 0x61, 0x73, 0x6D}

// version is the 4-byte little-endian module version. WebAssembly 1.0
// is version 1.
var version = [4]byte{0x01, 0x00, 0x00, 0x00}

// Section IDs, in the fixed order §4.3 requires them to appear.
const (
	sectionCustom   = 0
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionTable    = 4
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionStart    = 8
	sectionElement  = 9
	sectionCode     = 10
	sectionData     = 11
)

// reader is a cursor over an in-memory binary module. Every decode
// method advances pos and reports errors relative to the position at
// which the malformed data was found, so callers can surface a byte
// offset the way §4.3 and §7.1 require.
type reader struct {
	data []byte
	pos  int64
}

func (r *reader) errorf(format string, args ...interface{}) error {
	return &DecodeError{Offset: r.pos, Reason: fmt.Sprintf(format, args...)}
}

func (r *reader) remaining() int64 { return int64(len(r.data)) - r.pos }

func (r *reader) readByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, r.errorf("unexpected end of input")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readBytes(n int64) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, r.errorf("unexpected end of input reading %d bytes", n)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	v, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return 0, r.errorf("malformed u32: %s", err)
	}
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	v, _, err := leb128.DecodeUint64(r)
	if err != nil {
		return 0, r.errorf("malformed u64: %s", err)
	}
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, _, err := leb128.DecodeInt32(r)
	if err != nil {
		return 0, r.errorf("malformed i32: %s", err)
	}
	return v, nil
}

func (r *reader) i64() (int64, error) {
	v, _, err := leb128.DecodeInt64(r)
	if err != nil {
		return 0, r.errorf("malformed i64: %s", err)
	}
	return v, nil
}

func (r *reader) f32() (float32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	v, err := ieee754.DecodeFloat32(bytes.NewReader(b))
	if err != nil {
		return 0, r.errorf("malformed f32: %s", err)
	}
	return v, nil
}

func (r *reader) f64() (float64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	v, err := ieee754.DecodeFloat64(bytes.NewReader(b))
	if err != nil {
		return 0, r.errorf("malformed f64: %s", err)
	}
	return v, nil
}

// Read implements io.Reader so leb128.Decode* can consume bytes
// directly from the cursor, advancing pos as it goes. LEB128 decoding
// reads one byte at a time via io.ReadFull, so a short read here is
// never ambiguous with an error.
func (r *reader) Read(p []byte) (int, error) {
	if r.remaining() == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += int64(n)
	return n, nil
}

func (r *reader) valueType() (ValueType, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		return b, nil
	default:
		return 0, r.errorf("invalid value type %#x", b)
	}
}

func (r *reader) blockType() (BlockType, error) {
	b, err := r.readByte()
	if err != nil {
		return BlockType{}, err
	}
	switch b {
	case 0x40:
		return BlockType{Empty: true}, nil
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		return BlockType{Result: b}, nil
	default:
		return BlockType{}, r.errorf("invalid block type %#x", b)
	}
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(int64(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", r.errorf("name is not valid UTF-8")
	}
	return string(b), nil
}

func (r *reader) limits() (Limits, error) {
	flag, err := r.readByte()
	if err != nil {
		return Limits{}, err
	}
	min, err := r.u32()
	if err != nil {
		return Limits{}, err
	}
	l := Limits{Min: min}
	switch flag {
	case 0x00:
	case 0x01:
		max, err := r.u32()
		if err != nil {
			return Limits{}, err
		}
		if max < min {
			return Limits{}, r.errorf("limits maximum %d is less than minimum %d", max, min)
		}
		l.Max = &max
	default:
		return Limits{}, r.errorf("invalid limits flag %#x", flag)
	}
	return l, nil
}

// Decode parses a complete WebAssembly 1.0 binary module (§4.3). It is
// a total, structural parser: it never interprets the semantics of an
// opcode beyond recognizing it, and leaves type-checking to Validate.
func Decode(data []byte) (*Module, error) {
	r := &reader{data: data}

	if len(data) < 8 {
		return nil, r.errorf("input too short for module header")
	}
	var gotMagic [4]byte
	copy(gotMagic[:], data[0:4])
	if gotMagic != magic {
		return nil, (&reader{pos: 0}).errorf("invalid magic number %x", gotMagic)
	}
	var gotVersion [4]byte
	copy(gotVersion[:], data[4:8])
	if gotVersion != version {
		return nil, (&reader{pos: 4}).errorf("unsupported version %x", gotVersion)
	}
	r.pos = 8

	m := &Module{}
	lastKnownID := -1
	for r.remaining() > 0 {
		startPos := r.pos
		id, err := r.readByte()
		if err != nil {
			return nil, err
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		if r.remaining() < int64(size) {
			return nil, r.errorf("section %d: declared size %d exceeds remaining input", id, size)
		}
		payloadStart := r.pos
		sectionEnd := payloadStart + int64(size)

		if id != sectionCustom {
			if int(id) <= lastKnownID {
				return nil, (&reader{pos: startPos}).errorf("section %d out of order or duplicated", id)
			}
			lastKnownID = int(id)
		}

		sec := &reader{data: data[:sectionEnd], pos: payloadStart}
		if err := decodeSection(m, id, sec); err != nil {
			return nil, err
		}
		if sec.pos != sectionEnd {
			return nil, sec.errorf("section %d: %d trailing bytes", id, sectionEnd-sec.pos)
		}
		r.pos = sectionEnd
	}
	if len(m.Funcs) != 0 && m.funcBodiesDecoded != len(m.Funcs) {
		return nil, r.errorf("function and code section counts disagree")
	}
	return m, nil
}

func decodeSection(m *Module, id byte, r *reader) error {
	switch id {
	case sectionCustom:
		name, err := r.str()
		if err != nil {
			return err
		}
		payload, err := r.readBytes(r.remaining())
		if err != nil {
			return err
		}
		m.Customs = append(m.Customs, CustomSection{Name: name, Payload: payload})
		return nil
	case sectionType:
		return decodeTypeSection(m, r)
	case sectionImport:
		return decodeImportSection(m, r)
	case sectionFunction:
		return decodeFunctionSection(m, r)
	case sectionTable:
		return decodeTableSection(m, r)
	case sectionMemory:
		return decodeMemorySection(m, r)
	case sectionGlobal:
		return decodeGlobalSection(m, r)
	case sectionExport:
		return decodeExportSection(m, r)
	case sectionStart:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		m.Start = &idx
		return nil
	case sectionElement:
		return decodeElementSection(m, r)
	case sectionCode:
		return decodeCodeSection(m, r)
	case sectionData:
		return decodeDataSection(m, r)
	default:
		return r.errorf("unknown section id %d", id)
	}
}

func decodeVector[T any](r *reader, decodeOne func(*reader) (T, error)) ([]T, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		v, err := decodeOne(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeTypeSection(m *Module, r *reader) error {
	types, err := decodeVector(r, decodeFuncType)
	if err != nil {
		return err
	}
	m.Types = types
	return nil
}

func decodeFuncType(r *reader) (FuncType, error) {
	form, err := r.readByte()
	if err != nil {
		return FuncType{}, err
	}
	if form != 0x60 {
		return FuncType{}, r.errorf("invalid function type form %#x", form)
	}
	params, err := decodeVector(r, (*reader).valueType)
	if err != nil {
		return FuncType{}, err
	}
	results, err := decodeVector(r, (*reader).valueType)
	if err != nil {
		return FuncType{}, err
	}
	if len(results) > 1 {
		return FuncType{}, r.errorf("function types with more than one result require the multi-value proposal")
	}
	return FuncType{Params: params, Results: results}, nil
}

func decodeImportSection(m *Module, r *reader) error {
	imports, err := decodeVector(r, decodeImport)
	if err != nil {
		return err
	}
	m.Imports = imports
	return nil
}

func decodeImport(r *reader) (Import, error) {
	mod, err := r.str()
	if err != nil {
		return Import{}, err
	}
	name, err := r.str()
	if err != nil {
		return Import{}, err
	}
	kind, err := r.readByte()
	if err != nil {
		return Import{}, err
	}
	imp := Import{Module: mod, Name: name, Kind: kind}
	switch kind {
	case ExternKindFunc:
		imp.DescFunc, err = r.u32()
	case ExternKindTable:
		_, err = r.readByte() // element kind, always funcref (0x70) in Wasm 1.0
		if err == nil {
			imp.DescTable.Limits, err = r.limits()
		}
	case ExternKindMemory:
		imp.DescMemory.Limits, err = r.limits()
	case ExternKindGlobal:
		imp.DescGlobal.ValType, err = r.valueType()
		if err == nil {
			imp.DescGlobal.Mutable, err = r.mutability()
		}
	default:
		return Import{}, r.errorf("invalid import kind %#x", kind)
	}
	if err != nil {
		return Import{}, err
	}
	return imp, nil
}

func (r *reader) mutability() (bool, error) {
	b, err := r.readByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, r.errorf("invalid mutability flag %#x", b)
	}
}

func decodeFunctionSection(m *Module, r *reader) error {
	idxs, err := decodeVector(r, (*reader).u32)
	if err != nil {
		return err
	}
	m.Funcs = make([]Function, len(idxs))
	for i, ti := range idxs {
		m.Funcs[i].TypeIndex = ti
	}
	return nil
}

func decodeTableSection(m *Module, r *reader) error {
	tables, err := decodeVector(r, decodeTableType)
	if err != nil {
		return err
	}
	m.Tables = tables
	return nil
}

func decodeTableType(r *reader) (TableType, error) {
	elemKind, err := r.readByte()
	if err != nil {
		return TableType{}, err
	}
	if elemKind != 0x70 {
		return TableType{}, r.errorf("invalid table element type %#x, wasm 1.0 supports only funcref", elemKind)
	}
	lim, err := r.limits()
	if err != nil {
		return TableType{}, err
	}
	return TableType{Limits: lim}, nil
}

func decodeMemorySection(m *Module, r *reader) error {
	mems, err := decodeVector(r, decodeMemoryType)
	if err != nil {
		return err
	}
	m.Memories = mems
	return nil
}

func decodeMemoryType(r *reader) (MemoryType, error) {
	lim, err := r.limits()
	if err != nil {
		return MemoryType{}, err
	}
	return MemoryType{Limits: lim}, nil
}

func decodeGlobalSection(m *Module, r *reader) error {
	globals, err := decodeVector(r, decodeGlobal)
	if err != nil {
		return err
	}
	m.Globals = globals
	return nil
}

func decodeGlobal(r *reader) (Global, error) {
	vt, err := r.valueType()
	if err != nil {
		return Global{}, err
	}
	mut, err := r.mutability()
	if err != nil {
		return Global{}, err
	}
	init, err := decodeConstExpr(r)
	if err != nil {
		return Global{}, err
	}
	return Global{Type: GlobalType{ValType: vt, Mutable: mut}, Init: init}, nil
}

func decodeConstExpr(r *reader) (ConstExpr, error) {
	op, err := r.readByte()
	if err != nil {
		return ConstExpr{}, err
	}
	ce := ConstExpr{Opcode: Opcode(op)}
	switch Opcode(op) {
	case OpI32Const:
		ce.ImmI32, err = r.i32()
	case OpI64Const:
		ce.ImmI64, err = r.i64()
	case OpF32Const:
		ce.ImmF32, err = r.f32()
	case OpF64Const:
		ce.ImmF64, err = r.f64()
	case OpGlobalGet:
		ce.GlobalIdx, err = r.u32()
	default:
		return ConstExpr{}, r.errorf("invalid constant expression opcode %#x", op)
	}
	if err != nil {
		return ConstExpr{}, err
	}
	end, err := r.readByte()
	if err != nil {
		return ConstExpr{}, err
	}
	if Opcode(end) != OpEnd {
		return ConstExpr{}, r.errorf("constant expression missing end opcode")
	}
	return ce, nil
}

func decodeExportSection(m *Module, r *reader) error {
	exports, err := decodeVector(r, decodeExport)
	if err != nil {
		return err
	}
	m.Exports = exports
	return nil
}

func decodeExport(r *reader) (Export, error) {
	name, err := r.str()
	if err != nil {
		return Export{}, err
	}
	kind, err := r.readByte()
	if err != nil {
		return Export{}, err
	}
	idx, err := r.u32()
	if err != nil {
		return Export{}, err
	}
	return Export{Name: name, Kind: kind, Index: idx}, nil
}

func decodeElementSection(m *Module, r *reader) error {
	elems, err := decodeVector(r, decodeElementSegment)
	if err != nil {
		return err
	}
	m.Elements = elems
	return nil
}

func decodeElementSegment(r *reader) (ElementSegment, error) {
	tableIdx, err := r.u32()
	if err != nil {
		return ElementSegment{}, err
	}
	offset, err := decodeConstExpr(r)
	if err != nil {
		return ElementSegment{}, err
	}
	indices, err := decodeVector(r, (*reader).u32)
	if err != nil {
		return ElementSegment{}, err
	}
	return ElementSegment{TableIndex: tableIdx, Offset: offset, FuncIndices: indices}, nil
}

func decodeDataSection(m *Module, r *reader) error {
	segs, err := decodeVector(r, decodeDataSegment)
	if err != nil {
		return err
	}
	m.Data = segs
	return nil
}

func decodeDataSegment(r *reader) (DataSegment, error) {
	memIdx, err := r.u32()
	if err != nil {
		return DataSegment{}, err
	}
	offset, err := decodeConstExpr(r)
	if err != nil {
		return DataSegment{}, err
	}
	n, err := r.u32()
	if err != nil {
		return DataSegment{}, err
	}
	data, err := r.readBytes(int64(n))
	if err != nil {
		return DataSegment{}, err
	}
	// Copy: data aliases the module's byte slice, which the caller may
	// mutate or discard after Decode returns.
	cp := make([]byte, len(data))
	copy(cp, data)
	return DataSegment{MemIndex: memIdx, Offset: offset, Init: cp}, nil
}

func decodeCodeSection(m *Module, r *reader) error {
	n, err := r.u32()
	if err != nil {
		return err
	}
	if int(n) != len(m.Funcs) {
		return r.errorf("code section has %d entries but function section declared %d", n, len(m.Funcs))
	}
	for i := 0; i < int(n); i++ {
		locals, body, err := decodeFunctionBody(r)
		if err != nil {
			return err
		}
		m.Funcs[i].Locals = locals
		m.Funcs[i].Body = body
	}
	m.funcBodiesDecoded = int(n)
	return nil
}

func decodeFunctionBody(r *reader) ([]Local, []Instr, error) {
	size, err := r.u32()
	if err != nil {
		return nil, nil, err
	}
	bodyEnd := r.pos + int64(size)
	if bodyEnd > int64(len(r.data)) {
		return nil, nil, r.errorf("function body size %d exceeds section", size)
	}
	br := &reader{data: r.data[:bodyEnd], pos: r.pos}

	locals, err := decodeVector(br, decodeLocalEntry)
	if err != nil {
		return nil, nil, err
	}

	body, err := decodeInstrSequence(br)
	if err != nil {
		return nil, nil, err
	}
	if br.pos != bodyEnd {
		return nil, nil, br.errorf("function body has %d trailing bytes", bodyEnd-br.pos)
	}
	r.pos = bodyEnd
	return locals, body, nil
}

func decodeLocalEntry(r *reader) (Local, error) {
	count, err := r.u32()
	if err != nil {
		return Local{}, err
	}
	vt, err := r.valueType()
	if err != nil {
		return Local{}, err
	}
	return Local{Count: count, Type: vt}, nil
}
