package encoding

// ValType is a WebAssembly value type: a num/vec type byte, or a
// (ref null? $typeidx) compound encoded lazily at Encode time so callers
// can build them before every type index in the module is finalized.
type ValType struct {
	code     byte // one of the Val* constants, or refMarker for a GC ref
	typeIdx  uint32
	nullable bool
}

const refMarker = 0xff

const (
	ValI32 byte = 0x7f
	ValI64 byte = 0x7e
	ValF32 byte = 0x7d
	ValF64 byte = 0x7c
	ValFuncref byte = 0x70
	ValExternref byte = 0x6f
	ValAnyref byte = 0x6e
	ValEqref byte = 0x6d
	ValI31ref byte = 0x6c
	ValStructref byte = 0x67
	ValArrayref byte = 0x66
)

func I32() ValType { return ValType{code: ValI32} }
func I64() ValType { return ValType{code: ValI64} }
func F32() ValType { return ValType{code: ValF32} }
func F64() ValType { return ValType{code: ValF64} }
func Anyref() ValType { return ValType{code: ValAnyref} }
func Eqref() ValType  { return ValType{code: ValEqref} }

// RefNull constructs a nullable reference to the GC type at typeIdx
// (struct/array/func type index within the module's type section).
func RefNull(typeIdx uint32) ValType { return ValType{code: refMarker, typeIdx: typeIdx, nullable: true} }

// Ref constructs a non-nullable reference to the GC type at typeIdx.
func Ref(typeIdx uint32) ValType { return ValType{code: refMarker, typeIdx: typeIdx, nullable: false} }

// EncodeBlockType encodes v as an `if`/`block`/`loop` block type immediate.
// A blocktype carrying a single result is encoded identically to a bare
// valtype (the WebAssembly binary format only needs the S33 type-index form
// for multi-value signatures, which wasmgen's structured control flow never
// produces).
func (v ValType) EncodeBlockType() []byte { return v.encode(nil) }

func (v ValType) encode(buf []byte) []byte {
	if v.code != refMarker {
		return append(buf, v.code)
	}
	if v.nullable {
		buf = append(buf, 0x63) // ref null
	} else {
		buf = append(buf, 0x64) // ref (non-null)
	}
	return PutVarint(buf, int64(v.typeIdx))
}

// FieldType is one struct field or an array's element type, carrying
// packed-storage width and mutability per the GC proposal's storagetype.
type FieldType struct {
	Type     ValType
	Packed   byte // 0 = unpacked (use Type); 0x78 = i8; 0x77 = i16
	Mutable  bool
}

func (f FieldType) encode(buf []byte) []byte {
	if f.Packed != 0 {
		buf = append(buf, f.Packed)
	} else {
		buf = f.Type.encode(buf)
	}
	if f.Mutable {
		buf = append(buf, 0x01)
	} else {
		buf = append(buf, 0x00)
	}
	return buf
}

// CompositeKind distinguishes the three GC composite type shapes.
type CompositeKind int

const (
	CompositeFunc CompositeKind = iota
	CompositeStruct
	CompositeArray
)

// SubType is one entry of a recursion group: a function, struct, or array
// type, optionally declared final and/or a subtype of an earlier type index
// (the GC proposal's sub/subfinal type constructors).
type SubType struct {
	Kind       CompositeKind
	Final      bool
	Supertype  *uint32 // nil if this subtype has no explicit supertype

	// CompositeFunc
	Params, Results []ValType

	// CompositeStruct
	Fields []FieldType

	// CompositeArray
	Element FieldType
}

func (s SubType) encode(buf []byte) []byte {
	hasSuper := s.Supertype != nil
	switch {
	case !hasSuper && s.Final:
		buf = append(buf, s.encodeComposite(nil)...)
		return buf
	case hasSuper || !s.Final:
		if s.Final {
			buf = append(buf, 0x4f) // sub final
		} else {
			buf = append(buf, 0x50) // sub
		}
		if hasSuper {
			buf = PutUvarint(buf, 1)
			buf = PutVarint(buf, int64(*s.Supertype))
		} else {
			buf = PutUvarint(buf, 0)
		}
		return append(buf, s.encodeComposite(nil)...)
	}
	return buf
}

func (s SubType) encodeComposite(buf []byte) []byte {
	switch s.Kind {
	case CompositeFunc:
		buf = append(buf, 0x60)
		buf = PutVec(buf, s.Params, func(b []byte, v ValType) []byte { return v.encode(b) })
		buf = PutVec(buf, s.Results, func(b []byte, v ValType) []byte { return v.encode(b) })
	case CompositeStruct:
		buf = append(buf, 0x5f)
		buf = PutVec(buf, s.Fields, func(b []byte, f FieldType) []byte { return f.encode(b) })
	case CompositeArray:
		buf = append(buf, 0x5e)
		buf = s.Element.encode(buf)
	}
	return buf
}

// RecGroup is one `rec` entry of the type section; a singleton group
// (len==1) elides the `rec` wrapper the way most non-mutually-recursive
// declarations do in practice.
type RecGroup []SubType

func (g RecGroup) encode(buf []byte) []byte {
	if len(g) == 1 {
		return g[0].encode(buf)
	}
	buf = append(buf, 0x4e) // rec
	buf = PutUvarint(buf, uint64(len(g)))
	for _, s := range g {
		buf = s.encode(buf)
	}
	return buf
}

// Global is a module-level global variable.
type Global struct {
	Type    ValType
	Mutable bool
	Init    []byte // pre-encoded constant expression, terminated with 0x0b
}

// Tag declares a WebAssembly exception-handling tag (spec §4.7's errorTag
// and finallyTag).
type Tag struct {
	TypeIdx uint32 // index into the func type section entries
}

// Export names one function/global/tag for the host to resolve.
type Export struct {
	Name string
	Kind byte // 0x00 func, 0x03 global, 0x04 tag
	Idx  uint32
}

// Import names one function this module expects the host/another module to
// supply (spec §6.6's optional OCI-fetched prelude).
type Import struct {
	Module, Name string
	TypeIdx      uint32
}

// Code is one function body: its additional locals beyond its parameters,
// and its pre-encoded instruction stream (ending in 0x0b).
type Code struct {
	Locals []ValType
	Body   []byte
}

func (c Code) encode(buf []byte) []byte {
	var body []byte
	// Locals are declared as runs; wasmgen's code generator always assigns
	// one local per Code.Locals entry, so each run has length 1 — simple
	// and correct, if not maximally compact.
	body = PutUvarint(body, uint64(len(c.Locals)))
	for _, l := range c.Locals {
		body = PutUvarint(body, 1)
		body = l.encode(body)
	}
	body = append(body, c.Body...)

	buf = PutUvarint(buf, uint64(len(body)))
	return append(buf, body...)
}

// Module is the in-memory form of a compiled WebAssembly binary, assembled
// section by section the way wazero's internalwasm.Module separates
// TypeSection/FunctionSection/CodeSection (the teacher's closest analogue,
// generalized here from the MVP func-only type section to GC rec groups
// plus a tag section for exception handling).
type Module struct {
	Types    []RecGroup
	Imports  []Import
	Funcs    []uint32 // type index per defined function, index-correlated with Code
	Tags     []Tag
	Globals  []Global
	Exports  []Export
	Code     []Code
	Start    *uint32
}

const (
	secType     = 1
	secImport   = 2
	secFunction = 3
	secTable    = 4
	secMemory   = 5
	secGlobal   = 6
	secExport   = 7
	secStart    = 8
	secElement  = 9
	secCode     = 10
	secData     = 11
	secTag      = 13
)

func section(buf []byte, id byte, body []byte) []byte {
	buf = append(buf, id)
	buf = PutUvarint(buf, uint64(len(body)))
	return append(buf, body...)
}

// Encode serializes m into a complete WebAssembly binary module, magic
// number and version header first.
func Encode(m *Module) []byte {
	buf := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(m.Types) > 0 {
		var body []byte
		body = PutVec(body, m.Types, func(b []byte, g RecGroup) []byte { return g.encode(b) })
		buf = section(buf, secType, body)
	}
	if len(m.Imports) > 0 {
		var body []byte
		body = PutVec(body, m.Imports, encodeImport)
		buf = section(buf, secImport, body)
	}
	if len(m.Funcs) > 0 {
		var body []byte
		body = PutVec(body, m.Funcs, func(b []byte, idx uint32) []byte { return PutVarint(b, int64(idx)) })
		buf = section(buf, secFunction, body)
	}
	if len(m.Tags) > 0 {
		var body []byte
		body = PutVec(body, m.Tags, func(b []byte, t Tag) []byte {
			b = append(b, 0x00) // exception kind, always 0 in the current proposal
			return PutVarint(b, int64(t.TypeIdx))
		})
		buf = section(buf, secTag, body)
	}
	if len(m.Globals) > 0 {
		var body []byte
		body = PutVec(body, m.Globals, encodeGlobal)
		buf = section(buf, secGlobal, body)
	}
	if len(m.Exports) > 0 {
		var body []byte
		body = PutVec(body, m.Exports, encodeExport)
		buf = section(buf, secExport, body)
	}
	if m.Start != nil {
		var body []byte
		body = PutVarint(body, int64(*m.Start))
		buf = section(buf, secStart, body)
	}
	if len(m.Code) > 0 {
		var body []byte
		body = PutVec(body, m.Code, func(b []byte, c Code) []byte { return c.encode(b) })
		buf = section(buf, secCode, body)
	}
	return buf
}

func encodeImport(buf []byte, im Import) []byte {
	buf = PutName(buf, im.Module)
	buf = PutName(buf, im.Name)
	buf = append(buf, 0x00) // func import
	return PutVarint(buf, int64(im.TypeIdx))
}

func encodeGlobal(buf []byte, g Global) []byte {
	buf = g.Type.encode(buf)
	if g.Mutable {
		buf = append(buf, 0x01)
	} else {
		buf = append(buf, 0x00)
	}
	return append(buf, g.Init...)
}

func encodeExport(buf []byte, e Export) []byte {
	buf = PutName(buf, e.Name)
	buf = append(buf, e.Kind)
	return PutVarint(buf, int64(e.Idx))
}
