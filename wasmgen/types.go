// Package wasmgen lowers the semantic IR (package ir) to a WebAssembly
// GC/reference-types/exception-handling module (spec §4.6–§4.7, components
// C6–C7). TypeGen (this file) assigns every ir.Type a WebAssembly type
// index, lazily and by content digest; Generator (codegen.go) lowers
// ir.Value/ir.Node trees to instruction bytes against that index.
package wasmgen

import (
	"fmt"

	digest "github.com/opencontainers/go-digest"

	"github.com/wasmlang/tscc/ir"
	"github.com/wasmlang/tscc/wasmgen/encoding"
)

// TypeGen assigns WebAssembly GC type indices to ir.Type values, caching by
// content digest so structurally identical types share one type section
// entry (spec §3.7) while the specialization cache-bypass rule (Invariant
// 5) forces a fresh entry for any ir.Array carrying SpecialTypeArguments.
type TypeGen struct {
	module *encoding.Module

	byDigest map[digest.Digest]uint32
	byType   map[ir.Type]uint32

	// vtableIdx maps an Object to the type index of its vtable struct (one
	// funcref-typed field per dispatch slot, spec §4.2).
	vtableIdx map[*ir.Object]uint32
	// closureIdx maps a Function signature to the closure struct type index
	// wrapping (context anyref, funcref) pairs (spec §4.6).
	closureIdx map[*ir.Function]uint32
}

// NewTypeGen creates a TypeGen that appends to module's type section.
func NewTypeGen(module *encoding.Module) *TypeGen {
	return &TypeGen{
		module:     module,
		byDigest:   make(map[digest.Digest]uint32),
		byType:     make(map[ir.Type]uint32),
		vtableIdx:  make(map[*ir.Object]uint32),
		closureIdx: make(map[*ir.Function]uint32),
	}
}

func (g *TypeGen) addType(sub encoding.SubType) uint32 {
	idx := uint32(len(g.module.Types))
	g.module.Types = append(g.module.Types, encoding.RecGroup{sub})
	return idx
}

// TypeOf returns t's WebAssembly GC type index, building and caching it if
// this is the first time t (or a structurally-equal, non-bypassed type) is
// requested.
func (g *TypeGen) TypeOf(t ir.Type) (uint32, error) {
	if a, ok := t.(*ir.Array); ok && len(a.SpecialTypeArguments) > 0 {
		// Invariant 5: a specialized array's element type may itself have
		// been resolved differently than the generic declaration's; never
		// serve a cached entry for it.
		return g.buildArray(a)
	}
	if idx, ok := g.byType[t]; ok {
		return idx, nil
	}
	d := ir.Digest(t)
	if idx, ok := g.byDigest[d]; ok {
		g.byType[t] = idx
		return idx, nil
	}

	idx, err := g.build(t)
	if err != nil {
		return 0, err
	}
	g.byType[t] = idx
	g.byDigest[d] = idx
	return idx, nil
}

func (g *TypeGen) build(t ir.Type) (uint32, error) {
	switch tv := t.(type) {
	case *ir.Object:
		return g.buildObject(tv)
	case *ir.Array:
		return g.buildArray(tv)
	case *ir.Set:
		return g.buildArray(&ir.Array{Element: tv.Element})
	case *ir.Map:
		return g.buildMapEntryArray(tv)
	case *ir.Function:
		return g.buildFuncType(tv)
	default:
		return 0, fmt.Errorf("wasmgen: %s has no WebAssembly struct/array representation (use ValTypeOf for flat value types)", t.Kind())
	}
}

// ValTypeOf returns the flat WebAssembly ValType representing t, recursing
// into the GC type section via TypeOf when t is object-shaped.
func (g *TypeGen) ValTypeOf(t ir.Type) (encoding.ValType, error) {
	switch t.Kind() {
	case ir.KindInt, ir.KindEnum:
		return encoding.I32(), nil
	case ir.KindNumber:
		return encoding.F64(), nil
	case ir.KindBoolean:
		return encoding.I32(), nil
	case ir.KindVoid, ir.KindUndefined, ir.KindNull, ir.KindNever:
		return encoding.I32(), nil
	case ir.KindAny, ir.KindString, ir.KindRawString, ir.KindUnion:
		return encoding.Anyref(), nil
	case ir.KindObject, ir.KindArray, ir.KindSet, ir.KindMap:
		idx, err := g.TypeOf(t)
		if err != nil {
			return encoding.ValType{}, err
		}
		return encoding.RefNull(idx), nil
	case ir.KindFunction:
		idx, err := g.ClosureTypeOf(t.(*ir.Function))
		if err != nil {
			return encoding.ValType{}, err
		}
		return encoding.RefNull(idx), nil
	case ir.KindClosureContext:
		idx, err := g.ClosureContextTypeOf(t.(*ir.ClosureContext))
		if err != nil {
			return encoding.ValType{}, err
		}
		return encoding.RefNull(idx), nil
	default:
		return encoding.Anyref(), nil
	}
}

// buildObject synthesizes an Object's instance struct type: slot 0 is the
// vtable reference (spec §3.2: "field offset = 1 + field_index ... slot 0
// reserved for the vtable pointer"), followed by one field per descriptor
// member other than a method, in declaration order.
func (g *TypeGen) buildObject(obj *ir.Object) (uint32, error) {
	if obj.Meta == nil {
		return g.addType(encoding.SubType{Kind: encoding.CompositeStruct, Final: true}), nil
	}
	if _, err := g.VTableTypeOf(obj); err != nil {
		return 0, err
	}
	fields := make([]encoding.FieldType, 0, len(obj.Meta.Members)+1)
	fields = append(fields, encoding.FieldType{Type: encoding.RefNull(g.vtableIdx[obj]), Mutable: false})
	for _, m := range obj.Meta.Members {
		if m.Kind == ir.MemberMethod {
			continue // methods live in the vtable, not as instance fields
		}
		vt, err := g.ValTypeOf(m.Type)
		if err != nil {
			return 0, err
		}
		fields = append(fields, encoding.FieldType{Type: vt, Mutable: !m.ReadOnly})
	}

	var super *uint32
	if obj.SuperClass != nil {
		superIdx, err := g.TypeOf(obj.SuperClass)
		if err != nil {
			return 0, err
		}
		super = &superIdx
	}
	return g.addType(encoding.SubType{Kind: encoding.CompositeStruct, Final: false, Supertype: super, Fields: fields}), nil
}

// VTableTypeOf returns obj's vtable struct type index, building it (and its
// superclass's, recursively, as its supertype) on first use.
func (g *TypeGen) VTableTypeOf(obj *ir.Object) (uint32, error) {
	if idx, ok := g.vtableIdx[obj]; ok {
		return idx, nil
	}
	var fields []encoding.FieldType
	if obj.Meta != nil {
		for _, m := range obj.Meta.Members {
			if m.Kind != ir.MemberMethod && m.Kind != ir.MemberAccessor {
				continue
			}
			fn, ok := m.Type.(*ir.Function)
			if !ok {
				fields = append(fields, encoding.FieldType{Type: encoding.Anyref(), Mutable: false})
				continue
			}
			funcIdx, err := g.buildFuncType(fn)
			if err != nil {
				return 0, err
			}
			fields = append(fields, encoding.FieldType{Type: encoding.RefNull(funcIdx), Mutable: false})
		}
	}
	var super *uint32
	if obj.SuperClass != nil {
		superIdx, err := g.VTableTypeOf(obj.SuperClass)
		if err != nil {
			return 0, err
		}
		super = &superIdx
	}
	idx := g.addType(encoding.SubType{Kind: encoding.CompositeStruct, Final: false, Supertype: super, Fields: fields})
	g.vtableIdx[obj] = idx
	return idx, nil
}

// buildArray synthesizes a mutable, non-final array type (non-final so a
// subclass's covariant-element specialization, when legal, can subtype it).
func (g *TypeGen) buildArray(a *ir.Array) (uint32, error) {
	elem, err := g.ValTypeOf(a.Element)
	if err != nil {
		return 0, err
	}
	return g.addType(encoding.SubType{
		Kind:    encoding.CompositeArray,
		Final:   false,
		Element: encoding.FieldType{Type: elem, Mutable: true},
	}), nil
}

// buildMapEntryArray represents Map<K, V> as an array of (key, value)
// struct entries — wasm GC has no native map, so the runtime performs
// linear or hashed lookup over this array (spec §6.6 Non-goals: map/set
// iteration order and complexity are left to the runtime prelude).
func (g *TypeGen) buildMapEntryArray(m *ir.Map) (uint32, error) {
	keyType, err := g.ValTypeOf(m.Key)
	if err != nil {
		return 0, err
	}
	valType, err := g.ValTypeOf(m.Value)
	if err != nil {
		return 0, err
	}
	entryIdx := g.addType(encoding.SubType{
		Kind: encoding.CompositeStruct,
		Final: true,
		Fields: []encoding.FieldType{
			{Type: keyType, Mutable: false},
			{Type: valType, Mutable: true},
		},
	})
	return g.addType(encoding.SubType{
		Kind:    encoding.CompositeArray,
		Final:   false,
		Element: encoding.FieldType{Type: encoding.RefNull(entryIdx), Mutable: true},
	}), nil
}

// buildFuncType synthesizes the raw `func` type index for fn's signature,
// with an explicit leading anyref environment parameter (spec §4.6: "every
// closure-compiled function signature is augmented with a leading anyref
// context parameter, envParamLen").
func (g *TypeGen) buildFuncType(fn *ir.Function) (uint32, error) {
	params := make([]encoding.ValType, 0, len(fn.Params)+1)
	params = append(params, encoding.Anyref()) // envParamLen == 1: the closure context
	for _, p := range fn.Params {
		vt, err := g.ValTypeOf(p)
		if err != nil {
			return 0, err
		}
		params = append(params, vt)
	}
	var results []encoding.ValType
	if fn.Result != nil && fn.Result.Kind() != ir.KindVoid {
		rt, err := g.ValTypeOf(fn.Result)
		if err != nil {
			return 0, err
		}
		results = []encoding.ValType{rt}
	}
	return g.addType(encoding.SubType{Kind: encoding.CompositeFunc, Final: true, Params: params, Results: results}), nil
}

// ClosureTypeOf returns the struct type index of the (context, funcref)
// pair boxing fn (spec §3.3 NewClosureFunction, §4.6 "Closures").
func (g *TypeGen) ClosureTypeOf(fn *ir.Function) (uint32, error) {
	if idx, ok := g.closureIdx[fn]; ok {
		return idx, nil
	}
	funcIdx, err := g.buildFuncType(fn)
	if err != nil {
		return 0, err
	}
	idx := g.addType(encoding.SubType{
		Kind:  encoding.CompositeStruct,
		Final: true,
		Fields: []encoding.FieldType{
			{Type: encoding.Anyref(), Mutable: false},
			{Type: encoding.RefNull(funcIdx), Mutable: false},
		},
	})
	g.closureIdx[fn] = idx
	return idx, nil
}

// ClosureContextTypeOf builds the struct type backing a ClosureContext
// (spec §4.6): one field per free variable, supertyped by the parent
// context's struct when there is one, so a nested closure's environment
// struct can be passed anywhere its parent's is expected.
func (g *TypeGen) ClosureContextTypeOf(cc *ir.ClosureContext) (uint32, error) {
	fields := make([]encoding.FieldType, len(cc.FreeVars))
	for i, fv := range cc.FreeVars {
		vt, err := g.ValTypeOf(fv.Type)
		if err != nil {
			return 0, err
		}
		fields[i] = encoding.FieldType{Type: vt, Mutable: false}
	}
	var super *uint32
	if cc.Parent != nil {
		superIdx, err := g.ClosureContextTypeOf(cc.Parent)
		if err != nil {
			return 0, err
		}
		super = &superIdx
	}
	return g.addType(encoding.SubType{Kind: encoding.CompositeStruct, Final: false, Supertype: super, Fields: fields}), nil
}
