package ir

import (
	"fmt"

	"github.com/wasmlang/tscc/internal/source"
)

// Registry is the per-module type-interning table (spec §3.1 Lifecycle,
// component C1). It is created at the start of one compile() call,
// populated by findOrCreate/specialize as the builder walks the AST, and
// discarded once code generation finishes (spec §5).
//
// Registry also owns shape construction (component C2, spec §4.2): every
// Object/Array/Map/Set Type it creates gets its Descriptor finalized
// (both canonical shapes computed) before findOrCreate returns it, so
// downstream code never observes a half-built shape.
type Registry struct {
	// cache interns Type by the upstream AST type that produced it. The
	// upstream checker is assumed to hand out one source.Type value per
	// distinct type annotation/inferred type, so pointer/interface
	// identity is a valid cache key (mirrors wit/resolve.go's
	// intern-by-AST-key pattern).
	cache map[source.Type]Type

	nextUserID int

	// singletons caches the one Type instance per primitive Kind.
	singletons map[Kind]Type

	// pending marks AST types currently being resolved, so that a cyclic
	// reference (a field whose type is its own enclosing class) finds
	// the stub already inserted into cache instead of recursing forever
	// (spec §4.1 edge cases; spec §9 "Cyclic type graphs").
	pending map[source.Type]bool
}

// NewRegistry creates an empty Registry with its primitive singletons
// installed.
func NewRegistry() *Registry {
	r := &Registry{
		cache:      make(map[source.Type]Type),
		nextUserID: firstUserTypeID,
		singletons: make(map[Kind]Type),
		pending:    make(map[source.Type]bool),
	}
	r.singletons[KindVoid] = &Void{typeBase{id: idVoid, kind: KindVoid}}
	r.singletons[KindUndefined] = &Undefined{typeBase{id: idUndefined, kind: KindUndefined}}
	r.singletons[KindNull] = &Null{typeBase{id: idNull, kind: KindNull}}
	r.singletons[KindNever] = &Never{typeBase{id: idNever, kind: KindNever}}
	r.singletons[KindInt] = &Int{typeBase{id: idInt, kind: KindInt}}
	r.singletons[KindNumber] = &Number{typeBase{id: idNumber, kind: KindNumber}}
	r.singletons[KindBoolean] = &Boolean{typeBase{id: idBoolean, kind: KindBoolean}}
	r.singletons[KindRawString] = &RawString{typeBase{id: idRawString, kind: KindRawString}}
	r.singletons[KindString] = &String{typeBase{id: idString, kind: KindString}}
	r.singletons[KindAny] = &Any{typeBase{id: idAny, kind: KindAny}}
	r.singletons[KindEmpty] = &Empty{typeBase{id: idEmpty, kind: KindEmpty}}
	for k, t := range r.singletons {
		setOwnerSelf(t)
		_ = k
	}
	return r
}

func setOwnerSelf(t Type) {
	switch v := t.(type) {
	case *Void:
		v.owner = v
	case *Undefined:
		v.owner = v
	case *Null:
		v.owner = v
	case *Never:
		v.owner = v
	case *Int:
		v.owner = v
	case *Number:
		v.owner = v
	case *Boolean:
		v.owner = v
	case *RawString:
		v.owner = v
	case *String:
		v.owner = v
	case *Any:
		v.owner = v
	case *Empty:
		v.owner = v
	case *Namespace:
		v.owner = v
	case *ClosureContext:
		v.owner = v
	case *TypeParameter:
		v.owner = v
	case *Generic:
		v.owner = v
	case *Enum:
		v.owner = v
	case *Union:
		v.owner = v
	case *Function:
		v.owner = v
	case *Array:
		v.owner = v
	case *Set:
		v.owner = v
	case *Map:
		v.owner = v
	case *Object:
		v.owner = v
	}
}

// Primitive returns the Registry's singleton instance for a primitive kind
// (Void, Undefined, Null, Never, Int, Number, Boolean, RawString, String,
// Any, or Empty). It is the only way ir/build can reach a primitive Type
// without an upstream source.Type to feed FindOrCreate — needed to
// synthesize compiler-introduced literals like the zero-length marker for
// an empty array literal (spec §8 boundary #8).
func (r *Registry) Primitive(k Kind) Type {
	return r.singletons[k]
}

func (r *Registry) allocID() int {
	id := r.nextUserID
	r.nextUserID++
	return id
}

// FindOrCreate is C1's idempotent, interned type constructor (spec §4.1).
// Calling it twice with the same AST type returns the same Type instance.
func (r *Registry) FindOrCreate(t source.Type) (Type, error) {
	if t == nil {
		return r.singletons[KindVoid], nil
	}
	if cached, ok := r.cache[t]; ok {
		return cached, nil
	}
	if r.pending[t] {
		// A cycle closed on itself before the stub was installed; this
		// can only happen if a caller recurses into FindOrCreate(t)
		// again before the first call finishes building t's members,
		// which the Object/Array/Map/Set builders below avoid by
		// inserting the stub first. Treat it as "no type yet" so the
		// caller can patch the reference once the stub exists.
		return nil, fmt.Errorf("ir: cyclic type %q resolved before its stub was installed", t.Name())
	}

	switch t.Kind() {
	case source.TypeVoid:
		return r.singletons[KindVoid], nil
	case source.TypeUndefined:
		return r.singletons[KindUndefined], nil
	case source.TypeNull:
		return r.singletons[KindNull], nil
	case source.TypeNever:
		return r.singletons[KindNever], nil
	case source.TypeInt:
		return r.singletons[KindInt], nil
	case source.TypeNumber:
		return r.singletons[KindNumber], nil
	case source.TypeBoolean:
		return r.singletons[KindBoolean], nil
	case source.TypeRawString:
		return r.singletons[KindRawString], nil
	case source.TypeString:
		return r.singletons[KindString], nil
	case source.TypeAny:
		return r.singletons[KindAny], nil
	case source.TypeEmpty:
		return r.singletons[KindEmpty], nil
	case source.TypeNamespace:
		out := &Namespace{typeBase: typeBase{id: r.allocID(), kind: KindNamespace}, Name: t.Name()}
		out.owner = out
		r.cache[t] = out
		return out, nil
	case source.TypeEnum:
		return r.buildEnum(t)
	case source.TypeParameter:
		return r.buildTypeParameter(t)
	case source.TypeGeneric:
		return r.buildGeneric(t)
	case source.TypeUnion:
		return r.buildUnion(t)
	case source.TypeFunction:
		return r.buildFunction(t)
	case source.TypeArray:
		return r.buildArray(t)
	case source.TypeSet:
		return r.buildSet(t)
	case source.TypeMap:
		return r.buildMap(t)
	case source.TypeObject:
		return r.buildObject(t)
	case source.TypeClosureContext:
		return r.buildClosureContext(t)
	default:
		return nil, fmt.Errorf("ir: unknown source type kind %v", t.Kind())
	}
}

func (r *Registry) buildEnum(t source.Type) (Type, error) {
	out := &Enum{typeBase: typeBase{id: r.allocID(), kind: KindEnum}, Name: t.Name()}
	out.owner = out
	r.cache[t] = out
	return out, nil
}

func (r *Registry) buildTypeParameter(t source.Type) (Type, error) {
	wide, err := r.FindOrCreate(t.ElementType())
	if err != nil {
		return nil, err
	}
	var def Type
	if dt := t.TypeParamDefault(); dt != nil {
		def, err = r.FindOrCreate(dt)
		if err != nil {
			return nil, err
		}
	}
	out := &TypeParameter{
		typeBase:    typeBase{id: r.allocID(), kind: KindTypeParameter},
		Name:        t.Name(),
		Index:       t.TypeParamIndex(),
		WideType:    wide,
		DefaultType: def,
		OwnerKind:   TypeParamOwnerKind(t.TypeParamOwnerKind()),
	}
	out.owner = out
	r.cache[t] = out
	return out, nil
}

func (r *Registry) buildGeneric(t source.Type) (Type, error) {
	out := &Generic{typeBase: typeBase{id: r.allocID(), kind: KindGeneric}, Name: t.Name()}
	out.owner = out
	r.cache[t] = out
	r.pending[t] = true
	defer delete(r.pending, t)
	for i, arg := range t.TypeArguments() {
		at, err := r.FindOrCreate(arg)
		if err != nil {
			return nil, err
		}
		if tp, ok := at.(*TypeParameter); ok {
			tp.Index = i
			out.TypeParams = append(out.TypeParams, tp)
		}
	}
	return out, nil
}

func (r *Registry) buildUnion(t source.Type) (Type, error) {
	out := &Union{typeBase: typeBase{id: r.allocID(), kind: KindUnion}}
	out.owner = out
	r.cache[t] = out
	for _, m := range t.UnionMembers() {
		mt, err := r.FindOrCreate(m)
		if err != nil {
			return nil, err
		}
		out.Members = append(out.Members, mt)
	}
	out.WideType = WideOf(out)
	return out, nil
}

func (r *Registry) buildFunction(t source.Type) (Type, error) {
	out := &Function{typeBase: typeBase{id: r.allocID(), kind: KindFunction}}
	out.owner = out
	r.cache[t] = out
	for _, p := range t.Params() {
		pt, err := r.FindOrCreate(p)
		if err != nil {
			return nil, err
		}
		out.Params = append(out.Params, pt)
	}
	res, err := r.FindOrCreate(t.Result())
	if err != nil {
		return nil, err
	}
	out.Result = res
	return out, nil
}

func (r *Registry) buildArray(t source.Type) (Type, error) {
	out := &Array{typeBase: typeBase{id: r.allocID(), kind: KindArray}}
	out.owner = out
	r.cache[t] = out
	elem, err := r.FindOrCreate(t.ElementType())
	if err != nil {
		return nil, err
	}
	out.Element = elem
	out.Meta = newArrayDescriptor(elem)
	return out, nil
}

func (r *Registry) buildSet(t source.Type) (Type, error) {
	out := &Set{typeBase: typeBase{id: r.allocID(), kind: KindSet}}
	out.owner = out
	r.cache[t] = out
	elem, err := r.FindOrCreate(t.ElementType())
	if err != nil {
		return nil, err
	}
	out.Element = elem
	out.Meta = newSetDescriptor(elem)
	return out, nil
}

func (r *Registry) buildMap(t source.Type) (Type, error) {
	out := &Map{typeBase: typeBase{id: r.allocID(), kind: KindMap}}
	out.owner = out
	r.cache[t] = out
	key, err := r.FindOrCreate(t.KeyType())
	if err != nil {
		return nil, err
	}
	val, err := r.FindOrCreate(t.ElementType())
	if err != nil {
		return nil, err
	}
	out.Key, out.Value = key, val
	out.Meta = newMapDescriptor(key, val)
	return out, nil
}

func (r *Registry) buildClosureContext(t source.Type) (Type, error) {
	out := &ClosureContext{typeBase: typeBase{id: r.allocID(), kind: KindClosureContext}}
	out.owner = out
	r.cache[t] = out
	if parent := t.ElementType(); parent != nil {
		pt, err := r.FindOrCreate(parent)
		if err != nil {
			return nil, err
		}
		if p, ok := pt.(*ClosureContext); ok {
			out.Parent = p
		}
	}
	for _, m := range t.Members() {
		mt, err := r.FindOrCreate(m.Type)
		if err != nil {
			return nil, err
		}
		out.FreeVars = append(out.FreeVars, FreeVar{Name: m.Name, Type: mt})
	}
	return out, nil
}

// buildObject implements the cyclic-type resolution from spec §4.1/§9:
// the stub Object is inserted into the cache before any member is
// resolved, so a field of the class's own type recovers the same pointer
// instead of recursing.
func (r *Registry) buildObject(t source.Type) (Type, error) {
	out := &Object{
		typeBase:    typeBase{id: r.allocID(), kind: KindObject},
		Name:        t.Name(),
		IsInterface: t.IsInterface(),
	}
	out.owner = out
	r.cache[t] = out

	if super := t.SuperClass(); super != nil {
		st, err := r.FindOrCreate(super)
		if err != nil {
			return nil, err
		}
		so, ok := st.(*Object)
		if !ok {
			return nil, fmt.Errorf("ir: superclass of %q is not an Object", t.Name())
		}
		out.SuperClass = so
	}
	for _, i := range t.Interfaces() {
		it, err := r.FindOrCreate(i)
		if err != nil {
			return nil, err
		}
		io, ok := it.(*Object)
		if !ok {
			return nil, fmt.Errorf("ir: interface of %q is not an Object", t.Name())
		}
		out.Interfaces = append(out.Interfaces, io)
	}

	members, err := r.resolveMembers(t.Members())
	if err != nil {
		return nil, err
	}
	out.Meta = newObjectDescriptor(out, members)
	return out, nil
}

func (r *Registry) resolveMembers(tms []source.TypeMember) ([]Member, error) {
	members := make([]Member, 0, len(tms))
	for i, tm := range tms {
		mt, err := r.FindOrCreate(tm.Type)
		if err != nil {
			return nil, err
		}
		members = append(members, Member{
			Name:      tm.Name,
			Index:     i,
			Kind:      MemberKind(tm.Kind),
			Type:      mt,
			Static:    tm.Static,
			ReadOnly:  tm.ReadOnly,
			Override:  tm.Override,
			HasGetter: tm.HasGetter,
			HasSetter: tm.HasSetter,
		})
	}
	return members, nil
}
