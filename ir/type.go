// Package ir implements the semantic intermediate representation: the
// value-type taxonomy and object shapes (spec §3.1–§3.2, components C1/C2)
// and the IR value/statement node families (spec §3.3, component C3).
//
// Everything in this package is read-only once built; it is produced by
// ir/build from a source.Node/source.Type graph and consumed by wasmgen.
package ir

import "fmt"

// Kind is the closed set of value-type variants (spec §3.1).
type Kind int

const (
	KindVoid Kind = iota
	KindUndefined
	KindNull
	KindNever
	KindInt
	KindNumber
	KindBoolean
	KindRawString
	KindString
	KindAny
	KindGeneric
	KindNamespace
	KindEmpty
	KindClosureContext
	KindTypeParameter
	KindEnum
	KindUnion
	KindFunction
	KindArray
	KindSet
	KindMap
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindNever:
		return "never"
	case KindInt:
		return "int"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindRawString:
		return "rawstring"
	case KindString:
		return "string"
	case KindAny:
		return "any"
	case KindGeneric:
		return "generic"
	case KindNamespace:
		return "namespace"
	case KindEmpty:
		return "empty"
	case KindClosureContext:
		return "closurecontext"
	case KindTypeParameter:
		return "typeparameter"
	case KindEnum:
		return "enum"
	case KindUnion:
		return "union"
	case KindFunction:
		return "function"
	case KindArray:
		return "array"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// firstUserTypeID is the first typeId allocated to a user-defined type
// (spec §3.1: "user types are allocated from 2000+").
const firstUserTypeID = 2000

// Predefined primitive type IDs (spec §3.1: "primitive types have fixed
// predefined ids in the range [1, 1000)"). These are interned once per
// Registry and shared by every reference to the same primitive kind.
const (
	idVoid int = 1 + iota
	idUndefined
	idNull
	idNever
	idInt
	idNumber
	idBoolean
	idRawString
	idString
	idAny
	idNamespace
	idEmpty
)

// Type is a semantic value type (spec §3.1). Every Type has a stable
// TypeID and a Kind; richer accessors are reached via the Kind-specific
// concrete struct (Object, Array, Union, …) through a type switch, the
// same "tagged struct behind a thin interface" idiom the teacher uses for
// wit.TypeDefKind (see wit/wit.go).
type Type interface {
	Kind() Kind
	TypeID() int
	// GenericOwner is self when the type is unspecialized (spec §3.1).
	GenericOwner() Type
	String() string

	isType()
}

// typeBase is embedded by every concrete Type to provide the common
// TypeID/GenericOwner bookkeeping and to seal the Type interface.
type typeBase struct {
	id     int
	kind   Kind
	owner  Type // generic owner; points back at the type itself when it is not a specialization
}

func (t *typeBase) Kind() Kind         { return t.kind }
func (t *typeBase) TypeID() int        { return t.id }
func (t *typeBase) GenericOwner() Type { return t.owner }
func (t *typeBase) isType()            {}

// --- Primitive and singleton variants ---
//
// These carry no structural data beyond their Kind, so a single instance
// per Registry suffices; structural equality reduces to Kind equality.

type Void struct{ typeBase }
type Undefined struct{ typeBase }
type Null struct{ typeBase }
type Never struct{ typeBase }
type Int struct{ typeBase }
type Number struct{ typeBase }
type Boolean struct{ typeBase }
type RawString struct{ typeBase }
type String struct{ typeBase }
type Any struct{ typeBase }
type Namespace struct {
	typeBase
	Name string
}
type Empty struct{ typeBase }

func (t *Void) String() string      { return "void" }
func (t *Undefined) String() string { return "undefined" }
func (t *Null) String() string      { return "null" }
func (t *Never) String() string     { return "never" }
func (t *Int) String() string       { return "int" }
func (t *Number) String() string    { return "number" }
func (t *Boolean) String() string   { return "boolean" }
func (t *RawString) String() string { return "rawstring" }
func (t *String) String() string    { return "string" }
func (t *Any) String() string       { return "any" }
func (t *Namespace) String() string { return "namespace " + t.Name }
func (t *Empty) String() string     { return "empty" }

// ClosureContext is the struct type backing a closure's captured
// environment (spec §3.1, §4.6): either the parent context (no new
// captures) or a struct of free-variable slots supertyped by the parent.
type ClosureContext struct {
	typeBase
	Parent    *ClosureContext // nil for the outermost (empty) context
	FreeVars  []FreeVar
}

// FreeVar is one captured-variable slot inside a ClosureContext.
type FreeVar struct {
	Name string
	Type Type
}

func (t *ClosureContext) String() string {
	return fmt.Sprintf("ClosureContext(%d free vars)", len(t.FreeVars))
}

// TypeParameter is a first-class generic type parameter (spec §3.1, §9
// "Generics"). Index is its position within its owner's parameter list.
type TypeParameter struct {
	typeBase
	Name        string
	Index       int
	WideType    Type
	DefaultType Type // nil if none
	OwnerKind   TypeParamOwnerKind
}

// TypeParamOwnerKind mirrors source.TypeParamOwner: a TypeParameter may be
// owned by a function, a class, or a closure (spec §3.1).
type TypeParamOwnerKind int

const (
	TypeParamOwnerFunction TypeParamOwnerKind = iota
	TypeParamOwnerClass
	TypeParamOwnerClosure
)

func (t *TypeParameter) String() string {
	return fmt.Sprintf("%s#%d", t.Name, t.Index)
}

// Generic is a reference to an unspecialized generic declaration (a class
// or function before substitution). SpecialTypeArguments is empty on the
// generic declaration itself and populated on each Specialize result.
type Generic struct {
	typeBase
	Name                  string
	TypeParams            []*TypeParameter
	SpecialTypeArguments  []Type
}

func (t *Generic) String() string {
	if len(t.SpecialTypeArguments) == 0 {
		return t.Name
	}
	return fmt.Sprintf("%s%s", t.Name, typeArgsString(t.SpecialTypeArguments))
}

func typeArgsString(args []Type) string {
	s := "<"
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ">"
}

// Enum is a closed set of named integer or string values.
type Enum struct {
	typeBase
	Name    string
	Members []EnumMember
}

// EnumMember is one Enum constant.
type EnumMember struct {
	Name        string
	IntValue    int64
	StringValue string
	IsString    bool
}

func (t *Enum) String() string { return t.Name }

// Union is a sum of member types (spec §3.1). WideType is the smallest
// single type subsuming every member (computed by WideOf, see specialize.go).
type Union struct {
	typeBase
	Members  []Type
	WideType Type
}

func (t *Union) String() string {
	s := ""
	for i, m := range t.Members {
		if i > 0 {
			s += " | "
		}
		s += m.String()
	}
	return s
}

// Function is a function signature: parameter types (in declaration
// order, not including an implicit `this`/environment) and a result type.
// TypeParams is non-empty for a generic function declaration.
type Function struct {
	typeBase
	Params     []Type
	ParamNames []string
	Result     Type
	TypeParams []*TypeParameter
	// IsMethod marks a Function type that is a class method's signature
	// (affects how ir/build resolves `this`).
	IsMethod bool
}

func (t *Function) String() string {
	s := "("
	for i, p := range t.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s + ") => " + t.Result.String()
}

// Array is a homogeneous array type. SpecialTypeArguments mirrors the
// element type for the cache-bypass rule (spec §4.6, Invariant 5): it is
// non-nil exactly when this Array resulted from Specialize rather than
// findOrCreate, which is what forces wasmgen to recompute its WebAssembly
// type on a second lookup.
type Array struct {
	typeBase
	Element              Type
	SpecialTypeArguments []Type
	Meta                 *Descriptor
}

func (t *Array) String() string { return t.Element.String() + "[]" }

// Set is a homogeneous set type.
type Set struct {
	typeBase
	Element Type
	Meta    *Descriptor
}

func (t *Set) String() string { return "Set<" + t.Element.String() + ">" }

// Map is a key/value map type.
type Map struct {
	typeBase
	Key   Type
	Value Type
	Meta  *Descriptor
}

func (t *Map) String() string { return "Map<" + t.Key.String() + ", " + t.Value.String() + ">" }

// Object is a class or interface type (spec §3.2). IsInterface marks an
// interface declaration, which has no thisShape (spec §4.2: "Interfaces
// are modeled exactly as 'no-thisShape' descriptors").
type Object struct {
	typeBase
	Name                 string
	SuperClass           *Object // nil if none
	Interfaces           []*Object
	IsInterface          bool
	Meta                 *Descriptor
	SpecialTypeArguments []Type // non-nil when this is a generic specialization
}

func (t *Object) String() string { return t.Name }

// Equal reports structural equality between a and b (spec §3.1 Invariant
// 1: reflexive, symmetric; spec Invariant: TypeID equality implies
// structural equality, not the reverse).
func Equal(a, b Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *Void, *Undefined, *Null, *Never, *Int, *Number, *Boolean,
		*RawString, *String, *Any, *Empty:
		return true
	case *Namespace:
		return av.Name == b.(*Namespace).Name
	case *ClosureContext:
		bv := b.(*ClosureContext)
		if len(av.FreeVars) != len(bv.FreeVars) {
			return false
		}
		if (av.Parent == nil) != (bv.Parent == nil) {
			return false
		}
		if av.Parent != nil && !Equal(av.Parent, bv.Parent) {
			return false
		}
		for i := range av.FreeVars {
			if av.FreeVars[i].Name != bv.FreeVars[i].Name ||
				!Equal(av.FreeVars[i].Type, bv.FreeVars[i].Type) {
				return false
			}
		}
		return true
	case *TypeParameter:
		bv := b.(*TypeParameter)
		// Nominal on TypeID when both sides have one concretely assigned
		// (spec §4.1 edge cases); otherwise structural on WideType.
		if av.id != 0 && bv.id != 0 {
			return av.id == bv.id
		}
		return Equal(av.WideType, bv.WideType)
	case *Generic:
		bv := b.(*Generic)
		return equalSpecialization(av.Name, av.SpecialTypeArguments, bv.Name, bv.SpecialTypeArguments, a.GenericOwner(), b.GenericOwner())
	case *Enum:
		return av.Name == b.(*Enum).Name
	case *Union:
		bv := b.(*Union)
		if len(av.Members) != len(bv.Members) {
			return false
		}
		for i := range av.Members {
			if !Equal(av.Members[i], bv.Members[i]) {
				return false
			}
		}
		return true
	case *Function:
		bv := b.(*Function)
		if len(av.Params) != len(bv.Params) || !Equal(av.Result, bv.Result) {
			return false
		}
		for i := range av.Params {
			if !Equal(av.Params[i], bv.Params[i]) {
				return false
			}
		}
		return true
	case *Array:
		bv := b.(*Array)
		if !Equal(av.Element, bv.Element) {
			return false
		}
		return equalSpecialArgs(av.SpecialTypeArguments, bv.SpecialTypeArguments)
	case *Set:
		return Equal(av.Element, b.(*Set).Element)
	case *Map:
		bv := b.(*Map)
		return Equal(av.Key, bv.Key) && Equal(av.Value, bv.Value)
	case *Object:
		bv := b.(*Object)
		return equalSpecialization(av.Name, av.SpecialTypeArguments, bv.Name, bv.SpecialTypeArguments, a.GenericOwner(), b.GenericOwner())
	default:
		return false
	}
}

// equalSpecialization implements spec §4.1: "structural equality between
// two specializations requires both genericOwner match and every
// specialTypeArgument be equal."
func equalSpecialization(nameA string, argsA []Type, nameB string, argsB []Type, ownerA, ownerB Type) bool {
	if nameA != nameB {
		return false
	}
	if len(argsA) == 0 && len(argsB) == 0 {
		return true
	}
	if ownerA != ownerB {
		if ownerA == nil || ownerB == nil || ownerA.TypeID() != ownerB.TypeID() {
			return false
		}
	}
	return equalSpecialArgs(argsA, argsB)
}

func equalSpecialArgs(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
