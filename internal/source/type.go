package source

// TypeKind enumerates the shapes a checker-produced Type may take. These
// map onto ir.Kind in package ir's findOrCreate, but are a distinct,
// upstream-owned enumeration — the checker may have its own internal
// representation as long as it reports one of these.
type TypeKind int

const (
	TypeVoid TypeKind = iota
	TypeUndefined
	TypeNull
	TypeNever
	TypeInt
	TypeNumber
	TypeBoolean
	TypeRawString
	TypeString
	TypeAny
	TypeGeneric
	TypeNamespace
	TypeEmpty
	TypeClosureContext
	TypeParameter
	TypeEnum
	TypeUnion
	TypeFunction
	TypeArray
	TypeSet
	TypeMap
	TypeObject
)

// Type is the checker's type representation for one AST type annotation
// or inferred expression type. It is deliberately thin: package ir's
// findOrCreate walks it once per distinct AST type and builds the richer
// ir.Type graph (structural equality, specialization, shapes) from it.
type Type interface {
	Kind() TypeKind

	// Name is the declared name, for Object/Enum/Generic/Namespace types;
	// "" for structural types (Union, Function, Array, …).
	Name() string

	// TypeArguments holds generic type arguments for a Generic/Object
	// reference to a generic declaration, or specialization arguments
	// already substituted into an Array/Map/Set element type.
	TypeArguments() []Type

	// ElementType is the element type for Array/Set, the value type for Map
	// (call KeyType for the Map key type), and the wideType for a union.
	ElementType() Type
	KeyType() Type // Map key type only

	// Members lists the fields/methods/accessors/constructor of an
	// Object/Interface type, in declaration order.
	Members() []TypeMember

	// Params/Result describe a Function type's signature.
	Params() []Type
	Result() Type

	// UnionMembers lists the constituent types of a Union type.
	UnionMembers() []Type

	// SuperClass is the direct superclass of an Object type, nil if none.
	SuperClass() Type
	// Interfaces lists the interfaces an Object type implements.
	Interfaces() []Type
	// IsInterface reports whether an Object type is an interface
	// declaration (no thisShape, spec §3.2/§4.2) rather than a class.
	IsInterface() bool

	// TypeParamIndex, TypeParamOwnerKind, TypeParamDefault describe a
	// TypeParameter type (spec §3.1).
	TypeParamIndex() int
	TypeParamOwnerKind() TypeParamOwner
	TypeParamDefault() Type
}

// TypeMember describes one field/method/accessor/constructor entry on an
// Object or Interface Type, mirroring spec §3.2's member record.
type TypeMember struct {
	Name      string
	Kind      MemberKind
	Type      Type
	Static    bool
	ReadOnly  bool
	Override  bool
	HasGetter bool
	HasSetter bool
}

// TypeParamOwner enumerates what introduced a TypeParameter.
type TypeParamOwner int

const (
	TypeParamOwnerFunction TypeParamOwner = iota
	TypeParamOwnerClass
	TypeParamOwnerClosure
)
