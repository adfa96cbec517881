// Package fixture provides a minimal, hand-built implementation of the
// internal/source contracts, standing in for the real upstream
// parser/type-checker so package ir and ir/build can be tested in
// isolation (mirrors how the teacher's wit package is tested against
// pre-resolved JSON fixtures, wit/testdata_test.go, rather than a live
// WIT front end).
package fixture

import "github.com/wasmlang/tscc/internal/source"

// Type is a hand-built source.Type. Each *Type value is a distinct
// identity, which is what package ir's Registry keys its intern cache on.
type Type struct {
	kind       source.TypeKind
	name       string
	typeArgs   []source.Type
	element    source.Type
	key        source.Type
	members    []source.TypeMember
	params     []source.Type
	result     source.Type
	unionMembs []source.Type
	superClass source.Type
	interfaces []source.Type
	isIface    bool

	tpIndex   int
	tpOwner   source.TypeParamOwner
	tpDefault source.Type
}

func (t *Type) Kind() source.TypeKind                     { return t.kind }
func (t *Type) Name() string                               { return t.name }
func (t *Type) TypeArguments() []source.Type               { return t.typeArgs }
func (t *Type) ElementType() source.Type                    { return t.element }
func (t *Type) KeyType() source.Type                        { return t.key }
func (t *Type) Members() []source.TypeMember                { return t.members }
func (t *Type) Params() []source.Type                       { return t.params }
func (t *Type) Result() source.Type                         { return t.result }
func (t *Type) UnionMembers() []source.Type                 { return t.unionMembs }
func (t *Type) SuperClass() source.Type                     { return t.superClass }
func (t *Type) Interfaces() []source.Type                   { return t.interfaces }
func (t *Type) IsInterface() bool                           { return t.isIface }
func (t *Type) TypeParamIndex() int                          { return t.tpIndex }
func (t *Type) TypeParamOwnerKind() source.TypeParamOwner    { return t.tpOwner }
func (t *Type) TypeParamDefault() source.Type                { return t.tpDefault }

// Primitive builders.
func Void() *Type      { return &Type{kind: source.TypeVoid} }
func Undefined() *Type { return &Type{kind: source.TypeUndefined} }
func Null() *Type      { return &Type{kind: source.TypeNull} }
func Never() *Type     { return &Type{kind: source.TypeNever} }
func Int() *Type       { return &Type{kind: source.TypeInt} }
func Number() *Type    { return &Type{kind: source.TypeNumber} }
func Bool() *Type      { return &Type{kind: source.TypeBoolean} }
func RawString() *Type { return &Type{kind: source.TypeRawString} }
func Str() *Type       { return &Type{kind: source.TypeString} }
func Any() *Type       { return &Type{kind: source.TypeAny} }
func Empty() *Type     { return &Type{kind: source.TypeEmpty} }

// Namespace builds a namespace type.
func Namespace(name string) *Type {
	return &Type{kind: source.TypeNamespace, name: name}
}

// Array builds an array type over element.
func Array(element source.Type) *Type {
	return &Type{kind: source.TypeArray, element: element}
}

// SetOf builds a Set type over element.
func SetOf(element source.Type) *Type {
	return &Type{kind: source.TypeSet, element: element}
}

// MapOf builds a Map type from key to value.
func MapOf(key, value source.Type) *Type {
	return &Type{kind: source.TypeMap, key: key, element: value}
}

// Union builds a union of members.
func Union(members ...source.Type) *Type {
	return &Type{kind: source.TypeUnion, unionMembs: members}
}

// Func builds a function signature type.
func Func(result source.Type, params ...source.Type) *Type {
	return &Type{kind: source.TypeFunction, params: params, result: result}
}

// Enum builds an enum type.
func Enum(name string) *Type {
	return &Type{kind: source.TypeEnum, name: name}
}

// TypeParam builds a TypeParameter type.
func TypeParam(name string, index int, owner source.TypeParamOwner, wide source.Type) *Type {
	return &Type{kind: source.TypeParameter, name: name, tpIndex: index, tpOwner: owner, element: wide}
}

// Generic builds an unspecialized generic declaration type.
func Generic(name string, typeArgs ...source.Type) *Type {
	return &Type{kind: source.TypeGeneric, name: name, typeArgs: typeArgs}
}

// Object builds a class/interface declaration type. Use SetMembers after
// construction to close a cycle (a field referencing the class itself).
func Object(name string, isInterface bool, superClass source.Type, interfaces []source.Type, members []source.TypeMember) *Type {
	return &Type{
		kind:       source.TypeObject,
		name:       name,
		isIface:    isInterface,
		superClass: superClass,
		interfaces: interfaces,
		members:    members,
	}
}

// ClosureContext builds a closure-environment type; parent may be nil.
func ClosureContext(parent source.Type, freeVars []source.TypeMember) *Type {
	return &Type{kind: source.TypeClosureContext, element: parent, members: freeVars}
}

// SetMembers mutates t's member list in place, used to close self-
// referencing cycles after the *Type identity already exists.
func (t *Type) SetMembers(members []source.TypeMember) {
	t.members = members
}
