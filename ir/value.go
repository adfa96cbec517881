package ir

import "github.com/wasmlang/tscc/internal/source"

// Value is an IR expression node (spec §3.3, component C3). Values form a
// DAG rooted at statements; each carries its result Type and, when the
// expression denotes an object-shaped receiver, the Shape resolved for it.
//
// Concrete Value implementations group several of spec §3.3's enumerated
// variants behind one struct plus an operation enum where the variants
// share identical structure and differ only in which of Get/Set/Call (or
// Getter/Setter) they perform — e.g. DynamicAccess covers DynamicGet,
// DynamicSet, and DynamicCall. This keeps the dispatch-kind family
// together the way ir/build's buildMemberAccess (spec §4.3) produces and
// consumes it, while every family remains its own closed Go type so a
// type switch over Value is exhaustive per family.
type Value interface {
	Type() Type
	Shape() *Shape
	Span() source.Span
	isValue()
}

type valueBase struct {
	typ   Type
	shape *Shape
	span  source.Span
}

func (v *valueBase) Type() Type         { return v.typ }
func (v *valueBase) Shape() *Shape      { return v.shape }
func (v *valueBase) Span() source.Span  { return v.span }
func (v *valueBase) isValue()           {}

// baseSetter is implemented by *valueBase and promoted onto every concrete
// Value; it lets package ir attach the embedded typ/shape/span fields on
// behalf of callers outside the package, which cannot name valueBase in a
// keyed struct literal.
type baseSetter interface {
	setBase(typ Type, shape *Shape, span source.Span)
}

func (v *valueBase) setBase(typ Type, shape *Shape, span source.Span) {
	v.typ, v.shape, v.span = typ, shape, span
}

// Build attaches typ, shape, and span to a freshly constructed Value and
// returns it unchanged otherwise. ir/build uses this to populate a Value's
// result the same way every constructor in this file would if package ir
// built its own values: a struct literal for the operation-specific fields,
// then Build for the common ones.
func Build[V Value](v V, typ Type, shape *Shape, span source.Span) V {
	any(v).(baseSetter).setBase(typ, shape, span)
	return v
}

// AccessOp enumerates which operation an access-family Value performs.
type AccessOp int

const (
	OpGet AccessOp = iota
	OpSet
	OpCall
	OpGetAccessor
	OpSetAccessor
)

// Literal is a constant value (spec §3.3).
type Literal struct {
	valueBase
	LiteralKind source.LiteralKind
	BoolValue   bool
	IntValue    int64
	NumberValue float64
	StringValue string
}

// VarRef references a local/parameter/field binding through Decl, a
// pointer to its declaring node, never by owning it. ir/build leaves
// Index at 0: references are not numbered by scope index, and wasmgen
// resolves them through Decl alone.
type VarRef struct {
	valueBase
	Name    string
	Index   int
	Decl    *VarDeclare
	Capture bool // true if this reference crosses a closure boundary
}

// LocalSet assigns a new value to a declared local, parameter, or captured
// binding (spec §3.3 assignment; the counterpart of VarRef for writes).
type LocalSet struct {
	valueBase
	Decl  *VarDeclare
	Value Value
}

// ThisValue is the `this` receiver expression.
type ThisValue struct{ valueBase }

// SuperValue is the `super` receiver expression.
type SuperValue struct{ valueBase }

// BinaryExpr is a binary operator application.
type BinaryExpr struct {
	valueBase
	Op          source.BinaryOp
	Left, Right Value
}

// UnaryExpr is a prefix or postfix unary operator application.
type UnaryExpr struct {
	valueBase
	Op      source.BinaryOp
	Operand Value
	IsPost  bool
}

// Condition is `test ? consequent : alternate`.
type Condition struct {
	valueBase
	Test, Consequent, Alternate Value
}

// FunctionCall is a direct call of a resolved top-level function (spec
// §4.7: "direct if the callee is a resolved top-level function").
type FunctionCall struct {
	valueBase
	Callee *FunctionDeclare
	Args   []Value
}

// ClosureCall calls through a closure struct: struct-get context and
// funcref, then call_ref (spec §4.7).
type ClosureCall struct {
	valueBase
	Closure Value
	Args    []Value
}

// ConstructorCall invokes a class constructor (distinct from NewConstructorObject,
// which allocates the instance; ConstructorCall is emitted for explicit
// super(...) calls and delegating constructor calls).
type ConstructorCall struct {
	valueBase
	Class *Object
	Args  []Value
}

// CastOp enumerates the cast algebra's result shapes (spec §4.4).
type CastOp int

const (
	CastIdentity CastOp = iota
	CastUnionToAny
	CastUnionToValue
	CastUnionToObject
	CastObjectCastAny
	CastValueCastAny
	CastAnyCastValue
	CastAnyCastObject
	CastAnyCastInterface
	CastObjectCastObject
	CastValueCastValue
	CastValueToString
	CastObjectToString
	CastNullOrUndefinedToRef
)

// Cast is the result of the cast algebra (spec §4.4, castTo). NewShape is
// set for CastObjectCastObject. SynthesizedFields names widening
// compaction fields (spec §4.4: "synthesize Undefined initializers for
// the missing fields") the target adds relative to the source.
type Cast struct {
	valueBase
	Op                 CastOp
	Operand            Value
	Target             Type
	NewShape           *Shape
	SynthesizedFields  []string
}

// InstanceOfValue is an `instanceof` test.
type InstanceOfValue struct {
	valueBase
	Operand Value
	Target  Type
}

// ElementAccess is indexed array/map/set element access (Op selects
// ElementGet vs ElementSet, spec §3.3).
type ElementAccess struct {
	valueBase
	Op       AccessOp
	Receiver Value
	Index    Value
	SetValue Value // non-nil when Op == OpSet
}

// DynamicAccess routes a member access through the host dynamic-type API
// because no static shape is known for the receiver (spec §4.3 step 4;
// DynamicGet/Set/Call). Name is the property/method name; for OpCall,
// Args holds the call arguments.
type DynamicAccess struct {
	valueBase
	Op       AccessOp
	Receiver Value
	Name     string
	SetValue Value
	Args     []Value
}

// ShapeAccess dispatches through an interface-style shape indirection
// (spec §4.3 step 6, "otherwise: emit a ShapeGet/Set/Call").
type ShapeAccess struct {
	valueBase
	Op           AccessOp
	Receiver     Value
	Name         string
	MemberIndex  int
	SetValue     Value
	Args         []Value
}

// VTableAccess dispatches indirectly through the receiver's own vtable
// slot (spec §4.3 step 6, "if shape is thisShape ... emit a
// VTableGet/Set/Call").
type VTableAccess struct {
	valueBase
	Op       AccessOp
	Receiver Value
	Slot     int
	SetValue Value
	Args     []Value
}

// OffsetAccess is a struct-get/struct-set at a fixed slot (spec §4.3 step
// 7: Field → OffsetGet/Set; Accessor with an offset-based side →
// OffsetGetter/Setter; Method with a known offset → OffsetCall).
type OffsetAccess struct {
	valueBase
	Op       AccessOp
	Receiver Value
	Offset   int
	SetValue Value
	Args     []Value
}

// DirectAccess calls/reads/writes a statically-known function value
// directly, without any indirection (spec §4.3 step 7: DirectGetter,
// DirectSetter, DirectCall).
type DirectAccess struct {
	valueBase
	Op       AccessOp
	Receiver Value
	Target   *FunctionDeclare
	SetValue Value
	Args     []Value
}

// NewLiteralObject allocates an object literal `{ ... }`.
type NewLiteralObject struct {
	valueBase
	Names  []string
	Values []Value
}

// NewLiteralArray allocates an array literal `[a, b, c]`.
type NewLiteralArray struct {
	valueBase
	Elements []Value
}

// NewConstructorObject allocates a class instance via `new C(...)` or an
// interface-typed construction site. ClassValue is nil for the unified
// interface path (spec §9 Open Question 3: buildNewClass/buildNewInterface
// converge behind one IR value parameterized by whether a concrete class
// is supplied).
type NewConstructorObject struct {
	valueBase
	ClassValue *Object // nil ⇒ interface-style construction
	Args       []Value
}

// NewArray allocates an array whose length is the runtime value Length.
type NewArray struct {
	valueBase
	Length Value
}

// NewArrayLen allocates an array of the constant length Len. ir/build
// emits it with Len == 0 for an empty `[]` literal; a non-empty literal
// `[a, b]` becomes a NewLiteralArray instead.
type NewArrayLen struct {
	valueBase
	Len int
}

// NewFromClassObject is kept as a distinct spec-named variant for the
// case where NewConstructorObject's unification (Open Question 3) is not
// taken by a caller that wants the pre-unification shape explicitly; it
// is otherwise unused by ir/build, which always emits NewConstructorObject.
type NewFromClassObject struct {
	valueBase
	ClassValue *Object
	Args       []Value
}

// NewClosureFunction boxes a function value into a (context, funcref)
// pair (spec §3.3, §4.6, §9 "Closures"). Context is the captured
// environment value (an empty-struct value for a non-capturing function).
type NewClosureFunction struct {
	valueBase
	Function *FunctionDeclare
	Context  Value
}

// TypeofValue implements the `typeof` operator.
type TypeofValue struct {
	valueBase
	Operand Value
}

// ToStringValue implements implicit/explicit stringification (spec §4.4:
// "stringification uses ValueToString or ObjectToString").
type ToStringValue struct {
	valueBase
	Operand Value
}

// AnyCall invokes a dynamically-typed callee through the host dispatcher
// (spec §4.7 Calls: "through the host dynamic dispatcher for DynamicCall"
// — used specifically when the callee itself, not just a member access,
// has static type Any).
type AnyCall struct {
	valueBase
	Callee Value
	Args   []Value
}

// Nop is a no-op placeholder value (e.g. the result of an expression
// statement whose value is discarded).
type Nop struct{ valueBase }

// UnimplementValue is produced when the builder recognizes an AST shape
// it doesn't yet lower (spec §4.8); wasmgen replaces it with `unreachable`.
type UnimplementValue struct {
	valueBase
	Detail string
}
