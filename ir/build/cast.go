package build

import (
	"github.com/wasmlang/tscc/internal/diag"
	"github.com/wasmlang/tscc/internal/source"
	"github.com/wasmlang/tscc/ir"
)

// CastTo implements the cast algebra (spec §4.4): a total function over
// (target_kind × value_kind). It never panics on a legal (target, value)
// pair; illegal combinations return a *diag.Error of kind TypeMismatch.
func (c *Context) CastTo(span source.Span, target ir.Type, v ir.Value) (ir.Value, error) {
	vt := v.Type()

	// Identity: spec §4.4 "if target == value.type (structural equality) → unchanged."
	if ir.Equal(target, vt) {
		return v, nil
	}

	if u, ok := vt.(*ir.Union); ok {
		return c.castFromUnion(span, target, v, u)
	}

	if target.Kind() == ir.KindAny {
		return c.castToAny(span, target, v)
	}
	if vt.Kind() == ir.KindAny {
		return c.castFromAny(span, target, v)
	}

	if to, ok := target.(*ir.Object); ok {
		if from, ok := vt.(*ir.Object); ok {
			return c.castObjectToObject(span, to, from, v)
		}
	}

	if isPrimitiveKind(target.Kind()) && isPrimitiveKind(vt.Kind()) {
		return c.castPrimitive(span, target, v)
	}

	if ta, ok := target.(*ir.Array); ok {
		if fa, ok := vt.(*ir.Array); ok {
			return c.castArrayToArray(span, ta, fa, v)
		}
	}

	if (vt.Kind() == ir.KindNull || vt.Kind() == ir.KindUndefined) &&
		(target.Kind() == ir.KindObject || target.Kind() == ir.KindFunction) {
		return ir.Build(&ir.Cast{Op: ir.CastNullOrUndefinedToRef, Operand: v, Target: target}, target, shapeOf(target), span), nil
	}

	return nil, diag.NewTypeMismatch(span, vt.String(), target.String())
}

// castFromUnion implements "Union → X: emit a UnionCast variant tagged by
// target kind (ToAny | ToValue | ToObject)."
func (c *Context) castFromUnion(span source.Span, target ir.Type, v ir.Value, u *ir.Union) (ir.Value, error) {
	op := ir.CastUnionToValue
	switch {
	case target.Kind() == ir.KindAny:
		op = ir.CastUnionToAny
	case target.Kind() == ir.KindObject:
		op = ir.CastUnionToObject
	}
	return ir.Build(&ir.Cast{Op: op, Operand: v, Target: target}, target, shapeOf(target), span), nil
}

// castToAny implements "X → Any: ObjectCastAny if X is object-shaped,
// else ValueCastAny."
func (c *Context) castToAny(span source.Span, target ir.Type, v ir.Value) (ir.Value, error) {
	op := ir.CastValueCastAny
	if v.Type().Kind() == ir.KindObject {
		op = ir.CastObjectCastAny
	}
	return ir.Build(&ir.Cast{Op: op, Operand: v, Target: target}, target, nil, span), nil
}

// castFromAny implements "Any → X: AnyCastValue, AnyCastObject, or
// AnyCastInterface per target."
func (c *Context) castFromAny(span source.Span, target ir.Type, v ir.Value) (ir.Value, error) {
	switch target.Kind() {
	case ir.KindObject:
		obj := target.(*ir.Object)
		op := ir.CastAnyCastObject
		if obj.IsInterface {
			op = ir.CastAnyCastInterface
		}
		return ir.Build(&ir.Cast{Op: op, Operand: v, Target: target}, target, shapeOf(target), span), nil
	default:
		return ir.Build(&ir.Cast{Op: ir.CastAnyCastValue, Operand: v, Target: target}, target, nil, span), nil
	}
}

// castObjectToObject implements: "if meta identical or compatible → emit
// ObjectCastObject carrying the new shape. If target has strictly more
// members than source and the extras are Undefined-admitting unions,
// synthesize Undefined initializers for the missing fields (widening
// compaction)."
func (c *Context) castObjectToObject(span source.Span, target, from *ir.Object, v ir.Value) (ir.Value, error) {
	if !objectCompatible(target, from) {
		return nil, diag.NewTypeMismatch(span, from.String(), target.String())
	}
	cast := &ir.Cast{Op: ir.CastObjectCastObject, Operand: v, Target: target}
	if target.Meta != nil {
		cast.NewShape = target.Meta.OriginShape
	}
	if target.Meta != nil && from.Meta != nil && len(target.Meta.Members) > len(from.Meta.Members) {
		fromNames := make(map[string]bool, len(from.Meta.Members))
		for _, m := range from.Meta.Members {
			fromNames[m.Name] = true
		}
		for _, m := range target.Meta.Members {
			if fromNames[m.Name] {
				continue
			}
			if !admitsUndefined(m.Type) {
				return nil, diag.NewTypeMismatch(span, from.String(), target.String())
			}
			cast.SynthesizedFields = append(cast.SynthesizedFields, m.Name)
		}
	}
	return ir.Build(cast, target, shapeOf(target), span), nil
}

// objectCompatible reports whether from may be cast to target: identical
// descriptor, or from is a (possibly indirect) subtype of target, or
// target is an interface from implements.
func objectCompatible(target, from *ir.Object) bool {
	if target == from {
		return true
	}
	if target.Meta == from.Meta && target.Meta != nil {
		return true
	}
	for s := from; s != nil; s = s.SuperClass {
		if s == target {
			return true
		}
	}
	for _, i := range from.Interfaces {
		if i == target || objectCompatible(target, i) {
			return true
		}
	}
	// Widening compaction (spec §4.4): target may still be compatible if
	// every member from declares is also declared, compatibly, on target.
	if target.Meta == nil || from.Meta == nil {
		return false
	}
	for _, fm := range from.Meta.Members {
		found := false
		for _, tm := range target.Meta.Members {
			if tm.Name == fm.Name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func admitsUndefined(t ir.Type) bool {
	u, ok := t.(*ir.Union)
	if !ok {
		return t.Kind() == ir.KindUndefined
	}
	for _, m := range u.Members {
		if m.Kind() == ir.KindUndefined {
			return true
		}
	}
	return false
}

// castPrimitive implements: "Primitive ↔ Primitive (among Int, Number,
// Boolean, String, RawString, Null, Undefined): allowed in both
// directions as ValueCastValue; stringification uses ValueToString or
// ObjectToString."
func (c *Context) castPrimitive(span source.Span, target ir.Type, v ir.Value) (ir.Value, error) {
	if target.Kind() == ir.KindString || target.Kind() == ir.KindRawString {
		if v.Type().Kind() == ir.KindObject {
			return ir.Build(&ir.ToStringValue{Operand: v}, target, nil, span), nil
		}
		return ir.Build(&ir.Cast{Op: ir.CastValueToString, Operand: v, Target: target}, target, nil, span), nil
	}
	return ir.Build(&ir.Cast{Op: ir.CastValueCastValue, Operand: v, Target: target}, target, nil, span), nil
}

// castArrayToArray implements: "Array<T> ↔ Array<U>: allowed without
// re-cast iff T == U, or both elements are Any, or both are object types,
// or both are string-ish, or both are primitive-numeric-ish; otherwise
// error."
func (c *Context) castArrayToArray(span source.Span, target, from *ir.Array, v ir.Value) (ir.Value, error) {
	te, fe := target.Element, from.Element
	switch {
	case ir.Equal(te, fe),
		te.Kind() == ir.KindAny && fe.Kind() == ir.KindAny,
		te.Kind() == ir.KindObject && fe.Kind() == ir.KindObject,
		isStringish(te) && isStringish(fe),
		isNumericish(te) && isNumericish(fe):
		return v, nil
	default:
		return nil, diag.NewTypeMismatch(span, from.String(), target.String())
	}
}

func isStringish(t ir.Type) bool {
	return t.Kind() == ir.KindString || t.Kind() == ir.KindRawString
}

func isNumericish(t ir.Type) bool {
	return t.Kind() == ir.KindInt || t.Kind() == ir.KindNumber || t.Kind() == ir.KindBoolean
}

func isPrimitiveKind(k ir.Kind) bool {
	switch k {
	case ir.KindInt, ir.KindNumber, ir.KindBoolean, ir.KindString, ir.KindRawString, ir.KindNull, ir.KindUndefined:
		return true
	default:
		return false
	}
}

// shapeOf returns the descriptor shape a value of type t exposes for
// subsequent member resolution (spec §4.3), or nil for non-object-shaped
// types.
func shapeOf(t ir.Type) *ir.Shape {
	switch tv := t.(type) {
	case *ir.Object:
		if tv.Meta != nil {
			return tv.Meta.ThisShape
		}
	case *ir.Array:
		if tv.Meta != nil {
			return tv.Meta.ThisShape
		}
	case *ir.Set:
		if tv.Meta != nil {
			return tv.Meta.ThisShape
		}
	case *ir.Map:
		if tv.Meta != nil {
			return tv.Meta.ThisShape
		}
	}
	return nil
}

// Idempotence (spec §8 Invariant 6, castTo(t, castTo(t, v)) == castTo(t, v))
// holds here: every branch above except castArrayToArray sets the result
// value's Type to exactly target, so the identity check at the top of
// CastTo fires on a second call; castArrayToArray returns v itself, and a
// second call on it returns v again.
