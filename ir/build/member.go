package build

import (
	"github.com/wasmlang/tscc/internal/diag"
	"github.com/wasmlang/tscc/internal/source"
	"github.com/wasmlang/tscc/ir"
)

// descriptorOf returns the Descriptor backing t's members, or nil for a
// type with no member namespace (primitives, functions, unions, …).
func descriptorOf(t ir.Type) *ir.Descriptor {
	switch tv := t.(type) {
	case *ir.Object:
		return tv.Meta
	case *ir.Array:
		return tv.Meta
	case *ir.Set:
		return tv.Meta
	case *ir.Map:
		return tv.Meta
	default:
		return nil
	}
}

// descriptorMemberNames lists d's member names, for "did you mean" suggestions.
func descriptorMemberNames(d *ir.Descriptor) []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.Members))
	for i, m := range d.Members {
		names[i] = m.Name
	}
	return names
}

// buildMemberAccess implements the member-dispatch resolution algorithm
// (spec §4.3): evaluate the receiver, locate its descriptor member by
// name, and lower to one of Dynamic/Shape/VTable/Offset/Direct access
// depending on what's statically known about the receiver's shape.
func (c *Context) buildMemberAccess(receiver source.Node, name string, span source.Span, op ir.AccessOp, setValue ir.Value, args []ir.Value) (ir.Value, error) {
	// Step 1: evaluate the receiver as a right-value, applying the
	// VarValue-copy guard (spec §4.3 step 1, §9 Open Question 1) so a
	// later reassignment of the same source variable can't retroactively
	// change the dispatch this access already resolved to.
	c.PushRefKind(Right)
	recv, err := c.BuildExpr(receiver)
	c.PopRefKind()
	if err != nil {
		return nil, err
	}
	if ref, ok := recv.(*ir.VarRef); ok && ref.Decl != nil && !ref.Decl.IsConst {
		recv = c.emitTempCopy(recv, span)
	}

	own := recv.Type()
	if u, ok := own.(*ir.Union); ok {
		own = u.WideType
	}

	// Step: an `any`-typed (or otherwise shapeless) receiver routes through
	// the host dynamic-type API (spec §4.3 step 4).
	if own == nil || own.Kind() == ir.KindAny {
		return ir.Build(&ir.DynamicAccess{Op: op, Receiver: recv, Name: name, SetValue: setValue, Args: args}, c.Registry.Primitive(ir.KindAny), nil, span), nil
	}

	descriptor := descriptorOf(own)
	if descriptor == nil {
		return ir.Build(&ir.DynamicAccess{Op: op, Receiver: recv, Name: name, SetValue: setValue, Args: args}, c.Registry.Primitive(ir.KindAny), nil, span), nil
	}

	member, sm, ok := descriptor.MemberByName(name)
	if !ok {
		return nil, diag.NewUnresolvedMember(span, own.String(), name, descriptorMemberNames(descriptor))
	}

	isInterface := false
	if obj, ok := own.(*ir.Object); ok {
		isInterface = obj.IsInterface
	}

	switch sm.Kind {
	case ir.ShapeField:
		return ir.Build(&ir.OffsetAccess{Op: op, Receiver: recv, Offset: sm.Offset, SetValue: setValue, Args: args}, member.Type, shapeOf(member.Type), span), nil

	case ir.ShapeMethod:
		if isInterface {
			return ir.Build(&ir.ShapeAccess{Op: op, Receiver: recv, Name: name, MemberIndex: member.Index, SetValue: setValue, Args: args}, member.Type, shapeOf(member.Type), span), nil
		}
		if sm.HasOffset {
			return ir.Build(&ir.VTableAccess{Op: op, Receiver: recv, Slot: sm.MethodOffset, SetValue: setValue, Args: args}, member.Type, shapeOf(member.Type), span), nil
		}
		if target, ok := c.LookupGlobal(methodKey(own, name)); ok {
			if fd, ok := target.(*ir.FunctionDeclare); ok {
				return ir.Build(&ir.DirectAccess{Op: op, Receiver: recv, Target: fd, SetValue: setValue, Args: args}, member.Type, shapeOf(member.Type), span), nil
			}
		}
		return ir.Build(&ir.DynamicAccess{Op: op, Receiver: recv, Name: name, SetValue: setValue, Args: args}, c.Registry.Primitive(ir.KindAny), nil, span), nil

	case ir.ShapeAccessor:
		if isInterface {
			return ir.Build(&ir.ShapeAccess{Op: op, Receiver: recv, Name: name, MemberIndex: member.Index, SetValue: setValue, Args: args}, member.Type, shapeOf(member.Type), span), nil
		}
		slot, has := accessorSlot(sm, op)
		if has {
			return ir.Build(&ir.VTableAccess{Op: op, Receiver: recv, Slot: slot, SetValue: setValue, Args: args}, member.Type, shapeOf(member.Type), span), nil
		}
		return ir.Build(&ir.DynamicAccess{Op: op, Receiver: recv, Name: name, SetValue: setValue, Args: args}, c.Registry.Primitive(ir.KindAny), nil, span), nil

	default:
		return ir.Build(&ir.DynamicAccess{Op: op, Receiver: recv, Name: name, SetValue: setValue, Args: args}, c.Registry.Primitive(ir.KindAny), nil, span), nil
	}
}

// accessorSlot picks the getter or setter vtable slot of sm depending on op.
func accessorSlot(sm ir.ShapeMember, op ir.AccessOp) (int, bool) {
	switch op {
	case ir.OpSet, ir.OpSetAccessor:
		return sm.SetterOffset, sm.SetterHasOffset
	default:
		return sm.GetterOffset, sm.GetterHasOffset
	}
}

// methodKey is the ctx.globals key a class declaration's method builder
// registers a *ir.FunctionDeclare under (spec §4.7 Calls: "direct if the
// callee is a resolved top-level function" — extended here to resolved
// non-overridable methods).
func methodKey(owner ir.Type, name string) string {
	return owner.String() + "#" + name
}
