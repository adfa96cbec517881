package build

import (
	"fmt"

	"github.com/wasmlang/tscc/internal/diag"
	"github.com/wasmlang/tscc/internal/source"
	"github.com/wasmlang/tscc/ir"
)

// typeOf interns n's checker-assigned type through the Registry. Almost
// every expression's IR result type is exactly this — the checker has
// already done type inference and generic resolution by the time ir/build
// sees the AST (spec §4.1's findOrCreate/specialize exist for the
// Registry's own bookkeeping, not to re-derive what the checker already
// decided).
func (c *Context) typeOf(n source.Node) (ir.Type, error) {
	return c.Registry.FindOrCreate(n.Type())
}

func (c *Context) buildArgs(nodes []source.Node) ([]ir.Value, error) {
	out := make([]ir.Value, len(nodes))
	for i, n := range nodes {
		v, err := c.BuildExpr(n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// BuildExpr lowers one AST expression node to its IR Value (spec §4.3,
// component C4). Reads dominate: a member/element write is only produced
// from an Assign node's Target, never from CurrentRefKind alone, since the
// IR has no implicit "write mode" for a bare expression.
func (c *Context) BuildExpr(n source.Node) (ir.Value, error) {
	switch n.Kind() {
	case source.KindLiteral:
		return c.buildLiteral(n.(source.Literal))
	case source.KindIdentifier:
		return c.buildIdentifier(n.(source.Identifier))
	case source.KindThis:
		return c.buildThis(n)
	case source.KindSuper:
		return c.buildSuper(n)
	case source.KindBinary:
		return c.buildBinary(n.(source.Binary))
	case source.KindPreUnary:
		return c.buildUnary(n.(source.Unary), false)
	case source.KindPostUnary:
		return c.buildUnary(n.(source.Unary), true)
	case source.KindConditional:
		return c.buildConditional(n.(source.Conditional))
	case source.KindCall:
		return c.buildCall(n.(source.Call))
	case source.KindNew:
		return c.buildNew(n.(source.New))
	case source.KindMember:
		m := n.(source.Member)
		return c.buildMemberAccess(m.Receiver(), m.Name(), m.Span(), ir.OpGet, nil, nil)
	case source.KindIndex:
		return c.buildIndex(n.(source.Index))
	case source.KindCastExpr:
		return c.buildCastExpr(n.(source.CastExpr))
	case source.KindInstanceOf:
		return c.buildInstanceOf(n.(source.InstanceOf))
	case source.KindArrayLiteral:
		return c.buildArrayLiteral(n.(source.ArrayLiteral))
	case source.KindObjectLiteral:
		return c.buildObjectLiteral(n.(source.ObjectLiteral))
	case source.KindFunctionExpr:
		return c.buildClosureLiteral(n.(source.FunctionExpr))
	case source.KindTypeofExpr:
		return c.buildTypeof(n)
	case source.KindToStringExpr:
		return c.buildToString(n)
	case source.KindAssign:
		return c.buildAssign(n.(source.Assign))
	default:
		typ, err := c.typeOf(n)
		if err != nil {
			return nil, err
		}
		c.Warnings.WarnUnimplemented(n.Span(), n.Kind().String())
		return ir.Build(&ir.UnimplementValue{Detail: n.Kind().String()}, typ, nil, n.Span()), nil
	}
}

func (c *Context) buildLiteral(lit source.Literal) (ir.Value, error) {
	typ, err := c.typeOf(lit)
	if err != nil {
		return nil, err
	}
	out := &ir.Literal{
		LiteralKind: lit.LiteralKind(),
		BoolValue:   lit.BoolValue(),
		IntValue:    lit.IntValue(),
		NumberValue: lit.NumberValue(),
		StringValue: lit.StringValue(),
	}
	return ir.Build(out, typ, nil, lit.Span()), nil
}

func (c *Context) buildIdentifier(id source.Identifier) (ir.Value, error) {
	name := id.Name()
	if decl, capture, ok := c.LookupLocal(name); ok {
		return ir.Build(&ir.VarRef{Name: name, Decl: decl, Capture: capture}, decl.Type, shapeOf(decl.Type), id.Span()), nil
	}
	if g, ok := c.LookupGlobal(name); ok {
		switch gv := g.(type) {
		case *ir.VarDeclare:
			return ir.Build(&ir.VarRef{Name: name, Decl: gv}, gv.Type, shapeOf(gv.Type), id.Span()), nil
		case *ir.FunctionDeclare:
			emptyCtx := ir.Build(&ir.NewLiteralObject{}, c.Registry.Primitive(ir.KindEmpty), nil, id.Span())
			return ir.Build(&ir.NewClosureFunction{Function: gv, Context: emptyCtx}, gv.Signature, nil, id.Span()), nil
		}
	}
	return nil, diag.NewUnresolvedIdentifier(id.Span(), name, c.VisibleNames())
}

func (c *Context) buildThis(n source.Node) (ir.Value, error) {
	owner := c.CurrentClass()
	var t ir.Type
	if owner != nil {
		t = owner
	} else {
		t = c.Registry.Primitive(ir.KindAny)
	}
	return ir.Build(&ir.ThisValue{}, t, shapeOf(t), n.Span()), nil
}

func (c *Context) buildSuper(n source.Node) (ir.Value, error) {
	owner := c.CurrentClass()
	var t ir.Type = c.Registry.Primitive(ir.KindAny)
	if owner != nil && owner.SuperClass != nil {
		t = owner.SuperClass
	}
	return ir.Build(&ir.SuperValue{}, t, shapeOf(t), n.Span()), nil
}

func (c *Context) buildBinary(b source.Binary) (ir.Value, error) {
	left, err := c.BuildExpr(b.Left())
	if err != nil {
		return nil, err
	}
	right, err := c.BuildExpr(b.Right())
	if err != nil {
		return nil, err
	}
	typ, err := c.typeOf(b)
	if err != nil {
		return nil, err
	}
	return ir.Build(&ir.BinaryExpr{Op: b.Op(), Left: left, Right: right}, typ, nil, b.Span()), nil
}

func (c *Context) buildUnary(u source.Unary, isPost bool) (ir.Value, error) {
	operand, err := c.BuildExpr(u.Operand())
	if err != nil {
		return nil, err
	}
	typ, err := c.typeOf(u)
	if err != nil {
		return nil, err
	}
	return ir.Build(&ir.UnaryExpr{Op: u.Op(), Operand: operand, IsPost: isPost}, typ, nil, u.Span()), nil
}

func (c *Context) buildConditional(cond source.Conditional) (ir.Value, error) {
	test, err := c.BuildExpr(cond.Test())
	if err != nil {
		return nil, err
	}
	then, err := c.BuildExpr(cond.Consequent())
	if err != nil {
		return nil, err
	}
	alt, err := c.BuildExpr(cond.Alternate())
	if err != nil {
		return nil, err
	}
	typ, err := c.typeOf(cond)
	if err != nil {
		return nil, err
	}
	return ir.Build(&ir.Condition{Test: test, Consequent: then, Alternate: alt}, typ, shapeOf(typ), cond.Span()), nil
}

func (c *Context) buildCall(call source.Call) (ir.Value, error) {
	args, err := c.buildArgs(call.Args())
	if err != nil {
		return nil, err
	}
	typ, err := c.typeOf(call)
	if err != nil {
		return nil, err
	}

	callee := call.Callee()
	if callee.Kind() == source.KindMember {
		m := callee.(source.Member)
		return c.buildMemberAccess(m.Receiver(), m.Name(), call.Span(), ir.OpCall, nil, args)
	}

	if callee.Kind() == source.KindIdentifier {
		id := callee.(source.Identifier)
		if g, ok := c.LookupGlobal(id.Name()); ok {
			if fd, ok := g.(*ir.FunctionDeclare); ok {
				return ir.Build(&ir.FunctionCall{Callee: fd, Args: args}, typ, shapeOf(typ), call.Span()), nil
			}
		}
		if decl, capture, ok := c.LookupLocal(id.Name()); ok {
			closure := ir.Build(&ir.VarRef{Name: id.Name(), Decl: decl, Capture: capture}, decl.Type, shapeOf(decl.Type), id.Span())
			if decl.Type.Kind() == ir.KindAny {
				return ir.Build(&ir.AnyCall{Callee: closure, Args: args}, typ, shapeOf(typ), call.Span()), nil
			}
			return ir.Build(&ir.ClosureCall{Closure: closure, Args: args}, typ, shapeOf(typ), call.Span()), nil
		}
		return nil, diag.NewUnresolvedIdentifier(id.Span(), id.Name(), c.VisibleNames())
	}

	calleeValue, err := c.BuildExpr(callee)
	if err != nil {
		return nil, err
	}
	if calleeValue.Type().Kind() == ir.KindAny {
		return ir.Build(&ir.AnyCall{Callee: calleeValue, Args: args}, typ, shapeOf(typ), call.Span()), nil
	}
	return ir.Build(&ir.ClosureCall{Closure: calleeValue, Args: args}, typ, shapeOf(typ), call.Span()), nil
}

func (c *Context) buildNew(n source.New) (ir.Value, error) {
	g, ok := c.LookupGlobal(n.ClassName())
	if !ok {
		return nil, diag.NewUnresolvedIdentifier(n.Span(), n.ClassName(), c.VisibleNames())
	}
	obj, ok := g.(*ir.Object)
	if !ok {
		return nil, fmt.Errorf("ir/build: %q does not name a class", n.ClassName())
	}

	result := ir.Type(obj)
	if typeArgs := n.TypeArguments(); len(typeArgs) > 0 {
		actual := make([]ir.Type, len(typeArgs))
		for i, ta := range typeArgs {
			at, err := c.Registry.FindOrCreate(ta)
			if err != nil {
				return nil, err
			}
			actual[i] = at
		}
		specialized, err := c.Registry.Specialize(obj, actual)
		if err != nil {
			return nil, diag.NewGenericInstantiationFailed(n.Span(), n.ClassName(), "")
		}
		result = specialized
		if so, ok := specialized.(*ir.Object); ok {
			obj = so
		}
	}

	args, err := c.buildArgs(n.Args())
	if err != nil {
		return nil, err
	}

	classValue := obj
	if obj.IsInterface {
		classValue = nil
	}
	return ir.Build(&ir.NewConstructorObject{ClassValue: classValue, Args: args}, result, shapeOf(result), n.Span()), nil
}

func (c *Context) buildIndex(idx source.Index) (ir.Value, error) {
	recv, err := c.BuildExpr(idx.Receiver())
	if err != nil {
		return nil, err
	}
	index, err := c.BuildExpr(idx.IndexExpr())
	if err != nil {
		return nil, err
	}
	typ, err := c.typeOf(idx)
	if err != nil {
		return nil, err
	}
	return ir.Build(&ir.ElementAccess{Op: ir.OpGet, Receiver: recv, Index: index}, typ, shapeOf(typ), idx.Span()), nil
}

func (c *Context) buildCastExpr(ce source.CastExpr) (ir.Value, error) {
	target, err := c.Registry.FindOrCreate(ce.Target())
	if err != nil {
		return nil, err
	}
	operand, err := c.BuildExpr(ce.Operand())
	if err != nil {
		return nil, err
	}
	return c.CastTo(ce.Span(), target, operand)
}

func (c *Context) buildInstanceOf(io source.InstanceOf) (ir.Value, error) {
	operand, err := c.BuildExpr(io.Operand())
	if err != nil {
		return nil, err
	}
	target, err := c.Registry.FindOrCreate(io.Target())
	if err != nil {
		return nil, err
	}
	return ir.Build(&ir.InstanceOfValue{Operand: operand, Target: target}, c.Registry.Primitive(ir.KindBoolean), nil, io.Span()), nil
}

func (c *Context) buildArrayLiteral(al source.ArrayLiteral) (ir.Value, error) {
	typ, err := c.typeOf(al)
	if err != nil {
		return nil, err
	}
	elements := al.Elements()
	if len(elements) == 0 {
		// Spec §8 boundary #8: an empty `[]` literal in an array context
		// allocates an array of constant length zero.
		return ir.Build(&ir.NewArrayLen{Len: 0}, typ, shapeOf(typ), al.Span()), nil
	}
	values, err := c.buildArgs(elements)
	if err != nil {
		return nil, err
	}
	return ir.Build(&ir.NewLiteralArray{Elements: values}, typ, shapeOf(typ), al.Span()), nil
}

func (c *Context) buildObjectLiteral(ol source.ObjectLiteral) (ir.Value, error) {
	typ, err := c.typeOf(ol)
	if err != nil {
		return nil, err
	}
	values, err := c.buildArgs(ol.PropertyValues())
	if err != nil {
		return nil, err
	}
	return ir.Build(&ir.NewLiteralObject{Names: ol.PropertyNames(), Values: values}, typ, shapeOf(typ), ol.Span()), nil
}

func (c *Context) buildClosureLiteral(fe source.FunctionExpr) (ir.Value, error) {
	typ, err := c.typeOf(fe)
	if err != nil {
		return nil, err
	}
	fd, err := c.buildNestedFunction(fe)
	if err != nil {
		return nil, err
	}

	freeNames := fe.FreeVariables()
	captured := make([]ir.Value, len(freeNames))
	for i, name := range freeNames {
		decl, capture, ok := c.LookupLocal(name)
		if !ok {
			return nil, diag.NewUnresolvedIdentifier(fe.Span(), name, c.VisibleNames())
		}
		captured[i] = ir.Build(&ir.VarRef{Name: name, Decl: decl, Capture: capture}, decl.Type, shapeOf(decl.Type), fe.Span())
	}
	ctxValue := ir.Build(&ir.NewLiteralObject{Names: freeNames, Values: captured}, c.Registry.Primitive(ir.KindEmpty), nil, fe.Span())
	return ir.Build(&ir.NewClosureFunction{Function: fd, Context: ctxValue}, typ, nil, fe.Span()), nil
}

func (c *Context) buildTypeof(n source.Node) (ir.Value, error) {
	kids := n.Children()
	if len(kids) == 0 {
		return nil, fmt.Errorf("ir/build: typeof node has no operand")
	}
	operand, err := c.BuildExpr(kids[0])
	if err != nil {
		return nil, err
	}
	return ir.Build(&ir.TypeofValue{Operand: operand}, c.Registry.Primitive(ir.KindString), nil, n.Span()), nil
}

func (c *Context) buildToString(n source.Node) (ir.Value, error) {
	kids := n.Children()
	if len(kids) == 0 {
		return nil, fmt.Errorf("ir/build: toString node has no operand")
	}
	operand, err := c.BuildExpr(kids[0])
	if err != nil {
		return nil, err
	}
	return ir.Build(&ir.ToStringValue{Operand: operand}, c.Registry.Primitive(ir.KindString), nil, n.Span()), nil
}

func (c *Context) buildAssign(a source.Assign) (ir.Value, error) {
	target := a.Target()
	rhs, err := c.BuildExpr(a.Value())
	if err != nil {
		return nil, err
	}

	switch target.Kind() {
	case source.KindIdentifier:
		id := target.(source.Identifier)
		decl, _, ok := c.LookupLocal(id.Name())
		if !ok {
			if g, gok := c.LookupGlobal(id.Name()); gok {
				decl, ok = g.(*ir.VarDeclare)
			}
		}
		if !ok {
			return nil, diag.NewUnresolvedIdentifier(id.Span(), id.Name(), c.VisibleNames())
		}
		casted, err := c.CastTo(a.Span(), decl.Type, rhs)
		if err != nil {
			return nil, err
		}
		return ir.Build(&ir.LocalSet{Decl: decl, Value: casted}, decl.Type, shapeOf(decl.Type), a.Span()), nil

	case source.KindMember:
		m := target.(source.Member)
		return c.buildMemberAccess(m.Receiver(), m.Name(), a.Span(), ir.OpSet, rhs, nil)

	case source.KindIndex:
		idx := target.(source.Index)
		recv, err := c.BuildExpr(idx.Receiver())
		if err != nil {
			return nil, err
		}
		index, err := c.BuildExpr(idx.IndexExpr())
		if err != nil {
			return nil, err
		}
		return ir.Build(&ir.ElementAccess{Op: ir.OpSet, Receiver: recv, Index: index, SetValue: rhs}, rhs.Type(), nil, a.Span()), nil

	default:
		return nil, fmt.Errorf("ir/build: unsupported assignment target kind %s", target.Kind())
	}
}
