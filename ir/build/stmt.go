package build

import (
	"fmt"

	"github.com/wasmlang/tscc/internal/source"
	"github.com/wasmlang/tscc/ir"
)

// BuildStatement lowers one AST statement node to its IR Node (spec §4.5,
// component C5). Every statement that builds an expression drains the
// pending VarValue-copy temps (spec §4.3 step 1) immediately after, so the
// returned Node is never preceded by a dangling reference to an
// undeclared local.
func (c *Context) BuildStatement(n source.Node) (ir.Node, error) {
	switch n.Kind() {
	case source.KindBlock:
		return c.buildBlockStmt(n.(source.Block))
	case source.KindVarDecl:
		return c.buildVarDeclStmt(n.(source.VarDecl))
	case source.KindIf:
		return c.buildIf(n.(source.If))
	case source.KindFor:
		return c.buildFor(n.(source.For))
	case source.KindWhile:
		return c.buildWhile(n.(source.While), false)
	case source.KindDoWhile:
		return c.buildWhile(n.(source.While), true)
	case source.KindSwitch:
		return c.buildSwitch(n.(source.Switch))
	case source.KindReturn:
		return c.buildReturn(n.(source.Return))
	case source.KindBreak:
		return ir.BuildNode(&ir.Break{Label: n.(source.LabeledJump).Label()}, n.Span()), nil
	case source.KindContinue:
		return ir.BuildNode(&ir.Continue{Label: n.(source.LabeledJump).Label()}, n.Span()), nil
	case source.KindThrow:
		return c.buildThrow(n.(source.Throw))
	case source.KindTry:
		return c.buildTry(n.(source.Try))
	case source.KindEmpty:
		return ir.BuildNode(&ir.Empty{}, n.Span()), nil
	case source.KindExprStmt:
		return c.buildExprStmt(n)
	default:
		return nil, fmt.Errorf("ir/build: unsupported statement kind %s", n.Kind())
	}
}

// buildExprStmt lowers an expression evaluated for effect, wrapping it in
// a BasicBlock alongside any VarValue-copy temps it spilled.
func (c *Context) buildExprStmt(n source.Node) (ir.Node, error) {
	kids := n.Children()
	if len(kids) == 0 {
		return ir.BuildNode(&ir.Empty{}, n.Span()), nil
	}
	c.PushRefKind(Right)
	v, err := c.BuildExpr(kids[0])
	c.PopRefKind()
	if err != nil {
		return nil, err
	}
	return c.wrapWithPending(v, n.Span()), nil
}

// wrapWithPending prepends any VarValue-copy temps synthesized while
// building v onto a BasicBlock that ends with v, so the temp's declaration
// precedes its use (spec §4.3 step 1, §9 Open Question 1).
func (c *Context) wrapWithPending(v ir.Value, span source.Span) ir.Node {
	pending := c.drainPendingLocals()
	values := make([]ir.Value, 0, len(pending)+1)
	for _, decl := range pending {
		values = append(values, initValueOf(decl))
	}
	values = append(values, v)
	return ir.BuildNode(&ir.BasicBlock{Values: values}, span)
}

// initValueOf re-surfaces a synthesized temp's initializer as a Value so it
// participates in the BasicBlock's evaluation order; the temp's own
// VarDeclare is registered in the enclosing Block's Locals by buildBlockStmt.
func initValueOf(decl *ir.VarDeclare) ir.Value {
	return ir.Build(&ir.LocalSet{Decl: decl, Value: decl.Init}, decl.Type, shapeOf(decl.Type), decl.Span())
}

func (c *Context) buildBlockStmt(b source.Block) (*ir.Block, error) {
	c.PushScope(b.Scope())
	defer c.PopScope()

	label := c.CurrentScope()
	out := &ir.Block{Label: label}
	ir.BuildNode(out, b.Span())

	for _, stmt := range b.Statements() {
		node, err := c.BuildStatement(stmt)
		if err != nil {
			return nil, err
		}
		// Any temp VarDeclares synthesized and not already folded into a
		// BasicBlock (e.g. a nested Block's own copy-guard temps) belong to
		// this Block's Locals.
		for _, pendingDecl := range c.drainPendingLocals() {
			out.Locals = append(out.Locals, pendingDecl)
			out.Statements = append(out.Statements, pendingDecl)
		}
		if decl, ok := node.(*ir.VarDeclare); ok {
			out.Locals = append(out.Locals, decl)
		}
		out.Statements = append(out.Statements, node)
	}
	return out, nil
}

func (c *Context) buildVarDeclStmt(vd source.VarDecl) (ir.Node, error) {
	typ, err := c.Registry.FindOrCreate(vd.DeclaredType())
	if err != nil {
		return nil, err
	}
	var init ir.Value
	if vd.Init() != nil {
		c.PushRefKind(Right)
		init, err = c.BuildExpr(vd.Init())
		c.PopRefKind()
		if err != nil {
			return nil, err
		}
		init, err = c.CastTo(vd.Span(), typ, init)
		if err != nil {
			return nil, err
		}
	}
	decl := ir.BuildNode(&ir.VarDeclare{Name: vd.Name(), Type: typ, Init: init}, vd.Span())
	c.DeclareLocal(decl)
	return decl, nil
}

func (c *Context) buildIf(n source.If) (ir.Node, error) {
	c.PushRefKind(Right)
	test, err := c.BuildExpr(n.Test())
	c.PopRefKind()
	if err != nil {
		return nil, err
	}
	then, err := c.BuildStatement(n.Then())
	if err != nil {
		return nil, err
	}
	var elseNode ir.Node
	if n.Else() != nil {
		elseNode, err = c.BuildStatement(n.Else())
		if err != nil {
			return nil, err
		}
	}
	return ir.BuildNode(&ir.If{Test: test, Then: then, Else: elseNode}, n.Span()), nil
}

func (c *Context) buildFor(n source.For) (ir.Node, error) {
	c.PushScope(newLoopScope("for"))
	defer c.PopScope()
	label := c.CurrentScope()
	if n.Label() != "" {
		label = n.Label()
	}

	var initNode ir.Node
	var err error
	if n.Init() != nil {
		initNode, err = c.BuildStatement(n.Init())
		if err != nil {
			return nil, err
		}
	}
	var test ir.Value
	if n.Test() != nil {
		c.PushRefKind(Right)
		test, err = c.BuildExpr(n.Test())
		c.PopRefKind()
		if err != nil {
			return nil, err
		}
	}
	var update ir.Value
	if n.Update() != nil {
		c.PushRefKind(Right)
		update, err = c.BuildExpr(n.Update())
		c.PopRefKind()
		if err != nil {
			return nil, err
		}
	}
	body, err := c.BuildStatement(n.Body())
	if err != nil {
		return nil, err
	}
	return ir.BuildNode(&ir.For{Init: initNode, Test: test, Update: update, Body: body, Label: label}, n.Span()), nil
}

func (c *Context) buildWhile(n source.While, isDoWhile bool) (ir.Node, error) {
	c.PushScope(newLoopScope("while"))
	defer c.PopScope()
	label := c.CurrentScope()
	if n.Label() != "" {
		label = n.Label()
	}

	c.PushRefKind(Right)
	test, err := c.BuildExpr(n.Test())
	c.PopRefKind()
	if err != nil {
		return nil, err
	}
	body, err := c.BuildStatement(n.Body())
	if err != nil {
		return nil, err
	}
	return ir.BuildNode(&ir.While{Test: test, Body: body, Label: label, IsDoWhile: isDoWhile}, n.Span()), nil
}

func (c *Context) buildSwitch(n source.Switch) (ir.Node, error) {
	c.PushScope(newLoopScope("switch"))
	defer c.PopScope()
	label := c.CurrentScope()
	if n.Label() != "" {
		label = n.Label()
	}

	c.PushRefKind(Right)
	disc, err := c.BuildExpr(n.Discriminant())
	c.PopRefKind()
	if err != nil {
		return nil, err
	}

	out := &ir.Switch{Discriminant: disc, Label: label}
	for _, cs := range n.Cases() {
		cse := cs.(source.Case)
		body := make([]ir.Node, 0, len(cse.Body()))
		for _, stmt := range cse.Body() {
			node, err := c.BuildStatement(stmt)
			if err != nil {
				return nil, err
			}
			body = append(body, node)
		}
		if cse.Test() == nil {
			out.Default = ir.BuildNode(&ir.DefaultClause{Body: body}, cs.Span())
			continue
		}
		c.PushRefKind(Right)
		test, err := c.BuildExpr(cse.Test())
		c.PopRefKind()
		if err != nil {
			return nil, err
		}
		out.Cases = append(out.Cases, ir.BuildNode(&ir.CaseClause{Test: test, Body: body}, cs.Span()))
	}
	return ir.BuildNode(out, n.Span()), nil
}

func (c *Context) buildReturn(n source.Return) (ir.Node, error) {
	if n.Value() == nil {
		return ir.BuildNode(&ir.Return{}, n.Span()), nil
	}
	c.PushRefKind(Right)
	v, err := c.BuildExpr(n.Value())
	c.PopRefKind()
	if err != nil {
		return nil, err
	}
	return ir.BuildNode(&ir.Return{Value: v}, n.Span()), nil
}

// buildThrow always boxes Value to anyref before raising errorTag; the
// boxing cast itself is wasmgen's concern (spec §4.7) — here Throw just
// carries the operand value through unchanged.
func (c *Context) buildThrow(n source.Throw) (ir.Node, error) {
	c.PushRefKind(Right)
	v, err := c.BuildExpr(n.Value())
	c.PopRefKind()
	if err != nil {
		return nil, err
	}
	return ir.BuildNode(&ir.Throw{Value: v}, n.Span()), nil
}

func (c *Context) buildTry(n source.Try) (ir.Node, error) {
	body, err := c.buildBlockStmt(n.Body().(source.Block))
	if err != nil {
		return nil, err
	}
	out := &ir.Try{Body: body}
	if n.CatchBody() != nil {
		out.CatchParam = n.CatchParam()
		catch, err := c.buildBlockStmt(n.CatchBody().(source.Block))
		if err != nil {
			return nil, err
		}
		out.CatchBody = catch
	}
	if n.FinallyBody() != nil {
		fin, err := c.buildBlockStmt(n.FinallyBody().(source.Block))
		if err != nil {
			return nil, err
		}
		out.FinallyBody = fin
	}
	return ir.BuildNode(out, n.Span()), nil
}

// loopScope is a minimal source.Scope used to push a lexical scope for a
// for/while/switch statement, or a closure's parameter scope, whose AST
// doesn't otherwise expose a source.Scope of its own (unlike Block, which
// carries its own Scope()).
type loopScope struct {
	name string
	kind source.ScopeKind
}

func newLoopScope(name string) source.Scope {
	return &loopScope{name: name, kind: source.ScopeBlock}
}

// newClosureScope marks its boundary as ScopeClosure, so LookupLocal
// correctly flags any reference resolving beyond it as a capture (spec §3.4).
func newClosureScope(name string) source.Scope {
	return &loopScope{name: name, kind: source.ScopeClosure}
}

func (s *loopScope) Parent() source.Scope                  { return nil }
func (s *loopScope) Kind() source.ScopeKind                { return s.kind }
func (s *loopScope) Name() string                          { return s.name }
func (s *loopScope) Variables() []source.Variable          { return nil }
func (s *loopScope) Lookup(string) (source.Variable, bool) { return source.Variable{}, false }
func (s *loopScope) VisibleNames() []string                { return nil }

// buildNestedFunction lowers a closure-literal body into a *ir.FunctionDeclare
// with FreeVars recorded (spec §4.6, §9 "Closures"), without registering it
// as a module-level global (it is only reachable through the
// NewClosureFunction value that wraps it).
func (c *Context) buildNestedFunction(fe source.FunctionExpr) (*ir.FunctionDeclare, error) {
	sig, err := c.buildFunctionSignature(fe)
	if err != nil {
		return nil, err
	}
	fd := &ir.FunctionDeclare{Signature: sig}
	ir.BuildNode(fd, fe.Span())

	for _, name := range fe.FreeVariables() {
		if decl, _, ok := c.LookupLocal(name); ok {
			fd.FreeVars = append(fd.FreeVars, ir.FreeVar{Name: name, Type: decl.Type})
		}
	}

	c.PushScope(newClosureScope("closure"))
	defer c.PopScope()

	fd.Params = make([]*ir.VarDeclare, len(fe.Params()))
	for i, p := range fe.Params() {
		pt, err := c.Registry.FindOrCreate(p.Type)
		if err != nil {
			return nil, err
		}
		pd := ir.BuildNode(&ir.VarDeclare{Name: p.Name, Type: pt}, fe.Span())
		c.DeclareLocal(pd)
		fd.Params[i] = pd
	}

	body, err := c.buildFunctionBody(fe.Body())
	if err != nil {
		return nil, err
	}
	fd.Body = body
	return fd, nil
}

// buildFunctionSignature interns a FunctionExpr's parameter/result types
// without re-deriving them from the checker's own Function type when one
// is already attached to the node (closure literals carry Type() == the
// checker's inferred Function type for the expression as a whole).
func (c *Context) buildFunctionSignature(fe source.FunctionExpr) (*ir.Function, error) {
	result, err := c.Registry.FindOrCreate(fe.ReturnType())
	if err != nil {
		return nil, err
	}
	params := make([]ir.Type, len(fe.Params()))
	names := make([]string, len(fe.Params()))
	for i, p := range fe.Params() {
		pt, err := c.Registry.FindOrCreate(p.Type)
		if err != nil {
			return nil, err
		}
		params[i] = pt
		names[i] = p.Name
	}
	return &ir.Function{Params: params, ParamNames: names, Result: result}, nil
}

// buildFunctionBody lowers a function/method/closure body, which is always
// a KindBlock node per the upstream contract.
func (c *Context) buildFunctionBody(body source.Node) (*ir.Block, error) {
	blk, ok := body.(source.Block)
	if !ok {
		return nil, fmt.Errorf("ir/build: function body is not a block (%s)", body.Kind())
	}
	return c.buildBlockStmt(blk)
}
