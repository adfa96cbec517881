package fixture

import "github.com/wasmlang/tscc/internal/source"

// Scope is a hand-built source.Scope. Lookup/VisibleNames are unused by
// ir/build (which tracks its own scope stack), so Scope only needs to
// carry the Kind/Name pair PushScope reads.
type Scope struct {
	kind source.ScopeKind
	name string
	vars []source.Variable
}

func NewScope(kind source.ScopeKind, name string) *Scope { return &Scope{kind: kind, name: name} }

func (s *Scope) Parent() source.Scope { return nil }
func (s *Scope) Kind() source.ScopeKind { return s.kind }
func (s *Scope) Name() string           { return s.name }
func (s *Scope) Variables() []source.Variable { return s.vars }
func (s *Scope) Lookup(name string) (source.Variable, bool) {
	for _, v := range s.vars {
		if v.Name == name {
			return v, true
		}
	}
	return source.Variable{}, false
}
func (s *Scope) VisibleNames() []string {
	names := make([]string, len(s.vars))
	for i, v := range s.vars {
		names[i] = v.Name
	}
	return names
}

// node is embedded by every concrete fixture Node, carrying the span and
// checker-assigned type every source.Node must report.
type node struct {
	kind source.NodeKind
	span source.Span
	typ  source.Type
}

func (n *node) Span() source.Span { return n.span }
func (n *node) Type() source.Type { return n.typ }
func (n *node) Kind() source.NodeKind { return n.kind }

// Lit is a hand-built KindLiteral node.
type Lit struct {
	node
	kind        source.LiteralKind
	boolValue   bool
	intValue    int64
	numberValue float64
	stringValue string
}

func Int64(v int64, typ source.Type) *Lit {
	return &Lit{node: node{kind: source.KindLiteral, typ: typ}, kind: source.LiteralInt, intValue: v}
}

func Num(v float64, typ source.Type) *Lit {
	return &Lit{node: node{kind: source.KindLiteral, typ: typ}, kind: source.LiteralNumber, numberValue: v}
}

func BoolLit(v bool, typ source.Type) *Lit {
	return &Lit{node: node{kind: source.KindLiteral, typ: typ}, kind: source.LiteralBoolean, boolValue: v}
}

func (l *Lit) Children() []source.Node      { return nil }
func (l *Lit) LiteralKind() source.LiteralKind { return l.kind }
func (l *Lit) BoolValue() bool              { return l.boolValue }
func (l *Lit) IntValue() int64              { return l.intValue }
func (l *Lit) NumberValue() float64         { return l.numberValue }
func (l *Lit) StringValue() string          { return l.stringValue }

// Ident is a hand-built KindIdentifier node.
type Ident struct {
	node
	name string
}

func Id(name string, typ source.Type) *Ident {
	return &Ident{node: node{kind: source.KindIdentifier, typ: typ}, name: name}
}

func (i *Ident) Children() []source.Node { return nil }
func (i *Ident) Name() string            { return i.name }

// Bin is a hand-built KindBinary node.
type Bin struct {
	node
	op          source.BinaryOp
	left, right source.Node
}

func BinOp(op source.BinaryOp, left, right source.Node, typ source.Type) *Bin {
	return &Bin{node: node{kind: source.KindBinary, typ: typ}, op: op, left: left, right: right}
}

func (b *Bin) Children() []source.Node { return []source.Node{b.left, b.right} }
func (b *Bin) Op() source.BinaryOp     { return b.op }
func (b *Bin) Left() source.Node       { return b.left }
func (b *Bin) Right() source.Node      { return b.right }

// Ret is a hand-built KindReturn node.
type Ret struct {
	node
	value source.Node
}

func Return(value source.Node) *Ret {
	return &Ret{node: node{kind: source.KindReturn}, value: value}
}

func (r *Ret) Children() []source.Node {
	if r.value == nil {
		return nil
	}
	return []source.Node{r.value}
}
func (r *Ret) Value() source.Node { return r.value }

// Blk is a hand-built KindBlock node.
type Blk struct {
	node
	stmts []source.Node
	scope *Scope
}

func Block(scope *Scope, stmts ...source.Node) *Blk {
	return &Blk{node: node{kind: source.KindBlock}, stmts: stmts, scope: scope}
}

func (b *Blk) Children() []source.Node   { return b.stmts }
func (b *Blk) Statements() []source.Node { return b.stmts }
func (b *Blk) Scope() source.Scope       { return b.scope }

// FuncDecl is a hand-built KindFunctionDecl node, satisfying both
// source.FunctionExpr and the unexported `interface{ Name() string }`
// ir/build.BuildModule type-asserts top-level declarations against.
type FuncDecl struct {
	node
	name       string
	params     []source.Param
	body       source.Node
	returnType source.Type
	freeVars   []string
}

func Function(name string, returnType source.Type, body source.Node, params ...source.Param) *FuncDecl {
	return &FuncDecl{
		node:       node{kind: source.KindFunctionDecl},
		name:       name,
		params:     params,
		body:       body,
		returnType: returnType,
	}
}

func (f *FuncDecl) Children() []source.Node     { return []source.Node{f.body} }
func (f *FuncDecl) Name() string                { return f.name }
func (f *FuncDecl) Params() []source.Param      { return f.params }
func (f *FuncDecl) Body() source.Node           { return f.body }
func (f *FuncDecl) ReturnType() source.Type     { return f.returnType }
func (f *FuncDecl) FreeVariables() []string     { return f.freeVars }
