// Package build implements the expression builder (spec §4.3–§4.4,
// component C4) and statement builder (spec §4.5, component C5): the AST
// → IR translation pass. It consumes internal/source and produces trees
// of ir.Value/ir.Node referring only to package ir's types.
package build

import (
	"github.com/wasmlang/tscc/internal/diag"
	"github.com/wasmlang/tscc/internal/ordered"
	"github.com/wasmlang/tscc/internal/source"
	"github.com/wasmlang/tscc/ir"
)

// RefKind disambiguates whether the value currently being built is read
// (RIGHT) or written (LEFT) — spec §3.4, §8 Invariant 3: "For every
// expression e built with reference-kind LEFT, the resulting value is one
// of the *Set variants; with RIGHT, one of *Get/Call/Literal/New*/….".
type RefKind int

const (
	Right RefKind = iota
	Left
)

// scope is one entry of the Context's scope stack (spec §3.4): it
// remembers declared variables for Lookup/VisibleNames and owns a
// per-scope temp-variable counter (spec §3.4: "per-scope temp-variable
// counters").
type scope struct {
	src     source.Scope
	locals  *ordered.Map[string, *ir.VarDeclare]
	tempSeq int
	label   string
	kind    source.ScopeKind
}

// Context is the build context threaded through the expression and
// statement builders (spec §3.4): a stack of scopes, a stack of reference
// kinds, a global symbol map, per-scope temp-variable counters, and the
// type-interning Registry.
type Context struct {
	Registry *ir.Registry
	Warnings *diag.Bag

	scopes  []*scope
	refKind []RefKind

	// globals maps a top-level declared name to its FunctionDeclare/VarDeclare,
	// spec §3.4's "global map of symbols". Insertion-ordered so
	// VisibleNames's suggestion candidates come out in declaration order
	// instead of varying with Go's randomized map iteration.
	globals *ordered.Map[string, any]

	// labelSeq allocates unique branch labels from a scope's name (spec
	// §4.5: "label strings allocated from the scope name").
	labelSeq map[string]int

	// pendingLocals holds synthesized temp VarDeclares (the VarValue-copy
	// guard, spec §4.3 step 1, §9 Open Question 1) produced while building
	// the expression currently in flight. The statement builder drains
	// this before each statement so the temp's declaration precedes its use.
	pendingLocals []*ir.VarDeclare

	// classes tracks the enclosing class while building a method or
	// constructor body, so `this`/`super` expressions know their static type.
	classes []*ir.Object
}

// emitTempCopy synthesizes a fresh local initialized from init and returns
// a reference to it, implementing the VarValue-copy guard: resolving a
// member access against this copy instead of the original variable means a
// later reassignment of that variable can't retroactively change the
// dispatch this access already resolved to.
func (c *Context) emitTempCopy(init ir.Value, span source.Span) *ir.VarRef {
	name := c.newTemp("recv")
	decl := ir.BuildNode(&ir.VarDeclare{Name: name, Type: init.Type(), Init: init}, span)
	c.DeclareLocal(decl)
	c.pendingLocals = append(c.pendingLocals, decl)
	return ir.Build(&ir.VarRef{Name: name, Decl: decl}, init.Type(), init.Shape(), span)
}

// drainPendingLocals returns and clears the temps accumulated since the
// last drain (spec §4.3 step 1's copy guard), for the statement builder to
// splice in ahead of the statement that triggered them.
func (c *Context) drainPendingLocals() []*ir.VarDeclare {
	p := c.pendingLocals
	c.pendingLocals = nil
	return p
}

// NewContext creates an empty Context backed by registry.
func NewContext(registry *ir.Registry) *Context {
	return &Context{
		Registry: registry,
		Warnings: &diag.Bag{},
		globals:  ordered.New[string, any](),
		labelSeq: make(map[string]int),
	}
}

// PushClass enters a method/constructor body owned by owner.
func (c *Context) PushClass(owner *ir.Object) {
	c.classes = append(c.classes, owner)
}

// PopClass exits the innermost method/constructor body.
func (c *Context) PopClass() {
	c.classes = c.classes[:len(c.classes)-1]
}

// CurrentClass returns the class owning the method/constructor body
// currently being built, or nil at the top level.
func (c *Context) CurrentClass() *ir.Object {
	if len(c.classes) == 0 {
		return nil
	}
	return c.classes[len(c.classes)-1]
}

// PushScope enters a new lexical scope.
func (c *Context) PushScope(src source.Scope) {
	c.scopes = append(c.scopes, &scope{
		src:    src,
		locals: ordered.New[string, *ir.VarDeclare](),
		kind:   src.Kind(),
		label:  c.allocLabel(scopeBaseName(src)),
	})
}

// PopScope exits the innermost lexical scope.
func (c *Context) PopScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func scopeBaseName(src source.Scope) string {
	if src.Name() != "" {
		return src.Name()
	}
	return "block"
}

// allocLabel returns a unique WebAssembly-branch-target label derived
// from base, disambiguating repeats with a numeric suffix (spec §4.5:
// "label strings allocated from the scope name so that break/continue
// compile to WebAssembly branches by label").
func (c *Context) allocLabel(base string) string {
	n := c.labelSeq[base]
	c.labelSeq[base]++
	if n == 0 {
		return base
	}
	return fmtLabel(base, n)
}

func fmtLabel(base string, n int) string {
	return base + "$" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// CurrentScope returns the innermost scope's branch label, or "" if the scope stack is empty.
func (c *Context) CurrentScope() string {
	if len(c.scopes) == 0 {
		return ""
	}
	return c.scopes[len(c.scopes)-1].label
}

// DeclareLocal records a freshly built VarDeclare in the innermost scope.
func (c *Context) DeclareLocal(v *ir.VarDeclare) {
	if len(c.scopes) == 0 {
		return
	}
	s := c.scopes[len(c.scopes)-1]
	s.locals.Set(v.Name, v)
}

// LookupLocal resolves name against the scope stack, innermost first,
// reporting whether the reference crosses into an enclosing function's
// scope (a capture) along the way.
func (c *Context) LookupLocal(name string) (decl *ir.VarDeclare, capture bool, ok bool) {
	crossedFunction := false
	for i := len(c.scopes) - 1; i >= 0; i-- {
		s := c.scopes[i]
		if d, found := s.locals.GetOK(name); found {
			return d, crossedFunction, true
		}
		if s.kind == source.ScopeFunction || s.kind == source.ScopeClosure {
			crossedFunction = true
		}
	}
	return nil, false, false
}

// VisibleNames collects every name visible from the innermost scope, used
// by internal/diag's "did you mean" suggestions.
func (c *Context) VisibleNames() []string {
	seen := map[string]bool{}
	var names []string
	for i := len(c.scopes) - 1; i >= 0; i-- {
		for _, name := range c.scopes[i].locals.Keys() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	for _, name := range c.globals.Keys() {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// DeclareGlobal records a top-level function/class/variable symbol.
func (c *Context) DeclareGlobal(name string, v any) {
	c.globals.Set(name, v)
}

// LookupGlobal resolves a top-level symbol by name.
func (c *Context) LookupGlobal(name string) (any, bool) {
	return c.globals.GetOK(name)
}

// PushRefKind enters a new reference-kind context (spec §3.4).
func (c *Context) PushRefKind(k RefKind) {
	c.refKind = append(c.refKind, k)
}

// PopRefKind exits the innermost reference-kind context.
func (c *Context) PopRefKind() {
	c.refKind = c.refKind[:len(c.refKind)-1]
}

// CurrentRefKind reports the reference kind in effect, defaulting to
// Right at the top level (an expression statement reads its sub-expressions).
func (c *Context) CurrentRefKind() RefKind {
	if len(c.refKind) == 0 {
		return Right
	}
	return c.refKind[len(c.refKind)-1]
}

// newTemp allocates a fresh compiler-introduced temporary name in the
// innermost scope (spec §3.4 "per-scope temp-variable counters"), used by
// the VarValue-copy guard (spec §4.3 step 1, §9 Open Question 1).
func (c *Context) newTemp(prefix string) string {
	if len(c.scopes) == 0 {
		return prefix
	}
	s := c.scopes[len(c.scopes)-1]
	s.tempSeq++
	return prefix + "$tmp" + itoa(s.tempSeq)
}
