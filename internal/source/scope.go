package source

// Scope is a node in the upstream symbol table: a function, block, class,
// or namespace scope, forming a tree rooted at the module scope.
type Scope interface {
	// Parent is nil for the module (root) scope.
	Parent() Scope

	// Kind distinguishes what this scope represents.
	Kind() ScopeKind

	// Name is the declared name for function/class/namespace scopes; ""
	// for a bare block scope. Used to allocate branch labels (spec §4.5).
	Name() string

	// Variables lists the variables declared directly in this scope, in
	// declaration order.
	Variables() []Variable

	// Lookup resolves name, searching this scope and then each ancestor.
	// ok is false if no enclosing scope declares name.
	Lookup(name string) (Variable, bool)

	// VisibleNames returns every name resolvable from this scope, used by
	// internal/diag's "did you mean" suggestions on UnresolvedIdentifier.
	VisibleNames() []string
}

// ScopeKind enumerates the kinds of scope in the tree.
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeClass
	ScopeNamespace
	ScopeClosure
)

// Variable is one symbol-table entry: a local, parameter, or field binding.
type Variable struct {
	Name      string
	Type      Type
	IsConst   bool
	IsCapture bool // true if this binding is captured from an enclosing closure
}
