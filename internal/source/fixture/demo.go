package fixture

import "github.com/wasmlang/tscc/internal/source"

// AddModule builds a minimal but complete top-level declaration list: a
// single exported function
//
//	function add(a: int, b: int): int { return a + b; }
//
// It exists so ir/build and wasmgen can be exercised end-to-end (golden
// tests, cmd/tscc) without a real parser/type-checker wired in (see
// internal/source/fixture's package doc).
func AddModule() []source.Node {
	scope := NewScope(source.ScopeFunction, "add")
	a := Id("a", Int())
	b := Id("b", Int())
	body := Block(scope,
		Return(BinOp(source.OpAdd, a, b, Int())),
	)
	return []source.Node{
		Function("add", Int(), body,
			source.Param{Name: "a", Type: Int()},
			source.Param{Name: "b", Type: Int()},
		),
	}
}
