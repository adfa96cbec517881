package build

import (
	"testing"

	"github.com/wasmlang/tscc/internal/source"
	"github.com/wasmlang/tscc/internal/source/fixture"
	"github.com/wasmlang/tscc/ir"
)

func TestBuildModuleAdd(t *testing.T) {
	registry := ir.NewRegistry()
	c := NewContext(registry)

	mod, err := c.BuildModule(fixture.AddModule())
	if err != nil {
		t.Fatalf("BuildModule: %v", err)
	}

	if len(mod.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(mod.Functions))
	}
	fn := mod.Functions[0]
	if fn.Name != "add" {
		t.Errorf("got function name %q, want %q", fn.Name, "add")
	}
	if !fn.IsExported {
		t.Error("top-level function should be exported")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(fn.Params))
	}
	if fn.Params[0].Name != "a" || fn.Params[1].Name != "b" {
		t.Errorf("got param names %q, %q, want a, b", fn.Params[0].Name, fn.Params[1].Name)
	}

	if fn.Body == nil || len(fn.Body.Statements) != 1 {
		t.Fatalf("expected a single-statement body, got %#v", fn.Body)
	}
	ret, ok := fn.Body.Statements[0].(*ir.Return)
	if !ok {
		t.Fatalf("body statement is %T, want *ir.Return", fn.Body.Statements[0])
	}
	bin, ok := ret.Value.(*ir.BinaryExpr)
	if !ok {
		t.Fatalf("return value is %T, want *ir.BinaryExpr", ret.Value)
	}
	if bin.Op != source.OpAdd {
		t.Errorf("got binary op %v, want OpAdd", bin.Op)
	}
	left, ok := bin.Left.(*ir.VarRef)
	if !ok || left.Name != "a" {
		t.Errorf("left operand is %#v, want VarRef(a)", bin.Left)
	}
	right, ok := bin.Right.(*ir.VarRef)
	if !ok || right.Name != "b" {
		t.Errorf("right operand is %#v, want VarRef(b)", bin.Right)
	}
}
