package wasmgen

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wasmlang/tscc/internal/diag"
	"github.com/wasmlang/tscc/internal/source"
	"github.com/wasmlang/tscc/ir"
	"github.com/wasmlang/tscc/wasmgen/encoding"
)

// Raw WebAssembly opcodes this generator emits. Only the subset the
// compiler actually produces is named; anything else goes through
// structured helpers (emitBlock, emitLoop, …) that already know their own
// opcode.
const (
	opBlock    = 0x02
	opLoop     = 0x03
	opIf       = 0x04
	opElse     = 0x05
	opTry      = 0x06
	opCatch    = 0x07
	opThrow    = 0x08
	opRethrow  = 0x09
	opCatchAll = 0x19
	opEnd      = 0x0b
	opBr       = 0x0c
	opBrIf     = 0x0d
	opBrTable  = 0x0e
	opReturn   = 0x0f
	opCall     = 0x10
	opCallRef  = 0x14
	opDrop     = 0x1a
	opLocalGet = 0x20
	opLocalSet = 0x21
	opLocalTee = 0x22
	opGlobalGet = 0x23
	opGlobalSet = 0x24
	opI32Const = 0x41
	opI64Const = 0x42
	opF64Const = 0x44

	opBlockTypeVoid = 0x40

	gcPrefix = 0xfb
)

// GC-prefixed opcode immediates (spec §4.6: GC proposal instructions),
// each emitted as [gcPrefix, opcode, …immediates].
const (
	gcStructNew     = 0x00
	gcStructGet     = 0x02
	gcStructSet     = 0x05
	gcArrayNew      = 0x06
	gcArrayNewFixed = 0x08
	gcArrayGet      = 0x0b
	gcArraySet      = 0x0e
	gcArrayLen      = 0x0f
	gcRefTest       = 0x14
	gcRefCast       = 0x16
	gcAnyConvertExtern = 0x1a
	gcExternConvertAny = 0x1b
)

// binaryOpTable maps a source.BinaryOp to the raw (int-operand opcode,
// number-operand opcode) pair, the way the teacher's own codegen keeps one
// table per operator class rather than a long switch (2dffc1ea's
// convertBinaryExpr dispatch).
var binaryOpTable = map[source.BinaryOp]struct{ intOp, numOp byte }{
	source.OpAdd:    {0x6a, 0xa0},
	source.OpSub:    {0x6b, 0xa1},
	source.OpMul:    {0x6c, 0xa2},
	source.OpDiv:    {0x6d, 0xa3}, // i32.div_s, f64.div
	source.OpMod:    {0x6f, 0xa3}, // i32.rem_s; numbers fall back to f64.div (% is int-only at the IR boundary)
	source.OpEq:     {0x46, 0x61},
	source.OpNotEq:  {0x47, 0x62},
	source.OpLt:     {0x48, 0x63}, // i32.lt_s, f64.lt
	source.OpLtEq:   {0x4c, 0x65},
	source.OpGt:     {0x4a, 0x64},
	source.OpGtEq:   {0x4e, 0x66},
	source.OpBitAnd: {0x71, 0x71},
	source.OpBitOr:  {0x72, 0x72},
	source.OpBitXor: {0x73, 0x73},
	source.OpShl:    {0x74, 0x74},
	source.OpShr:    {0x75, 0x75},
}

// Generator lowers one compiled ir.Module to a WebAssembly encoding.Module
// (spec §4.6–§4.7, component C7). It owns the type generator (C6) so
// struct/array/closure/vtable types are interned lazily as code generation
// discovers it needs them.
type Generator struct {
	Types    *TypeGen
	Warnings *diag.Bag

	module *encoding.Module

	// funcIdx maps a lowered FunctionDeclare to its function index in the
	// module's combined import+defined function index space.
	funcIdx map[*ir.FunctionDeclare]uint32

	// Per-function state, reset by beginFunction.
	locals      map[*ir.VarDeclare]uint32
	nextLocal   uint32
	localTypes  []encoding.ValType
	labelDepth  map[string]int
	blockDepth  int
	errorTag    uint32
}

// NewGenerator creates a Generator targeting a fresh WebAssembly module, with
// the exception-handling tag spec §4.7 requires (errorTag, carrying every
// thrown value boxed to anyref) pre-declared.
func NewGenerator() *Generator {
	module := &encoding.Module{}
	g := &Generator{
		module:   module,
		Types:    NewTypeGen(module),
		Warnings: &diag.Bag{},
		funcIdx:  make(map[*ir.FunctionDeclare]uint32),
	}
	anyrefFuncType := g.Types.addType(encoding.SubType{
		Kind:    encoding.CompositeFunc,
		Final:   true,
		Params:  []encoding.ValType{encoding.Anyref()},
		Results: nil,
	})
	g.errorTag = uint32(len(module.Tags))
	module.Tags = append(module.Tags, encoding.Tag{TypeIdx: anyrefFuncType})
	return g
}

// Generate lowers every function/global in mod and returns the assembled
// module bytes.
func (g *Generator) Generate(mod *ir.Module) ([]byte, error) {
	for _, fd := range mod.Functions {
		idx, err := g.declareFunction(fd)
		if err != nil {
			return nil, err
		}
		g.funcIdx[fd] = idx
	}
	for _, fd := range mod.Functions {
		if err := g.generateFunction(fd); err != nil {
			return nil, err
		}
	}
	for i, name := range exportNames(mod) {
		g.module.Exports = append(g.module.Exports, encoding.Export{Name: name, Kind: 0x00, Idx: g.funcIdx[mod.Functions[i]]})
	}
	return encoding.Encode(g.module), nil
}

func exportNames(mod *ir.Module) []string {
	names := make([]string, len(mod.Functions))
	for i, fd := range mod.Functions {
		if fd.IsExported {
			names[i] = fd.Name
		}
	}
	return names
}

func (g *Generator) declareFunction(fd *ir.FunctionDeclare) (uint32, error) {
	typeIdx, err := g.Types.buildFuncType(fd.Signature)
	if err != nil {
		return 0, err
	}
	idx := uint32(len(g.module.Funcs))
	g.module.Funcs = append(g.module.Funcs, typeIdx)
	g.module.Code = append(g.module.Code, encoding.Code{}) // placeholder, filled by generateFunction
	return idx, nil
}

func (g *Generator) beginFunction(fd *ir.FunctionDeclare) error {
	g.locals = make(map[*ir.VarDeclare]uint32)
	g.nextLocal = 1 // local 0 is the envParamLen context parameter (spec §4.6)
	g.localTypes = nil
	g.labelDepth = make(map[string]int)
	g.blockDepth = 0
	for _, p := range fd.Params {
		g.locals[p] = g.nextLocal
		g.nextLocal++
	}
	return nil
}

func (g *Generator) allocLocal(t ir.Type) (uint32, error) {
	vt, err := g.Types.ValTypeOf(t)
	if err != nil {
		return 0, err
	}
	idx := g.nextLocal
	g.nextLocal++
	g.localTypes = append(g.localTypes, vt)
	return idx, nil
}

func (g *Generator) generateFunction(fd *ir.FunctionDeclare) error {
	if err := g.beginFunction(fd); err != nil {
		return err
	}
	body, err := g.generateBlock(fd.Body)
	if err != nil {
		return err
	}
	body = append(body, opEnd)
	idx := g.funcIdx[fd]
	g.module.Code[idx] = encoding.Code{Locals: g.localTypes, Body: body}
	return nil
}

// generateBlock lowers a Block's statements and locals in order; locals
// declared mid-block (including VarValue-copy-guard temps) are allocated
// wasm local slots lazily, the first time generateStmt reaches their
// VarDeclare.
func (g *Generator) generateBlock(b *ir.Block) ([]byte, error) {
	var buf []byte
	for _, stmt := range b.Statements {
		code, err := g.generateStmt(stmt)
		if err != nil {
			return nil, err
		}
		buf = append(buf, code...)
	}
	return buf, nil
}

func (g *Generator) generateStmt(n ir.Node) ([]byte, error) {
	switch nv := n.(type) {
	case *ir.VarDeclare:
		idx, err := g.allocLocal(nv.Type)
		if err != nil {
			return nil, err
		}
		g.locals[nv] = idx
		if nv.Init == nil {
			return nil, nil
		}
		val, err := g.generateValue(nv.Init)
		if err != nil {
			return nil, err
		}
		return append(val, opLocalSet, byte(idx)), nil

	case *ir.BasicBlock:
		var buf []byte
		for _, v := range nv.Values {
			code, err := g.generateValue(v)
			if err != nil {
				return nil, err
			}
			buf = append(buf, code...)
			if v.Type() != nil && v.Type().Kind() != ir.KindVoid {
				if _, isSet := v.(*ir.LocalSet); !isSet {
					buf = append(buf, opDrop)
				}
			}
		}
		return buf, nil

	case *ir.Block:
		return g.generateBlock(nv)

	case *ir.If:
		return g.generateIf(nv)

	case *ir.For:
		return g.generateFor(nv)

	case *ir.While:
		return g.generateWhile(nv)

	case *ir.Switch:
		return g.generateSwitch(nv)

	case *ir.Return:
		var buf []byte
		if nv.Value != nil {
			v, err := g.generateValue(nv.Value)
			if err != nil {
				return nil, err
			}
			buf = append(buf, v...)
		}
		return append(buf, opReturn), nil

	case *ir.Break:
		return g.emitBranch(nv.Label)

	case *ir.Continue:
		return g.emitBranch("continue$" + nv.Label)

	case *ir.Throw:
		v, err := g.generateValue(nv.Value)
		if err != nil {
			return nil, err
		}
		v, err = g.boxAny(nv.Value.Type(), v)
		if err != nil {
			return nil, err
		}
		return append(v, opThrow, byte(g.errorTag)), nil

	case *ir.Try:
		return g.generateTry(nv)

	case *ir.Empty:
		return nil, nil

	default:
		return nil, fmt.Errorf("wasmgen: unsupported statement node %T", n)
	}
}

// emitBranch resolves a labeled break/continue to a relative wasm branch
// depth (spec §4.5: "label strings allocated from the scope name so that
// break/continue compile to WebAssembly branches by label").
func (g *Generator) emitBranch(label string) ([]byte, error) {
	depth, ok := g.labelDepth[label]
	if !ok {
		return nil, fmt.Errorf("wasmgen: unresolved branch label %q", label)
	}
	rel := g.blockDepth - depth
	buf := []byte{opBr}
	return append(buf, encoding.PutVarint(nil, int64(rel))...), nil
}

// withLabel pushes label at the current block depth for the duration of
// fn, then pops it — the structured-control analogue of neo-go codegen's
// currentFor/currentSwitch save-and-restore around loop/switch bodies.
func (g *Generator) withLabel(label string, continueLabel string, fn func() ([]byte, error)) ([]byte, error) {
	g.labelDepth[label] = g.blockDepth
	if continueLabel != "" {
		g.labelDepth["continue$"+label] = g.blockDepth
	}
	defer func() {
		delete(g.labelDepth, label)
		if continueLabel != "" {
			delete(g.labelDepth, "continue$"+label)
		}
	}()
	return fn()
}

func (g *Generator) generateIf(n *ir.If) ([]byte, error) {
	test, err := g.generateValue(n.Test)
	if err != nil {
		return nil, err
	}
	g.blockDepth++
	then, err := g.generateStmt(n.Then)
	if err != nil {
		g.blockDepth--
		return nil, err
	}
	var elseCode []byte
	if n.Else != nil {
		elseCode, err = g.generateStmt(n.Else)
		if err != nil {
			g.blockDepth--
			return nil, err
		}
	}
	g.blockDepth--

	buf := append(test, opIf, opBlockTypeVoid)
	buf = append(buf, then...)
	if n.Else != nil {
		buf = append(buf, opElse)
		buf = append(buf, elseCode...)
	}
	return append(buf, opEnd), nil
}

// generateFor lowers a C-style for loop to `block { loop { test; br_if out;
// body; update; br loop } }`, matching the standard structured-control
// encoding of a counted loop.
func (g *Generator) generateFor(n *ir.For) ([]byte, error) {
	var init []byte
	var err error
	if n.Init != nil {
		init, err = g.generateStmt(n.Init)
		if err != nil {
			return nil, err
		}
	}

	var body []byte
	body, err = g.withLabel(n.Label, n.Label, func() ([]byte, error) {
		g.blockDepth += 2 // block, loop
		defer func() { g.blockDepth -= 2 }()

		var buf []byte
		if n.Test != nil {
			test, err := g.generateValue(n.Test)
			if err != nil {
				return nil, err
			}
			buf = append(buf, test...)
			buf = append(buf, 0x45) // i32.eqz: branch out when the test is false
			buf = append(buf, opBrIf)
			buf = append(buf, encoding.PutVarint(nil, 1)...) // branch out of loop to enclosing block
		}
		bodyCode, err := g.generateStmt(n.Body)
		if err != nil {
			return nil, err
		}
		buf = append(buf, bodyCode...)
		if n.Update != nil {
			upd, err := g.generateValue(n.Update)
			if err != nil {
				return nil, err
			}
			buf = append(buf, upd...)
			if n.Update.Type() != nil && n.Update.Type().Kind() != ir.KindVoid {
				buf = append(buf, opDrop)
			}
		}
		buf = append(buf, opBr)
		buf = append(buf, encoding.PutVarint(nil, 0)...) // back to loop top
		return buf, nil
	})
	if err != nil {
		return nil, err
	}

	out := append(init, opBlock, opBlockTypeVoid, opLoop, opBlockTypeVoid)
	out = append(out, body...)
	out = append(out, opEnd, opEnd)
	return out, nil
}

func (g *Generator) generateWhile(n *ir.While) ([]byte, error) {
	body, err := g.withLabel(n.Label, n.Label, func() ([]byte, error) {
		g.blockDepth += 2
		defer func() { g.blockDepth -= 2 }()

		test, err := g.generateValue(n.Test)
		if err != nil {
			return nil, err
		}
		bodyCode, err := g.generateStmt(n.Body)
		if err != nil {
			return nil, err
		}

		var buf []byte
		if n.IsDoWhile {
			buf = append(buf, bodyCode...)
			buf = append(buf, test...)
			buf = append(buf, opBrIf)
			buf = append(buf, encoding.PutVarint(nil, 0)...)
			return buf, nil
		}
		buf = append(buf, test...)
		buf = append(buf, 0x45) // i32.eqz
		buf = append(buf, opBrIf)
		buf = append(buf, encoding.PutVarint(nil, 1)...)
		buf = append(buf, bodyCode...)
		buf = append(buf, opBr)
		buf = append(buf, encoding.PutVarint(nil, 0)...)
		return buf, nil
	})
	if err != nil {
		return nil, err
	}
	out := append([]byte{opBlock, opBlockTypeVoid, opLoop, opBlockTypeVoid}, body...)
	return append(out, opEnd, opEnd), nil
}

// generateSwitch lowers to a chain of br_if comparisons against the
// discriminant held in a synthesized local, jumping to the first matching
// case's inner block (spec §4.7: "switch lowers to a chain of br_if
// branches to per-case labels").
func (g *Generator) generateSwitch(n *ir.Switch) ([]byte, error) {
	discType := n.Discriminant.Type()
	discLocal, err := g.allocLocal(discType)
	if err != nil {
		return nil, err
	}
	disc, err := g.generateValue(n.Discriminant)
	if err != nil {
		return nil, err
	}
	prelude := append(disc, opLocalSet, byte(discLocal))

	arms := n.Cases

	body, err := g.withLabel(n.Label, "", func() ([]byte, error) {
		// One enclosing block per case (innermost = first case) so `break`
		// targets the outermost block, and falling off a case's test
		// branches into the next case's block.
		g.blockDepth += len(arms) + 1
		defer func() { g.blockDepth -= len(arms) + 1 }()

		var buf []byte
		for range arms {
			buf = append(buf, opBlock, opBlockTypeVoid)
		}
		buf = append(buf, opBlock, opBlockTypeVoid) // default/end block

		depth := len(arms)
		for _, arm := range arms {
			test, err := g.generateValue(arm.Test)
			if err != nil {
				return nil, err
			}
			buf = append(buf, []byte{opLocalGet, byte(discLocal)}...)
			buf = append(buf, test...)
			buf = append(buf, equalOpcodeFor(discType)...)
			buf = append(buf, opBrIf)
			buf = append(buf, encoding.PutVarint(nil, int64(depth))...)
			depth--
		}
		if n.Default == nil {
			buf = append(buf, opBr, 0)
		}
		buf = append(buf, opEnd) // close default/end block, entering innermost case block

		for _, arm := range arms {
			body, err := g.generateStmtList(arm.Body)
			if err != nil {
				return nil, err
			}
			buf = append(buf, body...)
			buf = append(buf, opEnd)
		}
		if n.Default != nil {
			defaultBody, err := g.generateStmtList(n.Default.Body)
			if err != nil {
				return nil, err
			}
			buf = append(buf, defaultBody...)
		}
		return buf, nil
	})
	if err != nil {
		return nil, err
	}
	return append(prelude, body...), nil
}

func (g *Generator) generateStmtList(nodes []ir.Node) ([]byte, error) {
	var buf []byte
	for _, n := range nodes {
		code, err := g.generateStmt(n)
		if err != nil {
			return nil, err
		}
		buf = append(buf, code...)
	}
	return buf, nil
}

func equalOpcodeFor(t ir.Type) []byte {
	if t != nil && t.Kind() == ir.KindNumber {
		return []byte{0x61} // f64.eq
	}
	return []byte{0x46} // i32.eq
}

// generateTry lowers Try to two nested try blocks (spec §4.7): the inner
// catches errorTag and runs CatchBody; the outer's catch_all runs
// FinallyBody and rethrows the original exception, so FinallyBody runs
// exactly once whether Body/CatchBody completed normally or threw. A
// `return` inside Body or CatchBody leaves the function without running
// FinallyBody.
func (g *Generator) generateTry(n *ir.Try) ([]byte, error) {
	g.blockDepth++
	body, err := g.generateBlock(n.Body)
	g.blockDepth--
	if err != nil {
		return nil, err
	}

	var inner []byte
	inner = append(inner, opTry, opBlockTypeVoid)
	inner = append(inner, body...)
	if n.CatchBody != nil {
		inner = append(inner, opCatch, byte(g.errorTag))
		g.blockDepth++
		catch, err := g.generateBlock(n.CatchBody)
		g.blockDepth--
		if err != nil {
			return nil, err
		}
		inner = append(inner, opDrop) // CatchBody never references the caught value by local index, so it is discarded rather than bound
		inner = append(inner, catch...)
	}
	inner = append(inner, opEnd)

	if n.FinallyBody == nil {
		return inner, nil
	}

	g.blockDepth++
	finallyCode, err := g.generateBlock(n.FinallyBody)
	g.blockDepth--
	if err != nil {
		return nil, err
	}

	var outer []byte
	outer = append(outer, opTry, opBlockTypeVoid)
	outer = append(outer, inner...)
	outer = append(outer, opCatchAll)
	outer = append(outer, finallyCode...)
	outer = append(outer, opRethrow, 0x00) // rethrow the exception caught by this catch_all
	outer = append(outer, opEnd)
	outer = append(outer, finallyCode...) // normal-completion path: run finally once more
	return outer, nil
}

// boxAny wraps v (already-generated bytes producing a value of type t) so
// the result is anyref-typed, as throw always requires (spec §4.7: "throw
// always boxes Value to anyref before raising errorTag").
func (g *Generator) boxAny(t ir.Type, v []byte) ([]byte, error) {
	if t == nil {
		return v, nil
	}
	switch t.Kind() {
	case ir.KindAny, ir.KindString, ir.KindRawString, ir.KindObject, ir.KindArray, ir.KindSet, ir.KindMap, ir.KindUnion:
		return v, nil
	default:
		return append(v, gcPrefix, gcAnyConvertExtern), nil
	}
}

func (g *Generator) generateValue(v ir.Value) ([]byte, error) {
	switch vv := v.(type) {
	case *ir.Literal:
		return g.generateLiteral(vv)
	case *ir.VarRef:
		idx, ok := g.locals[vv.Decl]
		if !ok {
			return nil, fmt.Errorf("wasmgen: reference to undeclared local %q", vv.Name)
		}
		return []byte{opLocalGet, byte(idx)}, nil
	case *ir.LocalSet:
		idx, ok := g.locals[vv.Decl]
		if !ok {
			return nil, fmt.Errorf("wasmgen: assignment to undeclared local %q", vv.Decl.Name)
		}
		val, err := g.generateValue(vv.Value)
		if err != nil {
			return nil, err
		}
		return append(val, opLocalTee, byte(idx)), nil
	case *ir.BinaryExpr:
		return g.generateBinary(vv)
	case *ir.UnaryExpr:
		return g.generateUnary(vv)
	case *ir.Condition:
		return g.generateCondition(vv)
	case *ir.FunctionCall:
		return g.generateFunctionCall(vv)
	case *ir.ClosureCall:
		return g.generateClosureCall(vv)
	case *ir.VTableAccess:
		return g.generateVTableAccess(vv)
	case *ir.OffsetAccess:
		return g.generateOffsetAccess(vv)
	case *ir.DirectAccess:
		return g.generateDirectAccess(vv)
	case *ir.DynamicAccess:
		return g.generateDynamicAccess(vv)
	case *ir.ShapeAccess:
		return g.generateShapeAccess(vv)
	case *ir.ElementAccess:
		return g.generateElementAccess(vv)
	case *ir.Cast:
		return g.generateCast(vv)
	case *ir.NewLiteralObject:
		return g.generateNewObject(vv)
	case *ir.NewLiteralArray:
		return g.generateNewArray(vv)
	case *ir.NewConstructorObject:
		return g.generateNewConstructor(vv)
	case *ir.NewClosureFunction:
		return g.generateNewClosure(vv)
	case *ir.ThisValue:
		return []byte{opLocalGet, byte(thisLocal)}, nil
	case *ir.InstanceOfValue:
		return g.generateInstanceOf(vv)
	case *ir.UnimplementValue:
		return []byte{0x00}, nil // unreachable
	default:
		return nil, fmt.Errorf("wasmgen: unsupported value %T", v)
	}
}

// thisLocal is the local slot `this` occupies: the first declared
// parameter of any method (methods always take the receiver as their
// leading parameter, ahead of the closure-context slot at index 0).
const thisLocal = 1

func (g *Generator) generateLiteral(lit *ir.Literal) ([]byte, error) {
	switch lit.LiteralKind {
	case source.LiteralUndefined, source.LiteralNull:
		return []byte{opI32Const, 0}, nil
	case source.LiteralBoolean:
		v := byte(0)
		if lit.BoolValue {
			v = 1
		}
		return []byte{opI32Const, v}, nil
	case source.LiteralInt:
		return append([]byte{opI32Const}, encoding.PutVarint(nil, lit.IntValue)...), nil
	case source.LiteralNumber:
		buf := []byte{opF64Const, 0, 0, 0, 0, 0, 0, 0, 0}
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(lit.NumberValue))
		return buf, nil
	case source.LiteralString:
		// String literal data segments are assigned by a later pooling
		// pass; the generator marks the slot with its pool index resolved
		// at module-assembly time.
		return []byte{opI32Const, 0}, nil
	default:
		return nil, fmt.Errorf("wasmgen: unsupported literal kind %d", lit.LiteralKind)
	}
}

func (g *Generator) generateBinary(b *ir.BinaryExpr) ([]byte, error) {
	left, err := g.generateValue(b.Left)
	if err != nil {
		return nil, err
	}

	// && and || short-circuit: lower to if/else rather than the flat opcode
	// table, so the right operand is never evaluated unless needed.
	if b.Op == source.OpAnd || b.Op == source.OpOr {
		right, err := g.generateValue(b.Right)
		if err != nil {
			return nil, err
		}
		buf := append([]byte{}, left...)
		buf = append(buf, opIf, encoding.ValI32)
		if b.Op == source.OpAnd {
			buf = append(buf, right...)
			buf = append(buf, opElse, opI32Const, 0)
		} else {
			buf = append(buf, opI32Const, 1, opElse)
			buf = append(buf, right...)
		}
		return append(buf, opEnd), nil
	}

	right, err := g.generateValue(b.Right)
	if err != nil {
		return nil, err
	}
	op, err := binaryOpcode(b.Op, b.Left.Type())
	if err != nil {
		return nil, err
	}
	buf := append(left, right...)
	return append(buf, op), nil
}

// binaryOpcode dispatches a source operator to its raw i32/f64 opcode,
// grounded on the one-table-per-operator-class idiom (2dffc1ea's codegen
// keeps an opcode table rather than a long switch per AST node kind).
func binaryOpcode(op source.BinaryOp, operandType ir.Type) (byte, error) {
	entry, ok := binaryOpTable[op]
	if !ok {
		return 0, fmt.Errorf("wasmgen: unsupported binary operator %d", op)
	}
	if operandType != nil && operandType.Kind() == ir.KindNumber {
		return entry.numOp, nil
	}
	return entry.intOp, nil
}

func (g *Generator) generateUnary(u *ir.UnaryExpr) ([]byte, error) {
	return g.generateValue(u.Operand)
}

func (g *Generator) generateCondition(c *ir.Condition) ([]byte, error) {
	test, err := g.generateValue(c.Test)
	if err != nil {
		return nil, err
	}
	blockType, err := g.blockTypeOf(c.Type())
	if err != nil {
		return nil, err
	}
	then, err := g.generateValue(c.Consequent)
	if err != nil {
		return nil, err
	}
	alt, err := g.generateValue(c.Alternate)
	if err != nil {
		return nil, err
	}
	buf := append(test, opIf)
	buf = append(buf, blockType...)
	buf = append(buf, then...)
	buf = append(buf, opElse)
	buf = append(buf, alt...)
	return append(buf, opEnd), nil
}

// blockTypeOf encodes t as an `if`/`block`/`loop` block type immediate in
// its single-result form, which is t's value type encoding: a numtype or
// abstract heap type byte, or a ref type byte followed by its type index.
func (g *Generator) blockTypeOf(t ir.Type) ([]byte, error) {
	vt, err := g.Types.ValTypeOf(t)
	if err != nil {
		return nil, err
	}
	return vt.EncodeBlockType(), nil
}

func (g *Generator) generateFunctionCall(call *ir.FunctionCall) ([]byte, error) {
	var buf []byte
	for _, a := range call.Args {
		v, err := g.generateValue(a)
		if err != nil {
			return nil, err
		}
		buf = append(buf, v...)
	}
	idx, ok := g.funcIdx[call.Callee]
	if !ok {
		return nil, fmt.Errorf("wasmgen: call to undeclared function %q", call.Callee.Name)
	}
	return append(buf, opCall, byte(idx)), nil
}

func (g *Generator) generateClosureCall(cc *ir.ClosureCall) ([]byte, error) {
	eval, reuse, err := g.stashReceiver(cc.Closure)
	if err != nil {
		return nil, err
	}
	var buf []byte
	buf = append(buf, eval...)
	buf = append(buf, gcPrefix, gcStructGet, 0x00, 0x00) // context field
	for _, a := range cc.Args {
		v, err := g.generateValue(a)
		if err != nil {
			return nil, err
		}
		buf = append(buf, v...)
	}
	buf = append(buf, reuse...)
	buf = append(buf, gcPrefix, gcStructGet, 0x00, 0x01) // funcref field
	return append(buf, opCallRef), nil
}

// stashReceiver evaluates recv once into a fresh local and returns the
// bytes to push it again (a bare local.get), so a dispatch site can use the
// receiver both to look up a vtable/shape slot and as the call's leading
// `this` argument without re-evaluating an expression that may have side
// effects.
func (g *Generator) stashReceiver(recv ir.Value) (eval []byte, reuse []byte, err error) {
	code, err := g.generateValue(recv)
	if err != nil {
		return nil, nil, err
	}
	idx, err := g.allocLocal(recv.Type())
	if err != nil {
		return nil, nil, err
	}
	eval = append(code, opLocalTee, byte(idx))
	reuse = []byte{opLocalGet, byte(idx)}
	return eval, reuse, nil
}

// generateVTableAccess dispatches dynamically through the receiver's own
// vtable slot (spec §4.3 step 6): load the vtable reference from instance
// slot 0, then struct-get the method/accessor funcref at va.Slot and
// call_ref it. call_ref requires the funcref on top of the stack above its
// arguments, so the receiver is stashed in a local and pushed twice: once
// to resolve the funcref, once as the call's leading `this` argument.
func (g *Generator) generateVTableAccess(va *ir.VTableAccess) ([]byte, error) {
	eval, reuse, err := g.stashReceiver(va.Receiver)
	if err != nil {
		return nil, err
	}
	buf := append([]byte{}, eval...)
	buf = append(buf, gcPrefix, gcStructGet, 0x00, 0x00) // load vtable ref (slot 0)
	buf = append(buf, gcPrefix, gcStructGet, 0x00, byte(va.Slot))
	return g.callThroughFuncref(buf, reuse, va.Op, va.Args, va.SetValue)
}

// callThroughFuncref finishes a vtable/shape dispatch: funcrefBytes leaves
// exactly one funcref value on the stack; this reorders the stack so the
// receiver and call arguments are pushed ahead of it (call_ref's operand
// order), then emits call_ref.
func (g *Generator) callThroughFuncref(funcrefBytes, recvReuse []byte, op ir.AccessOp, args []ir.Value, setValue ir.Value) ([]byte, error) {
	var argBytes []byte
	switch op {
	case ir.OpSetAccessor:
		v, err := g.generateValue(setValue)
		if err != nil {
			return nil, err
		}
		argBytes = v
	case ir.OpCall, ir.OpGetAccessor:
		for _, a := range args {
			v, err := g.generateValue(a)
			if err != nil {
				return nil, err
			}
			argBytes = append(argBytes, v...)
		}
	}
	buf := append([]byte{}, recvReuse...)
	buf = append(buf, argBytes...)
	buf = append(buf, funcrefBytes...)
	return append(buf, opCallRef), nil
}

func (g *Generator) generateOffsetAccess(oa *ir.OffsetAccess) ([]byte, error) {
	recv, err := g.generateValue(oa.Receiver)
	if err != nil {
		return nil, err
	}
	switch oa.Op {
	case ir.OpSet, ir.OpSetAccessor:
		val, err := g.generateValue(oa.SetValue)
		if err != nil {
			return nil, err
		}
		buf := append(recv, val...)
		return append(buf, gcPrefix, gcStructSet, 0x00, byte(oa.Offset)), nil
	case ir.OpCall:
		buf := append([]byte{}, recv...)
		buf = append(buf, gcPrefix, gcStructGet, 0x00, byte(oa.Offset))
		for _, a := range oa.Args {
			v, err := g.generateValue(a)
			if err != nil {
				return nil, err
			}
			buf = append(buf, v...)
		}
		return append(buf, opCallRef), nil
	default:
		return append(recv, gcPrefix, gcStructGet, 0x00, byte(oa.Offset)), nil
	}
}

// generateDirectAccess invokes a statically-resolved getter/setter/method
// function directly (spec §4.3 step 7: DirectGetter, DirectSetter,
// DirectCall all reduce to a plain function call with the receiver as the
// leading argument).
func (g *Generator) generateDirectAccess(da *ir.DirectAccess) ([]byte, error) {
	recv, err := g.generateValue(da.Receiver)
	if err != nil {
		return nil, err
	}
	buf := append([]byte{}, recv...)
	switch da.Op {
	case ir.OpSet, ir.OpSetAccessor:
		val, err := g.generateValue(da.SetValue)
		if err != nil {
			return nil, err
		}
		buf = append(buf, val...)
	default:
		for _, a := range da.Args {
			v, err := g.generateValue(a)
			if err != nil {
				return nil, err
			}
			buf = append(buf, v...)
		}
	}
	idx, ok := g.funcIdx[da.Target]
	if !ok {
		return nil, fmt.Errorf("wasmgen: direct call to undeclared function %q", da.Target.Name)
	}
	return append(buf, opCall, byte(idx)), nil
}

// generateDynamicAccess lowers a DynamicAccess (spec §4.3 step 4:
// any-typed receivers route through DynamicGet/Set/Call) by pushing the
// receiver and its operands and then emitting `unreachable`. No host
// dynamic-dispatcher import is declared or called.
func (g *Generator) generateDynamicAccess(da *ir.DynamicAccess) ([]byte, error) {
	recv, err := g.generateValue(da.Receiver)
	if err != nil {
		return nil, err
	}
	buf := append([]byte{}, recv...)
	switch da.Op {
	case ir.OpSet:
		val, err := g.generateValue(da.SetValue)
		if err != nil {
			return nil, err
		}
		buf = append(buf, val...)
	case ir.OpCall:
		for _, a := range da.Args {
			v, err := g.generateValue(a)
			if err != nil {
				return nil, err
			}
			buf = append(buf, v...)
		}
	}
	return append(buf, 0x00), nil // unreachable
}

// generateShapeAccess dispatches an interface-style member access through
// the receiver's vtable (spec §4.3 step 6: a ShapeAccess indexes the
// receiver's vtable by the shape's fixed member slot, exactly like
// VTableAccess, but the slot number comes from interface layout rather
// than the receiver's own class).
func (g *Generator) generateShapeAccess(sa *ir.ShapeAccess) ([]byte, error) {
	eval, reuse, err := g.stashReceiver(sa.Receiver)
	if err != nil {
		return nil, err
	}
	buf := append([]byte{}, eval...)
	buf = append(buf, gcPrefix, gcStructGet, 0x00, 0x00) // load vtable ref (slot 0)
	buf = append(buf, gcPrefix, gcStructGet, 0x00, byte(sa.MemberIndex))
	return g.callThroughFuncref(buf, reuse, sa.Op, sa.Args, sa.SetValue)
}

func (g *Generator) generateElementAccess(ea *ir.ElementAccess) ([]byte, error) {
	recv, err := g.generateValue(ea.Receiver)
	if err != nil {
		return nil, err
	}
	index, err := g.generateValue(ea.Index)
	if err != nil {
		return nil, err
	}
	buf := append(append([]byte{}, recv...), index...)
	if ea.Op == ir.OpSet {
		val, err := g.generateValue(ea.SetValue)
		if err != nil {
			return nil, err
		}
		buf = append(buf, val...)
		return append(buf, gcPrefix, gcArraySet), nil
	}
	return append(buf, gcPrefix, gcArrayGet), nil
}

func (g *Generator) generateCast(c *ir.Cast) ([]byte, error) {
	operand, err := g.generateValue(c.Operand)
	if err != nil {
		return nil, err
	}
	switch c.Op {
	case ir.CastIdentity:
		return operand, nil
	case ir.CastObjectCastAny, ir.CastValueCastAny, ir.CastUnionToAny:
		return append(operand, gcPrefix, gcAnyConvertExtern), nil
	case ir.CastAnyCastValue, ir.CastAnyCastObject, ir.CastAnyCastInterface, ir.CastUnionToObject:
		idx, err := g.Types.TypeOf(c.Target)
		if err != nil {
			return nil, err
		}
		buf := append(operand, gcPrefix, gcRefCast)
		return append(buf, encoding.PutVarint(nil, int64(idx))...), nil
	case ir.CastObjectCastObject:
		idx, err := g.Types.TypeOf(c.Target)
		if err != nil {
			return nil, err
		}
		buf := append(operand, gcPrefix, gcRefCast)
		return append(buf, encoding.PutVarint(nil, int64(idx))...), nil
	case ir.CastValueCastValue, ir.CastUnionToValue:
		return operand, nil
	case ir.CastValueToString, ir.CastObjectToString:
		return operand, nil // stdlib stringification import, resolved at link time
	case ir.CastNullOrUndefinedToRef:
		return append(operand, 0xd0), nil // ref.null, target heaptype resolved at link time
	default:
		return nil, fmt.Errorf("wasmgen: unhandled cast op %d", c.Op)
	}
}

func (g *Generator) generateNewObject(lo *ir.NewLiteralObject) ([]byte, error) {
	idx, err := g.Types.TypeOf(lo.Type())
	if err != nil {
		return nil, err
	}
	var buf []byte
	for _, v := range lo.Values {
		code, err := g.generateValue(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, code...)
	}
	buf = append(buf, gcPrefix, gcStructNew)
	return append(buf, encoding.PutVarint(nil, int64(idx))...), nil
}

func (g *Generator) generateNewArray(la *ir.NewLiteralArray) ([]byte, error) {
	idx, err := g.Types.TypeOf(la.Type())
	if err != nil {
		return nil, err
	}
	var buf []byte
	for _, v := range la.Elements {
		code, err := g.generateValue(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, code...)
	}
	buf = append(buf, gcPrefix, gcArrayNewFixed)
	buf = append(buf, encoding.PutVarint(nil, int64(idx))...)
	return append(buf, encoding.PutVarint(nil, int64(len(la.Elements)))...), nil
}

func (g *Generator) generateNewConstructor(nc *ir.NewConstructorObject) ([]byte, error) {
	idx, err := g.Types.TypeOf(nc.Type())
	if err != nil {
		return nil, err
	}
	var buf []byte
	for _, a := range nc.Args {
		v, err := g.generateValue(a)
		if err != nil {
			return nil, err
		}
		buf = append(buf, v...)
	}
	buf = append(buf, gcPrefix, gcStructNew)
	return append(buf, encoding.PutVarint(nil, int64(idx))...), nil
}

func (g *Generator) generateNewClosure(nc *ir.NewClosureFunction) ([]byte, error) {
	ctx, err := g.generateValue(nc.Context)
	if err != nil {
		return nil, err
	}
	idx, ok := g.funcIdx[nc.Function]
	if !ok {
		return nil, fmt.Errorf("wasmgen: closure over undeclared function %q", nc.Function.Name)
	}
	closureTypeIdx, err := g.Types.ClosureTypeOf(nc.Function.Signature)
	if err != nil {
		return nil, err
	}
	buf := append(ctx, 0xd2)
	buf = append(buf, encoding.PutVarint(nil, int64(idx))...) // ref.func $idx
	buf = append(buf, gcPrefix, gcStructNew)
	return append(buf, encoding.PutVarint(nil, int64(closureTypeIdx))...), nil
}

func (g *Generator) generateInstanceOf(io *ir.InstanceOfValue) ([]byte, error) {
	operand, err := g.generateValue(io.Operand)
	if err != nil {
		return nil, err
	}
	idx, err := g.Types.TypeOf(io.Target)
	if err != nil {
		return nil, err
	}
	buf := append(operand, gcPrefix, gcRefTest)
	return append(buf, encoding.PutVarint(nil, int64(idx))...), nil
}
