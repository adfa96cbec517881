package build

import (
	"fmt"

	"github.com/wasmlang/tscc/internal/source"
	"github.com/wasmlang/tscc/ir"
)

// BuildModule lowers every top-level declaration into an ir.Module (spec
// §4.1, component C4/C5 entry point). It runs two passes: the first
// interns every class/interface type and installs a FunctionDeclare shell
// for each function/method/constructor so forward references and
// DirectAccess lookups (member.go's methodKey) resolve regardless of
// declaration order; the second fills in every shell's Body.
func (c *Context) BuildModule(decls []source.Node) (*ir.Module, error) {
	mod := &ir.Module{}

	type pendingFunction struct {
		shell *ir.FunctionDeclare
		owner *ir.Object
		src   source.FunctionExpr
	}
	type pendingGlobal struct {
		decl *ir.VarDeclare
		src  source.VarDecl
	}
	var pending []pendingFunction
	var pendingGlobals []pendingGlobal

	for _, decl := range decls {
		switch decl.Kind() {
		case source.KindClassDecl:
			cd := decl.(source.ClassDecl)
			owner, err := c.Registry.FindOrCreate(cd.DeclaredType())
			if err != nil {
				return nil, err
			}
			obj, ok := owner.(*ir.Object)
			if !ok {
				return nil, fmt.Errorf("ir/build: class %q did not resolve to an Object type", cd.Name())
			}
			c.DeclareGlobal(cd.Name(), obj)
			mod.Classes = append(mod.Classes, obj)
			for _, m := range cd.Members() {
				if m.Body == nil {
					continue // plain field, no method body to lower
				}
				shell, err := c.newMethodShell(obj, m)
				if err != nil {
					return nil, err
				}
				c.DeclareGlobal(methodKey(obj, m.Name), shell)
				mod.Functions = append(mod.Functions, shell)
				pending = append(pending, pendingFunction{shell: shell, owner: obj, src: m.Body})
				if m.HasSetter && m.SetterBody != nil {
					setterShell, err := c.newMethodShell(obj, source.ClassMember{Name: m.Name, Kind: m.Kind, Type: m.Type, Body: m.SetterBody})
					if err != nil {
						return nil, err
					}
					c.DeclareGlobal(methodKey(obj, m.Name)+"=", setterShell)
					mod.Functions = append(mod.Functions, setterShell)
					pending = append(pending, pendingFunction{shell: setterShell, owner: obj, src: m.SetterBody})
				}
			}

		case source.KindInterfaceDecl:
			id := decl.(source.InterfaceDecl)
			owner, err := c.Registry.FindOrCreate(id.DeclaredType())
			if err != nil {
				return nil, err
			}
			obj, ok := owner.(*ir.Object)
			if !ok {
				return nil, fmt.Errorf("ir/build: interface %q did not resolve to an Object type", id.Name())
			}
			c.DeclareGlobal(id.Name(), obj)
			mod.Classes = append(mod.Classes, obj)

		case source.KindFunctionDecl:
			fe := decl.(source.FunctionExpr)
			name := ""
			if named, ok := decl.(interface{ Name() string }); ok {
				name = named.Name()
			}
			sig, err := c.buildFunctionSignature(fe)
			if err != nil {
				return nil, err
			}
			shell := &ir.FunctionDeclare{Name: name, Signature: sig, IsExported: true}
			ir.BuildNode(shell, decl.Span())
			c.DeclareGlobal(name, shell)
			mod.Functions = append(mod.Functions, shell)
			pending = append(pending, pendingFunction{shell: shell, src: fe})

		case source.KindVarDecl:
			vd := decl.(source.VarDecl)
			typ, err := c.Registry.FindOrCreate(vd.DeclaredType())
			if err != nil {
				return nil, err
			}
			gdecl := ir.BuildNode(&ir.VarDeclare{Name: vd.Name(), Type: typ, IsConst: vd.Init() == nil}, decl.Span())
			c.DeclareGlobal(vd.Name(), gdecl)
			mod.Globals = append(mod.Globals, gdecl)
			if vd.Init() != nil {
				pendingGlobals = append(pendingGlobals, pendingGlobal{decl: gdecl, src: vd})
			}

		default:
			return nil, fmt.Errorf("ir/build: unsupported top-level declaration kind %s", decl.Kind())
		}
	}

	// Second pass: build global var initializers now that every name at
	// module scope is visible, regardless of declaration order.
	for _, pg := range pendingGlobals {
		c.PushRefKind(Right)
		init, err := c.BuildExpr(pg.src.Init())
		c.PopRefKind()
		if err != nil {
			return nil, err
		}
		init, err = c.CastTo(pg.src.Span(), pg.decl.Type, init)
		if err != nil {
			return nil, err
		}
		pg.decl.Init = init
	}

	for _, p := range pending {
		if p.owner != nil {
			c.PushClass(p.owner)
		}
		params := make([]*ir.VarDeclare, 0, len(p.src.Params()))
		c.PushScope(newClosureScope(functionScopeName(p.shell)))
		for i, param := range p.src.Params() {
			pd := ir.BuildNode(&ir.VarDeclare{Name: param.Name, Type: p.shell.Signature.Params[i]}, p.src.Span())
			c.DeclareLocal(pd)
			params = append(params, pd)
		}
		p.shell.Params = params
		body, err := c.buildFunctionBody(p.src.Body())
		c.PopScope()
		if p.owner != nil {
			c.PopClass()
		}
		if err != nil {
			return nil, err
		}
		p.shell.Body = body
	}

	return mod, nil
}

func functionScopeName(fd *ir.FunctionDeclare) string {
	if fd.Name != "" {
		return fd.Name
	}
	return "fn"
}

// newMethodShell builds a FunctionDeclare shell for a class member's method
// or accessor body, without its Body filled in yet (spec §4.1: classes and
// their methods are registered before any body is lowered, so mutual
// recursion and DirectAccess lookups resolve regardless of order).
func (c *Context) newMethodShell(owner *ir.Object, m source.ClassMember) (*ir.FunctionDeclare, error) {
	result, err := c.Registry.FindOrCreate(resultTypeOf(m))
	if err != nil {
		return nil, err
	}
	var params []ir.Type
	var names []string
	if m.Body != nil {
		for _, p := range m.Body.Params() {
			pt, err := c.Registry.FindOrCreate(p.Type)
			if err != nil {
				return nil, err
			}
			params = append(params, pt)
			names = append(names, p.Name)
		}
	}
	shell := &ir.FunctionDeclare{
		Name:      owner.Name + "#" + m.Name,
		Signature: &ir.Function{Params: params, ParamNames: names, Result: result},
		IsMethod:  true,
		Owner:     owner,
	}
	ir.BuildNode(shell, m.Body.Span())
	return shell, nil
}

// resultTypeOf extracts the source.Type a class member's body returns.
// Constructors and members without a body yield nil, which
// Registry.FindOrCreate maps to Void.
func resultTypeOf(m source.ClassMember) source.Type {
	if m.Body != nil && m.Kind != source.MemberConstructor {
		return m.Body.ReturnType()
	}
	return nil
}
