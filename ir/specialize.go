package ir

import "fmt"

// Specialize substitutes actual into generic's type parameters, producing
// a new Type whose GenericOwner is generic itself (spec §4.1). Structural
// equality between two specializations of the same generic requires both
// GenericOwner identity and pairwise-equal SpecialTypeArguments (see
// Equal's equalSpecialization).
//
// Specialize supports the three generic-bearing shapes this language
// allows: a Generic declaration, an Object (generic class), and an Array
// (spec §4.6's cache-bypass rule exists specifically because Array is
// specializable this way — Array<T> starts life unspecialized and is
// re-specialized once an element is pushed that pins T down, spec §8
// concrete scenario "let a: number[] = []; a.push(10)").
func (r *Registry) Specialize(generic Type, actual []Type) (Type, error) {
	switch g := generic.(type) {
	case *Generic:
		out := &Generic{
			typeBase:             typeBase{id: r.allocID(), kind: KindGeneric},
			Name:                 g.Name,
			TypeParams:           g.TypeParams,
			SpecialTypeArguments: actual,
		}
		out.owner = g
		return out, nil
	case *Object:
		if len(actual) != len(typeParamsOf(g)) && len(typeParamsOf(g)) != 0 {
			return nil, fmt.Errorf("ir: specialize %q: expected %d type arguments, got %d", g.Name, len(typeParamsOf(g)), len(actual))
		}
		out := &Object{
			typeBase:             typeBase{id: r.allocID(), kind: KindObject},
			Name:                 g.Name,
			SuperClass:           g.SuperClass,
			Interfaces:           g.Interfaces,
			IsInterface:          g.IsInterface,
			SpecialTypeArguments: actual,
		}
		out.owner = g
		out.Meta = substituteDescriptor(g.Meta, g, out)
		return out, nil
	case *Array:
		if len(actual) != 1 {
			return nil, fmt.Errorf("ir: specialize array: expected 1 type argument, got %d", len(actual))
		}
		out := &Array{
			typeBase:             typeBase{id: r.allocID(), kind: KindArray},
			Element:              actual[0],
			SpecialTypeArguments: actual,
		}
		out.owner = g
		out.Meta = newArrayDescriptor(actual[0])
		return out, nil
	default:
		return nil, fmt.Errorf("ir: cannot specialize non-generic type %s", generic)
	}
}

func typeParamsOf(o *Object) []*TypeParameter {
	if o.Meta == nil {
		return nil
	}
	return o.Meta.TypeParams
}

// WideOf computes spec §3.1/§4.1's wideOf: "the smallest single type that
// subsumes every member of the union; when members are all objects
// sharing a common base, that base; otherwise Any."
func WideOf(u *Union) Type {
	if len(u.Members) == 0 {
		return u
	}
	first := u.Members[0]
	allSame := true
	for _, m := range u.Members[1:] {
		if !Equal(m, first) {
			allSame = false
			break
		}
	}
	if allSame {
		return first
	}
	if base, ok := commonObjectBase(u.Members); ok {
		return base
	}
	return &Any{typeBase{id: idAny, kind: KindAny}}
}

// commonObjectBase finds the closest shared ancestor when every member of
// members is an *Object, walking each member's superclass chain.
func commonObjectBase(members []Type) (Type, bool) {
	chains := make([][]*Object, len(members))
	for i, m := range members {
		o, ok := m.(*Object)
		if !ok {
			return nil, false
		}
		for c := o; c != nil; c = c.SuperClass {
			chains[i] = append(chains[i], c)
		}
	}
	if len(chains) == 0 {
		return nil, false
	}
	// Walk the first member's chain from its root (furthest ancestor)
	// looking for the deepest class present in every other chain.
	first := chains[0]
	var best *Object
	for i := len(first) - 1; i >= 0; i-- {
		candidate := first[i]
		inAll := true
		for _, chain := range chains[1:] {
			found := false
			for _, c := range chain {
				if c == candidate {
					found = true
					break
				}
			}
			if !found {
				inAll = false
				break
			}
		}
		if inAll {
			best = candidate
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}
