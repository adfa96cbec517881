package ir

import (
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Digest computes a structural fingerprint of t (spec §3.7's content-
// addressed type key). wasmgen's TypeGen uses it as the key of its
// WebAssembly type cache, so structurally-equal types share one type
// section entry; arrays carrying SpecialTypeArguments bypass that cache
// (spec §4.6, Invariant 5) before Digest is consulted.
//
// Two structurally-equal types (per Equal) always produce the same
// Digest. The converse need not hold for pathological inputs; TypeGen
// does not call Equal, so two such types share one cache entry.
func Digest(t Type) digest.Digest {
	var b strings.Builder
	writeFingerprint(&b, t, make(map[Type]bool))
	return digest.FromString(b.String())
}

func writeFingerprint(b *strings.Builder, t Type, seen map[Type]bool) {
	if t == nil {
		b.WriteString("nil")
		return
	}
	if seen[t] {
		b.WriteString("cycle(")
		b.WriteString(strconv.Itoa(t.TypeID()))
		b.WriteByte(')')
		return
	}
	seen[t] = true

	b.WriteString(t.Kind().String())
	b.WriteByte('(')
	switch v := t.(type) {
	case *Namespace:
		b.WriteString(v.Name)
	case *ClosureContext:
		if v.Parent != nil {
			writeFingerprint(b, v.Parent, seen)
		}
		for _, fv := range v.FreeVars {
			b.WriteString(fv.Name)
			b.WriteByte(':')
			writeFingerprint(b, fv.Type, seen)
			b.WriteByte(',')
		}
	case *TypeParameter:
		b.WriteString(v.Name)
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(v.Index))
	case *Generic:
		b.WriteString(v.Name)
		for _, a := range v.SpecialTypeArguments {
			b.WriteByte(',')
			writeFingerprint(b, a, seen)
		}
	case *Enum:
		b.WriteString(v.Name)
	case *Union:
		for _, m := range v.Members {
			writeFingerprint(b, m, seen)
			b.WriteByte('|')
		}
	case *Function:
		for _, p := range v.Params {
			writeFingerprint(b, p, seen)
			b.WriteByte(',')
		}
		b.WriteString("->")
		writeFingerprint(b, v.Result, seen)
	case *Array:
		writeFingerprint(b, v.Element, seen)
		if len(v.SpecialTypeArguments) > 0 {
			b.WriteString(";special")
		}
	case *Set:
		writeFingerprint(b, v.Element, seen)
	case *Map:
		writeFingerprint(b, v.Key, seen)
		b.WriteByte(',')
		writeFingerprint(b, v.Value, seen)
	case *Object:
		b.WriteString(v.Name)
		for _, a := range v.SpecialTypeArguments {
			b.WriteByte(',')
			writeFingerprint(b, a, seen)
		}
	}
	b.WriteByte(')')
	delete(seen, t)
}
