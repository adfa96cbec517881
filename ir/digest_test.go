package ir

import "testing"

func TestDigestStableForEqualTypes(t *testing.T) {
	r := NewRegistry()
	u1 := &Union{typeBase: typeBase{kind: KindUnion}, Members: []Type{r.singletons[KindInt], r.singletons[KindString]}}
	u2 := &Union{typeBase: typeBase{kind: KindUnion}, Members: []Type{r.singletons[KindInt], r.singletons[KindString]}}
	if Digest(u1) != Digest(u2) {
		t.Error("structurally equal unions should produce the same digest")
	}
}

func TestDigestDiffersForDifferentTypes(t *testing.T) {
	r := NewRegistry()
	if Digest(r.singletons[KindInt]) == Digest(r.singletons[KindNumber]) {
		t.Error("Int and Number should have different digests")
	}
}

func TestDigestHandlesSelfReferencingClosureContext(t *testing.T) {
	cc := &ClosureContext{typeBase: typeBase{kind: KindClosureContext}}
	cc.owner = cc
	cc.FreeVars = []FreeVar{{Name: "self", Type: cc}}
	// Must not stack-overflow on a type that (degenerately) refers to itself.
	_ = Digest(cc)
}
