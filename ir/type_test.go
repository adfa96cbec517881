package ir

import "testing"

func TestEqualReflexiveAndSymmetric(t *testing.T) {
	r := NewRegistry()
	types := []Type{
		r.singletons[KindVoid],
		r.singletons[KindInt],
		r.singletons[KindNumber],
		r.singletons[KindAny],
		&Union{typeBase: typeBase{kind: KindUnion}, Members: []Type{r.singletons[KindInt], r.singletons[KindString]}},
		&Function{typeBase: typeBase{kind: KindFunction}, Params: []Type{r.singletons[KindInt]}, Result: r.singletons[KindVoid]},
	}
	for _, a := range types {
		if !Equal(a, a) {
			t.Errorf("Equal(%v, %v) = false, want true (reflexivity)", a, a)
		}
	}
	for i, a := range types {
		for j, b := range types {
			if i == j {
				continue
			}
			if got := Equal(a, b); got != Equal(b, a) {
				t.Errorf("Equal(%v, %v) = %v but Equal(%v, %v) = %v (not symmetric)", a, b, got, b, a, Equal(b, a))
			}
		}
	}
}

func TestEqualDistinctKindsAreUnequal(t *testing.T) {
	r := NewRegistry()
	if Equal(r.singletons[KindInt], r.singletons[KindNumber]) {
		t.Error("Int and Number should not be structurally equal")
	}
}

func TestStructuralEqualityDespiteDistinctTypeIDs(t *testing.T) {
	// Spec §3.1: "typeId equality implies structural equality but not the
	// reverse (specializations of the same generic share structure but
	// are distinct)".
	r := NewRegistry()
	obj := &Object{typeBase: typeBase{id: 2001, kind: KindObject}, Name: "Box"}
	obj.owner = obj
	specA, err := r.Specialize(obj, []Type{r.singletons[KindInt]})
	if err != nil {
		t.Fatal(err)
	}
	specB, err := r.Specialize(obj, []Type{r.singletons[KindInt]})
	if err != nil {
		t.Fatal(err)
	}
	if specA.TypeID() == specB.TypeID() {
		t.Fatal("test setup: expected distinct type IDs for two Specialize calls")
	}
	if !Equal(specA, specB) {
		t.Error("two specializations with the same generic owner and equal type arguments should be structurally equal despite distinct typeIds")
	}

	specC, err := r.Specialize(obj, []Type{r.singletons[KindString]})
	if err != nil {
		t.Fatal(err)
	}
	if Equal(specA, specC) {
		t.Error("specializations with different type arguments should not be structurally equal")
	}
}

func TestGenericOwnerSelfWhenUnspecialized(t *testing.T) {
	r := NewRegistry()
	v := r.singletons[KindInt]
	if v.GenericOwner() != v {
		t.Error("an unspecialized type's GenericOwner should be itself")
	}
}

func TestWideOfAllSameMember(t *testing.T) {
	r := NewRegistry()
	u := &Union{typeBase: typeBase{kind: KindUnion}, Members: []Type{r.singletons[KindInt], r.singletons[KindInt]}}
	got := WideOf(u)
	if !Equal(got, r.singletons[KindInt]) {
		t.Errorf("WideOf(int | int) = %v, want int", got)
	}
}

func TestWideOfCommonBase(t *testing.T) {
	base := &Object{typeBase: typeBase{id: 2001, kind: KindObject}, Name: "Animal"}
	base.owner = base
	dog := &Object{typeBase: typeBase{id: 2002, kind: KindObject}, Name: "Dog", SuperClass: base}
	dog.owner = dog
	cat := &Object{typeBase: typeBase{id: 2003, kind: KindObject}, Name: "Cat", SuperClass: base}
	cat.owner = cat

	u := &Union{typeBase: typeBase{kind: KindUnion}, Members: []Type{dog, cat}}
	got := WideOf(u)
	if got != base {
		t.Errorf("WideOf(Dog | Cat) = %v, want Animal", got)
	}
}

func TestWideOfFallsBackToAny(t *testing.T) {
	r := NewRegistry()
	u := &Union{typeBase: typeBase{kind: KindUnion}, Members: []Type{r.singletons[KindInt], r.singletons[KindString]}}
	got := WideOf(u)
	if got.Kind() != KindAny {
		t.Errorf("WideOf(int | string) = %v, want Any", got)
	}
}
