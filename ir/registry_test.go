package ir

import (
	"testing"

	"github.com/wasmlang/tscc/internal/source"
	"github.com/wasmlang/tscc/internal/source/fixture"
)

func TestFindOrCreateIdempotent(t *testing.T) {
	r := NewRegistry()
	astInt := fixture.Int()
	a, err := r.FindOrCreate(astInt)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.FindOrCreate(astInt)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("FindOrCreate(astInt) returned different instances: %p != %p", a, b)
	}
}

func TestFindOrCreateCyclicClass(t *testing.T) {
	// class Node { next: Node } — the field's type is the enclosing class.
	r := NewRegistry()
	astNode := fixture.Object("Node", false, nil, nil, nil)
	astNode.SetMembers([]source.TypeMember{
		{Name: "next", Kind: source.MemberField, Type: astNode},
	})

	got, err := r.FindOrCreate(astNode)
	if err != nil {
		t.Fatal(err)
	}
	obj, ok := got.(*Object)
	if !ok {
		t.Fatalf("FindOrCreate returned %T, want *Object", got)
	}
	if len(obj.Meta.Members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(obj.Meta.Members))
	}
	fieldType, ok := obj.Meta.Members[0].Type.(*Object)
	if !ok {
		t.Fatalf("field type is %T, want *Object", obj.Meta.Members[0].Type)
	}
	if fieldType != obj {
		t.Error("self-referencing field should resolve to the same *Object instance, not a copy")
	}
}

func TestObjectDescriptorMemberIndexMatchesPosition(t *testing.T) {
	r := NewRegistry()
	astObj := fixture.Object("Point", false, nil, nil, []source.TypeMember{
		{Name: "x", Kind: source.MemberField, Type: fixture.Number()},
		{Name: "y", Kind: source.MemberField, Type: fixture.Number()},
		{Name: "length", Kind: source.MemberMethod, Type: fixture.Func(fixture.Number())},
	})
	got, err := r.FindOrCreate(astObj)
	if err != nil {
		t.Fatal(err)
	}
	obj := got.(*Object)
	for i, m := range obj.Meta.Members {
		if m.Index != i {
			t.Errorf("member %q has Index %d, want %d", m.Name, m.Index, i)
		}
	}
}

func TestSubclassShapeExtendsSuperclassPrefix(t *testing.T) {
	r := NewRegistry()
	astAnimal := fixture.Object("Animal", false, nil, nil, []source.TypeMember{
		{Name: "speak", Kind: source.MemberMethod, Type: fixture.Func(fixture.Void())},
	})
	animalT, err := r.FindOrCreate(astAnimal)
	if err != nil {
		t.Fatal(err)
	}
	astDog := fixture.Object("Dog", false, astAnimal, nil, []source.TypeMember{
		{Name: "speak", Kind: source.MemberMethod, Type: fixture.Func(fixture.Void()), Override: true},
		{Name: "fetch", Kind: source.MemberMethod, Type: fixture.Func(fixture.Void())},
	})
	dogT, err := r.FindOrCreate(astDog)
	if err != nil {
		t.Fatal(err)
	}

	animal := animalT.(*Object)
	dog := dogT.(*Object)

	if len(dog.Meta.ThisShape.Members) != 2 {
		t.Fatalf("expected 2 vtable slots on Dog, got %d", len(dog.Meta.ThisShape.Members))
	}
	// The overridden "speak" slot must stay at the same index (0) as on Animal.
	if dog.Meta.ThisShape.Members[0].MethodOffset != animal.Meta.ThisShape.Members[0].MethodOffset {
		t.Error("overridden method should keep the same vtable slot as the superclass")
	}
	if dog.Meta.ThisShape.Members[1].MethodOffset != 1 {
		t.Errorf("new method 'fetch' should take slot 1, got %d", dog.Meta.ThisShape.Members[1].MethodOffset)
	}
}

func TestArraySpecializationCacheBypassMarksSpecialArgs(t *testing.T) {
	r := NewRegistry()
	astArr := fixture.Array(fixture.Any())
	anyArr, err := r.FindOrCreate(astArr)
	if err != nil {
		t.Fatal(err)
	}
	arr := anyArr.(*Array)
	if len(arr.SpecialTypeArguments) != 0 {
		t.Fatal("a freshly-created array type should not carry SpecialTypeArguments")
	}

	specialized, err := r.Specialize(arr, []Type{r.singletons[KindNumber]})
	if err != nil {
		t.Fatal(err)
	}
	sa := specialized.(*Array)
	if len(sa.SpecialTypeArguments) == 0 {
		t.Error("Specialize should populate SpecialTypeArguments so wasmgen's cache-bypass rule fires")
	}
	if !Equal(sa.Element, r.singletons[KindNumber]) {
		t.Error("specialized array element type should be Number")
	}
}
