package ir

// MemberKind mirrors source.MemberKind (spec §3.2).
type MemberKind int

const (
	MemberField MemberKind = iota
	MemberMethod
	MemberAccessor
	MemberConstructor
)

// Member is one entry of an object descriptor (spec §3.2): name, stable
// insertion-order index, kind, declared type, and flags.
type Member struct {
	Name      string
	Index     int
	Kind      MemberKind
	Type      Type
	Static    bool
	ReadOnly  bool
	Override  bool
	HasGetter bool
	HasSetter bool
}

// Descriptor enumerates an Object/Array/Map/Set's members and carries both
// canonical shapes computed from them (spec §3.2, component C2).
type Descriptor struct {
	Members    []Member
	TypeParams []*TypeParameter

	OriginShape *Shape
	ThisShape   *Shape
}

// ShapeMember is one dispatch-kind projection of a Member (spec §3.2).
// Exactly one of the three embedded optional payloads is meaningful,
// selected by Kind; Empty means "no statically-known concrete
// implementation here" (spec §3.2's originShape isEmpty flag).
type ShapeMember struct {
	Kind  ShapeMemberKind
	Empty bool

	// Field
	Offset int

	// Method
	MethodOffset int  // vtable slot, meaningful when HasOffset
	HasOffset    bool // true selects offset/vtable dispatch, false selects direct dispatch
	DirectValue  any  // opaque direct-dispatch payload; nothing in this module sets it, so it stays nil

	// Accessor
	GetterOffset      int
	GetterHasOffset   bool
	GetterDirectValue any
	GetterPresent     bool
	SetterOffset      int
	SetterHasOffset   bool
	SetterDirectValue any
	SetterPresent     bool
}

// ShapeMemberKind enumerates the three ShapeMember payload shapes.
type ShapeMemberKind int

const (
	ShapeField ShapeMemberKind = iota
	ShapeMethod
	ShapeAccessor
)

// Shape is a descriptor projected onto a dispatch policy: originShape
// (seen from outside) or thisShape (seen from inside the owning class),
// spec §3.2.
type Shape struct {
	// IsThis distinguishes thisShape from originShape. ir/build's member
	// resolution does not branch on it: Descriptor.MemberByName always
	// returns the OriginShape entry, whichever shape the receiver holds.
	IsThis  bool
	Members []ShapeMember
}

// MemberByName returns a member descriptor and its OriginShape twin by
// name, or ok=false if absent. ir/build reports an absent member as an
// UnresolvedMember error rather than emitting a dynamic access.
func (d *Descriptor) MemberByName(name string) (Member, ShapeMember, bool) {
	for _, m := range d.Members {
		if m.Name == name {
			shape := d.OriginShape
			return m, shape.Members[m.Index], true
		}
	}
	return Member{}, ShapeMember{}, false
}

// newObjectDescriptor computes both canonical shapes for a newly built
// Object (spec §4.2). Field offsets start at 1 because slot 0 is reserved
// for the vtable pointer (spec §3.2: "Field{offset = 1 + field_index}").
// Method/accessor vtable slots are assigned declaration order restricted
// to methods+accessors, and subclass shapes extend the superclass shape
// at the same prefix (spec §3.2 Invariant, §4.2).
func newObjectDescriptor(owner *Object, members []Member) *Descriptor {
	d := &Descriptor{Members: members}

	var inherited []ShapeMember
	var inheritedMembers []Member
	if owner.SuperClass != nil && owner.SuperClass.Meta != nil {
		inherited = append(inherited, owner.SuperClass.Meta.ThisShape.Members...)
		inheritedMembers = append(inheritedMembers, owner.SuperClass.Meta.Members...)
	}

	this := &Shape{IsThis: true}
	this.Members = append(this.Members, inherited...)

	origin := &Shape{IsThis: false}
	origin.Members = append(origin.Members, projectOrigin(inherited)...)

	vtableSlot := countDispatchSlots(inheritedMembers)
	fieldIdx := 0

	for _, m := range members {
		// Overrides replace the inherited slot at the same index instead
		// of appending a new one (spec §4.2: "Subclass shapes are built
		// by extending the superclass shape with overridden slots
		// replacing inherited ones at the same index.").
		overrideIdx := -1
		if m.Override {
			for i, im := range inheritedMembers {
				if im.Name == m.Name {
					overrideIdx = i
					break
				}
			}
		}

		switch m.Kind {
		case MemberField:
			sm := ShapeMember{Kind: ShapeField, Offset: 1 + fieldIdx}
			fieldIdx++
			appendOrReplace(this, origin, overrideIdx, sm, fieldOriginView(sm))
		case MemberMethod, MemberConstructor:
			sm := ShapeMember{Kind: ShapeMethod, HasOffset: true, MethodOffset: vtableSlot}
			originSM := sm
			originSM.Empty = false // concretely implemented: origin still carries the offset when externally visible
			if overrideIdx >= 0 {
				sm.MethodOffset = this.Members[overrideIdx].MethodOffset
				originSM.MethodOffset = sm.MethodOffset
				this.Members[overrideIdx] = sm
				origin.Members[overrideIdx] = originSM
			} else {
				this.Members = append(this.Members, sm)
				origin.Members = append(origin.Members, originSM)
				vtableSlot++
			}
		case MemberAccessor:
			sm := ShapeMember{Kind: ShapeAccessor}
			if m.HasGetter {
				sm.GetterPresent = true
				sm.GetterHasOffset = true
				sm.GetterOffset = vtableSlot
				vtableSlot++
			}
			if m.HasSetter {
				sm.SetterPresent = true
				sm.SetterHasOffset = true
				sm.SetterOffset = vtableSlot
				vtableSlot++
			}
			if overrideIdx >= 0 {
				this.Members[overrideIdx] = sm
				origin.Members[overrideIdx] = sm
			} else {
				this.Members = append(this.Members, sm)
				origin.Members = append(origin.Members, sm)
			}
		}
	}

	d.ThisShape = this
	d.OriginShape = origin
	return d
}

func appendOrReplace(this, origin *Shape, overrideIdx int, thisSM, originSM ShapeMember) {
	if overrideIdx >= 0 {
		this.Members[overrideIdx] = thisSM
		origin.Members[overrideIdx] = originSM
		return
	}
	this.Members = append(this.Members, thisSM)
	origin.Members = append(origin.Members, originSM)
}

// fieldOriginView returns the origin-shape view of a field: identical to
// the thisShape view, since a concrete field always has a known offset
// regardless of where it's observed from.
func fieldOriginView(sm ShapeMember) ShapeMember { return sm }

// projectOrigin rebuilds the originShape view of inherited members: a
// receiver observing through an interface or literal type only sees what
// an external caller could see, which for already-finalized inherited
// members is the same concrete slot (re-deriving would require access to
// the original Member flags, which inherited ShapeMembers already
// encode).
func projectOrigin(inherited []ShapeMember) []ShapeMember {
	out := make([]ShapeMember, len(inherited))
	copy(out, inherited)
	return out
}

// countDispatchSlots counts how many vtable slots members consumes,
// i.e. one per method/constructor and one per accessor side present.
func countDispatchSlots(members []Member) int {
	n := 0
	for _, m := range members {
		switch m.Kind {
		case MemberMethod, MemberConstructor:
			n++
		case MemberAccessor:
			if m.HasGetter {
				n++
			}
			if m.HasSetter {
				n++
			}
		}
	}
	return n
}

// newArrayDescriptor, newSetDescriptor, newMapDescriptor build the
// built-in descriptor each collection type carries so that member access
// on a Map/Set/Array of `any` elements can route through a concrete shape
// instead of dynamic dispatch (spec §8 boundary #9). These are minimal:
// collections don't have user-declared members, only the handful of
// built-ins wasmgen/runtime documents (length, push, get, set, has, …),
// modeled here as Method entries with offset-based (vtable) dispatch so
// C4's resolution algorithm (spec §4.3) treats them uniformly with
// user-declared methods.
func newArrayDescriptor(element Type) *Descriptor {
	return builtinCollectionDescriptor([]string{"length", "push", "pop", "get", "set"})
}

func newSetDescriptor(element Type) *Descriptor {
	return builtinCollectionDescriptor([]string{"size", "add", "has", "delete"})
}

func newMapDescriptor(key, value Type) *Descriptor {
	return builtinCollectionDescriptor([]string{"size", "get", "set", "has", "delete"})
}

func builtinCollectionDescriptor(names []string) *Descriptor {
	members := make([]Member, len(names))
	shapeMembers := make([]ShapeMember, len(names))
	for i, n := range names {
		members[i] = Member{Name: n, Index: i, Kind: MemberMethod}
		shapeMembers[i] = ShapeMember{Kind: ShapeMethod, HasOffset: true, MethodOffset: i}
	}
	return &Descriptor{
		Members:     members,
		ThisShape:   &Shape{IsThis: true, Members: shapeMembers},
		OriginShape: &Shape{IsThis: false, Members: shapeMembers},
	}
}

// substituteDescriptor rebuilds a generic class's descriptor for one
// specialization, substituting TypeParameter members with the actual
// arguments supplied to Specialize (spec §9 "Generics": "record
// specialTypeArguments on the specialized site").
func substituteDescriptor(src *Descriptor, generic, specialized *Object) *Descriptor {
	if src == nil {
		return nil
	}
	subst := make(map[int]Type, len(src.TypeParams))
	for i, tp := range src.TypeParams {
		if i < len(specialized.SpecialTypeArguments) {
			subst[tp.Index] = specialized.SpecialTypeArguments[i]
		}
	}
	members := make([]Member, len(src.Members))
	for i, m := range src.Members {
		m.Type = substituteType(m.Type, subst)
		members[i] = m
	}
	out := &Descriptor{
		Members:     members,
		TypeParams:  src.TypeParams,
		OriginShape: src.OriginShape,
		ThisShape:   src.ThisShape,
	}
	return out
}

func substituteType(t Type, subst map[int]Type) Type {
	if tp, ok := t.(*TypeParameter); ok {
		if s, ok := subst[tp.Index]; ok {
			return s
		}
	}
	return t
}
