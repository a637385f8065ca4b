package types

import (
	"fmt"
	"slices"
	"strings"
)

// QualifierKind selects one of the fixed qualifier slots.
type QualifierKind uint8

const (
	QualifierRefer QualifierKind = iota
	QualifierView
	QualifierMove
	QualifierMutate
	QualifierKey
	numQualifierKinds
)

var qualifierKindNames = [...]string{
	QualifierRefer:  "refer",
	QualifierView:   "view",
	QualifierMove:   "move",
	QualifierMutate: "mutate",
	QualifierKey:    "key",
}

func (k QualifierKind) String() string {
	if int(k) < len(qualifierKindNames) {
		return qualifierKindNames[k]
	}
	return fmt.Sprintf("QualifierKind(%d)", k)
}

// Mask is a set of qualifier kinds.
type Mask uint8

const (
	MaskRefer  Mask = 1 << QualifierRefer
	MaskView   Mask = 1 << QualifierView
	MaskMove   Mask = 1 << QualifierMove
	MaskMutate Mask = 1 << QualifierMutate
	MaskKey    Mask = 1 << QualifierKey

	MaskUniquenessTags = MaskView | MaskMove
	MaskAnnotations    = MaskView | MaskMove | MaskMutate | MaskKey
	MaskAll            = MaskRefer | MaskAnnotations
)

// Qualifier is an annotation composable onto any type.
type Qualifier interface {
	Kind() QualifierKind
	appendKey(k *keyWriter)
	String() string
}

// Refer marks a type as a reference into the given storage class.
type Refer struct {
	Flags PointerFlags
	Class StorageClass
}

// View tracks the unique values a type borrows from.
type View struct {
	IDs []int
}

// Move marks a uniquely owned value.
type Move struct {
	ID int
}

// Mutate marks a value as mutable.
type Mutate struct{}

// Key attaches a field name to a type.
type Key struct {
	Key string
}

func (Refer) Kind() QualifierKind  { return QualifierRefer }
func (View) Kind() QualifierKind   { return QualifierView }
func (Move) Kind() QualifierKind   { return QualifierMove }
func (Mutate) Kind() QualifierKind { return QualifierMutate }
func (Key) Kind() QualifierKind    { return QualifierKey }

func (q Refer) appendKey(k *keyWriter) { k.uint(uint64(q.Flags)).str(string(q.Class)) }
func (q Move) appendKey(k *keyWriter)  { k.uint(uint64(q.ID)) }
func (Mutate) appendKey(*keyWriter)    {}
func (q Key) appendKey(k *keyWriter)   { k.str(q.Key) }

func (q View) appendKey(k *keyWriter) {
	ids := sortedIDs(q.IDs)
	k.uint(uint64(len(ids)))
	for _, id := range ids {
		k.uint(uint64(id))
	}
}

func sortedIDs(ids []int) []int {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func (q Refer) String() string {
	if q.Class == ClassGeneric {
		return "&"
	}
	return "&(" + string(q.Class) + ")"
}

func (q View) String() string {
	var sb strings.Builder
	sb.WriteString("view")
	for _, id := range sortedIDs(q.IDs) {
		fmt.Fprintf(&sb, " %%%d", id)
	}
	return sb.String()
}

func (q Move) String() string { return fmt.Sprintf("move %%%d", q.ID) }
func (Mutate) String() string { return "mutable" }
func (q Key) String() string  { return q.Key + "=" }

// Qualify composes qs onto t. Qualifiers already on t are kept unless qs
// carries one of the same kind, which replaces it.
func Qualify(t Type, qs ...Qualifier) Type {
	if len(qs) == 0 {
		return t
	}
	global.mu.Lock()
	defer global.mu.Unlock()
	base := t
	var slots [numQualifierKinds]Qualifier
	var mask Mask
	if q, ok := global.get(t).kind.(QualifyType); ok {
		base, slots, mask = q.Base, q.Slots, q.Mask
	}
	for _, q := range qs {
		slots[q.Kind()] = q
		mask |= 1 << q.Kind()
	}
	return global.qualify(base, mask, slots)
}

func (s *store) qualify(base Type, mask Mask, slots [numQualifierKinds]Qualifier) Type {
	if mask == 0 {
		return base
	}
	k := newKey(tagQualify).typ(base).uint(uint64(mask))
	for i, q := range slots {
		if mask&(1<<i) == 0 {
			slots[i] = nil
			continue
		}
		q.appendKey(k)
	}
	t, _ := s.intern(tagQualify, k.b, func() (node, error) {
		n := node{kind: QualifyType{Base: base, Mask: mask, Slots: slots}}
		if l, err := s.layoutOf(base); err == nil {
			n.layout = l
		}
		return n, nil
	})
	return t
}

// StripQualifiers removes the qualifiers selected by mask. When nothing
// remains the unqualified base type is returned.
func StripQualifiers(t Type, mask Mask) Type {
	global.mu.Lock()
	defer global.mu.Unlock()
	q, ok := global.get(t).kind.(QualifyType)
	if !ok {
		return t
	}
	remaining := q.Mask &^ mask
	if remaining == q.Mask {
		return t
	}
	return global.qualify(q.Base, remaining, q.Slots)
}

// FindQualifier returns the qualifier of the given kind on t.
func FindQualifier(t Type, kind QualifierKind) (Qualifier, bool) {
	global.mu.Lock()
	defer global.mu.Unlock()
	q, ok := global.get(t).kind.(QualifyType)
	if !ok || q.Mask&(1<<kind) == 0 {
		return nil, false
	}
	return q.Slots[kind], true
}

// HasQualifiers reports whether t carries any qualifier in mask.
func HasQualifiers(t Type, mask Mask) bool {
	global.mu.Lock()
	defer global.mu.Unlock()
	q, ok := global.get(t).kind.(QualifyType)
	return ok && q.Mask&mask != 0
}

// Unqualified returns the base of t with all qualifiers removed.
func Unqualified(t Type) Type {
	return StripQualifiers(t, MaskAll)
}

// StorageType strips qualifiers and resolves typenames to the type that
// determines layout and code generation.
func StorageType(t Type) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	for {
		n := global.get(t)
		if q, ok := n.kind.(QualifyType); ok {
			t = q.Base
			continue
		}
		if n.tn != nil {
			if !n.tn.Complete || n.tn.Opaque {
				return NoType, fmt.Errorf("%w: %s", ErrOpaqueType, n.tn.Name)
			}
			t = n.tn.Storage
			continue
		}
		return t, nil
	}
}
