package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"fortio.org/safecast"
	"github.com/cespare/xxhash/v2"
)

// node is one interned type.
type node struct {
	kind   Kind
	key    []byte
	layout layout

	// typename state, mutated once by SetStorage or MakeOpaque
	tn *TypenameType
}

// store is an append-only arena of types with one hash table per kind.
// A single mutex serializes all access.
type store struct {
	mu     sync.Mutex
	nodes  []node
	tables [numKindTags]map[uint64][]Type
	hash   func([]byte) uint64
	serial uint64
}

func newStore(hash func([]byte) uint64) *store {
	s := &store{
		nodes: make([]node, 1, 256), // reserve 0 as NoType
		hash:  hash,
	}
	for i := range s.tables {
		s.tables[i] = make(map[uint64][]Type)
	}
	return s
}

var global = newStore(xxhash.Sum64)

// intern returns the existing handle for key or registers a new node built
// by mk. mk runs with the lock held and must not re-enter the store's public
// API.
func (s *store) intern(tag kindTag, key []byte, mk func() (node, error)) (Type, error) {
	h := s.hash(key)
	for _, t := range s.tables[tag][h] {
		if bytes.Equal(s.nodes[t].key, key) {
			return t, nil
		}
	}
	n, err := mk()
	if err != nil {
		return NoType, err
	}
	n.key = key
	t := s.push(n)
	s.tables[tag][h] = append(s.tables[tag][h], t)
	return t, nil
}

func (s *store) push(n node) Type {
	id, err := safecast.Conv[uint32](len(s.nodes))
	if err != nil {
		panic(fmt.Errorf("types: arena overflow: %w", err))
	}
	s.nodes = append(s.nodes, n)
	return Type(id)
}

func (s *store) get(t Type) *node {
	if t == NoType || int(t) >= len(s.nodes) {
		panic(fmt.Sprintf("types: invalid handle %d", t))
	}
	return &s.nodes[t]
}

// kindOf returns the payload of t. Typenames report their current state.
func (s *store) kindOf(t Type) Kind {
	n := s.get(t)
	if n.tn != nil {
		tn := *n.tn
		tn.FieldNames = append([]string(nil), n.tn.FieldNames...)
		return tn
	}
	return n.kind
}

// Info returns the payload of t.
func Info(t Type) Kind {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.kindOf(t)
}

// Valid reports whether t is a registered handle.
func Valid(t Type) bool {
	global.mu.Lock()
	defer global.mu.Unlock()
	return t != NoType && int(t) < len(global.nodes)
}

// keyWriter builds canonical keys.
type keyWriter struct {
	b []byte
}

func newKey(tag kindTag) *keyWriter {
	k := &keyWriter{b: make([]byte, 0, 32)}
	k.b = append(k.b, byte(tag))
	return k
}

func (k *keyWriter) uint(v uint64) *keyWriter {
	k.b = binary.AppendUvarint(k.b, v)
	return k
}

func (k *keyWriter) bool(v bool) *keyWriter {
	if v {
		return k.uint(1)
	}
	return k.uint(0)
}

func (k *keyWriter) str(s string) *keyWriter {
	k.uint(uint64(len(s)))
	k.b = append(k.b, s...)
	return k
}

func (k *keyWriter) typ(t Type) *keyWriter {
	return k.uint(uint64(t))
}

func (k *keyWriter) list(ts []Type) *keyWriter {
	k.uint(uint64(len(ts)))
	for _, t := range ts {
		k.typ(t)
	}
	return k
}
