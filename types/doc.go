// Package types provides the interned type graph used by the SPIR-V backend.
//
// Types are hash-consed: constructing a type from structurally equal
// arguments always yields the same Type handle, so handles can be compared
// with ==. The store is process-wide and append-only; it is safe for
// concurrent use.
//
//	vec4, _ := types.Vector(types.F32, 4)
//	ptr := types.Pointer(vec4, 0, types.ClassFunction)
//
// # Qualifiers
//
// Qualifiers (Refer, View, Move, Mutate, Key) are layered onto any type by
// Qualify and removed again by StripQualifiers. A qualified type holds at most
// one qualifier of each kind.
//
// # Layout
//
// SizeOf, AlignOf, StrideOf and Offsets report the storage layout that the
// backend uses for struct decorations and constant materialization.
package types
