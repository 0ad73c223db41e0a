package ir

import "fmt"

// Kind discriminates how a TypeID's payload should be interpreted: either
// directly as a primitive tag, or as an index into one of the registry's
// compound-descriptor tables.
type Kind uint8

// Compound kind flags, packed into the top 5 bits of a TypeID (§3 "the
// high 5 bits flag pointer/array/struct/function/vector").
const (
	KindPrimitive Kind = 0
	KindPointer   Kind = 1
	KindArray     Kind = 2
	KindStruct    Kind = 3
	KindFunction  Kind = 4
	KindVector    Kind = 5
)

// Primitive base type ids, occupying the low 11 bits of a primitive TypeID.
const (
	Void Primitive = iota
	Bool
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	String
	numPrimitives
)

// Primitive is the base-type tag for non-compound values.
type Primitive uint16

const (
	kindShift = 11
	indexMask = (1 << kindShift) - 1
)

// TypeID is a 16-bit encoded type reference: bits [0:11) are either a
// Primitive tag (when Kind() == KindPrimitive) or an index into the
// registry's per-kind descriptor table; bits [11:16) are the Kind.
type TypeID uint16

func makeTypeID(k Kind, index int) TypeID {
	if index < 0 || index > indexMask {
		panic(fmt.Sprintf("ir: type index %d overflows %d-bit field", index, kindShift))
	}
	return TypeID(uint16(k)<<kindShift | uint16(index))
}

// Kind reports which descriptor table (if any) this id indexes into.
func (t TypeID) Kind() Kind { return Kind(t >> kindShift) }

// Index returns the low 11 bits: a Primitive tag when Kind() is
// KindPrimitive, otherwise an index into the matching descriptor table.
func (t TypeID) Index() int { return int(t & indexMask) }

// IsPointer, IsArray, IsStruct, IsFunction, IsVector classify a TypeID by
// its compound kind.
func (t TypeID) IsPointer() bool  { return t.Kind() == KindPointer }
func (t TypeID) IsArray() bool    { return t.Kind() == KindArray }
func (t TypeID) IsStruct() bool   { return t.Kind() == KindStruct }
func (t TypeID) IsFunction() bool { return t.Kind() == KindFunction }
func (t TypeID) IsVector() bool   { return t.Kind() == KindVector }

// PointerDesc describes a pointer type: the pointee type and its address
// space (0 == generic/default).
type PointerDesc struct {
	Pointee    TypeID
	AddrSpace  uint32
}

// ArrayDesc describes a fixed-size array type.
type ArrayDesc struct {
	Elem  TypeID
	Count uint64
}

// StructField is one (name, type) member of a struct, in declaration order.
type StructField struct {
	Name   StringID
	Type   TypeID
	Offset uint64 // byte offset within the struct, computed on registration
}

// StructDesc describes a struct type: ordered fields plus its computed
// size and alignment.
type StructDesc struct {
	Fields    []StructField
	Size      uint64
	Alignment uint64
}

// FuncDesc describes a function type.
type FuncDesc struct {
	Return    TypeID
	Params    []TypeID
	IsVararg  bool
}

// VectorDesc describes a fixed-width SIMD vector type.
type VectorDesc struct {
	Elem  TypeID
	Count uint32
}

// TypeRegistry interns compound type descriptors so that structurally equal
// descriptors always produce equal TypeIDs (§3 invariant 7). Primitive
// types need no registration: their TypeID is the primitive tag itself
// with KindPrimitive.
//
// Pointer, array, function and vector descriptors are deduplicated through
// a map keyed on the descriptor; a struct is compared field by field
// against every completed struct. A fresh slot is allocated only on a
// true miss.
type TypeRegistry struct {
	pointers []PointerDesc
	arrays   []ArrayDesc
	structs  []StructDesc
	funcs    []FuncDesc
	vectors  []VectorDesc

	pointerIndex map[PointerDesc]TypeID
	arrayIndex   map[ArrayDesc]TypeID
	funcIndex    map[string]TypeID // serialized key, see funcKey
	vectorIndex  map[VectorDesc]TypeID

	// reserved marks struct slots allocated by ReserveStruct but not yet
	// filled by CompleteStruct (§3 "Type ids may be reserved then completed to break
	// recursion").
	reserved map[TypeID]bool
}

// NewTypeRegistry creates an empty registry. Primitive types require no
// setup since their ids are the tag values themselves.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		pointerIndex: make(map[PointerDesc]TypeID),
		arrayIndex:   make(map[ArrayDesc]TypeID),
		funcIndex:    make(map[string]TypeID),
		vectorIndex:  make(map[VectorDesc]TypeID),
		reserved:     make(map[TypeID]bool),
	}
}

// PrimitiveType returns the TypeID for a primitive base type.
func PrimitiveType(p Primitive) TypeID {
	return makeTypeID(KindPrimitive, int(p))
}

// Pointer registers (or reuses) a pointer type.
func (r *TypeRegistry) Pointer(pointee TypeID, addrSpace uint32) TypeID {
	key := PointerDesc{Pointee: pointee, AddrSpace: addrSpace}
	if id, ok := r.pointerIndex[key]; ok {
		return id
	}
	id := makeTypeID(KindPointer, len(r.pointers))
	r.pointers = append(r.pointers, key)
	r.pointerIndex[key] = id
	return id
}

// Array registers (or reuses) an array type.
func (r *TypeRegistry) Array(elem TypeID, count uint64) TypeID {
	key := ArrayDesc{Elem: elem, Count: count}
	if id, ok := r.arrayIndex[key]; ok {
		return id
	}
	id := makeTypeID(KindArray, len(r.arrays))
	r.arrays = append(r.arrays, key)
	r.arrayIndex[key] = id
	return id
}

// Vector registers (or reuses) a vector type.
func (r *TypeRegistry) Vector(elem TypeID, count uint32) TypeID {
	key := VectorDesc{Elem: elem, Count: count}
	if id, ok := r.vectorIndex[key]; ok {
		return id
	}
	id := makeTypeID(KindVector, len(r.vectors))
	r.vectors = append(r.vectors, key)
	r.vectorIndex[key] = id
	return id
}

func typeSize(r *TypeRegistry, t TypeID) uint64 {
	switch t.Kind() {
	case KindPrimitive:
		switch Primitive(t.Index()) {
		case Void:
			return 0
		case Bool, I8, U8:
			return 1
		case I16, U16:
			return 2
		case I32, U32, F32:
			return 4
		case I64, U64, F64:
			return 8
		case String:
			return 16 // {ptr,len} descriptor, matches pointer-sized slice header halves
		}
	case KindPointer:
		return 8
	case KindArray:
		d := r.arrays[t.Index()]
		return typeSize(r, d.Elem) * d.Count
	case KindStruct:
		return r.structs[t.Index()].Size
	case KindFunction:
		return 8 // function pointer / descriptor
	case KindVector:
		d := r.vectors[t.Index()]
		return uint64(typeSize(r, d.Elem)) * uint64(d.Count)
	}
	return 0
}

func typeAlign(r *TypeRegistry, t TypeID) uint64 {
	if t.Kind() == KindStruct {
		return r.structs[t.Index()].Alignment
	}
	if s := typeSize(r, t); s > 0 {
		return s
	}
	return 1
}

// Struct registers a struct type built from fields in declaration order,
// computing natural (C-like) byte offsets, size, and alignment. A field
// list equal to an already registered (not merely reserved) struct
// returns that struct's id.
func (r *TypeRegistry) Struct(fields []StructField) TypeID {
	desc := r.layoutStruct(fields)
	for i, s := range r.structs {
		if r.reserved[makeTypeID(KindStruct, i)] || len(s.Fields) != len(desc.Fields) {
			continue
		}
		same := true
		for j, f := range s.Fields {
			if f != desc.Fields[j] {
				same = false
				break
			}
		}
		if same {
			return makeTypeID(KindStruct, i)
		}
	}
	id := makeTypeID(KindStruct, len(r.structs))
	r.structs = append(r.structs, desc)
	return id
}

func (r *TypeRegistry) layoutStruct(fields []StructField) StructDesc {
	laidOut := make([]StructField, len(fields))
	var offset, maxAlign uint64 = 0, 1
	for i, f := range fields {
		align := typeAlign(r, f.Type)
		if align > maxAlign {
			maxAlign = align
		}
		if rem := offset % align; rem != 0 {
			offset += align - rem
		}
		laidOut[i] = StructField{Name: f.Name, Type: f.Type, Offset: offset}
		offset += typeSize(r, f.Type)
	}
	if rem := offset % maxAlign; rem != 0 {
		offset += maxAlign - rem
	}
	return StructDesc{Fields: laidOut, Size: offset, Alignment: maxAlign}
}

// ReserveStruct allocates a struct TypeID with no descriptor yet, so that
// other descriptors (e.g. a pointer to this struct) can reference it before
// its field list is known — breaking recursive type definitions (§3,
// "Type ids may be reserved then completed"; grounded on the original's
// type-registry "reserved then completed" mechanism).
func (r *TypeRegistry) ReserveStruct() TypeID {
	id := makeTypeID(KindStruct, len(r.structs))
	r.structs = append(r.structs, StructDesc{})
	r.reserved[id] = true
	return id
}

// CompleteStruct fills in a struct TypeID previously returned by
// ReserveStruct. Calling CompleteStruct on an id that was not reserved, or
// completing it twice, is a caller bug and panics.
func (r *TypeRegistry) CompleteStruct(id TypeID, fields []StructField) {
	if !id.IsStruct() || !r.reserved[id] {
		panic("ir: CompleteStruct on an id that was not reserved")
	}
	r.structs[id.Index()] = r.layoutStruct(fields)
	delete(r.reserved, id)
}

// IsReserved reports whether id was reserved via ReserveStruct but not yet
// completed.
func (r *TypeRegistry) IsReserved(id TypeID) bool { return r.reserved[id] }

func funcKey(d FuncDesc) string {
	key := make([]byte, 0, 4+4*len(d.Params))
	put16 := func(v uint16) { key = append(key, byte(v), byte(v>>8)) }
	put16(uint16(d.Return))
	if d.IsVararg {
		key = append(key, 1)
	} else {
		key = append(key, 0)
	}
	for _, p := range d.Params {
		put16(uint16(p))
	}
	return string(key)
}

// Function registers (or reuses) a function type.
func (r *TypeRegistry) Function(ret TypeID, params []TypeID, vararg bool) TypeID {
	d := FuncDesc{Return: ret, Params: append([]TypeID(nil), params...), IsVararg: vararg}
	k := funcKey(d)
	if id, ok := r.funcIndex[k]; ok {
		return id
	}
	id := makeTypeID(KindFunction, len(r.funcs))
	r.funcs = append(r.funcs, d)
	r.funcIndex[k] = id
	return id
}

// PointerDesc, ArrayDesc, StructDesc, FuncDesc, VectorDesc are structural
// accessors for compound TypeIDs. Each indexes its table by t.Index()
// without checking t's kind: a t of another kind reads an unrelated
// descriptor or panics with an index out of range.

func (r *TypeRegistry) PointerDesc(t TypeID) PointerDesc { return r.pointers[t.Index()] }
func (r *TypeRegistry) ArrayDesc(t TypeID) ArrayDesc     { return r.arrays[t.Index()] }
func (r *TypeRegistry) StructDesc(t TypeID) StructDesc   { return r.structs[t.Index()] }
func (r *TypeRegistry) FuncDesc(t TypeID) FuncDesc       { return r.funcs[t.Index()] }
func (r *TypeRegistry) VectorDesc(t TypeID) VectorDesc   { return r.vectors[t.Index()] }

// SizeOf returns the byte size of t (0 for void and for reserved struct
// types not yet completed; 8 for function types).
func (r *TypeRegistry) SizeOf(t TypeID) uint64 { return typeSize(r, t) }

// AlignOf returns the natural alignment of t.
func (r *TypeRegistry) AlignOf(t TypeID) uint64 { return typeAlign(r, t) }

// IsInteger, IsFloat, IsNumeric classify primitive TypeIDs.
func (t TypeID) IsInteger() bool {
	if t.Kind() != KindPrimitive {
		return false
	}
	switch Primitive(t.Index()) {
	case I8, I16, I32, I64, U8, U16, U32, U64, Bool:
		return true
	}
	return false
}

func (t TypeID) IsFloat() bool {
	if t.Kind() != KindPrimitive {
		return false
	}
	p := Primitive(t.Index())
	return p == F32 || p == F64
}

func (t TypeID) IsSigned() bool {
	if t.Kind() != KindPrimitive {
		return false
	}
	switch Primitive(t.Index()) {
	case I8, I16, I32, I64:
		return true
	}
	return false
}

func (t TypeID) IsNumeric() bool { return t.IsInteger() || t.IsFloat() }
