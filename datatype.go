package sdlsl

import "fmt"

// DataKind is the discriminant of DataType, per spec.md §3 Datatype.
type DataKind int

const (
	KindVoid DataKind = iota
	KindBool
	KindInt
	KindUint
	KindHalf
	KindFloat
	KindVector
	KindMatrix
	KindArray
	KindStruct
)

func (k DataKind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindHalf:
		return "half"
	case KindFloat:
		return "float"
	case KindVector:
		return "vector"
	case KindMatrix:
		return "matrix"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	default:
		return "?"
	}
}

// StructField is one member of a struct DataType: an interned name and
// the member's resolved datatype (spec.md §3 Datatype "Struct
// {member[] of {interned name, datatype}}").
type StructField struct {
	Name *string
	Type *DataType
}

// DataType is interned by name: the whole semantic layer depends on
// "two AST nodes have the same datatype iff they point to the same
// object" (spec.md §3, §8). Vector/Matrix/Array datatypes carry a
// child datatype (Elem) plus a Count; struct datatypes carry a member
// list built in two passes so self- and mutually-referential structs
// can resolve (spec.md §4.4 step 3, §9 "Cyclic references").
//
// Grounded on tree.go's "every node type stored once, compared by ID"
// discipline (clarete-langlang), generalized from integer node-IDs to
// pointer identity because spec.md §3 mandates pointer-equal
// datatypes, not index-equal ones.
type DataType struct {
	Name *string
	Kind DataKind

	Elem  *DataType // vector: scalar child; matrix: vector child; array: element type
	Count int       // vector: element count; matrix: row count; array: length

	Members []StructField // struct only; nil until the fill-members pass completes
}

func (dt *DataType) String() string {
	if dt.Name != nil {
		return *dt.Name
	}
	return dt.Kind.String()
}

// IsScalar reports whether dt is one of the five scalar kinds.
func (dt *DataType) IsScalar() bool {
	switch dt.Kind {
	case KindBool, KindInt, KindUint, KindHalf, KindFloat:
		return true
	default:
		return false
	}
}

// baseScalarKind returns the scalar kind at the bottom of dt's
// type (itself if scalar, its Elem's scalar kind if vector/matrix),
// and whether dt is a scalar, vector or matrix at all.
func (dt *DataType) baseScalarKind() (DataKind, bool) {
	switch dt.Kind {
	case KindInt, KindUint, KindHalf, KindFloat, KindBool:
		return dt.Kind, true
	case KindVector:
		return dt.Elem.Kind, true
	case KindMatrix:
		return dt.Elem.Elem.Kind, true
	default:
		return KindVoid, false
	}
}

// IsMathish reports whether dt is a numeric scalar, vector, or matrix
// of int/uint/half/float (spec.md §4.4 typing rules table).
func (dt *DataType) IsMathish() bool {
	k, ok := dt.baseScalarKind()
	if !ok {
		return false
	}
	switch k {
	case KindInt, KindUint, KindHalf, KindFloat:
		return true
	default:
		return false
	}
}

// IsMathishInteger reports whether dt is int/uint or a vector/matrix
// thereof (spec.md §4.4).
func (dt *DataType) IsMathishInteger() bool {
	k, ok := dt.baseScalarKind()
	if !ok {
		return false
	}
	return k == KindInt || k == KindUint
}

// IsBooleanish reports whether dt is bool or a vector/matrix of bool
// (spec.md §4.4).
func (dt *DataType) IsBooleanish() bool {
	k, ok := dt.baseScalarKind()
	if !ok {
		return false
	}
	return k == KindBool
}

// IsNumeric is used by the relational-operator typing rule (< > <= >=):
// any mathish type qualifies, matching spec.md's "both numeric and
// equal" wording for that row of the table.
func (dt *DataType) IsNumeric() bool { return dt.IsMathish() }

// ScalarType returns the DataType object sitting at the bottom of dt's
// shape: itself if already scalar, a vector's element type, a
// matrix's element-of-element type -- or nil for struct/array/void,
// which have no single scalar underneath them. Used by sema.go's `*`
// typing rule (scalar×vector/matrix) and by literal promotion, both of
// which need the actual interned DataType object to compare against,
// not just its DataKind.
func (dt *DataType) ScalarType() *DataType {
	switch dt.Kind {
	case KindBool, KindInt, KindUint, KindHalf, KindFloat:
		return dt
	case KindVector:
		return dt.Elem
	case KindMatrix:
		return dt.Elem.Elem
	default:
		return nil
	}
}

// vectorElementCount returns n for a Tn vector/array-indexable type,
// or 0 if dt isn't indexable that way.
func (dt *DataType) vectorElementCount() int {
	if dt.Kind == KindVector || dt.Kind == KindArray {
		return dt.Count
	}
	return 0
}

// datatypeUniverse owns every DataType allocated during one
// compilation, keyed by interned name so lookups are pointer-keyed
// maps (spec.md §3's "stored exactly once in a per-compilation hash
// keyed by interned name"). Array types are created lazily on first
// use and cached the same way, echoing query.go's generic Query[K,V]
// memoization idea (clarete-langlang) simplified to a plain map since
// a compilation's datatype table is write-once -- no invalidation is
// ever needed.
type datatypeUniverse struct {
	intern *Interner
	byName map[*string]*DataType

	Void, Bool, Int, Uint, Half, Float *DataType
}

func newDatatypeUniverse(intern *Interner) *datatypeUniverse {
	return &datatypeUniverse{intern: intern, byName: make(map[*string]*DataType, 64)}
}

func (u *datatypeUniverse) register(name string, dt *DataType) *DataType {
	dt.Name = u.intern.Intern(name)
	u.byName[dt.Name] = dt
	return dt
}

func (u *datatypeUniverse) Lookup(name *string) *DataType { return u.byName[name] }

func (u *datatypeUniverse) LookupByText(name string) *DataType {
	p, ok := u.intern.Lookup(name)
	if !ok {
		return nil
	}
	return u.byName[p]
}

// buildBaseUniverse pre-populates void, the five scalars, vectors Tn
// for n in {2,3,4}, and matrices TnxM for n,m in {2,3,4}, per spec.md
// §4.4 step 3.
func (u *datatypeUniverse) buildBaseUniverse() {
	u.Void = u.register("void", &DataType{Kind: KindVoid})
	u.Bool = u.register("bool", &DataType{Kind: KindBool})
	u.Int = u.register("int", &DataType{Kind: KindInt})
	u.Uint = u.register("uint", &DataType{Kind: KindUint})
	u.Half = u.register("half", &DataType{Kind: KindHalf})
	u.Float = u.register("float", &DataType{Kind: KindFloat})

	scalars := []struct {
		prefix string
		dt     *DataType
	}{
		{"bool", u.Bool}, {"int", u.Int}, {"uint", u.Uint}, {"half", u.Half}, {"float", u.Float},
	}
	for _, s := range scalars {
		for n := 2; n <= 4; n++ {
			vecName := fmt.Sprintf("%s%d", s.prefix, n)
			vec := u.register(vecName, &DataType{Kind: KindVector, Elem: s.dt, Count: n})
			for m := 2; m <= 4; m++ {
				matName := fmt.Sprintf("%s%dx%d", s.prefix, n, m)
				u.register(matName, &DataType{Kind: KindMatrix, Elem: vec, Count: m})
			}
		}
	}
}

// declareStructStub allocates a name-only struct DataType so forward/
// mutual struct references resolve during member-type resolution
// (spec.md §9 "Cyclic references": "allocate name-only stubs first,
// then fill in bodies").
func (u *datatypeUniverse) declareStructStub(name *string) *DataType {
	dt := &DataType{Name: name, Kind: KindStruct}
	u.byName[name] = dt
	return dt
}

// arrayType returns (creating if necessary) the array-of-elem type
// with the given length, keyed by the interned synthetic name
// "base[N]" (spec.md §3 "Array types are lazily created on first use,
// keyed by interned name").
func (u *datatypeUniverse) arrayType(elem *DataType, length int) *DataType {
	name := fmt.Sprintf("%s[%d]", elem.String(), length)
	key := u.intern.Intern(name)
	if existing := u.byName[key]; existing != nil {
		return existing
	}
	dt := &DataType{Name: key, Kind: KindArray, Elem: elem, Count: length}
	u.byName[key] = dt
	return dt
}

// vectorOfLen looks up the Tn vector type with element type scalar and
// n components, used by sema.go's swizzle-result typing (spec.md
// §4.4 "a.field" -- a 2-4 char swizzle's result is "the matching
// vector type"). Returns nil if no such vector was pre-populated by
// buildBaseUniverse (n outside 2..4, or scalar isn't one of the five
// base scalars).
func (u *datatypeUniverse) vectorOfLen(scalar *DataType, n int) *DataType {
	if scalar == nil || scalar.Name == nil {
		return nil
	}
	return u.LookupByText(fmt.Sprintf("%s%d", *scalar.Name, n))
}

// SameType reports whether a and b are the literal same DataType
// object -- the only correct notion of "same datatype" per spec.md §3
// / §8's interning invariant.
func SameType(a, b *DataType) bool { return a == b }
