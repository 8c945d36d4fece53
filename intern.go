package sdlsl

// Interner stores each distinct string exactly once and hands back a
// *string that is stable for the lifetime of the interner. Two calls
// to Intern with equal string contents always return the same
// pointer, so every later comparison in the compiler -- identifier
// lookup, datatype identity, filename matching -- can use pointer
// equality instead of string comparison. This is a hard invariant the
// whole semantic layer depends on (spec.md §3, §8).
//
// An Interner is owned by exactly one compilation Context and must
// outlive every AST node and DataType it was used to build (spec.md
// §9 "String interning").
type Interner struct {
	table map[string]*string
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{table: make(map[string]*string, 256)}
}

// Intern returns the canonical *string for s, allocating a new backing
// string the first time s is seen.
func (in *Interner) Intern(s string) *string {
	if p, ok := in.table[s]; ok {
		return p
	}
	// Copy s so the interner doesn't keep alive whatever larger buffer
	// (e.g. a source file's bytes) the caller's string may be a slice
	// into.
	cp := string([]byte(s))
	in.table[s] = &cp
	return &cp
}

// Lookup returns the canonical *string for s without interning it,
// reporting whether it was already present. Used by #undef, where a
// miss must not create a new symbol.
func (in *Interner) Lookup(s string) (*string, bool) {
	p, ok := in.table[s]
	return p, ok
}

// Len reports how many distinct strings have been interned so far.
func (in *Interner) Len() int { return len(in.table) }
