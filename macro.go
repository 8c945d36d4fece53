package sdlsl

// MacroDef is one #define'd (or builtin) macro, per spec.md §3's Macro
// definition data model.
//
// Params distinguishes the three shapes the grammar allows:
//   - IsFunctionLike == false: object-like macro, Params is unused.
//   - IsFunctionLike == true, Params == nil: "void call" -- `#define
//     M() ...`, a function-like macro that takes zero arguments and
//     must be invoked as `M()`.
//   - IsFunctionLike == true, len(Params) > 0: normal parameterized
//     function-like macro.
//
// Builtin is non-nil for __FILE__/__LINE__: instead of a fixed
// replacement list, their text is recomputed from the current
// IncludeState on every lookup (spec.md §3, §9 item 3).
type MacroDef struct {
	Name       *string
	Replacement []Token // replacement list, already tokenized
	Original    string  // original spelling of the replacement text, used by '#'
	IsFunctionLike bool
	Params      []*string // nil for object-like or void-call macros

	Builtin func(pp *Preprocessor) string

	next *MacroDef // same-bucket chaining
}

// IsVoidCall reports whether this is a function-like macro declared
// with an explicitly empty parameter list, `#define M() ...`.
func (m *MacroDef) IsVoidCall() bool {
	return m.IsFunctionLike && len(m.Params) == 0
}

// ParamIndex returns the position of name among m's parameters, or -1.
func (m *MacroDef) ParamIndex(name *string) int {
	for i, p := range m.Params {
		if p == name {
			return i
		}
	}
	return -1
}

// macroTable is a hash-of-lists keyed by a DJB-xor hash of the
// identifier truncated to 8 bits (spec.md §4.2), giving 256 buckets.
// Chaining is an intrusive singly-linked list through MacroDef.next,
// recycled via the owning Context's pool so repeated #define/#undef
// churn during heavy preprocessing doesn't fragment (spec.md §5
// Pools).
type macroTable struct {
	buckets [256]*MacroDef
	free    *MacroDef // free-list of MacroDef nodes available for reuse
}

// macroHash computes the DJB (times-33) hash of name XORed down and
// truncated to a single byte, matching spec.md §4.2's bucketing
// scheme.
func macroHash(name string) byte {
	var h uint32 = 5381
	for i := 0; i < len(name); i++ {
		h = h*33 + uint32(name[i])
	}
	return byte(h) ^ byte(h>>8) ^ byte(h>>16) ^ byte(h>>24)
}

func newMacroTable() *macroTable {
	return &macroTable{}
}

func (mt *macroTable) alloc() *MacroDef {
	if mt.free != nil {
		m := mt.free
		mt.free = m.next
		*m = MacroDef{}
		return m
	}
	return &MacroDef{}
}

func (mt *macroTable) release(m *MacroDef) {
	*m = MacroDef{next: mt.free}
	mt.free = m
}

// Lookup finds the macro bound to the interned identifier name, nil if
// undefined.
func (mt *macroTable) Lookup(name *string) *MacroDef {
	h := macroHash(*name)
	for m := mt.buckets[h]; m != nil; m = m.next {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Define installs def under its own Name, replacing any prior
// definition with the same name (the caller is responsible for
// emitting the "redefinition" warning per spec.md §4.2 before calling
// this -- macroTable itself doesn't warn, it just rebinds).
func (mt *macroTable) Define(def *MacroDef) {
	h := macroHash(*def.Name)
	if prev := mt.removeLocked(h, def.Name); prev != nil {
		mt.release(prev)
	}
	def.next = mt.buckets[h]
	mt.buckets[h] = def
}

// Undef removes the macro named name, reporting whether one existed.
func (mt *macroTable) Undef(name *string) bool {
	h := macroHash(*name)
	prev := mt.removeLocked(h, name)
	if prev == nil {
		return false
	}
	mt.release(prev)
	return true
}

func (mt *macroTable) removeLocked(h byte, name *string) *MacroDef {
	var prev *MacroDef
	cur := mt.buckets[h]
	for cur != nil {
		if cur.Name == name {
			if prev == nil {
				mt.buckets[h] = cur.next
			} else {
				prev.next = cur.next
			}
			cur.next = nil
			return cur
		}
		prev = cur
		cur = cur.next
	}
	return nil
}

// installBuiltins registers __FILE__ and __LINE__. Their Builtin
// callback is invoked fresh on every lookup (see Preprocessor.tryExpandMacro),
// matching SDL_shader_preprocessor.c's find_define handling of these
// two names.
func (pp *Preprocessor) installBuiltins() {
	fileName := pp.intern.Intern("__FILE__")
	lineName := pp.intern.Intern("__LINE__")

	pp.macros.Define(&MacroDef{
		Name: fileName,
		Builtin: func(pp *Preprocessor) string {
			return `"` + pp.currentFilename() + `"`
		},
	})
	pp.macros.Define(&MacroDef{
		Name: lineName,
		Builtin: func(pp *Preprocessor) string {
			return itoa32(pp.currentLine())
		},
	})
}

func itoa32(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// isBuiltinName reports whether name is one of the two compiler-
// provided builtin macros, used to decide whether #define/#undef
// should warn about shadowing/removing a builtin (spec.md §4.2).
func isBuiltinName(name string) bool {
	return name == "__FILE__" || name == "__LINE__"
}
