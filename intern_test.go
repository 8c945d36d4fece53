package sdlsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternerPointerEquality(t *testing.T) {
	in := NewInterner()
	a := in.Intern("hello")
	b := in.Intern("hello")
	assert.True(t, a == b, "interning the same text twice must return the same pointer")
	assert.Equal(t, "hello", *a)
}

func TestInternerDistinctStrings(t *testing.T) {
	in := NewInterner()
	a := in.Intern("foo")
	b := in.Intern("bar")
	assert.False(t, a == b)
}

func TestInternerLookupMiss(t *testing.T) {
	in := NewInterner()
	_, ok := in.Lookup("never-interned")
	assert.False(t, ok)
}

func TestInternerLookupHit(t *testing.T) {
	in := NewInterner()
	p := in.Intern("present")
	got, ok := in.Lookup("present")
	assert.True(t, ok)
	assert.True(t, p == got)
}

func TestInternerDoesNotAliasCallerBuffer(t *testing.T) {
	in := NewInterner()
	buf := []byte("mutable")
	p := in.Intern(string(buf))
	buf[0] = 'X'
	assert.Equal(t, "mutable", *p)
}

func TestInternerLen(t *testing.T) {
	in := NewInterner()
	in.Intern("a")
	in.Intern("b")
	in.Intern("a")
	assert.Equal(t, 2, in.Len())
}
