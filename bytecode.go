package sdlsl

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// This file models the bytecode *file layout* spec.md §6 describes,
// as an inert collaborator: the back-end code generator that would
// populate real instructions is explicitly out of scope (spec.md §1),
// so Compile emits a structurally valid, near-empty file (every
// function gets a zero-instruction section) rather than a real
// compiled artifact. A future code generator slots in by building
// richer Instruction lists and passing them to EncodeModule -- nothing
// about this layout changes.
//
// No third-party wire-format library fits a fixed ad-hoc little-endian
// tagged-section layout like this one (see SPEC_FULL.md DOMAIN STACK);
// `encoding/binary` and `hash/crc32` are the stdlib tools the format
// itself calls for.

// bytecodeMagic is the 12-byte file signature.
var bytecodeMagic = [12]byte{'S', 'D', 'L', 'S', 'L', 'B', 'Y', 'T', 'E', 'C', 'D', 0}

// BytecodeVersion is the wire format version written to every module.
const BytecodeVersion uint32 = 1

// SectionTag discriminates top-level sections within a module.
type SectionTag uint32

const (
	SectionFunction SectionTag = iota + 1
)

// Instruction is one bytecode op: a tag plus its operand words,
// sharing the module's {tag, word_count, payload} shape (spec.md §6
// "Instructions share the same {tag, word_count, operands…} shape").
type Instruction struct {
	Tag      uint32
	Operands []uint32
}

func (in Instruction) wordCount() uint32 { return uint32(2 + len(in.Operands)) }

func (in Instruction) encode(w *bytes.Buffer) {
	binary.Write(w, binary.LittleEndian, in.Tag)
	binary.Write(w, binary.LittleEndian, in.wordCount())
	for _, o := range in.Operands {
		binary.Write(w, binary.LittleEndian, o)
	}
}

// FunctionSection is one compiled function's bytecode section:
// {u32 fntype, u32 name_word_count, name bytes, instructions…}
// (spec.md §6 "Function sections carry…").
type FunctionSection struct {
	FnType       uint32
	Name         string
	Instructions []Instruction
}

func wordsForBytes(n int) int { return (n + 3) / 4 }

func padToWords(s string, words int) []byte {
	buf := make([]byte, words*4)
	copy(buf, s)
	return buf
}

func (fs FunctionSection) encode() []byte {
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, fs.FnType)
	nameWords := wordsForBytes(len(fs.Name))
	binary.Write(&body, binary.LittleEndian, uint32(nameWords))
	body.Write(padToWords(fs.Name, nameWords))
	for _, in := range fs.Instructions {
		in.encode(&body)
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(SectionFunction))
	wordCount := uint32(2 + body.Len()/4)
	binary.Write(&out, binary.LittleEndian, wordCount)
	out.Write(body.Bytes())
	return out.Bytes()
}

// EncodeModule assembles magic + version + CRC32(payload) + payload,
// where payload is the concatenation of every section's bytes
// (spec.md §6 "12-byte magic, u32 version, u32 CRC32 of following
// bytes, then a sequence of sections"). All integers little-endian.
func EncodeModule(sections [][]byte) []byte {
	var payload bytes.Buffer
	for _, s := range sections {
		payload.Write(s)
	}

	var out bytes.Buffer
	out.Write(bytecodeMagic[:])
	binary.Write(&out, binary.LittleEndian, BytecodeVersion)
	sum := crc32.ChecksumIEEE(payload.Bytes())
	binary.Write(&out, binary.LittleEndian, sum)
	out.Write(payload.Bytes())
	return out.Bytes()
}

// emitStubModule builds the out-of-scope "compiled artifact" for a
// successfully type-checked shader: one zero-instruction
// FunctionSection per user function, in declaration order. This is
// the entirety of what the code generator collaborator is asked to
// do here (spec.md §1's back-end is stubbed).
func emitStubModule(sh *Shader) []byte {
	var sections [][]byte
	sh.eachFunction(func(f *FunctionDecl) {
		sections = append(sections, FunctionSection{
			FnType: uint32(f.FnType),
			Name:   *f.Name,
		}.encode())
	})
	return EncodeModule(sections)
}
