package sdlsl

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeModuleHeaderShape(t *testing.T) {
	data := EncodeModule(nil)
	require.True(t, len(data) >= 12+4+4)
	assert.Equal(t, bytecodeMagic[:], data[:12])

	version := binary.LittleEndian.Uint32(data[12:16])
	assert.Equal(t, BytecodeVersion, version)

	sum := binary.LittleEndian.Uint32(data[16:20])
	assert.Equal(t, crc32.ChecksumIEEE(nil), sum)
}

func TestEncodeModuleChecksumCoversPayload(t *testing.T) {
	section := FunctionSection{FnType: uint32(FuncVertex), Name: "main"}.encode()
	data := EncodeModule([][]byte{section})

	payload := data[20:]
	sum := binary.LittleEndian.Uint32(data[16:20])
	assert.Equal(t, crc32.ChecksumIEEE(payload), sum)
	assert.Equal(t, section, payload)
}

func TestEmitStubModuleOneSectionPerFunction(t *testing.T) {
	_, sh := analyzeSource(`
function void a() { return; }
function void b() { return; }
`)
	data := emitStubModule(sh)
	assert.True(t, len(data) > 20)
	assert.Equal(t, bytecodeMagic[:], data[:12])
	want := EncodeModule([][]byte{
		FunctionSection{FnType: uint32(FuncNormal), Name: "a"}.encode(),
		FunctionSection{FnType: uint32(FuncNormal), Name: "b"}.encode(),
	})
	assert.Equal(t, want, data)
}

func TestEmitStubModuleEmptyShader(t *testing.T) {
	sh := &Shader{}
	data := emitStubModule(sh)
	assert.Equal(t, EncodeModule(nil), data)
}
