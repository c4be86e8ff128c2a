package wasmmod

import (
	"github.com/0xb-s/flashops/internal/binary"
)

// Body concatenates instruction sequences and appends the terminating end
// opcode.
func Body(instrs ...[]byte) []byte {
	var out []byte
	for _, ins := range instrs {
		out = append(out, ins...)
	}
	return append(out, 0x0B)
}

// I32Const pushes v (encoded as a signed LEB128 i32).
func I32Const(v uint32) []byte {
	w := binary.NewWriter()
	w.Byte(0x41)
	w.WriteS32(int32(v))
	return w.Bytes()
}

// LocalGet pushes local i.
func LocalGet(i uint32) []byte {
	w := binary.NewWriter()
	w.Byte(0x20)
	w.WriteU32(i)
	return w.Bytes()
}

// I32Store pops an address and a value and stores the value at
// address+offset.
func I32Store(offset uint32) []byte {
	w := binary.NewWriter()
	w.Byte(0x36)
	w.WriteU32(2) // alignment hint
	w.WriteU32(offset)
	return w.Bytes()
}

// Unreachable traps.
func Unreachable() []byte {
	return []byte{0x00}
}

// End terminates a body or init expression.
func End() []byte {
	return []byte{0x0B}
}

// RecordParams stores the function's first n i32 parameters at consecutive
// words starting at base, so a test can observe exactly what arguments
// crossed the ABI.
func RecordParams(base uint32, n int) []byte {
	var out []byte
	for i := 0; i < n; i++ {
		out = append(out, I32Const(base+uint32(i)*4)...)
		out = append(out, LocalGet(uint32(i))...)
		out = append(out, I32Store(0)...)
	}
	return out
}
