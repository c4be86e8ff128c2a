// Package wasmmod builds minimal WebAssembly core modules for synthesizing
// flash algorithm blobs in tests: a handful of i32 functions, one linear
// memory, exported i32 globals, and data segments. It emits just the
// sections that shape needs (type, function, memory, global, export, code,
// data) and nothing else.
package wasmmod

import (
	"github.com/0xb-s/flashops/internal/binary"
)

const (
	sectionType     byte = 1
	sectionFunction byte = 3
	sectionMemory   byte = 5
	sectionGlobal   byte = 6
	sectionExport   byte = 7
	sectionCode     byte = 10
	sectionData     byte = 11

	kindFunc   byte = 0
	kindMemory byte = 2
	kindGlobal byte = 3

	valI32 byte = 0x7F
)

type funcDef struct {
	name    string
	nParams int
	body    []byte
}

type globalDef struct {
	name  string
	value uint32
}

type dataDef struct {
	offset uint32
	init   []byte
}

// Module accumulates definitions and encodes them into a binary module.
// Every function takes i32 parameters and returns a single i32, matching
// the flash ABI.
type Module struct {
	memPages uint32
	funcs    []funcDef
	globals  []globalDef
	data     []dataDef
}

// New creates an empty module.
func New() *Module {
	return &Module{}
}

// Memory declares a linear memory of pages 64KiB pages, exported as
// "memory".
func (m *Module) Memory(pages uint32) *Module {
	m.memPages = pages
	return m
}

// Func declares an exported function with nParams i32 parameters and one
// i32 result. The body must include its terminating end opcode; see Body.
func (m *Module) Func(name string, nParams int, body []byte) *Module {
	m.funcs = append(m.funcs, funcDef{name: name, nParams: nParams, body: body})
	return m
}

// Global declares an exported immutable i32 global.
func (m *Module) Global(name string, value uint32) *Module {
	m.globals = append(m.globals, globalDef{name: name, value: value})
	return m
}

// Data places init at offset in the linear memory.
func (m *Module) Data(offset uint32, init []byte) *Module {
	m.data = append(m.data, dataDef{offset: offset, init: init})
	return m
}

// Encode serializes the module to the WebAssembly binary format.
func (m *Module) Encode() []byte {
	w := binary.NewWriter()

	// Magic and version.
	w.WriteBytes([]byte{0x00, 0x61, 0x73, 0x6D})
	w.WriteBytes([]byte{0x01, 0x00, 0x00, 0x00})

	// Type section: one signature per function, type index = function index.
	if len(m.funcs) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			sec.Byte(0x60)
			sec.WriteU32(uint32(f.nParams))
			for i := 0; i < f.nParams; i++ {
				sec.Byte(valI32)
			}
			sec.WriteU32(1)
			sec.Byte(valI32)
		}
		writeSection(w, sectionType, sec.Bytes())

		sec = binary.NewWriter()
		sec.WriteU32(uint32(len(m.funcs)))
		for i := range m.funcs {
			sec.WriteU32(uint32(i))
		}
		writeSection(w, sectionFunction, sec.Bytes())
	}

	// Memory section: single memory, minimum only.
	if m.memPages > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(1)
		sec.Byte(0x00)
		sec.WriteU32(m.memPages)
		writeSection(w, sectionMemory, sec.Bytes())
	}

	// Global section: immutable i32 constants.
	if len(m.globals) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.Byte(valI32)
			sec.Byte(0x00) // const
			sec.WriteBytes(I32Const(g.value))
			sec.WriteBytes(End())
		}
		writeSection(w, sectionGlobal, sec.Bytes())
	}

	// Export section: all functions, the memory, all globals.
	exports := len(m.funcs) + len(m.globals)
	if m.memPages > 0 {
		exports++
	}
	if exports > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(exports))
		for i, f := range m.funcs {
			sec.WriteName(f.name)
			sec.Byte(kindFunc)
			sec.WriteU32(uint32(i))
		}
		if m.memPages > 0 {
			sec.WriteName("memory")
			sec.Byte(kindMemory)
			sec.WriteU32(0)
		}
		for i, g := range m.globals {
			sec.WriteName(g.name)
			sec.Byte(kindGlobal)
			sec.WriteU32(uint32(i))
		}
		writeSection(w, sectionExport, sec.Bytes())
	}

	// Code section: no locals, bodies as given.
	if len(m.funcs) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			body := binary.NewWriter()
			body.WriteU32(0) // local declarations
			body.WriteBytes(f.body)
			sec.WriteU32(uint32(body.Len()))
			sec.WriteBytes(body.Bytes())
		}
		writeSection(w, sectionCode, sec.Bytes())
	}

	// Data section: active segments in memory 0.
	if len(m.data) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.data)))
		for _, d := range m.data {
			sec.WriteU32(0)
			sec.WriteBytes(I32Const(d.offset))
			sec.WriteBytes(End())
			sec.WriteU32(uint32(len(d.init)))
			sec.WriteBytes(d.init)
		}
		writeSection(w, sectionData, sec.Bytes())
	}

	return w.Bytes()
}

func writeSection(w *binary.Writer, id byte, data []byte) {
	w.Byte(id)
	w.WriteU32(uint32(len(data)))
	w.WriteBytes(data)
}
