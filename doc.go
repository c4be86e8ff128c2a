// Package flashops defines the contract and code-generation scaffold for
// flash algorithms: small position-independent binaries that a debug probe
// loads into a target's RAM and drives through a fixed C-callable ABI to
// erase, program, and verify non-volatile memory.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	flashops/        Root package with the operation interfaces and raw codes
//	├── device/      Binary-stable device descriptor table (geometry, sectors)
//	├── shim/        ABI shim: guarded entry points over a FlashOps type
//	├── gen/         Generator emitting the exported shim source for a target
//	├── host/        Host-tool side: wazero-backed loader and call wrappers
//	├── errors/      Structured error types for the tooling layers
//	└── cmd/         flashops CLI (gen, inspect, call)
//
// # Contract
//
// An algorithm implements FlashOps (erase-sector, program-page) plus the
// optional ChipEraser and Verifier capabilities, and provides a CreateFunc
// constructor. The shim exposes the fixed entry points initialize,
// deinitialize, erase_sector, program_page and, when the capabilities are
// present, erase_chip and verify. Every entry point returns a raw uint32:
// 0 for success, 1 for "not initialized", and otherwise an opaque
// implementation-defined code.
//
// # Quick Start
//
// Implement the contract:
//
//	type Algo struct{ /* ... */ }
//
//	func New(address, clock uint32, op flashops.Operation) (*Algo, error) {
//	    return &Algo{}, nil
//	}
//
//	func (a *Algo) EraseSector(address uint32) error           { /* ... */ }
//	func (a *Algo) ProgramPage(address uint32, d []byte) error { /* ... */ }
//
// Generate the exported shim for a device:
//
//	flashops gen -config algo.toml -o algo_shim.go
//
// The generated file carries the //export entry points and the device
// descriptor table in its own section, ready for a TinyGo target build.
// Host-side, the blob can be exercised with the host package:
//
//	loader, _ := host.NewLoader(ctx)
//	algo, _ := loader.Load(ctx, blob)
//	code, _ := algo.Initialize(ctx, 0x0800_0000, 0, flashops.OpProgram)
//
// # Concurrency
//
// The target execution model is single-threaded and driven entirely by the
// host tool's sequential calls; the shim holds one instance and one
// initialization flag and performs no locking.
package flashops
