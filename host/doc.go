// Package host drives a compiled flash algorithm from the host-tool side.
//
// A Loader wraps a wazero runtime. Loading a blob resolves the four
// mandatory entry points by their well-known symbol names, probes the
// optional erase_chip and verify capabilities by export presence, and reads
// the device descriptor table straight out of the algorithm's memory via
// the FlashDeviceInfo symbol, exactly the way a debug probe reads it out of
// target RAM.
//
// Algorithm exposes a typed wrapper per entry point. Each call returns the
// raw uint32 ABI code plus a transport error; an aborting algorithm (the
// non-returning fault path) surfaces as a structured trap error, never as a
// code. Buffers are staged into the algorithm's memory at a configurable
// scratch address before program_page and verify calls.
//
// The descriptor's program and erase timeouts are advisory data for
// callers; nothing in this package enforces them.
package host
