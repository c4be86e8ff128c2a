// Package gen emits the exported shim source for a flash algorithm target.
//
// Given a Config naming the implementing package and constructor plus the
// device geometry, Generate produces a single Go file with the //export
// entry points (initialize, deinitialize, erase_sector, program_page, and
// the optional erase_chip and verify when the config enables them) and the
// device descriptor table pre-encoded into a byte array placed in the
// DeviceData section. The optional entry points are gated at generation
// time: a disabled capability produces no wrapper, so the symbol is absent
// from the compiled blob and host tools detect support by symbol presence.
//
// The output is gofmt-formatted and deterministic for a given Config, and
// is intended to be compiled with a bare-metal toolchain such as TinyGo,
// where //export fixes the unmangled symbol name and //go:section places
// the descriptor in its own region.
package gen
