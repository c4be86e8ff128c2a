// Package shim implements the ABI layer between the raw entry points a host
// tool calls and a typed flashops implementation.
//
// A Shim owns the single live algorithm instance and its initialization
// flag. Every entry point other than Initialize checks the flag first and
// returns the fixed code 1 when called out of sequence; the host tool is an
// external caller across a raw boundary and call ordering is never trusted.
// Initialize on an already-initialized shim deinitializes implicitly before
// constructing the new instance.
//
// Buffer arguments arrive as a raw pointer plus length and are turned into
// borrowed byte views at exactly one place (see view). An operation code
// outside the defined set is a contract violation with no reporting channel
// in the ABI; the shim raises a Fault instead of returning.
//
// Capability entry points (erase_chip, verify) exist only when the
// implementing type provides them; EntryPoints omits absent symbols so
// callers can probe support by name, the same way host tools probe the
// compiled symbol table.
package shim
