// Package device models the flash device descriptor table: the static,
// binary-stable record a host tool reads straight out of the algorithm blob
// to learn the target's memory geometry.
//
// The encoded form mirrors the C struct layout consumed by programmer tools:
// little-endian, fixed field offsets, a 128-byte zero-padded name, three
// padding bytes after the one-byte empty value, and a sector list terminated
// by the all-ones sentinel entry. See Encode for the exact offsets.
//
// The descriptor has no runtime behavior on the target; it is generated once
// and placed in a dedicated data section.
package device
