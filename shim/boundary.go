package shim

import "unsafe"

// view constructs a borrowed byte view of exactly size bytes starting at
// data. This is the trust boundary of the raw ABI: the host tool guarantees
// the pointer is valid for that length, and no validation happens here. A
// null pointer yields a nil view, which the verify path reads as "compare
// against the empty value". All raw buffers cross the boundary through this
// one function.
func view(data *byte, size uint32) []byte {
	if data == nil {
		return nil
	}
	return unsafe.Slice(data, size)
}
