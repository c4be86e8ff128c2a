// Package errors provides structured error types for the flashops tooling.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the affected symbol, a memory offset
// where relevant, and a cause chain. Raw uint32 codes crossing the flash ABI
// never pass through this package; these errors belong to the generator,
// descriptor codec, and host loader layers only.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindSymbolMissing).
//		Symbol("erase_sector").
//		Detail("algorithm exports no such function").
//		Build()
//
// Or use the convenience constructors for common patterns:
//
//	err := errors.SymbolMissing("erase_sector")
//	err := errors.InvalidConfig("page size must not be zero")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
