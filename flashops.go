package flashops

import (
	"errors"
	"fmt"
)

// Exported entry point symbol names. Host tools resolve these by name in the
// compiled algorithm and detect optional capabilities by symbol presence.
const (
	SymInitialize   = "initialize"
	SymDeinitialize = "deinitialize"
	SymEraseSector  = "erase_sector"
	SymProgramPage  = "program_page"
	SymEraseChip    = "erase_chip"
	SymVerify       = "verify"

	// SymDeviceInfo is the static device descriptor symbol.
	SymDeviceInfo = "FlashDeviceInfo"
)

// Operation identifies which high-level operation the host tool intends to
// perform during a session. The raw codes are part of the binary ABI and are
// passed verbatim as the third argument of initialize.
type Operation uint32

const (
	OpErase   Operation = 1
	OpProgram Operation = 2
	OpVerify  Operation = 3
)

// Valid reports whether op is one of the three defined operation codes.
func (op Operation) Valid() bool {
	return op >= OpErase && op <= OpVerify
}

func (op Operation) String() string {
	switch op {
	case OpErase:
		return "erase"
	case OpProgram:
		return "program"
	case OpVerify:
		return "verify"
	default:
		return fmt.Sprintf("operation(%d)", uint32(op))
	}
}

// ErrorCode is a target-specific failure code as it crosses the raw ABI.
// Zero is the success marker and is never a valid ErrorCode; the shim maps a
// nil error to 0 on its own. Codes are opaque to everything above the
// concrete implementation.
type ErrorCode uint32

func (c ErrorCode) Error() string {
	return fmt.Sprintf("flash operation failed (code %d)", uint32(c))
}

const (
	// CodeNotInitialized is returned by every guarded entry point when it is
	// called before a successful initialize. The value 1 is fixed by the
	// binary contract. Concrete implementations are not structurally
	// prevented from producing 1 themselves; by convention they avoid it.
	CodeNotInitialized ErrorCode = 1

	// CodeUnspecified is what the shim reports when an implementation
	// returns an error that carries no ErrorCode, or the reserved code 0.
	CodeUnspecified ErrorCode = 0xFFFFFFFF
)

// CodeOf collapses an operation result into its raw ABI representation:
// nil is 0, an ErrorCode in the chain is passed through verbatim, and
// anything else becomes CodeUnspecified.
func CodeOf(err error) uint32 {
	if err == nil {
		return 0
	}
	var code ErrorCode
	if errors.As(err, &code) && code != 0 {
		return uint32(code)
	}
	return uint32(CodeUnspecified)
}

// FlashOps is the mandatory operation contract a flash algorithm implements.
// All methods report failure through an error whose chain should contain an
// ErrorCode; the shim never interprets codes beyond zero versus non-zero.
type FlashOps interface {
	// EraseSector erases the sector containing address. It must be safe to
	// call on an already-erased sector; host tools retry.
	EraseSector(address uint32) error

	// ProgramPage writes data starting at address. The caller guarantees
	// len(data) does not exceed the device page size and that the target
	// region is programmable.
	ProgramPage(address uint32, data []byte) error
}

// ChipEraser is the optional full-chip erase capability. The erase_chip
// entry point exists only for implementations that provide it.
type ChipEraser interface {
	EraseChip() error
}

// Verifier is the optional verify capability. A nil data slice requests
// comparison of size bytes at address against the device's empty value;
// otherwise data holds the expected contents.
type Verifier interface {
	Verify(address, size uint32, data []byte) error
}

// CreateFunc constructs a fresh algorithm instance for one session. It must
// have no observable side effects beyond the returned value or a
// construction failure.
type CreateFunc[T FlashOps] func(address, clock uint32, op Operation) (T, error)
