package shim

import (
	"io"

	"go.uber.org/zap"

	"github.com/0xb-s/flashops"
)

// Capability identifies the optional entry points an algorithm supports.
type Capability uint8

const (
	CapEraseChip Capability = 1 << iota
	CapVerify
)

// Has reports whether c includes flag.
func (c Capability) Has(flag Capability) bool {
	return c&flag == flag
}

// Option configures a Shim.
type Option func(*settings)

type settings struct {
	mask Capability
}

// WithCapabilities restricts which optional entry points the shim exposes,
// regardless of what the implementing type provides. The default exposes
// everything the type implements.
func WithCapabilities(caps Capability) Option {
	return func(s *settings) {
		s.mask = caps
	}
}

// Shim carries the fixed entry points over an implementation of
// flashops.FlashOps. It is not safe for concurrent use; the target
// execution model is a single thread driven by sequential host calls.
type Shim[T flashops.FlashOps] struct {
	create      flashops.CreateFunc[T]
	instance    T
	initialized bool
	caps        Capability
}

// New builds a shim for the implementing type of create. Optional
// capabilities are detected from the type itself: a type that implements
// flashops.ChipEraser gets an erase_chip entry point, a flashops.Verifier
// gets verify.
func New[T flashops.FlashOps](create flashops.CreateFunc[T], opts ...Option) *Shim[T] {
	s := settings{mask: CapEraseChip | CapVerify}
	for _, opt := range opts {
		opt(&s)
	}
	return &Shim[T]{
		create: create,
		caps:   implemented[T]() & s.mask,
	}
}

func implemented[T flashops.FlashOps]() Capability {
	var zero T
	var caps Capability
	if _, ok := any(zero).(flashops.ChipEraser); ok {
		caps |= CapEraseChip
	}
	if _, ok := any(zero).(flashops.Verifier); ok {
		caps |= CapVerify
	}
	return caps
}

// Capabilities returns the optional entry points this shim exposes.
func (s *Shim[T]) Capabilities() Capability {
	return s.caps
}

// Initialized reports the lifecycle flag.
func (s *Shim[T]) Initialized() bool {
	return s.initialized
}

// EntryPoints returns the externally callable functions keyed by their
// exported symbol names. Gated capabilities are absent from the map
// entirely, mirroring symbol absence in a compiled blob.
func (s *Shim[T]) EntryPoints() map[string]any {
	eps := map[string]any{
		flashops.SymInitialize:   s.Initialize,
		flashops.SymDeinitialize: s.Deinitialize,
		flashops.SymEraseSector:  s.EraseSector,
		flashops.SymProgramPage:  s.ProgramPage,
	}
	if s.caps.Has(CapEraseChip) {
		eps[flashops.SymEraseChip] = s.EraseChip
	}
	if s.caps.Has(CapVerify) {
		eps[flashops.SymVerify] = s.Verify
	}
	return eps
}

// Initialize constructs the session instance. An already-initialized shim is
// deinitialized first with no error surfaced for that implicit step. An
// operation code outside the defined set raises a Fault and does not return.
// Returns 0 on success; on a construction failure the raw code is returned
// and the shim stays uninitialized.
func (s *Shim[T]) Initialize(address, clock, op uint32) uint32 {
	if s.initialized {
		s.Deinitialize()
	}

	operation := flashops.Operation(op)
	if !operation.Valid() {
		fault("initialize: invalid operation code %d", op)
	}

	instance, err := s.create(address, clock, operation)
	if err != nil {
		code := flashops.CodeOf(err)
		Logger().Debug("create failed",
			zap.Uint32("address", address),
			zap.Stringer("operation", operation),
			zap.Uint32("code", code),
			zap.Error(err))
		return code
	}

	// Construct fully, then flip the flag: the flag must never read true
	// while the instance slot holds a partially built value.
	s.instance = instance
	s.initialized = true
	Logger().Debug("initialized",
		zap.Uint32("address", address),
		zap.Uint32("clock", clock),
		zap.Stringer("operation", operation))
	return 0
}

// Deinitialize destroys the instance. Returns 1 when nothing is
// initialized, otherwise 0. Destruction is total: the slot is zeroed so a
// later Initialize observes no partial state. If the implementation is an
// io.Closer its Close runs here; a Close error is logged, never surfaced.
func (s *Shim[T]) Deinitialize() uint32 {
	if !s.initialized {
		return uint32(flashops.CodeNotInitialized)
	}

	// Flag first, teardown second: the inverse of the initialize ordering.
	s.initialized = false
	if closer, ok := any(s.instance).(io.Closer); ok {
		if err := closer.Close(); err != nil {
			Logger().Debug("close failed", zap.Error(err))
		}
	}
	var zero T
	s.instance = zero
	Logger().Debug("deinitialized")
	return 0
}

// EraseSector erases the sector containing address.
func (s *Shim[T]) EraseSector(address uint32) uint32 {
	if !s.initialized {
		return uint32(flashops.CodeNotInitialized)
	}
	return flashops.CodeOf(s.instance.EraseSector(address))
}

// ProgramPage writes size bytes at data to address. The pointer must be
// valid for size bytes; see view.
func (s *Shim[T]) ProgramPage(address, size uint32, data *byte) uint32 {
	if !s.initialized {
		return uint32(flashops.CodeNotInitialized)
	}
	return flashops.CodeOf(s.instance.ProgramPage(address, view(data, size)))
}

// EraseChip erases the entire device. Callers are expected to consult
// EntryPoints first; invoking a gated capability reports CodeUnspecified.
func (s *Shim[T]) EraseChip() uint32 {
	if !s.initialized {
		return uint32(flashops.CodeNotInitialized)
	}
	if !s.caps.Has(CapEraseChip) {
		return uint32(flashops.CodeUnspecified)
	}
	return flashops.CodeOf(any(s.instance).(flashops.ChipEraser).EraseChip())
}

// Verify compares size bytes at address against data, or against the
// device's empty value when data is the null pointer. Both spellings reach
// the implementation through the same nil-slice case.
func (s *Shim[T]) Verify(address, size uint32, data *byte) uint32 {
	if !s.initialized {
		return uint32(flashops.CodeNotInitialized)
	}
	if !s.caps.Has(CapVerify) {
		return uint32(flashops.CodeUnspecified)
	}
	return flashops.CodeOf(any(s.instance).(flashops.Verifier).Verify(address, size, view(data, size)))
}
