package host

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/0xb-s/flashops"
	"github.com/0xb-s/flashops/device"
	"github.com/0xb-s/flashops/errors"
	"github.com/0xb-s/flashops/shim"
)

// Algorithm is a loaded flash algorithm instance. It is not safe for
// concurrent use; the ABI assumes sequential calls from one driver.
type Algorithm struct {
	mod     api.Module
	logger  *zap.Logger
	staging uint32
	desc    *device.Descriptor

	initialize   api.Function
	deinitialize api.Function
	eraseSector  api.Function
	programPage  api.Function
	eraseChip    api.Function // nil when the symbol is absent
	verify       api.Function // nil when the symbol is absent
}

// Close releases the instance.
func (a *Algorithm) Close(ctx context.Context) error {
	return a.mod.Close(ctx)
}

// Device returns the descriptor read back from the algorithm blob.
func (a *Algorithm) Device() *device.Descriptor {
	return a.desc
}

// Capabilities reports the optional entry points the blob exports.
func (a *Algorithm) Capabilities() shim.Capability {
	var caps shim.Capability
	if a.eraseChip != nil {
		caps |= shim.CapEraseChip
	}
	if a.verify != nil {
		caps |= shim.CapVerify
	}
	return caps
}

// call invokes one entry point and returns its raw code. A trap inside the
// algorithm (the non-returning fault path) comes back as a structured
// error, never as a code.
func (a *Algorithm) call(ctx context.Context, symbol string, fn api.Function, args ...uint64) (uint32, error) {
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return 0, errors.Trap(symbol, err)
	}
	code := uint32(results[0])
	a.logger.Debug("entry point returned",
		zap.String("symbol", symbol),
		zap.Uint32("code", code))
	return code, nil
}

// stage writes data to the scratch address and returns the raw pointer to
// pass across the ABI. Empty data stays the null pointer.
func (a *Algorithm) stage(data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}
	mem := a.mod.Memory()
	if mem == nil {
		return 0, errors.NotFound(errors.PhaseCall, "algorithm has no memory to stage into")
	}
	if !mem.Write(a.staging, data) {
		return 0, errors.OutOfBounds(errors.PhaseCall, a.staging, mem.Size())
	}
	return a.staging, nil
}

// Initialize starts a session for op at the given base address and clock.
func (a *Algorithm) Initialize(ctx context.Context, address, clock uint32, op flashops.Operation) (uint32, error) {
	return a.call(ctx, flashops.SymInitialize, a.initialize,
		uint64(address), uint64(clock), uint64(op))
}

// Deinitialize ends the current session.
func (a *Algorithm) Deinitialize(ctx context.Context) (uint32, error) {
	return a.call(ctx, flashops.SymDeinitialize, a.deinitialize)
}

// EraseSector erases the sector containing address.
func (a *Algorithm) EraseSector(ctx context.Context, address uint32) (uint32, error) {
	return a.call(ctx, flashops.SymEraseSector, a.eraseSector, uint64(address))
}

// ProgramPage stages data and programs it at address. The caller keeps
// len(data) within the device page size.
func (a *Algorithm) ProgramPage(ctx context.Context, address uint32, data []byte) (uint32, error) {
	ptr, err := a.stage(data)
	if err != nil {
		return 0, err
	}
	return a.call(ctx, flashops.SymProgramPage, a.programPage,
		uint64(address), uint64(len(data)), uint64(ptr))
}

// EraseChip erases the whole device. Unsupported when the blob does not
// export the symbol.
func (a *Algorithm) EraseChip(ctx context.Context) (uint32, error) {
	if a.eraseChip == nil {
		return 0, errors.Unsupported(flashops.SymEraseChip)
	}
	return a.call(ctx, flashops.SymEraseChip, a.eraseChip)
}

// Verify compares len(data) bytes at address against data.
func (a *Algorithm) Verify(ctx context.Context, address uint32, data []byte) (uint32, error) {
	if a.verify == nil {
		return 0, errors.Unsupported(flashops.SymVerify)
	}
	ptr, err := a.stage(data)
	if err != nil {
		return 0, err
	}
	return a.call(ctx, flashops.SymVerify, a.verify,
		uint64(address), uint64(len(data)), uint64(ptr))
}

// VerifyErased checks size bytes at address against the device's empty
// value by passing the null pointer, the ABI spelling of that request.
func (a *Algorithm) VerifyErased(ctx context.Context, address, size uint32) (uint32, error) {
	if a.verify == nil {
		return 0, errors.Unsupported(flashops.SymVerify)
	}
	return a.call(ctx, flashops.SymVerify, a.verify,
		uint64(address), uint64(size), 0)
}

// Program writes data starting at address, one descriptor page at a time.
// A non-zero code from the algorithm aborts the walk and surfaces as a
// flashops.ErrorCode.
func (a *Algorithm) Program(ctx context.Context, address uint32, data []byte) error {
	pageSize := a.desc.PageSize
	for off := 0; off < len(data); off += int(pageSize) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		end := off + int(pageSize)
		if end > len(data) {
			end = len(data)
		}
		target := address + uint32(off)

		code, err := a.ProgramPage(ctx, target, data[off:end])
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("program page at %#x: %w", target, flashops.ErrorCode(code))
		}
	}
	return nil
}
