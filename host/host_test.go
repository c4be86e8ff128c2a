package host

import (
	"context"
	"reflect"
	"strings"
	"testing"

	stderrors "errors"

	"github.com/0xb-s/flashops"
	"github.com/0xb-s/flashops/device"
	"github.com/0xb-s/flashops/errors"
	"github.com/0xb-s/flashops/internal/wasmmod"
	"github.com/0xb-s/flashops/shim"
)

// Scratch addresses the synthesized entry points record their arguments at.
const (
	recInitialize  uint32 = 0x40
	recEraseSector uint32 = 0x80
	recProgramPage uint32 = 0xC0
	recVerify      uint32 = 0x100

	descAddr uint32 = 0x200
)

func testDescriptor() *device.Descriptor {
	d := device.New(0x08000000, 0x8000, 256, []device.Sector{
		{Size: 0x1000, Address: 0x0000},
		{Size: 0x1000, Address: 0x1000},
	})
	d.Name = "TESTDEV"
	d.EmptyValue = 0xFF
	return d
}

type blobSpec struct {
	eraseChip  bool
	verify     bool
	descriptor bool

	// Per-symbol body overrides; the default body records arguments and
	// returns 0.
	bodies map[string][]byte
}

func buildBlob(t *testing.T, spec blobSpec) []byte {
	t.Helper()

	body := func(sym string, fallback []byte) []byte {
		if b, ok := spec.bodies[sym]; ok {
			return b
		}
		return fallback
	}

	mod := wasmmod.New().
		Memory(1).
		Func(flashops.SymInitialize, 3,
			body(flashops.SymInitialize, wasmmod.Body(wasmmod.RecordParams(recInitialize, 3), wasmmod.I32Const(0)))).
		Func(flashops.SymDeinitialize, 0,
			body(flashops.SymDeinitialize, wasmmod.Body(wasmmod.I32Const(0)))).
		Func(flashops.SymEraseSector, 1,
			body(flashops.SymEraseSector, wasmmod.Body(wasmmod.RecordParams(recEraseSector, 1), wasmmod.I32Const(0)))).
		Func(flashops.SymProgramPage, 3,
			body(flashops.SymProgramPage, wasmmod.Body(wasmmod.RecordParams(recProgramPage, 3), wasmmod.I32Const(0))))

	if spec.eraseChip {
		mod.Func(flashops.SymEraseChip, 0,
			body(flashops.SymEraseChip, wasmmod.Body(wasmmod.I32Const(0))))
	}
	if spec.verify {
		mod.Func(flashops.SymVerify, 3,
			body(flashops.SymVerify, wasmmod.Body(wasmmod.RecordParams(recVerify, 3), wasmmod.I32Const(0))))
	}

	if spec.descriptor {
		enc, err := testDescriptor().Encode()
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		mod.Global(flashops.SymDeviceInfo, descAddr).Data(descAddr, enc)
	}
	return mod.Encode()
}

func loadBlob(t *testing.T, spec blobSpec) *Algorithm {
	t.Helper()
	ctx := context.Background()

	ld, err := NewLoader(ctx)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	t.Cleanup(func() { ld.Close(ctx) })

	a, err := ld.Load(ctx, buildBlob(t, spec))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return a
}

func readWord(t *testing.T, a *Algorithm, offset uint32) uint32 {
	t.Helper()
	v, ok := a.mod.Memory().ReadUint32Le(offset)
	if !ok {
		t.Fatalf("read word at %#x out of bounds", offset)
	}
	return v
}

func TestLoadCapabilities(t *testing.T) {
	tests := []struct {
		name string
		spec blobSpec
		want shim.Capability
	}{
		{"full", blobSpec{eraseChip: true, verify: true, descriptor: true},
			shim.CapEraseChip | shim.CapVerify},
		{"bare", blobSpec{descriptor: true}, 0},
		{"erase chip only", blobSpec{eraseChip: true, descriptor: true},
			shim.CapEraseChip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := loadBlob(t, tt.spec)
			if got := a.Capabilities(); got != tt.want {
				t.Errorf("Capabilities() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadReadsDescriptor(t *testing.T) {
	a := loadBlob(t, blobSpec{descriptor: true})

	if got, want := a.Device(), testDescriptor(); !reflect.DeepEqual(got, want) {
		t.Errorf("Device() = %+v, want %+v", got, want)
	}
}

func TestLoadMissingMandatorySymbol(t *testing.T) {
	ctx := context.Background()
	ld, err := NewLoader(ctx)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	defer ld.Close(ctx)

	// Build a module exporting everything but program_page.
	mod := wasmmod.New().
		Memory(1).
		Func(flashops.SymInitialize, 3, wasmmod.Body(wasmmod.I32Const(0))).
		Func(flashops.SymDeinitialize, 0, wasmmod.Body(wasmmod.I32Const(0))).
		Func(flashops.SymEraseSector, 1, wasmmod.Body(wasmmod.I32Const(0)))

	_, err = ld.Load(ctx, mod.Encode())
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindSymbolMissing}) {
		t.Errorf("Load without program_page: got %v, want symbol_missing", err)
	}
}

func TestLoadMissingDescriptor(t *testing.T) {
	ctx := context.Background()
	ld, err := NewLoader(ctx)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	defer ld.Close(ctx)

	_, err = ld.Load(ctx, buildBlob(t, blobSpec{descriptor: false}))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindNotFound}) {
		t.Errorf("Load without descriptor: got %v, want not_found", err)
	}
}

// rawDescriptorBlob builds a blob with the mandatory entry points and the
// given pre-encoded descriptor bytes, bypassing the encoder's validation.
func rawDescriptorBlob(enc []byte) []byte {
	return wasmmod.New().
		Memory(1).
		Func(flashops.SymInitialize, 3, wasmmod.Body(wasmmod.I32Const(0))).
		Func(flashops.SymDeinitialize, 0, wasmmod.Body(wasmmod.I32Const(0))).
		Func(flashops.SymEraseSector, 1, wasmmod.Body(wasmmod.I32Const(0))).
		Func(flashops.SymProgramPage, 3, wasmmod.Body(wasmmod.I32Const(0))).
		Global(flashops.SymDeviceInfo, descAddr).
		Data(descAddr, enc).
		Encode()
}

func TestLoadUnterminatedSectorList(t *testing.T) {
	ctx := context.Background()
	ld, err := NewLoader(ctx)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	defer ld.Close(ctx)

	enc, err := testDescriptor().Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Drop the sentinel.
	_, err = ld.Load(ctx, rawDescriptorBlob(enc[:len(enc)-device.SectorEntrySize]))
	if err == nil {
		t.Fatal("Load with unterminated sector list succeeded")
	}
}

func TestLoadRejectsZeroPageSize(t *testing.T) {
	ctx := context.Background()
	ld, err := NewLoader(ctx)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	defer ld.Close(ctx)

	enc, err := testDescriptor().Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < 4; i++ {
		enc[device.OffPageSize+i] = 0
	}

	_, err = ld.Load(ctx, rawDescriptorBlob(enc))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidData}) {
		t.Errorf("Load with zero page size: got %v, want invalid_data", err)
	}
}

func TestLoadSectorListAtBound(t *testing.T) {
	ctx := context.Background()
	ld, err := NewLoader(ctx)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	defer ld.Close(ctx)

	encode := func(n int) []byte {
		sectors := make([]device.Sector, n)
		for i := range sectors {
			sectors[i] = device.Sector{Size: 8, Address: uint32(i) * 8}
		}
		d := device.New(0x08000000, uint32(n)*8, 8, sectors)
		enc, err := d.Encode()
		if err != nil {
			t.Fatalf("Encode %d sectors: %v", n, err)
		}
		return enc
	}

	if _, err := ld.Load(ctx, rawDescriptorBlob(encode(maxSectors-1))); err != nil {
		t.Errorf("Load with %d sectors: %v", maxSectors-1, err)
	}
	if _, err := ld.Load(ctx, rawDescriptorBlob(encode(maxSectors))); err == nil {
		t.Errorf("Load with %d sectors succeeded, want sanity bound error", maxSectors)
	}
}

func TestInitializeRecordsArguments(t *testing.T) {
	a := loadBlob(t, blobSpec{descriptor: true})
	ctx := context.Background()

	code, err := a.Initialize(ctx, 0x08000000, 8_000_000, flashops.OpProgram)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if code != 0 {
		t.Fatalf("Initialize code = %d, want 0", code)
	}

	if got := readWord(t, a, recInitialize); got != 0x08000000 {
		t.Errorf("address = %#x, want 0x08000000", got)
	}
	if got := readWord(t, a, recInitialize+4); got != 8_000_000 {
		t.Errorf("clock = %d, want 8000000", got)
	}
	if got := readWord(t, a, recInitialize+8); got != uint32(flashops.OpProgram) {
		t.Errorf("op = %d, want %d", got, flashops.OpProgram)
	}
}

func TestProgramPageStagesData(t *testing.T) {
	a := loadBlob(t, blobSpec{descriptor: true})
	ctx := context.Background()

	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	code, err := a.ProgramPage(ctx, 0x08000100, data)
	if err != nil {
		t.Fatalf("ProgramPage: %v", err)
	}
	if code != 0 {
		t.Fatalf("ProgramPage code = %d, want 0", code)
	}

	if got := readWord(t, a, recProgramPage); got != 0x08000100 {
		t.Errorf("address = %#x, want 0x08000100", got)
	}
	if got := readWord(t, a, recProgramPage+4); got != 4 {
		t.Errorf("size = %d, want 4", got)
	}
	if got := readWord(t, a, recProgramPage+8); got != DefaultStaging {
		t.Errorf("data pointer = %#x, want %#x", got, DefaultStaging)
	}

	staged, ok := a.mod.Memory().Read(DefaultStaging, uint32(len(data)))
	if !ok {
		t.Fatal("staged data out of bounds")
	}
	for i, b := range data {
		if staged[i] != b {
			t.Errorf("staged[%d] = %#x, want %#x", i, staged[i], b)
		}
	}
}

func TestProgramPageEmptyDataNullPointer(t *testing.T) {
	a := loadBlob(t, blobSpec{descriptor: true})
	ctx := context.Background()

	if _, err := a.ProgramPage(ctx, 0x08000000, nil); err != nil {
		t.Fatalf("ProgramPage: %v", err)
	}
	if got := readWord(t, a, recProgramPage+8); got != 0 {
		t.Errorf("data pointer = %#x, want null", got)
	}
}

func TestVerifyErasedNullPointer(t *testing.T) {
	a := loadBlob(t, blobSpec{verify: true, descriptor: true})
	ctx := context.Background()

	code, err := a.VerifyErased(ctx, 0x08000000, 0x1000)
	if err != nil {
		t.Fatalf("VerifyErased: %v", err)
	}
	if code != 0 {
		t.Fatalf("VerifyErased code = %d, want 0", code)
	}

	if got := readWord(t, a, recVerify); got != 0x08000000 {
		t.Errorf("address = %#x, want 0x08000000", got)
	}
	if got := readWord(t, a, recVerify+4); got != 0x1000 {
		t.Errorf("size = %#x, want 0x1000", got)
	}
	if got := readWord(t, a, recVerify+8); got != 0 {
		t.Errorf("data pointer = %#x, want null", got)
	}
}

func TestGatedEntryPointsUnsupported(t *testing.T) {
	a := loadBlob(t, blobSpec{descriptor: true})
	ctx := context.Background()

	want := &errors.Error{Phase: errors.PhaseCall, Kind: errors.KindUnsupported}
	if _, err := a.EraseChip(ctx); !stderrors.Is(err, want) {
		t.Errorf("EraseChip: got %v, want unsupported", err)
	}
	if _, err := a.Verify(ctx, 0, nil); !stderrors.Is(err, want) {
		t.Errorf("Verify: got %v, want unsupported", err)
	}
	if _, err := a.VerifyErased(ctx, 0, 16); !stderrors.Is(err, want) {
		t.Errorf("VerifyErased: got %v, want unsupported", err)
	}
}

func TestErrorCodePassesThrough(t *testing.T) {
	a := loadBlob(t, blobSpec{
		descriptor: true,
		bodies: map[string][]byte{
			flashops.SymEraseSector: wasmmod.Body(wasmmod.I32Const(0x2002)),
		},
	})

	code, err := a.EraseSector(context.Background(), 0x08000000)
	if err != nil {
		t.Fatalf("EraseSector: %v", err)
	}
	if code != 0x2002 {
		t.Errorf("EraseSector code = %#x, want 0x2002", code)
	}
}

func TestTrapSurfacesAsError(t *testing.T) {
	a := loadBlob(t, blobSpec{
		descriptor: true,
		bodies: map[string][]byte{
			flashops.SymEraseSector: wasmmod.Body(wasmmod.Unreachable()),
		},
	})

	_, err := a.EraseSector(context.Background(), 0x08000000)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseCall, Kind: errors.KindTrap}) {
		t.Errorf("trapping erase_sector: got %v, want trap", err)
	}
}

func TestProgramChunksByPageSize(t *testing.T) {
	a := loadBlob(t, blobSpec{descriptor: true})
	ctx := context.Background()

	// 600 bytes against a 256-byte page: three calls, the last one short.
	data := make([]byte, 600)
	for i := range data {
		data[i] = byte(i)
	}
	if err := a.Program(ctx, 0x08000000, data); err != nil {
		t.Fatalf("Program: %v", err)
	}

	// The recorder keeps the final call's arguments.
	if got := readWord(t, a, recProgramPage); got != 0x08000200 {
		t.Errorf("last address = %#x, want 0x08000200", got)
	}
	if got := readWord(t, a, recProgramPage+4); got != 600-512 {
		t.Errorf("last size = %d, want %d", got, 600-512)
	}

	staged, ok := a.mod.Memory().Read(DefaultStaging, 600-512)
	if !ok {
		t.Fatal("staged data out of bounds")
	}
	for i, b := range staged {
		if want := byte(512 + i); b != want {
			t.Fatalf("staged[%d] = %#x, want %#x", i, b, want)
		}
	}
}

func TestProgramStopsOnErrorCode(t *testing.T) {
	a := loadBlob(t, blobSpec{
		descriptor: true,
		bodies: map[string][]byte{
			flashops.SymProgramPage: wasmmod.Body(wasmmod.I32Const(0x3001)),
		},
	})

	err := a.Program(context.Background(), 0x08000000, make([]byte, 1024))
	var code flashops.ErrorCode
	if !stderrors.As(err, &code) {
		t.Fatalf("Program: got %v, want wrapped ErrorCode", err)
	}
	if code != 0x3001 {
		t.Errorf("code = %#x, want 0x3001", code)
	}
}

func TestProgramHonorsCancellation(t *testing.T) {
	a := loadBlob(t, blobSpec{descriptor: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Program(ctx, 0x08000000, make([]byte, 16))
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Program on cancelled context: got %v, want context.Canceled", err)
	}
}

func TestStagingOutOfBoundsReportsMemorySize(t *testing.T) {
	ctx := context.Background()
	ld, err := NewLoader(ctx)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	defer ld.Close(ctx)

	// One 64 KiB page; staging 8 bytes at 0xFFFC runs off the end.
	a, err := ld.Load(ctx, buildBlob(t, blobSpec{descriptor: true}), WithStaging(0xFFFC))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	_, err = a.ProgramPage(ctx, 0x08000000, make([]byte, 8))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseCall, Kind: errors.KindOutOfBounds}) {
		t.Fatalf("ProgramPage: got %v, want out_of_bounds", err)
	}
	if !strings.Contains(err.Error(), "length 65536") {
		t.Errorf("error %q does not report the memory size", err)
	}
}

func TestWithStaging(t *testing.T) {
	ctx := context.Background()
	ld, err := NewLoader(ctx)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	defer ld.Close(ctx)

	a, err := ld.Load(ctx, buildBlob(t, blobSpec{descriptor: true}), WithStaging(0x4000))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := a.ProgramPage(ctx, 0x08000000, []byte{1, 2, 3}); err != nil {
		t.Fatalf("ProgramPage: %v", err)
	}
	if got := readWord(t, a, recProgramPage+8); got != 0x4000 {
		t.Errorf("data pointer = %#x, want 0x4000", got)
	}
}
