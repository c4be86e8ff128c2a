package host

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/0xb-s/flashops"
	"github.com/0xb-s/flashops/device"
	"github.com/0xb-s/flashops/errors"
)

// DefaultStaging is the scratch address data buffers are written to before
// program_page and verify calls. It sits above the descriptor and entry
// code of typical algorithm layouts; override per load with WithStaging.
const DefaultStaging uint32 = 0x8000

// maxSectors bounds descriptor read-back so a blob with a corrupted sector
// list cannot make the loader walk all of memory.
const maxSectors = 4096

// Loader loads flash algorithm blobs into an embedded wazero runtime.
type Loader struct {
	runtime wazero.Runtime
	logger  *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger installs a logger; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(ctx context.Context, opts ...Option) (*Loader, error) {
	l := &Loader{
		runtime: wazero.NewRuntime(ctx),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Close releases the runtime. All loaded algorithms become unusable.
func (l *Loader) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
}

// LoadOption configures one Load.
type LoadOption func(*Algorithm)

// WithStaging sets the scratch address for staged buffers.
func WithStaging(address uint32) LoadOption {
	return func(a *Algorithm) {
		a.staging = address
	}
}

// Load compiles and instantiates an algorithm blob, resolves its entry
// points, and reads back the device descriptor.
func (l *Loader) Load(ctx context.Context, blob []byte, opts ...LoadOption) (*Algorithm, error) {
	compiled, err := l.runtime.CompileModule(ctx, blob)
	if err != nil {
		return nil, errors.Load("compile algorithm", err)
	}

	mod, err := l.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Load("instantiate algorithm", err)
	}

	a := &Algorithm{
		mod:     mod,
		logger:  l.logger,
		staging: DefaultStaging,
	}
	for _, opt := range opts {
		opt(a)
	}

	for _, sym := range []string{
		flashops.SymInitialize,
		flashops.SymDeinitialize,
		flashops.SymEraseSector,
		flashops.SymProgramPage,
	} {
		if mod.ExportedFunction(sym) == nil {
			_ = mod.Close(ctx)
			return nil, errors.SymbolMissing(sym)
		}
	}
	a.initialize = mod.ExportedFunction(flashops.SymInitialize)
	a.deinitialize = mod.ExportedFunction(flashops.SymDeinitialize)
	a.eraseSector = mod.ExportedFunction(flashops.SymEraseSector)
	a.programPage = mod.ExportedFunction(flashops.SymProgramPage)

	// Capability support is symbol presence, nothing else.
	a.eraseChip = mod.ExportedFunction(flashops.SymEraseChip)
	a.verify = mod.ExportedFunction(flashops.SymVerify)

	desc, err := readDescriptor(mod)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	// A descriptor that decodes is not necessarily usable: zero geometry
	// would stall the host-side programming loop, so reject it here.
	if err := desc.Validate(); err != nil {
		_ = mod.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "descriptor failed validation")
	}
	a.desc = desc

	l.logger.Debug("algorithm loaded",
		zap.String("device", desc.Name),
		zap.Uint32("address", desc.Address),
		zap.Uint32("size", desc.Size),
		zap.Int("sectors", len(desc.Sectors)),
		zap.Bool("erase_chip", a.eraseChip != nil),
		zap.Bool("verify", a.verify != nil))
	return a, nil
}

// readDescriptor locates FlashDeviceInfo and decodes the descriptor table
// out of the algorithm's memory, reading sector entries until the sentinel.
func readDescriptor(mod api.Module) (*device.Descriptor, error) {
	g := mod.ExportedGlobal(flashops.SymDeviceInfo)
	if g == nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
			Symbol(flashops.SymDeviceInfo).
			Detail("algorithm exports no device descriptor").
			Build()
	}
	offset := uint32(g.Get())

	mem := mod.Memory()
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseDecode, "algorithm has no memory to read the descriptor from")
	}

	raw, ok := mem.Read(offset, uint32(device.HeaderSize))
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseDecode, offset, mem.Size())
	}
	buf := append([]byte(nil), raw...)

	cursor := offset + uint32(device.HeaderSize)
	for i := 0; ; i++ {
		if i >= maxSectors {
			return nil, errors.InvalidData(errors.PhaseDecode, "sector list exceeds sanity bound")
		}
		entry, ok := mem.Read(cursor, uint32(device.SectorEntrySize))
		if !ok {
			return nil, errors.OutOfBounds(errors.PhaseDecode, cursor, mem.Size())
		}
		buf = append(buf, entry...)
		cursor += uint32(device.SectorEntrySize)

		s := device.Sector{
			Size:    le32(entry[0:4]),
			Address: le32(entry[4:8]),
		}
		if s.IsSentinel() {
			break
		}
	}

	return device.Decode(buf)
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
