package device

import (
	"time"

	"github.com/0xb-s/flashops/errors"
)

const (
	// NameSize is the fixed size of the device name field.
	NameSize = 128

	// TypeFlash is the device type tag marking the record as a flash
	// algorithm descriptor.
	TypeFlash uint16 = 5

	// Sentinel is the size and address of the terminating sector entry.
	Sentinel uint32 = 0xFFFFFFFF

	// HeaderSize is the encoded size of everything before the sector list.
	HeaderSize = 160

	// SectorEntrySize is the encoded size of one sector entry.
	SectorEntrySize = 8

	// DefaultProgramTimeout and DefaultEraseTimeout are the advisory
	// timeouts, in milliseconds, used when a descriptor declares none.
	DefaultProgramTimeout uint32 = 1000
	DefaultEraseTimeout   uint32 = 2000
)

// Sector describes one contiguous erase-granularity region.
type Sector struct {
	Size    uint32
	Address uint32
}

// SentinelSector returns the all-ones entry that terminates the sector list.
func SentinelSector() Sector {
	return Sector{Size: Sentinel, Address: Sentinel}
}

// IsSentinel reports whether s is the terminating entry.
func (s Sector) IsSentinel() bool {
	return s.Size == Sentinel && s.Address == Sentinel
}

// Descriptor is the device descriptor table in its typed form. The zero
// values of Version and Name are valid; timeouts of zero encode as the
// defaults.
type Descriptor struct {
	Version  uint16
	Name     string
	Address  uint32
	Size     uint32
	PageSize uint32

	// EmptyValue is the bit pattern an erased cell reads as.
	EmptyValue byte

	// ProgramTimeout and EraseTimeout are advisory values in milliseconds,
	// consumed by the host tool and never enforced on the target.
	ProgramTimeout uint32
	EraseTimeout   uint32

	// Sectors must be listed in ascending address order and must not
	// include the sentinel; Encode appends it. Sector addresses are
	// offsets from the device base address.
	Sectors []Sector
}

// New builds a descriptor with the default timeouts filled in.
func New(address, size, pageSize uint32, sectors []Sector) *Descriptor {
	return &Descriptor{
		Address:        address,
		Size:           size,
		PageSize:       pageSize,
		ProgramTimeout: DefaultProgramTimeout,
		EraseTimeout:   DefaultEraseTimeout,
		Sectors:        sectors,
	}
}

// EncodedSize returns the total encoded size: the fixed header plus one
// entry per declared sector plus the sentinel. Host tools compute the same
// figure from the sector count before ever inspecting the sentinel.
func (d *Descriptor) EncodedSize() int {
	return HeaderSize + SectorEntrySize*(len(d.Sectors)+1)
}

// ProgramTimeoutDuration returns the advisory page program timeout.
func (d *Descriptor) ProgramTimeoutDuration() time.Duration {
	return time.Duration(d.ProgramTimeout) * time.Millisecond
}

// EraseTimeoutDuration returns the advisory sector erase timeout.
func (d *Descriptor) EraseTimeoutDuration() time.Duration {
	return time.Duration(d.EraseTimeout) * time.Millisecond
}

// Validate checks the caller contract the binary layout itself cannot
// enforce: geometry sanity and ascending, in-range, sentinel-free sectors.
func (d *Descriptor) Validate() error {
	if len(d.Name) > NameSize {
		return errors.InvalidConfig("device name exceeds %d bytes", NameSize)
	}
	if d.Size == 0 {
		return errors.InvalidConfig("device size must not be zero")
	}
	if d.PageSize == 0 {
		return errors.InvalidConfig("page size must not be zero")
	}
	if len(d.Sectors) == 0 {
		return errors.InvalidConfig("at least one sector is required")
	}

	prev := Sector{}
	for i, s := range d.Sectors {
		if s.IsSentinel() {
			return errors.InvalidConfig("sector %d is the reserved sentinel entry", i)
		}
		if s.Size == 0 {
			return errors.InvalidConfig("sector %d has zero size", i)
		}
		if i > 0 && s.Address <= prev.Address {
			return errors.InvalidConfig("sector %d address 0x%X not ascending", i, s.Address)
		}
		if uint64(s.Address)+uint64(s.Size) > uint64(d.Size) {
			return errors.InvalidConfig("sector %d (0x%X+0x%X) outside device range", i, s.Address, s.Size)
		}
		prev = s
	}
	return nil
}
