package device

import (
	"bytes"

	"github.com/0xb-s/flashops/errors"
	"github.com/0xb-s/flashops/internal/binary"
)

// Field offsets of the encoded descriptor. The layout is the C struct layout
// expected by programmer tools: little-endian, with three padding bytes after
// the one-byte empty value so the timeouts stay 4-byte aligned.
const (
	OffVersion        = 0
	OffName           = 2
	OffType           = 130
	OffAddress        = 132
	OffSize           = 136
	OffPageSize       = 140
	OffReserved       = 144
	OffEmptyValue     = 148
	OffProgramTimeout = 152
	OffEraseTimeout   = 156
	OffSectors        = 160
)

// Encode serializes the descriptor into its binary-stable form, appending
// the sentinel entry after the declared sectors. The descriptor is validated
// first.
func (d *Descriptor) Encode() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	programTimeout := d.ProgramTimeout
	if programTimeout == 0 {
		programTimeout = DefaultProgramTimeout
	}
	eraseTimeout := d.EraseTimeout
	if eraseTimeout == 0 {
		eraseTimeout = DefaultEraseTimeout
	}

	w := binary.NewWriter()
	w.WriteU16LE(d.Version)
	w.WriteFixed(d.Name, NameSize)
	w.WriteU16LE(TypeFlash)
	w.WriteU32LE(d.Address)
	w.WriteU32LE(d.Size)
	w.WriteU32LE(d.PageSize)
	w.WriteU32LE(0) // reserved
	w.Byte(d.EmptyValue)
	w.Pad(3)
	w.WriteU32LE(programTimeout)
	w.WriteU32LE(eraseTimeout)

	for _, s := range d.Sectors {
		w.WriteU32LE(s.Size)
		w.WriteU32LE(s.Address)
	}
	w.WriteU32LE(Sentinel)
	w.WriteU32LE(Sentinel)

	return w.Bytes(), nil
}

// Decode parses an encoded descriptor, reading sectors until the sentinel.
// Trailing bytes after the sentinel are ignored; the input may therefore be
// an over-read slice of target memory.
func Decode(data []byte) (*Descriptor, error) {
	r := binary.NewReader(data)
	if r.Remaining() < HeaderSize {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Symbol("FlashDeviceInfo").
			Detail("descriptor header truncated: %d bytes, need %d", r.Remaining(), HeaderSize).
			Build()
	}

	d := &Descriptor{}
	d.Version, _ = r.ReadU16LE()

	name, _ := r.ReadBytes(NameSize)
	d.Name = string(bytes.TrimRight(name, "\x00"))

	devType, _ := r.ReadU16LE()
	if devType != TypeFlash {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Symbol("FlashDeviceInfo").
			Detail("device type tag %d, want %d", devType, TypeFlash).
			Value(devType).
			Build()
	}

	d.Address, _ = r.ReadU32LE()
	d.Size, _ = r.ReadU32LE()
	d.PageSize, _ = r.ReadU32LE()
	_, _ = r.ReadU32LE() // reserved
	empty, _ := r.ReadByte()
	d.EmptyValue = empty
	_ = r.Skip(3)
	d.ProgramTimeout, _ = r.ReadU32LE()
	d.EraseTimeout, _ = r.ReadU32LE()

	for {
		if r.Remaining() < SectorEntrySize {
			return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Symbol("FlashDeviceInfo").
				Detail("sector list ends without sentinel after %d sectors", len(d.Sectors)).
				Build()
		}
		size, _ := r.ReadU32LE()
		address, _ := r.ReadU32LE()
		s := Sector{Size: size, Address: address}
		if s.IsSentinel() {
			return d, nil
		}
		d.Sectors = append(d.Sectors, s)
	}
}
