package device

import (
	"testing"
	"time"
)

func twoSectors() []Sector {
	return []Sector{
		{Size: 0x1000, Address: 0x0},
		{Size: 0x1000, Address: 0x1000},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Descriptor)
		wantErr bool
	}{
		{"valid", func(d *Descriptor) {}, false},
		{"no sectors", func(d *Descriptor) { d.Sectors = nil }, true},
		{"zero device size", func(d *Descriptor) { d.Size = 0 }, true},
		{"zero page size", func(d *Descriptor) { d.PageSize = 0 }, true},
		{"zero sector size", func(d *Descriptor) { d.Sectors[0].Size = 0 }, true},
		{"name too long", func(d *Descriptor) { d.Name = string(make([]byte, NameSize+1)) }, true},
		{"name at limit", func(d *Descriptor) { d.Name = string(make([]byte, NameSize)) }, false},
		{"descending sectors", func(d *Descriptor) {
			d.Sectors[0].Address, d.Sectors[1].Address = d.Sectors[1].Address, d.Sectors[0].Address
		}, true},
		{"duplicate sector address", func(d *Descriptor) { d.Sectors[1].Address = d.Sectors[0].Address }, true},
		{"sector past device end", func(d *Descriptor) { d.Sectors[1].Size = 0x2000 }, true},
		{"sentinel declared", func(d *Descriptor) { d.Sectors[1] = SentinelSector() }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(0x0800_0000, 0x2000, 0x100, twoSectors())
			tt.mutate(d)
			err := d.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	d := New(0x0, 0x2000, 0x100, twoSectors())
	if d.ProgramTimeout != DefaultProgramTimeout {
		t.Errorf("ProgramTimeout = %d, want %d", d.ProgramTimeout, DefaultProgramTimeout)
	}
	if d.EraseTimeout != DefaultEraseTimeout {
		t.Errorf("EraseTimeout = %d, want %d", d.EraseTimeout, DefaultEraseTimeout)
	}
	if d.Version != 0 {
		t.Errorf("Version = %d, want 0", d.Version)
	}
}

func TestEncodedSize(t *testing.T) {
	for n := 1; n <= 4; n++ {
		sectors := make([]Sector, n)
		for i := range sectors {
			sectors[i] = Sector{Size: 0x1000, Address: uint32(i) * 0x1000}
		}
		d := New(0, uint32(n)*0x1000, 0x100, sectors)
		want := HeaderSize + SectorEntrySize*(n+1)
		if got := d.EncodedSize(); got != want {
			t.Errorf("EncodedSize() with %d sectors = %d, want %d", n, got, want)
		}
	}
}

func TestSentinelSector(t *testing.T) {
	s := SentinelSector()
	if s.Size != 0xFFFFFFFF || s.Address != 0xFFFFFFFF {
		t.Errorf("sentinel = %+v", s)
	}
	if !s.IsSentinel() {
		t.Error("IsSentinel() = false for the sentinel")
	}
	if (Sector{Size: 0xFFFFFFFF, Address: 0}).IsSentinel() {
		t.Error("half-sentinel should not match")
	}
}

func TestTimeoutDurations(t *testing.T) {
	d := New(0, 0x1000, 0x100, []Sector{{Size: 0x1000, Address: 0}})
	if d.ProgramTimeoutDuration() != time.Second {
		t.Errorf("ProgramTimeoutDuration = %v", d.ProgramTimeoutDuration())
	}
	if d.EraseTimeoutDuration() != 2*time.Second {
		t.Errorf("EraseTimeoutDuration = %v", d.EraseTimeoutDuration())
	}
}
