package gen

import (
	"go/token"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/coreos/go-semver/semver"

	"github.com/0xb-s/flashops/device"
	"github.com/0xb-s/flashops/errors"
)

// Config describes one algorithm build: which implementation to wrap, which
// optional capabilities to compile in, and the device geometry for the
// descriptor table.
type Config struct {
	// Package is the package name of the generated file.
	Package string `toml:"package"`

	// Import is the import path of the package implementing the algorithm.
	Import string `toml:"import"`

	// Create is the constructor in that package; it must be assignable to
	// flashops.CreateFunc for the implementing type.
	Create string `toml:"create"`

	// Version is the algorithm version, semver. Major and minor are packed
	// into the descriptor's 16-bit version field.
	Version string `toml:"version"`

	// EraseChip and Verify select the optional entry points. A disabled
	// capability is absent from the compiled symbol table entirely.
	EraseChip bool `toml:"erase_chip"`
	Verify    bool `toml:"verify"`

	Device DeviceConfig `toml:"device"`
}

// DeviceConfig is the descriptor geometry as written in a config file.
type DeviceConfig struct {
	Name           string         `toml:"name"`
	Address        uint32         `toml:"address"`
	Size           uint32         `toml:"size"`
	PageSize       uint32         `toml:"page_size"`
	EmptyValue     uint8          `toml:"empty_value"`
	ProgramTimeout uint32         `toml:"program_timeout_ms"`
	EraseTimeout   uint32         `toml:"erase_timeout_ms"`
	Sectors        []SectorConfig `toml:"sectors"`
}

// SectorConfig is one erase region; the address is an offset from the
// device base.
type SectorConfig struct {
	Size    uint32 `toml:"size"`
	Address uint32 `toml:"address"`
}

// DefaultConfig returns a Config with the conventional defaults filled in:
// a main package, an all-ones empty value, and the standard advisory
// timeouts.
func DefaultConfig() Config {
	return Config{
		Package: "main",
		Version: "0.0.0",
		Device: DeviceConfig{
			EmptyValue:     0xFF,
			ProgramTimeout: device.DefaultProgramTimeout,
			EraseTimeout:   device.DefaultEraseTimeout,
		},
	}
}

// LoadConfig reads a TOML config file. Absent keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read config")
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindInvalidConfig, err, "parse config")
	}
	return cfg, nil
}

// Validate checks everything Generate relies on.
func (c *Config) Validate() error {
	if !token.IsIdentifier(c.Package) {
		return errors.InvalidConfig("package %q is not a valid identifier", c.Package)
	}
	if c.Import == "" {
		return errors.InvalidConfig("import path of the implementing package is required")
	}
	if !token.IsIdentifier(c.Create) {
		return errors.InvalidConfig("create %q is not a valid identifier", c.Create)
	}
	if _, err := c.versionField(); err != nil {
		return err
	}
	return c.Descriptor().Validate()
}

// Descriptor builds the device descriptor from the config.
func (c *Config) Descriptor() *device.Descriptor {
	sectors := make([]device.Sector, len(c.Device.Sectors))
	for i, s := range c.Device.Sectors {
		sectors[i] = device.Sector{Size: s.Size, Address: s.Address}
	}
	vers, _ := c.versionField()
	return &device.Descriptor{
		Version:        vers,
		Name:           c.Device.Name,
		Address:        c.Device.Address,
		Size:           c.Device.Size,
		PageSize:       c.Device.PageSize,
		EmptyValue:     c.Device.EmptyValue,
		ProgramTimeout: c.Device.ProgramTimeout,
		EraseTimeout:   c.Device.EraseTimeout,
		Sectors:        sectors,
	}
}

// versionField packs the semver major and minor into the descriptor's
// 16-bit version field.
func (c *Config) versionField() (uint16, error) {
	if c.Version == "" {
		return 0, nil
	}
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseConfig, errors.KindInvalidConfig, err, "parse version")
	}
	if v.Major > 0xFF || v.Minor > 0xFF {
		return 0, errors.InvalidConfig("version %s does not fit the 16-bit field", c.Version)
	}
	return uint16(v.Major)<<8 | uint16(v.Minor), nil
}
