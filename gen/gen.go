package gen

import (
	"fmt"
	"go/format"
	"strings"

	"github.com/0xb-s/flashops/errors"
)

const modulePath = "github.com/0xb-s/flashops"

// Generate emits the shim source for cfg: the exported entry points
// delegating to a shim over the configured implementation, and the encoded
// descriptor table in the DeviceData section. The result is gofmt'd and
// deterministic.
func Generate(cfg Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	desc := cfg.Descriptor()
	raw, err := desc.Encode()
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by flashops gen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", cfg.Package)
	fmt.Fprintf(&b, "import (\n")
	fmt.Fprintf(&b, "\timpl %q\n\n", cfg.Import)
	fmt.Fprintf(&b, "\t%q\n", modulePath+"/shim")
	fmt.Fprintf(&b, ")\n\n")

	fmt.Fprintf(&b, "var algo = shim.New(impl.%s)\n\n", cfg.Create)

	fmt.Fprintf(&b, "//export initialize\n")
	fmt.Fprintf(&b, "func initialize(address, clock, op uint32) uint32 {\n")
	fmt.Fprintf(&b, "\treturn algo.Initialize(address, clock, op)\n}\n\n")

	fmt.Fprintf(&b, "//export deinitialize\n")
	fmt.Fprintf(&b, "func deinitialize() uint32 {\n")
	fmt.Fprintf(&b, "\treturn algo.Deinitialize()\n}\n\n")

	fmt.Fprintf(&b, "//export erase_sector\n")
	fmt.Fprintf(&b, "func eraseSector(address uint32) uint32 {\n")
	fmt.Fprintf(&b, "\treturn algo.EraseSector(address)\n}\n\n")

	fmt.Fprintf(&b, "//export program_page\n")
	fmt.Fprintf(&b, "func programPage(address, size uint32, data *byte) uint32 {\n")
	fmt.Fprintf(&b, "\treturn algo.ProgramPage(address, size, data)\n}\n\n")

	if cfg.EraseChip {
		fmt.Fprintf(&b, "//export erase_chip\n")
		fmt.Fprintf(&b, "func eraseChip() uint32 {\n")
		fmt.Fprintf(&b, "\treturn algo.EraseChip()\n}\n\n")
	}

	if cfg.Verify {
		fmt.Fprintf(&b, "//export verify\n")
		fmt.Fprintf(&b, "func verify(address, size uint32, data *byte) uint32 {\n")
		fmt.Fprintf(&b, "\treturn algo.Verify(address, size, data)\n}\n\n")
	}

	fmt.Fprintf(&b, "// FlashDeviceInfo is the device descriptor table, read directly by the\n")
	fmt.Fprintf(&b, "// host tool from the DeviceData section.\n")
	fmt.Fprintf(&b, "//\n")
	fmt.Fprintf(&b, "//go:align 4\n")
	fmt.Fprintf(&b, "//go:section .DeviceData\n")
	fmt.Fprintf(&b, "var FlashDeviceInfo = [%d]byte{\n", len(raw))
	writeByteRows(&b, raw)
	fmt.Fprintf(&b, "}\n")

	if cfg.Package == "main" {
		fmt.Fprintf(&b, "\nfunc main() {}\n")
	}

	src, err := format.Source([]byte(b.String()))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "format generated source")
	}
	return src, nil
}

func writeByteRows(b *strings.Builder, raw []byte) {
	const perRow = 12
	for i, v := range raw {
		if i%perRow == 0 {
			b.WriteByte('\t')
		}
		fmt.Fprintf(b, "0x%02X,", v)
		if i%perRow == perRow-1 || i == len(raw)-1 {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
	}
}
