package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/0xb-s/flashops/host"
	"github.com/0xb-s/flashops/shim"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Width(16)

	presentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	absentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("inspect: blob path is required")
	}

	ctx := context.Background()
	a, cleanup, err := loadAlgorithm(ctx, fs.Arg(0), *verbose)
	if err != nil {
		return err
	}
	defer cleanup()

	styled := term.IsTerminal(int(os.Stdout.Fd()))
	fmt.Print(renderDescriptor(a, fs.Arg(0), styled))
	return nil
}

func renderDescriptor(a *host.Algorithm, path string, styled bool) string {
	heading := func(s string) string {
		if styled {
			return headingStyle.Render(s)
		}
		return s
	}
	label := func(s string) string {
		if styled {
			return labelStyle.Render(s)
		}
		return fmt.Sprintf("%-16s", s)
	}
	capability := func(name string, present bool) string {
		mark := name + " (absent)"
		if present {
			mark = name + " (present)"
		}
		if !styled {
			return mark
		}
		if present {
			return presentStyle.Render(mark)
		}
		return absentStyle.Render(mark)
	}

	d := a.Device()
	caps := a.Capabilities()

	var b strings.Builder
	b.WriteString(heading("Flash Algorithm"))
	b.WriteString(" ")
	b.WriteString(path)
	b.WriteString("\n\n")

	b.WriteString(label("Device") + d.Name + "\n")
	fmt.Fprintf(&b, "%s0x%02X\n", label("Version"), d.Version)
	fmt.Fprintf(&b, "%s0x%08X\n", label("Address"), d.Address)
	fmt.Fprintf(&b, "%s0x%X (%d bytes)\n", label("Size"), d.Size, d.Size)
	fmt.Fprintf(&b, "%s%d bytes\n", label("Page size"), d.PageSize)
	fmt.Fprintf(&b, "%s0x%02X\n", label("Empty value"), d.EmptyValue)
	fmt.Fprintf(&b, "%s%v program, %v erase\n", label("Timeouts"),
		d.ProgramTimeoutDuration(), d.EraseTimeoutDuration())

	b.WriteString("\n")
	b.WriteString(label("Capabilities"))
	b.WriteString(capability("erase_chip", caps.Has(shim.CapEraseChip)))
	b.WriteString("  ")
	b.WriteString(capability("verify", caps.Has(shim.CapVerify)))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s%d\n", label("Sectors"), len(d.Sectors))
	for i, s := range d.Sectors {
		fmt.Fprintf(&b, "  %3d  +0x%08X  0x%X bytes\n", i, s.Address, s.Size)
	}
	return b.String()
}
