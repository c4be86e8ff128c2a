package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/0xb-s/flashops"
	"github.com/0xb-s/flashops/gen"
	"github.com/0xb-s/flashops/host"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "gen":
		err = runGen(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "call":
		err = runCall(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: flashops gen -config <algo.toml> [-o shim_gen.go]")
	fmt.Fprintln(os.Stderr, "       flashops inspect <blob.wasm> [-v]")
	fmt.Fprintln(os.Stderr, "       flashops call <blob.wasm> -entry <name> [flags]")
	fmt.Fprintln(os.Stderr, "       flashops call <blob.wasm> -i  (interactive mode)")
}

func runGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "Path to algorithm TOML config")
		outPath    = fs.String("o", "", "Output file (default stdout)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("gen: -config is required")
	}

	cfg, err := gen.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	src, err := gen.Generate(cfg)
	if err != nil {
		return err
	}

	if *outPath == "" {
		_, err = os.Stdout.Write(src)
		return err
	}
	return os.WriteFile(*outPath, src, 0o644)
}

func runCall(args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	var (
		entry       = fs.String("entry", "", "Entry point to call")
		address     = fs.String("address", "0", "Target address")
		clock       = fs.String("clock", "0", "Clock frequency in Hz (initialize)")
		op          = fs.String("op", "program", "Operation: erase, program or verify (initialize)")
		size        = fs.String("size", "0", "Byte count (verify against empty value)")
		data        = fs.String("data", "", "Hex data (program_page, verify)")
		interactive = fs.Bool("i", false, "Interactive mode with TUI")
		verbose     = fs.Bool("v", false, "Verbose logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("call: blob path is required")
	}
	blobPath := fs.Arg(0)

	if *interactive {
		return runInteractive(blobPath)
	}
	if *entry == "" {
		return fmt.Errorf("call: -entry is required (or use -i)")
	}

	ctx := context.Background()
	a, cleanup, err := loadAlgorithm(ctx, blobPath, *verbose)
	if err != nil {
		return err
	}
	defer cleanup()

	addr, err := parseU32(*address)
	if err != nil {
		return fmt.Errorf("call: bad address: %w", err)
	}

	var code uint32
	switch *entry {
	case flashops.SymInitialize:
		clk, err := parseU32(*clock)
		if err != nil {
			return fmt.Errorf("call: bad clock: %w", err)
		}
		operation, err := parseOp(*op)
		if err != nil {
			return err
		}
		code, err = a.Initialize(ctx, addr, clk, operation)
		if err != nil {
			return err
		}

	case flashops.SymDeinitialize:
		code, err = a.Deinitialize(ctx)
		if err != nil {
			return err
		}

	case flashops.SymEraseSector:
		code, err = a.EraseSector(ctx, addr)
		if err != nil {
			return err
		}

	case flashops.SymProgramPage:
		buf, err := parseHex(*data)
		if err != nil {
			return fmt.Errorf("call: bad data: %w", err)
		}
		code, err = a.ProgramPage(ctx, addr, buf)
		if err != nil {
			return err
		}

	case flashops.SymEraseChip:
		code, err = a.EraseChip(ctx)
		if err != nil {
			return err
		}

	case flashops.SymVerify:
		if *data == "" {
			n, err := parseU32(*size)
			if err != nil {
				return fmt.Errorf("call: bad size: %w", err)
			}
			code, err = a.VerifyErased(ctx, addr, n)
			if err != nil {
				return err
			}
		} else {
			buf, err := parseHex(*data)
			if err != nil {
				return fmt.Errorf("call: bad data: %w", err)
			}
			code, err = a.Verify(ctx, addr, buf)
			if err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("call: unknown entry point %q", *entry)
	}

	if code == 0 {
		fmt.Printf("%s: ok\n", *entry)
	} else {
		fmt.Printf("%s: error code 0x%X\n", *entry, code)
	}
	return nil
}

func loadAlgorithm(ctx context.Context, path string, verbose bool) (*host.Algorithm, func(), error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}

	opts := []host.Option{}
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, host.WithLogger(logger))
	}

	ld, err := host.NewLoader(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	a, err := ld.Load(ctx, blob)
	if err != nil {
		ld.Close(ctx)
		return nil, nil, err
	}
	return a, func() { ld.Close(ctx) }, nil
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func parseOp(s string) (flashops.Operation, error) {
	switch strings.ToLower(s) {
	case "erase":
		return flashops.OpErase, nil
	case "program":
		return flashops.OpProgram, nil
	case "verify":
		return flashops.OpVerify, nil
	}
	v, err := parseU32(s)
	if err != nil {
		return 0, fmt.Errorf("call: bad op %q", s)
	}
	return flashops.Operation(v), nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '_' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
