package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindSymbolMissing,
				Symbol: "erase_sector",
				Detail: "no such export",
			},
			contains: []string{"[load]", "symbol_missing", "erase_sector", "no such export"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[decode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseCall,
				Kind:   KindTrap,
				Detail: "algorithm aborted",
				Cause:  errors.New("wasm trap: unreachable"),
			},
			contains: []string{"[call]", "trap", "algorithm aborted", "caused by", "unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Trap("initialize", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestError_Is(t *testing.T) {
	a := SymbolMissing("verify")
	b := SymbolMissing("erase_chip")

	if !errors.Is(a, b) {
		t.Error("errors with same phase and kind should match")
	}

	c := InvalidConfig("bad page size")
	if errors.Is(a, c) {
		t.Error("errors with different phase/kind should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("short read")
	err := New(PhaseDecode, KindInvalidData).
		Symbol("FlashDeviceInfo").
		Detail("descriptor truncated after %d sectors", 2).
		Value(2).
		Cause(cause).
		Build()

	if err.Phase != PhaseDecode || err.Kind != KindInvalidData {
		t.Errorf("phase/kind = %s/%s", err.Phase, err.Kind)
	}
	if err.Symbol != "FlashDeviceInfo" {
		t.Errorf("symbol = %q", err.Symbol)
	}
	if err.Detail != "descriptor truncated after 2 sectors" {
		t.Errorf("detail = %q", err.Detail)
	}
	if err.Value != 2 {
		t.Errorf("value = %v", err.Value)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"symbol missing", SymbolMissing("verify"), PhaseLoad, KindSymbolMissing},
		{"invalid config", InvalidConfig("page size %d", 0), PhaseConfig, KindInvalidConfig},
		{"invalid data", InvalidData(PhaseDecode, "missing sentinel"), PhaseDecode, KindInvalidData},
		{"out of bounds", OutOfBounds(PhaseDecode, 0x200, 64), PhaseDecode, KindOutOfBounds},
		{"not found", NotFound(PhaseLoad, "descriptor"), PhaseLoad, KindNotFound},
		{"unsupported", Unsupported("erase_chip"), PhaseCall, KindUnsupported},
		{"trap", Trap("initialize", errors.New("x")), PhaseCall, KindTrap},
		{"load", Load("compile failed", errors.New("x")), PhaseLoad, KindInvalidData},
		{"wrap", Wrap(PhaseCall, KindTrap, errors.New("x"), "d"), PhaseCall, KindTrap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("phase = %s, want %s", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", tt.err.Kind, tt.kind)
			}
		})
	}
}
