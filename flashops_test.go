package flashops

import (
	"fmt"
	"testing"
)

func TestOperationValid(t *testing.T) {
	tests := []struct {
		op   Operation
		want bool
	}{
		{0, false},
		{OpErase, true},
		{OpProgram, true},
		{OpVerify, true},
		{4, false},
		{9, false},
		{0xFFFFFFFF, false},
	}

	for _, tt := range tests {
		if got := tt.op.Valid(); got != tt.want {
			t.Errorf("Operation(%d).Valid() = %v, want %v", uint32(tt.op), got, tt.want)
		}
	}
}

func TestOperationString(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpErase, "erase"},
		{OpProgram, "program"},
		{OpVerify, "verify"},
		{7, "operation(7)"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Operation(%d).String() = %q, want %q", uint32(tt.op), got, tt.want)
		}
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want uint32
	}{
		{"nil", nil, 0},
		{"plain code", ErrorCode(42), 42},
		{"not initialized", CodeNotInitialized, 1},
		{"wrapped code", fmt.Errorf("erase: %w", ErrorCode(0x2001)), 0x2001},
		{"plain error", fmt.Errorf("boom"), uint32(CodeUnspecified)},
		{"reserved zero code", ErrorCode(0), uint32(CodeUnspecified)},
		{"max code", ErrorCode(0xFFFFFFFF), 0xFFFFFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorCodeError(t *testing.T) {
	if got := ErrorCode(7).Error(); got != "flash operation failed (code 7)" {
		t.Errorf("unexpected message: %q", got)
	}
}
