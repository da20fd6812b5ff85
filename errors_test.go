package pcsc

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewErrorKnownCode(t *testing.T) {
	err := newError(CodeTimeout)
	if err.Code != CodeTimeout {
		t.Errorf("Code = %#x, want Timeout", uint32(err.Code))
	}
	if msg := err.Error(); !strings.Contains(msg, "timeout") {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestNewErrorUnknownCodeDegrades(t *testing.T) {
	// Codes the service invents must not panic or produce an invalid
	// enumeration value.
	err := newError(Code(0xDEADBEEF))
	if err.Code != CodeUnknownError {
		t.Fatalf("Code = %#x, want UnknownError", uint32(err.Code))
	}
	if msg := err.Error(); !strings.Contains(msg, "0xdeadbeef") {
		t.Errorf("message does not carry the raw code: %q", msg)
	}

	// Short codes keep the fixed eight digit width.
	if msg := newError(Code(0x1234)).Error(); !strings.Contains(msg, "0x00001234") {
		t.Errorf("message does not carry the padded raw code: %q", msg)
	}
}

func TestNewErrorWindowsUnsupportedFeature(t *testing.T) {
	err := newError(codeUnsupportedFeatureWindows)
	if err.Code != CodeUnsupportedFeature {
		t.Errorf("Code = %#x, want UnsupportedFeature", uint32(err.Code))
	}
}

func TestErrorsIsMatching(t *testing.T) {
	err := fmt.Errorf("watching readers: %w", newError(CodeCancelled))
	if !errors.Is(err, ErrCancelled) {
		t.Error("wrapped Cancelled did not match ErrCancelled")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("Cancelled matched ErrTimeout")
	}
}

func TestSizedError(t *testing.T) {
	err := newSizedError(CodeInsufficientBuffer, 58)
	if err.Size != 58 {
		t.Errorf("Size = %d, want 58", err.Size)
	}
	// Size only accompanies insufficient-buffer failures.
	if err := newSizedError(CodeTimeout, 58); err.Size != 0 {
		t.Errorf("Size = %d on non-buffer failure, want 0", err.Size)
	}
}

func TestTemporary(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{CodeTimeout, true},
		{CodeNotReady, true},
		{CodeServerTooBusy, true},
		{CodeCommDataLost, true},
		{CodeCancelled, false},
		{CodeNoSmartcard, false},
		{CodeRemovedCard, false},
	}
	for _, tt := range tests {
		if got := newError(tt.code).Temporary(); got != tt.want {
			t.Errorf("Temporary(%#x) = %v, want %v", uint32(tt.code), got, tt.want)
		}
	}
}

func TestAllKnownCodesHaveMessages(t *testing.T) {
	for code := range codeMessages {
		if msg := newError(code).Error(); msg == "" {
			t.Errorf("code %#x has empty message", uint32(code))
		}
	}
}
