package exitcodes

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"mobile-clean/internal/safety"
)

func TestForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"cancelled", fmt.Errorf("scan: %w", context.Canceled), Interrupted},
		{"safety", safety.ErrProtectedPath, SafetyViolation},
		{"other", errors.New("disk on fire"), RuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForError(tt.err); got != tt.want {
				t.Errorf("ForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestForFailures(t *testing.T) {
	if got := ForFailures(nil); got != Success {
		t.Errorf("no failures = %d", got)
	}
	if got := ForFailures([]error{safety.ErrOutsideAllowed, safety.ErrRootTarget}); got != SafetyViolation {
		t.Errorf("only safety failures = %d", got)
	}
	if got := ForFailures([]error{safety.ErrOutsideAllowed, errors.New("EACCES")}); got != PartialFailure {
		t.Errorf("mixed failures = %d", got)
	}
}
