package exitcodes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fenilsonani/rm-rfp/internal/security"
)

func TestFromError(t *testing.T) {
	safety := &security.SafetyError{Path: "/", Kind: security.RootDeleteDenied}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"usage", &UsageError{Err: errors.New("bad flag")}, Usage},
		{"wrapped usage", fmt.Errorf("config: %w", &UsageError{Err: errors.New("bad")}), Usage},
		{"safety", safety, SafetyViolation},
		{"joined safety", errors.Join(safety, safety), SafetyViolation},
		{"runtime", errors.New("root vanished"), Runtime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromError(tt.err); got != tt.want {
				t.Errorf("FromError() = %d, want %d", got, tt.want)
			}
		})
	}
}
