package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestClassification(t *testing.T) {
	in := FatalInput("read", "/tmp/in.pdf", fs.ErrNotExist)
	out := OutputWrite("write", "/tmp/out/a.pdf", fs.ErrPermission)
	wrapped := fmt.Errorf("extract: %w", in)

	tests := []struct {
		name      string
		err       error
		fatal     bool
		output    bool
		exit      int
	}{
		{"nil", nil, false, false, 0},
		{"fatal input", in, true, false, 2},
		{"wrapped fatal input", wrapped, true, false, 2},
		{"output write", out, false, true, 3},
		{"plain", errors.New("boom"), false, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatalInput(tt.err); got != tt.fatal {
				t.Errorf("IsFatalInput = %v, want %v", got, tt.fatal)
			}
			if got := IsOutputWrite(tt.err); got != tt.output {
				t.Errorf("IsOutputWrite = %v, want %v", got, tt.output)
			}
			if got := ExitCode(tt.err); got != tt.exit {
				t.Errorf("ExitCode = %d, want %d", got, tt.exit)
			}
		})
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	err := FatalInput("read", "/tmp/in.pdf", fs.ErrNotExist)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("cause should unwrap")
	}
	msg := err.Error()
	for _, want := range []string{"FATAL_INPUT", "read", "/tmp/in.pdf", "not exist"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
