package ids

import (
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	id := NewID(JobPrefix)
	if !strings.HasPrefix(id, "job_") {
		t.Fatalf("expected job_ prefix, got %s", id)
	}
	if len(id) != len("job_")+32 {
		t.Errorf("expected 36 characters, got %d (%s)", len(id), id)
	}
	if NewID(JobPrefix) == id {
		t.Error("expected unique ids")
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{NewID(JobPrefix), true},
		{"job_", false},
		{"job_123", false},
		{"ast_" + strings.Repeat("a", 32), false},
		{"job_" + strings.Repeat("z", 32), false},
		{"../../etc/passwd", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := Valid(JobPrefix, tt.id); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
