package xid

import (
	"strings"
	"testing"
)

func TestNewFormat(t *testing.T) {
	id := New("S")
	if !strings.HasPrefix(id, "S-") {
		t.Fatalf("id = %q, want S- prefix", id)
	}
	if len(id) != 10 {
		t.Fatalf("id = %q, want prefix + dash + 8 hex chars", id)
	}
	for _, r := range id[2:] {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			t.Fatalf("id %q contains non-hex rune %q", id, r)
		}
	}
}

func TestNewIsUnlikelyToCollide(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := New("R")
		if seen[id] {
			t.Fatalf("collision after %d ids: %q", i, id)
		}
		seen[id] = true
	}
}
