package xid

import (
	"strings"
	"testing"
)

func TestNewFormat(t *testing.T) {
	id := New("order")
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		t.Fatalf("expected prefix-date-random, got %q", id)
	}
	if parts[0] != "order" {
		t.Fatalf("expected prefix kept, got %q", parts[0])
	}
	if len(parts[1]) != 8 || len(parts[2]) != 8 {
		t.Fatalf("unexpected segment lengths in %q", id)
	}
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := New("draft")
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
