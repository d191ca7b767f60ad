package instance

import (
	"strings"
	"testing"
)

func TestGetIDPrefersExplicitValue(t *testing.T) {
	t.Setenv("FLOOR_INSTANCE_ID", "api-1")
	t.Setenv("DYNO", "web.2")
	if got := GetID(); got != "api-1" {
		t.Fatalf("expected api-1, got %q", got)
	}
}

func TestGetIDFallsBackToDyno(t *testing.T) {
	t.Setenv("FLOOR_INSTANCE_ID", "")
	t.Setenv("DYNO", "web.2")
	if got := GetID(); got != "web.2" {
		t.Fatalf("expected web.2, got %q", got)
	}
}

func TestGetIDGeneratesUniqueSuffix(t *testing.T) {
	t.Setenv("FLOOR_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	a, b := GetID(), GetID()
	if a == b {
		t.Fatalf("expected generated ids to differ, got %q twice", a)
	}
	if !strings.Contains(a, "-") {
		t.Fatalf("expected suffixed id, got %q", a)
	}
}
