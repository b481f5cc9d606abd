package testutil

import (
	"strings"
	"testing"
)

func TestContainerSafe(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"TestDefra", "testdefra"},
		{"TestDefra/sub_case", "testdefra-sub-case"},
		{"Test (weird) name!", "testweirdname"},
		{"/leading", "leading"},
		{strings.Repeat("a", 40), strings.Repeat("a", 30)},
	}
	for _, tt := range tests {
		if got := containerSafe(tt.in); got != tt.want {
			t.Errorf("containerSafe(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUniqueContainerName(t *testing.T) {
	a := UniqueContainerName(t, "defra")
	b := UniqueContainerName(t, "defra")
	if a == b {
		t.Fatalf("names collide: %s", a)
	}
	if !strings.HasPrefix(a, "vectra-test-defra-testuniquecontainername-") {
		t.Errorf("name = %s", a)
	}
	if got := ContainerLabels(t)[CleanupLabel]; got != t.Name() {
		t.Errorf("label = %q, want %q", got, t.Name())
	}
}
