package ledger

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
		ok    bool
	}{
		{"hr", RoleHR, true},
		{"admin", RoleAdmin, true},
		{"builder", "", false},
		{"owner", "", false},
		{"", "", false},
		{"HR", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRoleElevated(t *testing.T) {
	if !RoleHR.Elevated() || !RoleAdmin.Elevated() {
		t.Error("hr and admin must be elevated")
	}
	if RoleBuilder.Elevated() || Role("").Elevated() {
		t.Error("builder and unset must not be elevated")
	}
}
