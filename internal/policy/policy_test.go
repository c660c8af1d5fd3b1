package policy

import "testing"

func TestAllow(t *testing.T) {
	tests := []struct {
		role       string
		capability string
		want       bool
	}{
		{RoleAdmin, CapStaffManage, true},
		{RoleAdmin, CapBillingSettle, true},
		{RoleManager, CapBillingSettle, true},
		{RoleManager, CapStaffManage, false},
		{RoleCashier, CapBillingSettle, true},
		{RoleCashier, CapOrdersWrite, false},
		{RoleWaiter, CapOrdersWrite, true},
		{RoleWaiter, CapBillingSettle, false},
		{"Admin", CapStaffManage, true}, // case-insensitive
		{"intruder", CapOrdersRead, false},
		{"", CapOrdersRead, false},
	}
	for _, tt := range tests {
		if got := Allow(tt.role, tt.capability); got != tt.want {
			t.Errorf("Allow(%q, %q) = %v, want %v", tt.role, tt.capability, got, tt.want)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleManager, RoleCashier, RoleWaiter, "ADMIN"} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%q) = false, want true", role)
		}
	}
	for _, role := range []string{"", "guest", "root"} {
		if ValidRole(role) {
			t.Errorf("ValidRole(%q) = true, want false", role)
		}
	}
}
