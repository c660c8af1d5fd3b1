// Package policy is the single place that maps staff roles to the operations
// they may perform. Handlers and middleware ask Allow instead of comparing
// role strings inline.
package policy

import "strings"

// Capabilities checked by the API surface.
const (
	CapOrdersRead    = "orders:read"
	CapOrdersWrite   = "orders:write"
	CapBillingRead   = "billing:read"
	CapBillingSettle = "billing:settle"
	CapStaffManage   = "staff:manage"
)

// Staff roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
	RoleWaiter  = "waiter"
)

var roleCapabilities = map[string]map[string]bool{
	RoleAdmin: {
		CapOrdersRead:    true,
		CapOrdersWrite:   true,
		CapBillingRead:   true,
		CapBillingSettle: true,
		CapStaffManage:   true,
	},
	RoleManager: {
		CapOrdersRead:    true,
		CapOrdersWrite:   true,
		CapBillingRead:   true,
		CapBillingSettle: true,
	},
	RoleCashier: {
		CapOrdersRead:    true,
		CapBillingRead:   true,
		CapBillingSettle: true,
	},
	RoleWaiter: {
		CapOrdersRead:  true,
		CapOrdersWrite: true,
		CapBillingRead: true,
	},
}

// Allow reports whether the given role may perform the given capability.
// Unknown roles are denied everything.
func Allow(role, capability string) bool {
	caps, ok := roleCapabilities[strings.ToLower(role)]
	if !ok {
		return false
	}
	return caps[capability]
}

// ValidRole reports whether role is a known staff role.
func ValidRole(role string) bool {
	_, ok := roleCapabilities[strings.ToLower(role)]
	return ok
}
