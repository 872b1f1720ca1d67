package models

import "fmt"

// Role identifies who is acting on a record. The legacy dashboards selected
// behavior by numeric role strings; everything here dispatches on this
// enumeration instead.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleArtisan  Role = "artisan"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleVendor, RoleArtisan, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %s", s)
	}
}

// RefundState is the dispute/refund sub-flow attached to terminal-adjacent
// statuses: none -> requested -> approved | denied.
type RefundState string

const (
	RefundNone      RefundState = "none"
	RefundRequested RefundState = "requested"
	RefundApproved  RefundState = "approved"
	RefundDenied    RefundState = "denied"
)

func ParseRefundState(s string) (RefundState, error) {
	switch RefundState(s) {
	case RefundNone, RefundRequested, RefundApproved, RefundDenied:
		return RefundState(s), nil
	default:
		return "", fmt.Errorf("unknown refund state: %s", s)
	}
}
