package domain

import "strings"

// Role is the closed set of caller roles.
// Raw role strings from tokens are parsed exactly once at the identity
// boundary; everything past that point works with this type.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleShipper Role = "SHIPPER"
	RolePacker  Role = "PACKER"
)

// ParseRole maps an external role string onto the closed enum.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleShipper:
		return RoleShipper, true
	case RolePacker:
		return RolePacker, true
	default:
		return "", false
	}
}

// Capability names one guarded operation of the fulfillment core.
type Capability string

const (
	CapImportShipment   Capability = "shipment.import"
	CapAppendAssignment Capability = "shipment.append_assignment"
	CapViewShipment     Capability = "shipment.view"
	CapCancelShipment   Capability = "shipment.cancel"
	CapManageBoxes      Capability = "box.manage"
	CapManageLinks      Capability = "picker_link.manage"
	CapGenerateReports  Capability = "report.generate"
	CapViewAuditLog     Capability = "audit.view"
)

// capabilityTable is the single source of truth for role-based access.
// Checks go through Allows so no handler compares role strings directly.
var capabilityTable = map[Capability][]Role{
	CapImportShipment:   {RoleAdmin, RoleShipper},
	CapAppendAssignment: {RolePacker},
	CapViewShipment:     {RoleAdmin, RoleShipper, RolePacker},
	CapCancelShipment:   {RoleAdmin, RoleShipper},
	CapManageBoxes:      {RoleAdmin, RoleShipper, RolePacker},
	CapManageLinks:      {RoleAdmin, RoleShipper},
	CapGenerateReports:  {RoleAdmin, RoleShipper},
	CapViewAuditLog:     {RoleAdmin, RoleShipper},
}

// Allows reports whether the role may perform the capability.
func (r Role) Allows(cap Capability) bool {
	for _, allowed := range capabilityTable[cap] {
		if allowed == r {
			return true
		}
	}
	return false
}
