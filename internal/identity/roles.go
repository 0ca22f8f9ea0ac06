// Package identity resolves caller roles into capability sets.
//
// Every state-machine transition and administrative operation consults one
// capability check instead of branching on role names inline, so the guard
// logic lives in exactly one place.
package identity

// Role is the identity provider's resolved role for a caller.
type Role string

const (
	RoleManager       Role = "manager"
	RoleAdministrator Role = "administrator"
	RoleMember        Role = "member"
)

// IsValid reports whether the role is one the system recognizes.
func (r Role) IsValid() bool {
	switch r {
	case RoleManager, RoleAdministrator, RoleMember:
		return true
	default:
		return false
	}
}

// Permission names a single guarded capability.
type Permission string

const (
	// PermRecommendRegistration moves a registration from manager review to
	// admin approval.
	PermRecommendRegistration Permission = "registration:recommend"
	// PermRejectRegistration rejects a registration at either review stage.
	PermRejectRegistration Permission = "registration:reject"
	// PermApproveRegistration grants final approval, including the audited
	// direct-approval bypass from manager review.
	PermApproveRegistration Permission = "registration:approve"
	// PermIssueCertificate covers manual issuance and regeneration.
	PermIssueCertificate Permission = "certificate:issue"
	// PermRevokeCertificate clears an issued certificate.
	PermRevokeCertificate Permission = "certificate:revoke"
	// PermManageSubscription covers manual subscription activation.
	PermManageSubscription Permission = "subscription:manage"
	// PermSubmitAssessment covers saving and submitting one's own assessment.
	PermSubmitAssessment Permission = "assessment:submit"
)

// PermissionSet is the set of capabilities a role grants.
type PermissionSet map[Permission]struct{}

// Has reports whether the set grants the permission.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

var rolePermissions = map[Role]PermissionSet{
	RoleManager: setOf(
		PermRecommendRegistration,
		PermRejectRegistration,
	),
	RoleAdministrator: setOf(
		PermRecommendRegistration,
		PermRejectRegistration,
		PermApproveRegistration,
		PermIssueCertificate,
		PermRevokeCertificate,
		PermManageSubscription,
	),
	RoleMember: setOf(
		PermSubmitAssessment,
	),
}

// PermissionsFor returns the capability set for a role. Unknown roles get an
// empty set, so guards fail closed.
func PermissionsFor(role Role) PermissionSet {
	if perms, ok := rolePermissions[role]; ok {
		return perms
	}
	return PermissionSet{}
}

func setOf(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}
