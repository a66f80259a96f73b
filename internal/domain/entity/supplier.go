package entity

// Role identifies the kind of supply-chain participant behind an account.
type Role string

// Scoring-eligible roles
const (
	RoleManufacturer Role = "manufacturer"
	RoleDistributor  Role = "distributor"
	RoleHospital     Role = "hospital"
	RolePharmacy     Role = "pharmacy"
	RoleDealer       Role = "dealer"
)

// EligibleRoles lists every role that receives a trust score, in display order.
var EligibleRoles = []Role{
	RoleManufacturer,
	RoleDistributor,
	RoleHospital,
	RolePharmacy,
	RoleDealer,
}

// IsEligible reports whether suppliers with this role are scored.
func (r Role) IsEligible() bool {
	for _, eligible := range EligibleRoles {
		if r == eligible {
			return true
		}
	}
	return false
}

// String returns the role as stored in account documents.
func (r Role) String() string {
	return string(r)
}

// ReviewTargetType returns the review target type used for suppliers of this role.
func (r Role) ReviewTargetType() string {
	return string(r)
}

// Supplier is the account record of a scored participant. It is owned by the
// account system; the engine only reads it.
type Supplier struct {
	ID               string `json:"id" yaml:"id"`
	Role             Role   `json:"role" yaml:"role"`
	FullName         string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	OrganizationName string `json:"organization_name,omitempty" yaml:"organization_name,omitempty"`
}

// DisplayName prefers the organization name over the personal name.
func (s *Supplier) DisplayName() string {
	if s.OrganizationName != "" {
		return s.OrganizationName
	}
	return s.FullName
}
