package model

import "fmt"

// EntityType selects the presentation variant of the statements.
type EntityType string

const (
	EntityCompany      EntityType = "Company"
	EntityLLP          EntityType = "LLP"
	EntityNonCorporate EntityType = "Non-Corporate"
)

// ParseEntityType accepts the canonical names case-sensitively.
func ParseEntityType(s string) (EntityType, error) {
	switch t := EntityType(s); t {
	case EntityCompany, EntityLLP, EntityNonCorporate:
		return t, nil
	}
	return "", fmt.Errorf("unknown entity type %q (want Company, LLP or Non-Corporate)", s)
}

// IsCorporate reports whether the entity presents share capital and other
// equity rather than partners' or owners' funds.
func (t EntityType) IsCorporate() bool {
	return t == EntityCompany
}
