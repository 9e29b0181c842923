package domain

import "fmt"

// TravelerType distinguishes adults from children
type TravelerType string

const (
	TravelerAdult TravelerType = "ADULT"
	TravelerChild TravelerType = "CHILD"
)

// Traveler is one passenger record. Email and Phone are required for adults only.
type Traveler struct {
	Type                TravelerType `json:"type" validate:"required,oneof=ADULT CHILD"`
	Index               int          `json:"index"`
	FullName            string       `json:"fullName" validate:"required"`
	DateOfBirth         string       `json:"dateOfBirth" validate:"required"`
	Gender              string       `json:"gender" validate:"required"`
	Nationality         string       `json:"nationality" validate:"required"`
	PassportNumber      string       `json:"passportNumber" validate:"required"`
	PassportExpiry      string       `json:"passportExpiry" validate:"required"`
	DietaryRequirements string       `json:"dietaryRequirements,omitempty"`
	Email               string       `json:"email,omitempty" validate:"required_if=Type ADULT"`
	Phone               string       `json:"phone,omitempty" validate:"required_if=Type ADULT"`
}

// Key identifies the traveler in validation results, e.g. "ADULT-0"
func (t *Traveler) Key() string {
	return TravelerKey(t.Type, t.Index)
}

// TravelerKey builds "<TYPE>-<index>"
func TravelerKey(typ TravelerType, index int) string {
	return fmt.Sprintf("%s-%d", typ, index)
}

// TravelerPatch replaces the editable fields of a traveler
type TravelerPatch struct {
	FullName            string `json:"fullName"`
	DateOfBirth         string `json:"dateOfBirth"`
	Gender              string `json:"gender"`
	Nationality         string `json:"nationality"`
	PassportNumber      string `json:"passportNumber"`
	PassportExpiry      string `json:"passportExpiry"`
	DietaryRequirements string `json:"dietaryRequirements"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
}

// Apply overwrites the editable fields; type and index are fixed
func (p TravelerPatch) Apply(t *Traveler) {
	t.FullName = p.FullName
	t.DateOfBirth = p.DateOfBirth
	t.Gender = p.Gender
	t.Nationality = p.Nationality
	t.PassportNumber = p.PassportNumber
	t.PassportExpiry = p.PassportExpiry
	t.DietaryRequirements = p.DietaryRequirements
	if t.Type == TravelerAdult {
		t.Email = p.Email
		t.Phone = p.Phone
	}
}
