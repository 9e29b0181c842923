package composer

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// ValidationResult maps traveler key -> field -> message
type ValidationResult struct {
	Valid  bool                         `json:"valid"`
	Errors map[string]map[string]string `json:"errors,omitempty"`
}

var travelerValidator = newTravelerValidator()

func newTravelerValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateTravelers(travelers []domain.Traveler) ValidationResult {
	res := ValidationResult{Valid: true}

	for _, t := range travelers {
		t = trimmed(t)
		err := travelerValidator.Struct(t)
		if err == nil {
			continue
		}

		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			continue
		}

		if res.Errors == nil {
			res.Errors = make(map[string]map[string]string)
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = message(fe)
		}
		res.Errors[t.Key()] = fields
		res.Valid = false
	}

	return res
}

func trimmed(t domain.Traveler) domain.Traveler {
	t.FullName = strings.TrimSpace(t.FullName)
	t.DateOfBirth = strings.TrimSpace(t.DateOfBirth)
	t.Gender = strings.TrimSpace(t.Gender)
	t.Nationality = strings.TrimSpace(t.Nationality)
	t.PassportNumber = strings.TrimSpace(t.PassportNumber)
	t.PassportExpiry = strings.TrimSpace(t.PassportExpiry)
	t.Email = strings.TrimSpace(t.Email)
	t.Phone = strings.TrimSpace(t.Phone)
	return t
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}
