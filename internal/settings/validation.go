package settings

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"aerowatch/dashboard-portal/settings-backend/pkg/api"
)

// Validator checks a merged settings section against its declared
// constraints. Validation is pure: it never mutates its input and reports
// failures as field violations instead of errors.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a validator that reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Check validates one section value and returns its field violations, or
// nil when the value is acceptable.
func (vd *Validator) Check(section interface{}) []api.FieldViolation {
	err := vd.v.Struct(section)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []api.FieldViolation{{Field: "", Message: err.Error()}}
	}
	violations := make([]api.FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, api.FieldViolation{
			Field:   fieldPath(fe),
			Message: violationMessage(fe),
		})
	}
	return violations
}

// fieldPath strips the struct type prefix so "HealthSettings.age" becomes
// "age" and nested entries keep their path ("emergencyContacts[0].name").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be a time of day in HH:MM format"
	case "eqfield":
		return "must match " + fe.Param()
	default:
		return "is invalid"
	}
}
