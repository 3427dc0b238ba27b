package intake

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonesrussell/civic-triage/internal/domain"
)

// Field limits, counted in characters.
const (
	SubjectMinLen       = 3
	SubjectMaxLen       = 255
	DescriptionMinLen   = 10
	DescriptionMaxLen   = 5000
	ContactMinLen       = 5
	ContactMaxLen       = 255
	AdminResponseMaxLen = 5000
)

// DefaultLanguage applies when no language preference is given.
const DefaultLanguage = "english"

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field errors.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Messages returns the field messages in order.
func (e *ValidationError) Messages() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Message
	}
	return out
}

type submissionInput struct {
	Subject            *string `json:"subject" validate:"omitempty,min=3,max=255"`
	Description        string  `json:"description" validate:"required,min=10,max=5000"`
	CitizenContact     string  `json:"citizen_contact" validate:"required,min=5,max=255"`
	LanguagePreference string  `json:"language_preference" validate:"language"`
	CategoryID         *int64  `json:"category_id" validate:"omitempty,gt=0"`
}

type updateInput struct {
	Status        domain.Status `json:"status" validate:"required,status"`
	AdminResponse *string       `json:"admin_response" validate:"omitempty,max=5000"`
}

// inputValidator checks submissions and admin updates. The language alias
// is bound to the service's configured languages.
type inputValidator struct {
	validate  *validator.Validate
	languages []string
}

func newInputValidator(languages []string) *inputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterAlias("language", "oneof="+strings.Join(languages, " "))
	v.RegisterAlias("status", "oneof="+quotedStatuses())

	return &inputValidator{validate: v, languages: languages}
}

func quotedStatuses() string {
	quoted := make([]string, len(domain.Statuses))
	for i, s := range domain.Statuses {
		quoted[i] = "'" + string(s) + "'"
	}
	return strings.Join(quoted, " ")
}

func statusNames() string {
	names := make([]string, len(domain.Statuses))
	for i, s := range domain.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// submission trims fields, applies the default language and validates.
func (iv *inputValidator) submission(n *NewSubmission) error {
	if n.Subject != nil {
		trimmed := strings.TrimSpace(*n.Subject)
		if trimmed == "" {
			n.Subject = nil
		} else {
			n.Subject = &trimmed
		}
	}
	n.Description = strings.TrimSpace(n.Description)
	n.CitizenContact = strings.TrimSpace(n.CitizenContact)
	n.LanguagePreference = strings.ToLower(strings.TrimSpace(n.LanguagePreference))
	if n.LanguagePreference == "" {
		n.LanguagePreference = DefaultLanguage
	}

	return iv.check(submissionInput{
		Subject:            n.Subject,
		Description:        n.Description,
		CitizenContact:     n.CitizenContact,
		LanguagePreference: n.LanguagePreference,
		CategoryID:         n.CategoryID,
	})
}

func (iv *inputValidator) update(u *Update) error {
	in := updateInput{Status: u.Status}
	if u.AdminResponse.Set {
		in.AdminResponse = u.AdminResponse.Value
	}
	return iv.check(in)
}

func (iv *inputValidator) check(in any) error {
	err := iv.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{Field: fe.Field(), Message: iv.message(fe)}
	}
	return &ValidationError{Fields: fields}
}

func (iv *inputValidator) message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%q must be a positive number", field)
	case "oneof":
		if fe.Tag() == "status" {
			return fmt.Sprintf("%q must be one of [%s]", field, statusNames())
		}
		return fmt.Sprintf("%q must be one of [%s]", field, strings.Join(iv.languages, ", "))
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}
