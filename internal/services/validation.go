package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	subjectRules  = "required,max=35,alphabet"
	partyRules    = "required,max=40,alphabet"
	messageRules  = "max=500"
	codeRules     = "required,min=-999999999,max=9999999999"
	alphabetTag   = "alphabet"
	cyrillicClass = `^[а-яА-ЯёЁ\s]+$`
)

var cyrillicPattern = regexp.MustCompile(cyrillicClass)

// CreateDocumentInput is the payload accepted by DocumentService.Create.
// A zero code counts as missing.
type CreateDocumentInput struct {
	Code     int64  `json:"code" validate:"required,min=-999999999,max=9999999999"`
	Subject  string `json:"subject" validate:"required,max=35,alphabet"`
	Sender   string `json:"sender" validate:"required,max=40,alphabet"`
	Receiver string `json:"receiver" validate:"required,max=40,alphabet"`
	Message  string `json:"message" validate:"max=500"`
}

type documentValidator struct {
	validate *validator.Validate
}

func newDocumentValidator(cyrillicOnly bool) *documentValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation(alphabetTag, func(fl validator.FieldLevel) bool {
		if !cyrillicOnly {
			return true
		}
		return cyrillicPattern.MatchString(fl.Field().String())
	})
	return &documentValidator{validate: validate}
}

func (v *documentValidator) create(input CreateDocumentInput) error {
	return toValidationError(v.validate.Struct(input), "")
}

// field validates a single supplied value, as used by partial updates.
func (v *documentValidator) field(name string, value any, rules string) error {
	return toValidationError(v.validate.Var(value, rules), name)
}

func toValidationError(err error, field string) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		verr.Fields[name] = fieldMessage(name, fe)
	}
	return verr
}

func fieldMessage(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Int64 {
			return fmt.Sprintf("%s is required and must be non-zero", name)
		}
		return fmt.Sprintf("%s is required", name)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must have at most 10 digits", name)
	case "min":
		return fmt.Sprintf("%s must have at most 10 digits", name)
	case alphabetTag:
		return fmt.Sprintf("%s may contain only Cyrillic letters and spaces", name)
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}
