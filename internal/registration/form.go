// Package registration validates role-specific sign-up forms and turns them
// into accounts and portfolio profiles.
package registration

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

var (
	ErrUnknownRole    = errors.New("role must be beneficiary or officer")
	ErrRoleNotAllowed = errors.New("admin accounts cannot be self-registered")
	ErrMalformedForm  = errors.New("invalid payload")
)

var (
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
)

// Form is one of BeneficiaryForm or OfficerForm.
type Form interface {
	Role() models.Role
	email() string
}

type BeneficiaryForm struct {
	Name          string  `json:"name" validate:"notblank,min=2"`
	Email         string  `json:"email" validate:"required,email"`
	Password      string  `json:"password" validate:"required,min=8"`
	Phone         string  `json:"phone" validate:"required,phone"`
	Age           int     `json:"age" validate:"gte=18"`
	Occupation    string  `json:"occupation" validate:"notblank"`
	MonthlyIncome float64 `json:"monthlyIncome" validate:"gte=0"`
	LoanAmount    float64 `json:"loanAmount" validate:"gte=0"`
	CreditHistory string  `json:"creditHistory" validate:"notblank"`
	Address       string  `json:"address" validate:"notblank"`
	City          string  `json:"city" validate:"notblank"`
	State         string  `json:"state" validate:"notblank"`
	Pincode       string  `json:"pincode" validate:"required,pincode"`
}

func (BeneficiaryForm) Role() models.Role { return models.RoleBeneficiary }

func (f BeneficiaryForm) email() string { return f.Email }

// Location собирает место проживания для кредитного скоринга.
func (f BeneficiaryForm) Location() string {
	return strings.TrimSpace(f.City) + ", " + strings.TrimSpace(f.State)
}

type OfficerForm struct {
	Name     string `json:"name" validate:"notblank,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (OfficerForm) Role() models.Role { return models.RoleOfficer }

func (f OfficerForm) email() string { return f.Email }

// DecodeForm разбирает JSON формы по полю role.
func DecodeForm(raw []byte) (Form, error) {
	var head struct {
		Role models.Role `json:"role"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, ErrMalformedForm
	}

	switch models.Role(strings.ToLower(strings.TrimSpace(string(head.Role)))) {
	case models.RoleBeneficiary:
		var form BeneficiaryForm
		if err := json.Unmarshal(raw, &form); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedForm, err)
		}
		return form, nil
	case models.RoleOfficer:
		var form OfficerForm
		if err := json.Unmarshal(raw, &form); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedForm, err)
		}
		return form, nil
	case models.RoleAdmin:
		return nil, ErrRoleNotAllowed
	default:
		return nil, ErrUnknownRole
	}
}

// FieldError is a user-facing message for one form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError lists every invalid field of a form.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Message возвращает сообщение для поля или пустую строку.
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// RegisterRules добавляет теги pincode, phone и notblank и имена полей из json-тегов.
func RegisterRules(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		return err
	}
	if err := v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return pincodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	}); err != nil {
		return err
	}
	return v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
}

type Validator struct {
	validate *validator.Validate
}

// NewValidator создает валидатор форм регистрации.
func NewValidator() *Validator {
	v := validator.New()
	if err := RegisterRules(v); err != nil {
		panic(err)
	}
	return &Validator{validate: v}
}

// Validate проверяет форму локально, без обращения к сети.
func (v *Validator) Validate(form Form) error {
	var err error
	switch f := form.(type) {
	case BeneficiaryForm:
		err = v.validate.Struct(f)
	case OfficerForm:
		err = v.validate.Struct(f)
	case nil:
		return ErrUnknownRole
	default:
		return fmt.Errorf("unsupported form %T", form)
	}
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: Describe(fe)})
	}
	return out
}

// Describe переводит ошибку валидатора в сообщение для пользователя.
func Describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "gte":
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "pincode":
		return "must be a 6-digit code"
	case "phone":
		return "must be a 10-digit number"
	default:
		return "is invalid"
	}
}
