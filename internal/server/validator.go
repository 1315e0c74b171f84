package server

import (
	"github.com/go-playground/validator/v10"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/registration"
)

type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator создает валидатор на базе go-playground/validator с правилами форм регистрации.
func NewValidator() *CustomValidator {
	v := validator.New()
	if err := registration.RegisterRules(v); err != nil {
		panic(err)
	}
	return &CustomValidator{validator: v}
}

// Validate запускает проверку структуры по тегам.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
