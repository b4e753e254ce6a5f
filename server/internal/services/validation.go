package services

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maynagashev/idealvisual/models"
)

// Сообщения об ошибках полей в формате, который понимает клиент.
const (
	msgBlank   = "can't be blank"
	msgInvalid = "is invalid"
	msgTaken   = "has already been taken"
)

// registerInput - поля, обязательные при регистрации.
type registerInput struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Ava      string `json:"ava" validate:"omitempty,max=2048"`
}

// updateInput - поля частичного изменения, пустые не меняются.
type updateInput struct {
	Username string `json:"username" validate:"omitempty,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
	Ava      string `json:"ava" validate:"omitempty,max=2048"`
}

// ValidationError содержит ошибки по полям. Отдается клиенту с кодом 422.
type ValidationError struct {
	Fields models.FieldErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+strings.Join(e.Fields[name], ", "))
	}
	return "ошибка валидации: " + strings.Join(parts, "; ")
}

// Is позволяет сравнивать с ErrValidation через errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// fieldError создает ошибку валидации одного поля.
func fieldError(field, message string) *ValidationError {
	fields := models.FieldErrors{}
	fields.Add(field, message)
	return &ValidationError{Fields: fields}
}

// newValidator создает валидатор, который называет поля по json тегам.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate проверяет структуру и переводит ошибки валидатора в ValidationError.
func validate(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("ошибка валидации запроса: %w", err)
	}

	fields := models.FieldErrors{}
	for _, fe := range verrs {
		fields.Add(fe.Field(), fieldMessage(fe))
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgBlank
	case "min":
		return fmt.Sprintf("is too short (minimum is %s characters)", fe.Param())
	case "max":
		return fmt.Sprintf("is too long (maximum is %s characters)", fe.Param())
	default:
		return msgInvalid
	}
}

// Ошибки валидации.
var ErrValidation = errors.New("ошибка валидации")
