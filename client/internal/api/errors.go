package api

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/maynagashev/idealvisual/models"
)

// ErrorKind определяет вид ошибки операции с учетной записью.
type ErrorKind int

const (
	KindUnknown      ErrorKind = iota // Непредусмотренная ошибка, текст в Message
	KindNoConnection                  // Нет подключения к сети, ответ не получен
	KindNoData                        // Сервер не вернул данные
	KindForbidden                     // 403 при входе
	KindUnauthorized                  // 401, токен недействителен
	KindNotFound                      // 404, пользователь не найден
	KindWrongFields                   // 422, ошибки валидации полей в Fields
)

var kindNames = map[ErrorKind]string{
	KindUnknown:      "неизвестная ошибка",
	KindNoConnection: "нет подключения к сети",
	KindNoData:       "сервер не вернул данные",
	KindForbidden:    "доступ запрещен",
	KindUnauthorized: "требуется авторизация",
	KindNotFound:     "пользователь не найден",
	KindWrongFields:  "неверно заполнены поля",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// OperationError описывает причину неудачи операции. Заполнен ровно один вид.
type OperationError struct {
	Kind    ErrorKind
	Fields  models.FieldErrors // Только для KindWrongFields
	Message string             // Только для KindUnknown
}

func (e *OperationError) Error() string {
	switch e.Kind {
	case KindUnknown:
		if e.Message != "" {
			return e.Message
		}
	case KindWrongFields:
		if len(e.Fields) > 0 {
			return e.Kind.String() + ": " + formatFields(e.Fields)
		}
	}
	return e.Kind.String()
}

// Is сравнивает ошибки по виду, поэтому errors.Is(err, ErrWrongFields)
// срабатывает для любой ошибки валидации независимо от полей.
func (e *OperationError) Is(target error) bool {
	t, ok := target.(*OperationError)
	return ok && t.Kind == e.Kind
}

// Сентинелы для проверки через errors.Is.
var (
	ErrUnknown      = &OperationError{Kind: KindUnknown}
	ErrNoConnection = &OperationError{Kind: KindNoConnection}
	ErrNoData       = &OperationError{Kind: KindNoData}
	ErrForbidden    = &OperationError{Kind: KindForbidden}
	ErrUnauthorized = &OperationError{Kind: KindUnauthorized}
	ErrNotFound     = &OperationError{Kind: KindNotFound}
	ErrWrongFields  = &OperationError{Kind: KindWrongFields}
)

// FieldErrorsOf извлекает ошибки валидации полей из err.
func FieldErrorsOf(err error) (models.FieldErrors, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) && opErr.Kind == KindWrongFields {
		return opErr.Fields, true
	}
	return nil, false
}

// KindOf возвращает вид ошибки. Для ошибок другого типа возвращает KindUnknown.
func KindOf(err error) ErrorKind {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return KindUnknown
}

func unknownError(msg string) *OperationError {
	return &OperationError{Kind: KindUnknown, Message: msg}
}

func unknownStatusError(status int) *OperationError {
	return unknownError(fmt.Sprintf("unknown status code: %d", status))
}

func wrongFieldsError(fields models.FieldErrors) *OperationError {
	return &OperationError{Kind: KindWrongFields, Fields: fields}
}

// formatFields выводит поля в алфавитном порядке: "email: taken; username: short".
func formatFields(fields models.FieldErrors) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(fields[name], ", "))
	}
	return strings.Join(parts, "; ")
}
