package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maynagashev/idealvisual/models"
)

// errEmptyBody возвращается при попытке декодировать пустое тело ответа.
var errEmptyBody = errors.New("пустое тело ответа")

// encodeUser кодирует пользователя в тело запроса.
func encodeUser(user models.User) ([]byte, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("ошибка кодирования пользователя: %w", err)
	}
	return data, nil
}

// decodeUser декодирует пользователя. Для тела "null" возвращает nil без ошибки.
func decodeUser(data []byte) (*models.User, error) {
	if len(data) == 0 {
		return nil, errEmptyBody
	}
	var user *models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("ошибка декодирования пользователя: %w", err)
	}
	return user, nil
}

// decodeFieldErrors декодирует тело ответа 422.
func decodeFieldErrors(data []byte) (models.FieldErrors, error) {
	if len(data) == 0 {
		return nil, errEmptyBody
	}
	var resp models.ErrorsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("ошибка декодирования ошибок валидации: %w", err)
	}
	if resp.Errors == nil {
		resp.Errors = models.FieldErrors{}
	}
	return resp.Errors, nil
}
