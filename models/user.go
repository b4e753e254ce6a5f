package models

// User представляет учетную запись пользователя в том виде, в котором она
// передается между клиентом и сервером в JSON.
type User struct {
	ID       int64  `json:"id,omitempty"`       // Назначается сервером при создании
	Username string `json:"username"`           // Логин
	Email    string `json:"email"`              // Почта
	Password string `json:"password,omitempty"` // Только в запросах, сервер его не возвращает
	Ava      string `json:"ava,omitempty"`      // Ссылка на аватар
	Token    string `json:"token,omitempty"`    // Bearer токен, выдается при создании и входе
}

// HasID сообщает, был ли пользователь уже создан на сервере.
func (u *User) HasID() bool {
	return u != nil && u.ID != 0
}

// Public возвращает копию пользователя без пароля.
func (u User) Public() User {
	u.Password = ""
	return u
}

// FieldErrors содержит сообщения об ошибках валидации по именам полей.
type FieldErrors map[string][]string

// Add добавляет сообщение к полю.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// ErrorsResponse представляет тело ответа 422 Unprocessable Entity.
type ErrorsResponse struct {
	Errors FieldErrors `json:"errors"`
}
