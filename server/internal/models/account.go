package models

import (
	"time"

	"github.com/maynagashev/idealvisual/models"
)

// Account представляет строку таблицы users.
type Account struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Ava          string    `db:"ava"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ToUser возвращает представление учетной записи для ответа клиенту.
// Хеш пароля наружу не попадает.
func (a *Account) ToUser(token string) *models.User {
	return &models.User{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Ava:      a.Ava,
		Token:    token,
	}
}
