package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/maynagashev/idealvisual/server/internal/models"
)

// Коды ошибок и ограничения PostgreSQL.
const (
	pgUniqueViolationCode = "23505"
	usernameConstraint    = "users_username_key"
	emailConstraint       = "users_email_key"
)

const selectAccount = `SELECT id, username, email, password_hash, ava, created_at, updated_at FROM users`

// UserRepository определяет методы для работы с данными пользователей в хранилище.
type UserRepository interface {
	CreateUser(ctx context.Context, account *models.Account) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*models.Account, error)
	GetUserByID(ctx context.Context, id int64) (*models.Account, error)
	UpdateUser(ctx context.Context, account *models.Account) error
}

// postgresUserRepository реализует UserRepository для PostgreSQL.
type postgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository создает новый экземпляр репозитория пользователей для PostgreSQL.
func NewPostgresUserRepository(db *sqlx.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

// CreateUser создает нового пользователя в базе данных.
// Возвращает ID созданного пользователя или ошибку.
func (r *postgresUserRepository) CreateUser(ctx context.Context, account *models.Account) (int64, error) {
	query := `INSERT INTO users (username, email, password_hash, ava) VALUES ($1, $2, $3, $4) RETURNING id`
	var userID int64

	err := r.db.QueryRowxContext(ctx, query,
		account.Username, account.Email, account.PasswordHash, account.Ava).Scan(&userID)
	if err != nil {
		if taken := uniqueViolation(err); taken != nil {
			log.Printf("[Repo] Ошибка создания пользователя '%s': %v", account.Username, taken)
			return 0, taken
		}
		log.Printf("[Repo] Непредвиденная ошибка при создании пользователя '%s': %v", account.Username, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на создание пользователя: %w", err)
	}

	log.Printf("[Repo] Пользователь '%s' успешно создан с ID %d", account.Username, userID)
	return userID, nil
}

// GetUserByUsername находит пользователя по его имени.
func (r *postgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, selectAccount+` WHERE username=$1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[Repo] Пользователь с именем '%s' не найден", username)
			return nil, ErrUserNotFound
		}
		log.Printf("[Repo] Ошибка при поиске пользователя '%s': %v", username, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение пользователя: %w", err)
	}
	return &account, nil
}

// GetUserByID находит пользователя по идентификатору.
func (r *postgresUserRepository) GetUserByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, selectAccount+` WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[Repo] Пользователь с ID %d не найден", id)
			return nil, ErrUserNotFound
		}
		log.Printf("[Repo] Ошибка при поиске пользователя с ID %d: %v", id, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение пользователя: %w", err)
	}
	return &account, nil
}

// UpdateUser сохраняет все изменяемые поля пользователя.
func (r *postgresUserRepository) UpdateUser(ctx context.Context, account *models.Account) error {
	query := `UPDATE users SET username=$1, email=$2, password_hash=$3, ava=$4, updated_at=NOW() WHERE id=$5`

	res, err := r.db.ExecContext(ctx, query,
		account.Username, account.Email, account.PasswordHash, account.Ava, account.ID)
	if err != nil {
		if taken := uniqueViolation(err); taken != nil {
			log.Printf("[Repo] Ошибка обновления пользователя %d: %v", account.ID, taken)
			return taken
		}
		log.Printf("[Repo] Непредвиденная ошибка при обновлении пользователя %d: %v", account.ID, err)
		return fmt.Errorf("ошибка выполнения запроса на обновление пользователя: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа обновленных строк: %w", err)
	}
	if affected == 0 {
		log.Printf("[Repo] Пользователь с ID %d не найден при обновлении", account.ID)
		return ErrUserNotFound
	}

	log.Printf("[Repo] Пользователь %d обновлен", account.ID)
	return nil
}

// uniqueViolation возвращает ошибку занятого поля по имени нарушенного ограничения
// или nil, если ограничение не относится к полям пользователя.
func uniqueViolation(err error) error {
	var pgErr *pq.Error
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolationCode {
		return nil
	}
	switch pgErr.Constraint {
	case usernameConstraint:
		return ErrUsernameTaken
	case emailConstraint:
		return ErrEmailTaken
	default:
		return nil
	}
}

// Кастомные ошибки репозитория.
var (
	ErrUserNotFound  = errors.New("пользователь не найден")
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
	ErrEmailTaken    = errors.New("адрес почты уже занят")
)
