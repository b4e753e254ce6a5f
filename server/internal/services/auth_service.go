package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/maynagashev/idealvisual/models"
	servermodels "github.com/maynagashev/idealvisual/server/internal/models"
	"github.com/maynagashev/idealvisual/server/internal/repository"
	"github.com/maynagashev/idealvisual/server/internal/storage"
)

// AuthService определяет интерфейс для сервиса учетных записей и сессий.
type AuthService interface {
	// Register создает пользователя и открывает для него сессию.
	Register(ctx context.Context, user models.User) (*models.User, error)
	// Login проверяет имя и пароль и открывает новую сессию.
	Login(ctx context.Context, username, password string) (*models.User, error)
	// Update частично изменяет данные пользователя. Пустые поля не меняются.
	Update(ctx context.Context, userID int64, changes models.User) (*models.User, error)
	// Logout отзывает сессию до истечения ее токена.
	Logout(ctx context.Context, claims *Claims) error
	// VerifyToken проверяет токен и то, что его сессия не отозвана.
	VerifyToken(ctx context.Context, token string) (*Claims, error)
}

// Убедимся, что authService удовлетворяет интерфейсу AuthService.
var _ AuthService = (*authService)(nil)

type authService struct {
	userRepo  repository.UserRepository
	revoked   storage.RevocationStore
	tokens    *TokenManager
	validator *validator.Validate
}

// NewAuthService создает новый экземпляр сервиса аутентификации.
func NewAuthService(
	userRepo repository.UserRepository,
	revoked storage.RevocationStore,
	tokens *TokenManager,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		revoked:   revoked,
		tokens:    tokens,
		validator: newValidator(),
	}
}

// Register регистрирует нового пользователя.
func (s *authService) Register(ctx context.Context, user models.User) (*models.User, error) {
	input := registerInput{
		Username: strings.TrimSpace(user.Username),
		Email:    strings.TrimSpace(user.Email),
		Password: user.Password,
		Ava:      strings.TrimSpace(user.Ava),
	}
	if err := validate(s.validator, input); err != nil {
		log.Printf("[AuthService] Регистрация '%s' отклонена: %v", input.Username, err)
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[AuthService] Ошибка хеширования пароля для '%s': %v", input.Username, err)
		return nil, errors.New("внутренняя ошибка сервера при хешировании пароля")
	}

	account := &servermodels.Account{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Ava:          input.Ava,
	}
	account.ID, err = s.userRepo.CreateUser(ctx, account)
	if err != nil {
		if taken := takenFieldError(err); taken != nil {
			log.Printf("[AuthService] Попытка регистрации с занятыми данными: %s", input.Username)
			return nil, taken
		}
		log.Printf("[AuthService] Непредвиденная ошибка репозитория при регистрации '%s': %v", input.Username, err)
		return nil, errors.New("внутренняя ошибка сервера при создании пользователя")
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		log.Printf("[AuthService] Ошибка генерации JWT для '%s': %v", input.Username, err)
		return nil, errors.New("внутренняя ошибка сервера при генерации токена")
	}

	log.Printf("[AuthService] Пользователь '%s' успешно зарегистрирован", input.Username)
	return account.ToUser(token), nil
}

// Login аутентифицирует пользователя и возвращает его данные с новым токеном.
func (s *authService) Login(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("[AuthService] Попытка входа несуществующего пользователя: %s", username)
			return nil, ErrInvalidCredentials // Общая ошибка для несуществующего пользователя и неверного пароля
		}
		log.Printf("[AuthService] Ошибка репозитория при поиске '%s': %v", username, err)
		return nil, errors.New("внутренняя ошибка сервера при поиске пользователя")
	}

	if err = bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		log.Printf("[AuthService] Неверный пароль для пользователя: %s", username)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		log.Printf("[AuthService] Ошибка генерации JWT для '%s': %v", username, err)
		return nil, errors.New("внутренняя ошибка сервера при генерации токена")
	}

	log.Printf("[AuthService] Пользователь '%s' успешно аутентифицирован", username)
	return account.ToUser(token), nil
}

// Update изменяет непустые поля пользователя.
func (s *authService) Update(ctx context.Context, userID int64, changes models.User) (*models.User, error) {
	input := updateInput{
		Username: strings.TrimSpace(changes.Username),
		Email:    strings.TrimSpace(changes.Email),
		Password: changes.Password,
		Ava:      strings.TrimSpace(changes.Ava),
	}
	if err := validate(s.validator, input); err != nil {
		log.Printf("[AuthService] Изменение пользователя %d отклонено: %v", userID, err)
		return nil, err
	}

	account, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		log.Printf("[AuthService] Ошибка репозитория при поиске пользователя %d: %v", userID, err)
		return nil, errors.New("внутренняя ошибка сервера при поиске пользователя")
	}

	if input.Username != "" {
		account.Username = input.Username
	}
	if input.Email != "" {
		account.Email = input.Email
	}
	if input.Ava != "" {
		account.Ava = input.Ava
	}
	if input.Password != "" {
		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			log.Printf("[AuthService] Ошибка хеширования пароля для пользователя %d: %v", userID, hashErr)
			return nil, errors.New("внутренняя ошибка сервера при хешировании пароля")
		}
		account.PasswordHash = string(hashed)
	}

	if err = s.userRepo.UpdateUser(ctx, account); err != nil {
		if taken := takenFieldError(err); taken != nil {
			return nil, taken
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		log.Printf("[AuthService] Ошибка репозитория при изменении пользователя %d: %v", userID, err)
		return nil, errors.New("внутренняя ошибка сервера при изменении пользователя")
	}

	log.Printf("[AuthService] Пользователь %d обновлен", userID)
	return account.ToUser(""), nil
}

// Logout отзывает сессию на оставшееся время жизни токена.
func (s *authService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrInvalidToken
	}
	if err := s.revoked.Revoke(ctx, claims.ID, s.tokens.Remaining(claims)); err != nil {
		log.Printf("[AuthService] Ошибка отзыва сессии пользователя %d: %v", claims.UserID, err)
		return fmt.Errorf("ошибка завершения сессии: %w", err)
	}
	log.Printf("[AuthService] Сессия пользователя %d завершена", claims.UserID)
	return nil
}

// VerifyToken проверяет токен и его сессию.
func (s *authService) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки сессии: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// takenFieldError переводит ошибку уникальности репозитория в ошибку поля.
func takenFieldError(err error) *ValidationError {
	switch {
	case errors.Is(err, repository.ErrUsernameTaken):
		return fieldError("username", msgTaken)
	case errors.Is(err, repository.ErrEmailTaken):
		return fieldError("email", msgTaken)
	default:
		return nil
	}
}

// Кастомные ошибки сервиса.
var (
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	ErrUserNotFound       = errors.New("пользователь не найден")
)
