package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/maynagashev/idealvisual/models"
	"github.com/maynagashev/idealvisual/server/internal/middleware"
	"github.com/maynagashev/idealvisual/server/internal/services"
)

// maxRequestBody ограничивает размер тела запроса с данными пользователя.
const maxRequestBody = 64 << 10

// AuthService определяет интерфейс для сервиса учетных записей.
// Это позволит нам легко подменять реализацию (например, для тестов).
type AuthService interface {
	Register(ctx context.Context, user models.User) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
	Update(ctx context.Context, userID int64, changes models.User) (*models.User, error)
	Logout(ctx context.Context, claims *services.Claims) error
}

// AuthHandler обрабатывает запросы к учетной записи и сессии.
type AuthHandler struct {
	service AuthService // Зависимость от интерфейса, а не конкретной реализации
}

// NewAuthHandler создает новый экземпляр AuthHandler.
func NewAuthHandler(s AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// Register обрабатывает POST /api/account - создание учетной записи.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	user, ok := decodeUser(w, r)
	if !ok {
		return
	}
	log.Printf("[AuthHandler] Попытка регистрации пользователя: %s", user.Username)

	created, err := h.service.Register(r.Context(), user)
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		log.Printf("[AuthHandler] Ошибка регистрации '%s': %v", user.Username, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, created)
}

// Login обрабатывает POST /api/session - вход пользователя.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	user, ok := decodeUser(w, r)
	if !ok {
		return
	}
	log.Printf("[AuthHandler] Попытка входа пользователя: %s", user.Username)

	loggedIn, err := h.service.Login(r.Context(), user.Username, user.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		log.Printf("[AuthHandler] Ошибка входа '%s': %v", user.Username, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loggedIn)
}

// Update обрабатывает PUT /api/account - изменение данных текущего пользователя.
func (h *AuthHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Println("[AuthHandler] UserID не найден в контексте")
		http.Error(w, "Требуется аутентификация", http.StatusUnauthorized)
		return
	}
	changes, ok := decodeUser(w, r)
	if !ok {
		return
	}

	updated, err := h.service.Update(r.Context(), userID, changes)
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		if errors.Is(err, services.ErrUserNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("[AuthHandler] Ошибка изменения пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Logout обрабатывает DELETE /api/session - завершение текущей сессии.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		log.Println("[AuthHandler] Данные сессии не найдены в контексте")
		http.Error(w, "Требуется аутентификация", http.StatusUnauthorized)
		return
	}

	if err := h.service.Logout(r.Context(), claims); err != nil {
		log.Printf("[AuthHandler] Ошибка выхода пользователя %d: %v", claims.UserID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// decodeUser читает пользователя из JSON тела запроса. При ошибке ответ уже отправлен.
func decodeUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	var user models.User
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&user); err != nil {
		log.Printf("[AuthHandler] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return models.User{}, false
	}
	return user, true
}

// writeValidationError отправляет 422 с ошибками полей, если err - ошибка валидации.
func writeValidationError(w http.ResponseWriter, err error) bool {
	var verr *services.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, models.ErrorsResponse{Errors: verr.Fields})
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Клиент уже получил статус, сложно что-то изменить
		log.Printf("[AuthHandler] Ошибка кодирования ответа: %v", err)
	}
}
