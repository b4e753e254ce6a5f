package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/maynagashev/idealvisual/server/internal/services"
)

// Тип для ключа контекста.
type contextKey string

// Ключи для хранения данных сессии в контексте.
const (
	UserIDKey contextKey = "userID"
	ClaimsKey contextKey = "claims"
)

// TokenVerifier проверяет bearer токен и возвращает данные его сессии.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*services.Claims, error)
}

// Authenticator возвращает middleware, пропускающее только запросы с действующим токеном.
func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Println("[AuthMiddleware] Заголовок Authorization отсутствует")
				http.Error(w, "Требуется аутентификация", http.StatusUnauthorized)
				return
			}

			// Проверяем формат "Bearer token"
			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || tokenString == "" || strings.Contains(tokenString, " ") {
				log.Println("[AuthMiddleware] Неверный формат заголовка Authorization")
				http.Error(w, "Неверный формат токена", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.VerifyToken(r.Context(), tokenString)
			if err != nil {
				if errors.Is(err, services.ErrInvalidToken) || errors.Is(err, services.ErrTokenRevoked) {
					log.Printf("[AuthMiddleware] Токен отклонен: %v", err)
					http.Error(w, "Невалидный токен", http.StatusUnauthorized)
					return
				}
				log.Printf("[AuthMiddleware] Ошибка проверки токена: %v", err)
				http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			log.Printf("[AuthMiddleware] Пользователь %d успешно аутентифицирован", claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext извлекает UserID из контекста запроса.
// Возвращает ID пользователя и true, если ID найден, иначе 0 и false.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// GetClaimsFromContext извлекает данные сессии из контекста запроса.
func GetClaimsFromContext(ctx context.Context) (*services.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*services.Claims)
	return claims, ok && claims != nil
}
