package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL - время жизни токена по умолчанию.
const DefaultTokenTTL = 24 * time.Hour

// DefaultIssuer - издатель токенов по умолчанию.
const DefaultIssuer = "idealvisual-server"

// Claims - пользовательские данные в JWT. ID (jti) идентифицирует сессию.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет токены доступа.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager создает менеджер токенов. Пустой issuer и неположительный ttl
// заменяются значениями по умолчанию.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue создает и подписывает токен для новой сессии пользователя.
func (m *TokenManager) Issue(userID int64) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи JWT: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись, издателя и срок действия токена.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, fmt.Errorf("%w: нет идентификатора сессии или пользователя", ErrInvalidToken)
	}
	return claims, nil
}

// Remaining возвращает, сколько еще действует токен с данными claims.
func (m *TokenManager) Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Sub(m.now())
}

// Ошибки токенов.
var (
	ErrInvalidToken = errors.New("невалидный токен")
	ErrTokenRevoked = errors.New("сессия завершена")
)
