package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/idealvisual/server/internal/middleware"
	"github.com/maynagashev/idealvisual/server/internal/mocks"
	"github.com/maynagashev/idealvisual/server/internal/services"
	"github.com/maynagashev/idealvisual/server/internal/storage"
)

const jwtSecretKey = "test-secret-key"

func TestGetUserIDFromContext(t *testing.T) {
	tests := []struct {
		name       string
		ctx        context.Context
		expectedID int64
		expectedOK bool
	}{
		{
			name:       "Контекст с UserID",
			ctx:        context.WithValue(context.Background(), middleware.UserIDKey, int64(123)),
			expectedID: 123,
			expectedOK: true,
		},
		{
			name:       "Пустой контекст",
			ctx:        context.Background(),
			expectedID: 0,
			expectedOK: false,
		},
		{
			name:       "Контекст с UserID неверного типа",
			ctx:        context.WithValue(context.Background(), middleware.UserIDKey, "not-an-int64"),
			expectedID: 0,
			expectedOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, ok := middleware.GetUserIDFromContext(tt.ctx)
			assert.Equal(t, tt.expectedID, userID)
			assert.Equal(t, tt.expectedOK, ok)
		})
	}
}

func TestGetClaimsFromContext(t *testing.T) {
	claims := &services.Claims{UserID: 5}

	got, ok := middleware.GetClaimsFromContext(context.WithValue(context.Background(), middleware.ClaimsKey, claims))
	assert.True(t, ok)
	assert.Same(t, claims, got)

	_, ok = middleware.GetClaimsFromContext(context.Background())
	assert.False(t, ok)

	var nilClaims *services.Claims
	_, ok = middleware.GetClaimsFromContext(context.WithValue(context.Background(), middleware.ClaimsKey, nilClaims))
	assert.False(t, ok)
}

func TestAuthenticator(t *testing.T) {
	tm := services.NewTokenManager(jwtSecretKey, "", time.Hour)
	revoked := storage.NewMemoryRevocationStore()
	svc := services.NewAuthService(new(mocks.UserRepository), revoked, tm)

	// Обработчик, который будет вызван после middleware
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		assert.True(t, ok, "UserID должен быть в контексте")
		claims, ok := middleware.GetClaimsFromContext(r.Context())
		assert.True(t, ok, "Claims должны быть в контексте")
		assert.Equal(t, userID, claims.UserID)
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK for user %d", userID)
	})

	server := httptest.NewServer(middleware.Authenticator(svc)(nextHandler))
	defer server.Close()

	issue := func(userID int64) string {
		token, err := tm.Issue(userID)
		require.NoError(t, err)
		return token
	}
	revokedToken := issue(333)
	revokedClaims, err := tm.Parse(revokedToken)
	require.NoError(t, err)
	require.NoError(t, revoked.Revoke(context.Background(), revokedClaims.ID, time.Hour))

	expiredToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, services.Claims{
		UserID: 222,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "expired-session",
			Issuer:    services.DefaultIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)), // Токен истек час назад
		},
	}).SignedString([]byte(jwtSecretKey))
	require.NoError(t, err)

	foreignToken, err := services.NewTokenManager("wrong-secret-key", "", time.Hour).Issue(111)
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string // Содержимое заголовка Authorization
		expectedStatus int
		expectedBody   string // Подстрока в теле ответа
	}{
		{
			name:           "Успешная аутентификация",
			header:         "Bearer " + issue(123),
			expectedStatus: http.StatusOK,
			expectedBody:   "OK for user 123",
		},
		{
			name:           "Схема в нижнем регистре",
			header:         "bearer " + issue(124),
			expectedStatus: http.StatusOK,
			expectedBody:   "OK for user 124",
		},
		{
			name:           "Нет заголовка Authorization",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Требуется аутентификация",
		},
		{
			name:           "Неверный формат заголовка (нет Bearer)",
			header:         issue(456),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Неверный формат токена",
		},
		{
			name:           "Неверный формат заголовка (лишнее слово)",
			header:         "Bearer extra " + issue(789),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Неверный формат токена",
		},
		{
			name:           "Невалидный токен (неверный секрет)",
			header:         "Bearer " + foreignToken,
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Невалидный токен",
		},
		{
			name:           "Истекший токен",
			header:         "Bearer " + expiredToken,
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Невалидный токен",
		},
		{
			name:           "Отозванная сессия",
			header:         "Bearer " + revokedToken,
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Невалидный токен",
		},
		{
			name:           "Невалидный токен (пустой)",
			header:         "Bearer ",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Неверный формат токена",
		},
		{
			name:           "Невалидный токен (мусор)",
			header:         "Bearer garbage",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Невалидный токен",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			bodyBytes, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(bodyBytes), tt.expectedBody)
		})
	}
}

func TestAuthenticator_VerifierFailure(t *testing.T) {
	verifier := new(mocks.AuthService)
	verifier.On("VerifyToken", mock.Anything, "token").Return(nil, errors.New("redis down")).Once()

	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rr := httptest.NewRecorder()
	middleware.Authenticator(verifier)(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.False(t, called)
	verifier.AssertExpectations(t)
}
