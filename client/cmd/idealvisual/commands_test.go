package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/idealvisual/client/internal/api"
	"github.com/maynagashev/idealvisual/client/internal/config"
	"github.com/maynagashev/idealvisual/client/internal/session"
	"github.com/maynagashev/idealvisual/models"
)

// runCLI выполняет команду и возвращает вывод.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// testEnv очищает переменные клиента и возвращает путь к файлу сессии.
func testEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		config.EnvServerURL, config.EnvAccountURL, config.EnvSessionURL,
		config.EnvTimeout, config.EnvSessionFile,
	} {
		t.Setenv(key, "")
	}
	return filepath.Join(t.TempDir(), "test.session")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRegisterAndWhoami(t *testing.T) {
	sessionFile := testEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/account", r.URL.Path)
		var u models.User
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&u))
		u.ID = 5
		u.Password = ""
		u.Token = "new-token"
		writeJSON(w, http.StatusOK, u)
	}))
	defer server.Close()

	out, err := runCLI(t, "register", "--server-url", server.URL, "--session-file", sessionFile,
		"--username", "ketnipz513", "--email", "ketnipz@mail.ru", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "Учетная запись создана: ketnipz513 (id 5)")

	out, err = runCLI(t, "whoami", "--session-file", sessionFile)
	require.NoError(t, err)
	assert.Contains(t, out, "ketnipz513 <ketnipz@mail.ru> (id 5)")
}

func TestRegister_WrongFields(t *testing.T) {
	sessionFile := testEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorsResponse{
			Errors: models.FieldErrors{"email": {"taken"}},
		})
	}))
	defer server.Close()

	out, err := runCLI(t, "register", "--server-url", server.URL, "--session-file", sessionFile,
		"--username", "ketnipz513", "--email", "ketnipz@mail.ru", "--password", "secret123")
	require.ErrorIs(t, err, api.ErrWrongFields)
	assert.Contains(t, out, "Проверьте поля:")
	assert.Contains(t, out, "email: taken")
}

func TestLogin_Forbidden(t *testing.T) {
	sessionFile := testEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	out, err := runCLI(t, "login", "--server-url", server.URL, "--session-file", sessionFile,
		"--username", "ketnipz513", "--password", "wrong")
	require.ErrorIs(t, err, api.ErrForbidden)
	assert.Contains(t, out, "Неверное имя пользователя или пароль")

	_, err = session.NewStore(sessionFile).Load(testContext(t))
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestUpdate_UnauthorizedClearsSession(t *testing.T) {
	sessionFile := testEnv(t)
	require.NoError(t, session.NewStore(sessionFile).Save(testContext(t), "stale", models.User{ID: 1, Username: "u"}))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	out, err := runCLI(t, "update", "--server-url", server.URL, "--session-file", sessionFile, "--email", "n@mail.ru")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Contains(t, out, "Сессия истекла")

	_, err = session.NewStore(sessionFile).Load(testContext(t))
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestUpdate_WithoutSession(t *testing.T) {
	sessionFile := testEnv(t)

	_, err := runCLI(t, "update", "--server-url", "http://127.0.0.1:1", "--session-file", sessionFile)
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogout(t *testing.T) {
	sessionFile := testEnv(t)
	require.NoError(t, session.NewStore(sessionFile).Save(testContext(t), "tok", models.User{ID: 1, Username: "u"}))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	out, err := runCLI(t, "logout", "--server-url", server.URL, "--session-file", sessionFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Выход выполнен")

	_, err = session.NewStore(sessionFile).Load(testContext(t))
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogin_ServerNotListening(t *testing.T) {
	sessionFile := testEnv(t)
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	// Отказ в соединении - сеть есть, поэтому это не "нет подключения"
	out, err := runCLI(t, "login", "--server-url", url, "--session-file", sessionFile,
		"--username", "u", "--password", "p")
	require.ErrorIs(t, err, api.ErrUnknown)
	assert.Contains(t, out, "Ошибка:")
	assert.NotContains(t, out, "Нет подключения к сети")
}

func TestMissingServerURL(t *testing.T) {
	sessionFile := testEnv(t)

	_, err := runCLI(t, "login", "--session-file", sessionFile, "--username", "u", "--password", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "не указан URL сервера")
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"Нет сети", api.ErrNoConnection, "Нет подключения к сети. Повторите попытку позже."},
		{"Нет данных", api.ErrNoData, "Сервер не вернул данные."},
		{"Не найден", api.ErrNotFound, "Учетная запись не найдена."},
		{"Неизвестная", &api.OperationError{Kind: api.KindUnknown, Message: "unknown status code: 500"}, "Ошибка: unknown status code: 500"},
		{
			"Поля",
			&api.OperationError{Kind: api.KindWrongFields, Fields: models.FieldErrors{"username": {"short"}, "email": {"taken"}}},
			"Проверьте поля:\n  email: taken\n  username: short",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeError(tt.err))
		})
	}
}

// testContext заменяет t.Context (Go 1.24): контекст отменяется при завершении теста.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
