// Package config собирает настройки клиента из флагов, переменных окружения
// и файла .env.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/maynagashev/idealvisual/client/internal/api"
)

const (
	// Переменные окружения.
	EnvServerURL   = "IDEALVISUAL_SERVER_URL"
	EnvAccountURL  = "IDEALVISUAL_ACCOUNT_URL"
	EnvSessionURL  = "IDEALVISUAL_SESSION_URL"
	EnvTimeout     = "IDEALVISUAL_TIMEOUT"
	EnvSessionFile = "IDEALVISUAL_SESSION_FILE"

	defaultTimeout     = 30 * time.Second
	defaultSessionFile = "idealvisual.session"
)

// Config хранит настройки клиента.
type Config struct {
	ServerURL   string        // Базовый URL сервера, например "http://localhost:8080"
	AccountURL  string        // Переопределяет URL учетной записи
	SessionURL  string        // Переопределяет URL сессии
	Timeout     time.Duration // Таймаут одного HTTP запроса
	SessionFile string        // Файл, в котором CLI хранит токен
}

// LoadDotEnv загружает переменные из файла .env, если он есть.
// Уже установленные переменные окружения не перезаписываются.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("ошибка загрузки %s: %w", path, err)
	}
	return nil
}

// BindFlags регистрирует флаги клиента.
func (c *Config) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.ServerURL, "server-url", "",
		fmt.Sprintf("URL сервера (env: %s)", EnvServerURL))
	flags.StringVar(&c.AccountURL, "account-url", "",
		fmt.Sprintf("URL эндпоинта учетной записи (env: %s)", EnvAccountURL))
	flags.StringVar(&c.SessionURL, "session-url", "",
		fmt.Sprintf("URL эндпоинта сессии (env: %s)", EnvSessionURL))
	flags.DurationVar(&c.Timeout, "timeout", 0,
		fmt.Sprintf("Таймаут запроса (env: %s, default: %s)", EnvTimeout, defaultTimeout))
	flags.StringVar(&c.SessionFile, "session-file", "",
		fmt.Sprintf("Файл сессии (env: %s, default: %s)", EnvSessionFile, defaultSessionFile))
}

// Resolve применяет переменные окружения к незаданным флагам и значения по умолчанию.
func (c *Config) Resolve() error {
	if c.ServerURL == "" {
		c.ServerURL = os.Getenv(EnvServerURL)
	}
	if c.AccountURL == "" {
		c.AccountURL = os.Getenv(EnvAccountURL)
	}
	if c.SessionURL == "" {
		c.SessionURL = os.Getenv(EnvSessionURL)
	}
	if c.SessionFile == "" {
		if value, ok := os.LookupEnv(EnvSessionFile); ok && value != "" {
			c.SessionFile = value
		} else {
			c.SessionFile = defaultSessionFile
		}
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
		if value, ok := os.LookupEnv(EnvTimeout); ok && value != "" {
			timeout, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("неверное значение %s: %w", EnvTimeout, err)
			}
			c.Timeout = timeout
		}
	}
	if c.Timeout < 0 {
		return errors.New("таймаут не может быть отрицательным")
	}
	return nil
}

// Validate проверяет, что настроек достаточно для запросов к серверу.
func (c *Config) Validate() error {
	if c.ServerURL == "" && (c.AccountURL == "" || c.SessionURL == "") {
		return errors.New("не указан URL сервера (--server-url или " + EnvServerURL + ")")
	}
	return nil
}

// Endpoints возвращает адреса эндпоинтов. Явно заданные URL имеют приоритет
// над построенными от ServerURL.
func (c *Config) Endpoints() (api.Endpoints, error) {
	var endpoints api.Endpoints
	if c.ServerURL != "" {
		var err error
		endpoints, err = api.EndpointsFromBase(c.ServerURL)
		if err != nil {
			return api.Endpoints{}, err
		}
	}
	if c.AccountURL != "" {
		endpoints.AccountURL = c.AccountURL
	}
	if c.SessionURL != "" {
		endpoints.SessionURL = c.SessionURL
	}
	return endpoints, nil
}
