package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultServerPort = "8080"
	defaultTokenTTL   = 24 * time.Hour

	// Переменные окружения.
	envServerPort    = "SERVER_PORT"
	envTLSCertFile   = "TLS_CERT_FILE"
	envTLSKeyFile    = "TLS_KEY_FILE"
	envDatabaseDSN   = "DATABASE_DSN"
	envJWTSecret     = "JWT_SECRET" //nolint:gosec // Имя переменной окружения, а не секрет
	envTokenTTL      = "TOKEN_TTL"
	envRedisAddr     = "REDIS_ADDR"
	envRedisPassword = "REDIS_PASSWORD" //nolint:gosec // Имя переменной окружения, а не секрет
	envCORSOrigins   = "CORS_ORIGINS"
)

// config хранит конфигурацию сервера.
type config struct {
	Port          string
	CertFile      string
	KeyFile       string
	DatabaseDSN   string
	JWTSecret     string
	TokenTTL      time.Duration
	RedisAddr     string // Пустой адрес - отозванные сессии хранятся в памяти
	RedisPassword string
	CORSOrigins   []string
}

// TLSEnabled сообщает, заданы ли сертификат и ключ.
func (c *config) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// parseFlags разбирает флаги и переменные окружения, возвращает config или ошибку.
// Флаги имеют приоритет над переменными окружения.
func parseFlags(args []string) (*config, error) {
	cfg := &config{}
	var tokenTTL, corsOrigins string

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", "",
		fmt.Sprintf("Порт для запуска сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	fs.StringVar(&cfg.CertFile, "cert-file", "",
		fmt.Sprintf("Путь к файлу TLS-сертификата (env: %s)", envTLSCertFile))
	fs.StringVar(&cfg.KeyFile, "key-file", "",
		fmt.Sprintf("Путь к файлу TLS-ключа (env: %s)", envTLSKeyFile))
	fs.StringVar(&cfg.DatabaseDSN, "database-dsn", "",
		fmt.Sprintf("Строка подключения к базе данных (env: %s)", envDatabaseDSN))
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "",
		fmt.Sprintf("Секрет подписи токенов (env: %s)", envJWTSecret))
	fs.StringVar(&tokenTTL, "token-ttl", "",
		fmt.Sprintf("Время жизни токена (env: %s, default: %s)", envTokenTTL, defaultTokenTTL))
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "",
		fmt.Sprintf("Адрес Redis для отозванных сессий (env: %s)", envRedisAddr))
	fs.StringVar(&corsOrigins, "cors-origins", "",
		fmt.Sprintf("Разрешенные CORS источники через запятую (env: %s)", envCORSOrigins))

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("ошибка разбора флагов: %w", err)
	}

	// Применяем переменные окружения, если флаги не заданы
	lookupEnv(&cfg.Port, envServerPort)
	lookupEnv(&cfg.CertFile, envTLSCertFile)
	lookupEnv(&cfg.KeyFile, envTLSKeyFile)
	lookupEnv(&cfg.DatabaseDSN, envDatabaseDSN)
	lookupEnv(&cfg.JWTSecret, envJWTSecret)
	lookupEnv(&tokenTTL, envTokenTTL)
	lookupEnv(&cfg.RedisAddr, envRedisAddr)
	lookupEnv(&corsOrigins, envCORSOrigins)
	cfg.RedisPassword = os.Getenv(envRedisPassword)

	if cfg.Port == "" {
		cfg.Port = defaultServerPort
	}
	cfg.TokenTTL = defaultTokenTTL
	if tokenTTL != "" {
		ttl, err := time.ParseDuration(tokenTTL)
		if err != nil {
			return nil, fmt.Errorf("неверное время жизни токена %q: %w", tokenTTL, err)
		}
		if ttl <= 0 {
			return nil, errors.New("время жизни токена должно быть положительным")
		}
		cfg.TokenTTL = ttl
	}
	for _, origin := range strings.Split(corsOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	// Проверяем обязательные параметры
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, errors.New("TLS требует и сертификат (--cert-file или " + envTLSCertFile +
			"), и ключ (--key-file или " + envTLSKeyFile + ")")
	}
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("не указан секрет подписи токенов (--jwt-secret или " + envJWTSecret + ")")
	}

	return cfg, nil
}

// lookupEnv подставляет значение переменной окружения, если target еще пуст.
func lookupEnv(target *string, key string) {
	if *target != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok {
		*target = value
	}
}
