package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/maynagashev/idealvisual/server/internal/handlers"
	appmiddleware "github.com/maynagashev/idealvisual/server/internal/middleware"
	"github.com/maynagashev/idealvisual/server/internal/repository"
	"github.com/maynagashev/idealvisual/server/internal/services"
	"github.com/maynagashev/idealvisual/server/internal/storage"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	corsMaxAge             = 300
)

// Файлы .env, которые ищутся при запуске, по порядку.
var envFiles = []string{".env", "../.env", "../../.env"} //nolint:gochecknoglobals // Список путей поиска

// Подменяются в тестах.
var (
	newPostgresDB  = repository.NewPostgresDB //nolint:gochecknoglobals // Точка подмены для тестов
	migrate        = repository.Migrate       //nolint:gochecknoglobals // Точка подмены для тестов
	newRedisClient = storage.NewRedisClient   //nolint:gochecknoglobals // Точка подмены для тестов
)

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db          *sqlx.DB
	redis       *redis.Client // nil, если Redis не настроен
	authService services.AuthService
	authHandler *handlers.AuthHandler
}

// Close закрывает соединения с БД и Redis.
func (d *dependencies) Close() {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Printf("Ошибка закрытия соединения с Redis: %v", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Printf("Ошибка закрытия соединения с БД: %v", err)
		}
	}
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск сервера IdealVisual...")
	loadDotEnv()

	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setupDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	defer deps.Close()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      setupRouter(deps.authHandler, deps.authService, cfg.CORSOrigins),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	go func() {
		<-ctx.Done()
		log.Println("Остановка сервера...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Printf("Ошибка остановки сервера: %v", shutdownErr)
		}
	}()

	if cfg.TLSEnabled() {
		log.Printf("Запуск HTTPS-сервера на порту %s (сертификат: %s, ключ: %s)", cfg.Port, cfg.CertFile, cfg.KeyFile)
		err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	} else {
		log.Printf("Запуск HTTP-сервера на порту %s", cfg.Port)
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка запуска сервера: %w", err)
	}
	return nil
}

// loadDotEnv загружает первый найденный файл .env.
func loadDotEnv() {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err == nil {
			log.Printf("Загружен файл с переменными окружения: %s", file)
			return
		}
	}
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(ctx context.Context, cfg *config) (*dependencies, error) {
	deps := &dependencies{}
	var err error

	// 1. Подключение к БД и схема
	deps.db, err = newPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}
	if err = migrate(ctx, deps.db); err != nil {
		deps.Close()
		return nil, err
	}

	// 2. Хранилище отозванных сессий
	var revoked storage.RevocationStore
	if cfg.RedisAddr != "" {
		deps.redis, err = newRedisClient(ctx, storage.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("ошибка инициализации Redis: %w", err)
		}
		revoked = storage.NewRedisRevocationStore(deps.redis)
		log.Printf("Отозванные сессии хранятся в Redis %s", cfg.RedisAddr)
	} else {
		revoked = storage.NewMemoryRevocationStore()
		log.Println("Redis не настроен, отозванные сессии хранятся в памяти")
	}

	// 3. Репозиторий, сервис, обработчики
	userRepo := repository.NewPostgresUserRepository(deps.db)
	tokens := services.NewTokenManager(cfg.JWTSecret, services.DefaultIssuer, cfg.TokenTTL)
	deps.authService = services.NewAuthService(userRepo, revoked, tokens)
	deps.authHandler = handlers.NewAuthHandler(deps.authService)

	return deps, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(
	authHandler *handlers.AuthHandler,
	verifier appmiddleware.TokenVerifier,
	corsOrigins []string,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         corsMaxAge,
		}))
	}

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	r.Route("/api", func(r chi.Router) {
		// Публичные маршруты (регистрация, вход)
		r.Post("/account", authHandler.Register)
		r.Post("/session", authHandler.Login)

		// Приватные маршруты (требуют действующей сессии)
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Authenticator(verifier))
			r.Put("/account", authHandler.Update)
			r.Delete("/session", authHandler.Logout)
		})
	})
	return r
}
