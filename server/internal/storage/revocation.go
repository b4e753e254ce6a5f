package storage

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore хранит идентификаторы отозванных сессий (jti токенов)
// до истечения срока действия токена.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

const revokedKeyPrefix = "revoked:"

// RedisRevocationStore реализует RevocationStore поверх Redis.
// Запись удаляется самим Redis по истечении TTL.
type RedisRevocationStore struct {
	client *redis.Client
}

// RedisConfig содержит параметры подключения к Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient создает клиент Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	log.Printf("[Storage] Подключение к Redis %s...", cfg.Addr)
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}
	return client, nil
}

// NewRedisRevocationStore создает хранилище отозванных сессий в Redis.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

// Revoke помечает сессию отозванной на ttl. Истекшую сессию отзывать не нужно.
func (s *RedisRevocationStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("ошибка отзыва сессии: %w", err)
	}
	return nil
}

// IsRevoked проверяет, отозвана ли сессия.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка проверки сессии: %w", err)
	}
	return n > 0, nil
}

// MemoryRevocationStore хранит отозванные сессии в памяти процесса.
// Используется, когда Redis не настроен; после перезапуска список теряется.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time // sessionID -> момент истечения
	now     func() time.Time
}

// NewMemoryRevocationStore создает хранилище отозванных сессий в памяти.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke помечает сессию отозванной на ttl и заодно чистит истекшие записи.
func (s *MemoryRevocationStore) Revoke(_ context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, expires := range s.revoked {
		if !now.Before(expires) {
			delete(s.revoked, id)
		}
	}
	s.revoked[sessionID] = now.Add(ttl)
	return nil
}

// IsRevoked проверяет, отозвана ли сессия.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires, ok := s.revoked[sessionID]
	return ok && s.now().Before(expires), nil
}
