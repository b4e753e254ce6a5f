// Package session хранит токен и данные пользователя CLI между запусками.
// Клиент учетных записей токены не хранит, это делает вызывающая сторона.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/maynagashev/idealvisual/models"
)

const (
	filePermissions = 0o600
	lockRetryDelay  = 50 * time.Millisecond
)

// ErrNoSession возвращается, если сохраненной сессии нет.
var ErrNoSession = errors.New("сессия не найдена, выполните вход")

// Session - сохраненная сессия пользователя.
type Session struct {
	Token   string      `json:"token"`
	User    models.User `json:"user"`
	SavedAt time.Time   `json:"saved_at"`
}

// Store читает и пишет файл сессии под файловой блокировкой, чтобы
// параллельно запущенные команды не портили файл.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore создает хранилище для файла path. Рядом создается path.lock.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path возвращает путь к файлу сессии.
func (s *Store) Path() string {
	return s.path
}

// Load читает сессию.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	locked, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("ошибка блокировки файла сессии: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("не удалось заблокировать файл сессии %s", s.path)
	}
	defer s.unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("ошибка чтения файла сессии: %w", err)
	}

	var sess Session
	if err = json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("ошибка декодирования файла сессии: %w", err)
	}
	if sess.Token == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// Save сохраняет сессию. Пароль пользователя в файл не попадает.
func (s *Store) Save(ctx context.Context, token string, user models.User) error {
	if token == "" {
		return errors.New("пустой токен сессии")
	}
	sess := Session{
		Token:   token,
		User:    user.Public(),
		SavedAt: time.Now().UTC(),
	}
	sess.User.Token = ""

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка кодирования сессии: %w", err)
	}

	if err = s.writeLocked(ctx, func() error {
		return writeFileAtomic(s.path, data)
	}); err != nil {
		return err
	}
	slog.Debug("Сессия сохранена", "path", s.path, "username", user.Username)
	return nil
}

// Clear удаляет сессию. Отсутствие файла ошибкой не считается.
func (s *Store) Clear(ctx context.Context) error {
	return s.writeLocked(ctx, func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("ошибка удаления файла сессии: %w", err)
		}
		return nil
	})
}

func (s *Store) writeLocked(ctx context.Context, fn func() error) error {
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("ошибка блокировки файла сессии: %w", err)
	}
	if !locked {
		return fmt.Errorf("не удалось заблокировать файл сессии %s", s.path)
	}
	defer s.unlock()
	return fn()
}

func (s *Store) unlock() {
	if err := s.lock.Unlock(); err != nil {
		slog.Warn("Не удалось снять блокировку файла сессии", "path", s.path, "error", err)
	}
}

// writeFileAtomic пишет во временный файл и переименовывает его.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // После успешного Rename файла уже нет

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи файла сессии: %w", err)
	}
	if err = tmp.Chmod(filePermissions); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка установки прав файла сессии: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия файла сессии: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("ошибка сохранения файла сессии: %w", err)
	}
	return nil
}
