package storage

import "time"

// SetClock подменяет часы хранилища в тестах.
func (s *MemoryRevocationStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Len возвращает число хранимых записей.
func (s *MemoryRevocationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.revoked)
}
