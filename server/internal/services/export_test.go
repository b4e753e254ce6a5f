package services

import "time"

// SetClock подменяет часы менеджера токенов в тестах.
func (m *TokenManager) SetClock(now func() time.Time) {
	m.now = now
}
