package telegram

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/gotd/td/session"
)

// CredentialSession хранит сессию gotd в памяти и умеет выгружать её
// в виде строки base64, которую сохраняет хранилище учётных данных.
type CredentialSession struct {
	mu   sync.RWMutex
	data []byte
}

// NewCredentialSession создаёт хранилище из сохранённой строки. Пустая строка — новая сессия.
func NewCredentialSession(credential string) (*CredentialSession, error) {
	s := &CredentialSession{}
	if credential == "" {
		return s, nil
	}
	data, err := base64.StdEncoding.DecodeString(credential)
	if err != nil {
		return s, fmt.Errorf("decode credential: %w", err)
	}
	s.data = data
	return s, nil
}

// LoadSession отдаёт текущие данные сессии.
func (s *CredentialSession) LoadSession(context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.data) == 0 {
		return nil, session.ErrNotFound
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// StoreSession вызывается клиентом при каждом изменении сессии.
func (s *CredentialSession) StoreSession(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data[:0:0], data...)
	return nil
}

// Credential возвращает сессию в виде строки. Пустая строка — сессии ещё нет.
func (s *CredentialSession) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(s.data)
}
