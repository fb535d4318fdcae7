package session

import (
	"context"

	"tgdigest_go/pkg/credential"

	"go.uber.org/zap"
)

// EnsureConnected восстанавливает соединение после его потери: подключается
// с последней известной сессией, а если Telegram её не принял, проводит вход.
// Возвращает текущую строку сессии. Параллельные вызовы ждут друг друга.
func (m *Manager) EnsureConnected(ctx context.Context) (string, error) {
	m.login.Lock()
	defer m.login.Unlock()
	return m.ensureConnected(ctx)
}

func (m *Manager) ensureConnected(ctx context.Context) (string, error) {
	if m.Healthy() {
		return m.Credential(), nil
	}
	cred := m.Credential()
	if m.State() == StateConnected {
		m.log.Warn("соединение с Telegram потеряно, переподключаемся")
		m.setState(StateAuthenticating)
	}
	if err := m.initialize(ctx, cred); err != nil {
		return "", err
	}
	if m.State() == StateConnected {
		return m.Credential(), nil
	}
	return m.authenticate(ctx)
}

// Start доводит менеджер до Connected: берёт сессию из хранилища, если своей
// ещё нет, подключается, при необходимости проводит вход и сохраняет новую
// сессию. Ошибку возвращает только когда войти не удалось. Второй вызов,
// пришедший во время входа, дожидается его и повторно вход не начинает.
func Start(ctx context.Context, m *Manager, store credential.Store) error {
	if m.Healthy() {
		return nil
	}
	m.login.Lock()
	defer m.login.Unlock()
	if m.Healthy() {
		return nil
	}
	if m.Credential() == "" {
		stored, err := store.Load(ctx)
		if err != nil {
			// Без сохранённой сессии всё равно можно войти заново
			m.log.Warn("не удалось прочитать сохранённую сессию", zap.Error(err))
		}
		m.mu.Lock()
		m.credential = stored
		m.mu.Unlock()
	}

	fresh, err := m.ensureConnected(ctx)
	if err != nil {
		return err
	}
	written, err := credential.SaveIfChanged(ctx, store, fresh)
	if err != nil {
		// Соединение есть, но после перезапуска придётся входить снова
		m.log.Error("новая сессия не сохранена", zap.Error(err))
		return nil
	}
	if written {
		m.log.Info("новая сессия сохранена")
	}
	return nil
}
