// Package session держит единственное авторизованное соединение с Telegram
// и скрывает от вызывающих процесс входа.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tgdigest_go/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
)

// DefaultMaxAttempts — сколько раз целиком повторяется вход, прежде чем сдаться.
const DefaultMaxAttempts = 3

var (
	ErrAuthFailed   = errors.New("telegram authentication failed")
	ErrNotConnected = errors.New("telegram session is not connected")
)

// Config — параметры входа.
type Config struct {
	MaxAttempts   int
	RetryDelay    time.Duration // Пауза между попытками входа
	PromptTimeout time.Duration // Ограничение на каждый запрос к Prompt, 0 — без ограничения
}

// Manager владеет соединением с Telegram. Один экземпляр на процесс.
type Manager struct {
	net    Network
	prompt Prompt
	log    *zap.Logger
	cfg    Config

	// login не даёт двум входам идти одновременно на одном соединении.
	login sync.Mutex

	mu         sync.RWMutex
	state      State
	credential string
}

func NewManager(net Network, prompt Prompt, log *zap.Logger, cfg Config) *Manager {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{net: net, prompt: prompt, log: log, cfg: cfg}
}

// State возвращает текущее состояние.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Credential возвращает последнюю известную строку сессии.
func (m *Manager) Credential() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.credential
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	if prev != s {
		m.log.Info("смена состояния сессии", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// Initialize подключается с сохранённой сессией. Если сессия пустая или
// Telegram её не принимает, менеджер переходит в Authenticating и ждёт Authenticate.
// Если проверить сессию не удалось, она сохраняется, менеджер переходит в Failed.
func (m *Manager) Initialize(ctx context.Context, credential string) error {
	m.login.Lock()
	defer m.login.Unlock()
	return m.initialize(ctx, credential)
}

func (m *Manager) initialize(ctx context.Context, credential string) error {
	if m.net.Alive() {
		_ = m.net.Disconnect()
	}
	if err := m.net.Connect(ctx, credential); err != nil {
		if credential == "" {
			m.setState(StateFailed)
			return fmt.Errorf("connect: %w", err)
		}
		// Битая сессия может не дать даже подключиться, пробуем начисто.
		m.log.Warn("не удалось подключиться с сохранённой сессией", zap.Error(err))
		if err := m.net.Connect(ctx, ""); err != nil {
			m.setState(StateFailed)
			return fmt.Errorf("connect: %w", err)
		}
		m.setState(StateAuthenticating)
		return nil
	}

	if credential == "" {
		m.setState(StateAuthenticating)
		return nil
	}

	ok, err := m.net.Authorized(ctx)
	if err != nil {
		// Сбой сети не значит, что сессия плохая: оставляем её для следующей попытки
		m.mu.Lock()
		m.credential = credential
		m.mu.Unlock()
		_ = m.net.Disconnect()
		m.setState(StateFailed)
		return fmt.Errorf("check session: %w", err)
	}
	if !ok {
		m.log.Warn("сохранённая сессия отклонена")
		// Ключ отклонённой сессии больше не нужен, вход начинаем с чистого соединения.
		_ = m.net.Disconnect()
		if err := m.net.Connect(ctx, ""); err != nil {
			m.setState(StateFailed)
			return fmt.Errorf("connect: %w", err)
		}
		m.setState(StateAuthenticating)
		return nil
	}

	m.mu.Lock()
	m.credential = credential
	m.mu.Unlock()
	m.setState(StateConnected)
	return nil
}

// Authenticate проводит вход: телефон, код, при необходимости пароль.
// Вход целиком повторяется до MaxAttempts раз, после чего менеджер
// переходит в Failed и возвращает ErrAuthFailed. При успехе возвращает
// новую строку сессии; сохранять её должен вызывающий.
func (m *Manager) Authenticate(ctx context.Context) (string, error) {
	m.login.Lock()
	defer m.login.Unlock()
	return m.authenticate(ctx)
}

func (m *Manager) authenticate(ctx context.Context) (string, error) {
	if m.prompt == nil {
		m.setState(StateFailed)
		return "", fmt.Errorf("%w: no prompt configured", ErrAuthFailed)
	}
	m.setState(StateAuthenticating)
	if !m.net.Alive() {
		if err := m.net.Connect(ctx, ""); err != nil {
			m.setState(StateFailed)
			return "", fmt.Errorf("%w: connect: %w", ErrAuthFailed, err)
		}
	}

	attempts := 0
	op := func() error {
		attempts++
		err := m.handshake(ctx)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.cfg.RetryDelay), uint64(m.cfg.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		m.log.Warn("попытка входа не удалась",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", m.cfg.MaxAttempts),
			zap.Duration("retry_in", next),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		m.setState(StateFailed)
		m.log.Error("вход в Telegram не выполнен", zap.Int("attempts", attempts), zap.Error(err))
		return "", fmt.Errorf("%w after %d attempts: %w", ErrAuthFailed, attempts, err)
	}

	credential := m.net.Credential()
	m.mu.Lock()
	m.credential = credential
	m.mu.Unlock()
	m.setState(StateConnected)
	m.log.Info("вход в Telegram выполнен", zap.Int("attempts", attempts))
	return credential, nil
}

// handshake — одна попытка входа.
func (m *Manager) handshake(ctx context.Context) error {
	phone, err := m.ask(ctx, "phone", m.prompt.RequestPhone)
	if err != nil {
		return err
	}
	codeHash, err := m.net.SendCode(ctx, phone)
	if errors.Is(err, ErrAlreadyAuthorized) {
		return m.checkCredential()
	}
	if err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	code, err := m.ask(ctx, "code", m.prompt.RequestCode)
	if err != nil {
		return err
	}

	err = m.net.SignIn(ctx, phone, code, codeHash)
	if errors.Is(err, ErrPasswordNeeded) {
		password, perr := m.ask(ctx, "password", m.prompt.RequestPassword)
		if perr != nil {
			return perr
		}
		err = m.net.Password(ctx, password)
	}
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	return m.checkCredential()
}

func (m *Manager) checkCredential() error {
	if m.net.Credential() == "" {
		return errors.New("empty session after sign in")
	}
	return nil
}

// ask запрашивает одно значение у Prompt с ограничением по времени.
func (m *Manager) ask(ctx context.Context, what string, request func(context.Context) (string, error)) (string, error) {
	if m.cfg.PromptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.PromptTimeout)
		defer cancel()
	}
	v, err := request(ctx)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", what, err)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("request %s: empty value", what)
	}
	return v, nil
}

// Healthy сообщает, можно ли сейчас забирать сообщения.
func (m *Manager) Healthy() bool {
	return m.State() == StateConnected && m.net.Alive()
}

// GetMessages возвращает до limit последних сообщений канала.
// Любая ошибка (нет соединения, канал не найден, сбой сети) даёт пустой
// результат: сбой одного канала не должен прерывать обработку остальных.
func (m *Manager) GetMessages(ctx context.Context, channelID string, limit int) []models.RawMessage {
	log := m.log.With(zap.String("channel", channelID))
	if !m.Healthy() {
		log.Warn("сообщения не получены", zap.Error(ErrNotConnected), zap.Stringer("state", m.State()))
		return nil
	}
	ch, err := m.net.ResolveChannel(ctx, channelID)
	if err != nil {
		log.Warn("канал не найден", zap.Error(err))
		return nil
	}
	history, err := m.net.History(ctx, ch, limit)
	if err != nil {
		log.Warn("ошибка получения истории", zap.Error(err))
		return nil
	}

	messages := make([]models.RawMessage, 0, len(history))
	for _, item := range history {
		msg, ok := item.(*tg.Message)
		if !ok {
			// Служебные и пустые сообщения в дайджест не попадают
			continue
		}
		messages = append(messages, normalizeMessage(msg))
	}
	log.Debug("сообщения получены", zap.Int("count", len(messages)))
	return messages
}

// JoinChannel подписывает аккаунт на канал. false при любой ошибке.
func (m *Manager) JoinChannel(ctx context.Context, identifier string) bool {
	log := m.log.With(zap.String("channel", identifier))
	if !m.Healthy() {
		log.Warn("подписка не выполнена", zap.Error(ErrNotConnected))
		return false
	}
	ch, err := m.net.ResolveChannel(ctx, identifier)
	if err != nil {
		log.Warn("канал не найден", zap.Error(err))
		return false
	}
	if err := m.net.Join(ctx, ch); err != nil {
		log.Warn("ошибка подписки", zap.Error(err))
		return false
	}
	log.Info("подписка на канал выполнена")
	return true
}

// GetChannelInfo возвращает сведения о канале или nil при любой ошибке.
func (m *Manager) GetChannelInfo(ctx context.Context, identifier string) *models.ChannelInfo {
	log := m.log.With(zap.String("channel", identifier))
	if !m.Healthy() {
		log.Warn("сведения о канале не получены", zap.Error(ErrNotConnected))
		return nil
	}
	ch, err := m.net.ResolveChannel(ctx, identifier)
	if err != nil {
		log.Warn("канал не найден", zap.Error(err))
		return nil
	}
	info := &models.ChannelInfo{ID: ch.ID, Title: ch.Title, Username: ch.Username}
	full, err := m.net.FullChannel(ctx, ch)
	if err != nil {
		log.Warn("ошибка получения полных сведений", zap.Error(err))
		return nil
	}
	info.About = full.About
	if n, ok := full.GetParticipantsCount(); ok {
		info.ParticipantsCount = n
	}
	return info
}

// Close закрывает соединение.
func (m *Manager) Close() error {
	m.setState(StateUninitialized)
	return m.net.Disconnect()
}
