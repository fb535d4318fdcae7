package session

import (
	"context"
	"errors"

	"github.com/gotd/td/tg"
)

var (
	// ErrPasswordNeeded — у аккаунта включена двухфакторная защита, нужен пароль.
	ErrPasswordNeeded = errors.New("2FA password required")
	// ErrAlreadyAuthorized — код не нужен, сессия уже авторизована.
	ErrAlreadyAuthorized = errors.New("already authorized")
)

// Prompt запрашивает у человека данные для входа. Реализация определяет,
// откуда они берутся: консоль, HTTP, заранее заданные значения.
type Prompt interface {
	RequestPhone(ctx context.Context) (string, error)
	RequestCode(ctx context.Context) (string, error)
	RequestPassword(ctx context.Context) (string, error)
}

// Network — примитивы сети сообщений, которые использует Manager.
type Network interface {
	// Connect устанавливает соединение, используя сохранённую сессию (может быть пустой).
	Connect(ctx context.Context, credential string) error
	// Alive сообщает, живо ли соединение.
	Alive() bool
	Authorized(ctx context.Context) (bool, error)
	SendCode(ctx context.Context, phone string) (codeHash string, err error)
	SignIn(ctx context.Context, phone, code, codeHash string) error
	Password(ctx context.Context, password string) error
	// Credential выгружает текущую сессию в виде строки.
	Credential() string
	ResolveChannel(ctx context.Context, identifier string) (*tg.Channel, error)
	History(ctx context.Context, channel *tg.Channel, limit int) ([]tg.MessageClass, error)
	Join(ctx context.Context, channel *tg.Channel) error
	FullChannel(ctx context.Context, channel *tg.Channel) (*tg.ChannelFull, error)
	Disconnect() error
}
