// Package notify доставляет готовые сводки владельцам каналов через бота.
package notify

import (
	"context"
	"math/rand"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"
)

const (
	// MaxMessageLength — ограничение Telegram на длину одного сообщения.
	MaxMessageLength = 4096
	DefaultAttempts  = 3
)

// Options — параметры отправки.
type Options struct {
	NoWebpage bool // Не строить превью ссылок
	Silent    bool // Без звука уведомления
}

// Sender — транспорт отправки. Bot — рабочая реализация.
type Sender interface {
	ResolvePeer(ctx context.Context, chatRef string) (tg.InputPeerClass, error)
	Send(ctx context.Context, req *tg.MessagesSendMessageRequest) error
}

// Notifier отправляет сообщения и никогда не возвращает ошибок:
// недоставленное уведомление только записывается в журнал.
type Notifier struct {
	sender     Sender
	log        *zap.Logger
	attempts   int
	retryDelay time.Duration
}

func New(sender Sender, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{sender: sender, log: log, attempts: DefaultAttempts, retryDelay: time.Second}
}

// WithRetry меняет число попыток и паузу между ними.
func (n *Notifier) WithRetry(attempts int, delay time.Duration) *Notifier {
	if attempts > 0 {
		n.attempts = attempts
	}
	n.retryDelay = delay
	return n
}

// SendMessage отправляет text в чат chatRef. Длинный текст делится на части.
func (n *Notifier) SendMessage(ctx context.Context, chatRef, text string, opts *Options) {
	log := n.log.With(zap.String("chat", chatRef))
	if opts == nil {
		opts = &Options{}
	}
	peer, err := n.sender.ResolvePeer(ctx, chatRef)
	if err != nil {
		log.Error("получатель не найден", zap.Error(err))
		return
	}

	for i, part := range splitText(text, MaxMessageLength) {
		req := &tg.MessagesSendMessageRequest{
			Peer:      peer,
			Message:   part,
			RandomID:  rand.Int63(),
			NoWebpage: opts.NoWebpage,
			Silent:    opts.Silent,
		}
		if err := n.send(ctx, req); err != nil {
			log.Error("сообщение не доставлено", zap.Int("part", i), zap.Error(err))
			return
		}
	}
	log.Debug("сообщение доставлено", zap.Int("length", utf8.RuneCountInString(text)))
}

func (n *Notifier) send(ctx context.Context, req *tg.MessagesSendMessageRequest) error {
	op := func() error {
		err := n.sender.Send(ctx, req)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(n.retryDelay), uint64(n.attempts-1)),
		ctx,
	)
	return backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		n.log.Warn("повтор отправки", zap.Duration("retry_in", next), zap.Error(err))
	})
}

// retryable: ошибки запроса (400, 403 и т.п.) повторять бессмысленно,
// FLOOD_WAIT и сбои сервера повторяем.
func retryable(err error) bool {
	rpcErr, ok := tgerr.As(err)
	if !ok {
		return true
	}
	if rpcErr.IsCode(420) {
		return true
	}
	return rpcErr.Code < 400 || rpcErr.Code >= 500
}

// splitText делит текст на части не длиннее limit символов,
// по возможности по переводу строки.
func splitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
