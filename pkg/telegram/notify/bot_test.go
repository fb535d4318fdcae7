package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgclient "tgdigest_go/pkg/telegram"

	"github.com/gotd/td/bin"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
)

// recordInvoker запоминает отправленные сообщения вместо обращения к Telegram.
type recordInvoker struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordInvoker) Invoke(_ context.Context, input bin.Encoder, _ bin.Decoder) error {
	req, ok := input.(*tg.MessagesSendMessageRequest)
	if !ok {
		return errors.New("unexpected request")
	}
	r.mu.Lock()
	r.sent = append(r.sent, req.Message)
	r.mu.Unlock()
	return nil
}

func TestBotReconnectsAfterDrop(t *testing.T) {
	inv := &recordInvoker{}
	var conns []*tgclient.Connection
	dial := func(context.Context) (*tgclient.Connection, error) {
		conn := tgclient.NewConnection(tg.NewClient(inv))
		conns = append(conns, conn)
		return conn, nil
	}
	bot, err := newBot(context.Background(), dial, zap.NewNop())
	if err != nil {
		t.Fatalf("ошибка запуска бота: %v", err)
	}
	defer bot.Close()

	_ = conns[0].Close()
	req := &tg.MessagesSendMessageRequest{Peer: &tg.InputPeerUser{UserID: 42}, Message: "digest", RandomID: 1}
	if err := bot.Send(context.Background(), req); err != nil {
		t.Fatalf("после обрыва ожидалась доставка, получена ошибка: %v", err)
	}
	if len(conns) != 2 {
		t.Fatalf("ожидалось переподключение, подключений: %d", len(conns))
	}

	// Живое соединение используется повторно
	if err := bot.Send(context.Background(), req); err != nil {
		t.Fatalf("ошибка отправки: %v", err)
	}
	if len(conns) != 2 {
		t.Fatalf("лишнее переподключение, подключений: %d", len(conns))
	}
	if len(inv.sent) != 2 || inv.sent[0] != "digest" {
		t.Fatalf("неверные отправленные сообщения: %v", inv.sent)
	}
}

func TestBotReconnectFailure(t *testing.T) {
	inv := &recordInvoker{}
	calls := 0
	dial := func(context.Context) (*tgclient.Connection, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return tgclient.NewConnection(tg.NewClient(inv)), nil
	}
	bot, err := newBot(context.Background(), dial, zap.NewNop())
	if err != nil {
		t.Fatalf("ошибка запуска бота: %v", err)
	}
	_ = bot.Close()

	req := &tg.MessagesSendMessageRequest{Peer: &tg.InputPeerUser{UserID: 42}, Message: "digest", RandomID: 1}
	if err := bot.Send(context.Background(), req); err == nil {
		t.Fatal("ожидалась ошибка переподключения")
	}
	if len(inv.sent) != 0 {
		t.Fatalf("сообщения не должны были уйти: %v", inv.sent)
	}
}
