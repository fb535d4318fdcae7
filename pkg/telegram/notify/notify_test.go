package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

type fakeSender struct {
	resolveErr error
	fail       []error
	sent       []*tg.MessagesSendMessageRequest
	calls      int
}

func (f *fakeSender) ResolvePeer(_ context.Context, chatRef string) (tg.InputPeerClass, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	peer, _, err := ParsePeer(chatRef)
	return peer, err
}

func (f *fakeSender) Send(_ context.Context, req *tg.MessagesSendMessageRequest) error {
	f.calls++
	if len(f.fail) > 0 {
		err := f.fail[0]
		f.fail = f.fail[1:]
		return err
	}
	f.sent = append(f.sent, req)
	return nil
}

func newTestNotifier(s Sender) *Notifier {
	return New(s, nil).WithRetry(DefaultAttempts, 0)
}

func TestSendMessageOptions(t *testing.T) {
	s := &fakeSender{}
	newTestNotifier(s).SendMessage(context.Background(), "42", "hello", &Options{NoWebpage: true, Silent: true})

	if len(s.sent) != 1 {
		t.Fatalf("ожидалось одно сообщение, получено %d", len(s.sent))
	}
	req := s.sent[0]
	if req.Message != "hello" || !req.NoWebpage || !req.Silent {
		t.Fatalf("неверный запрос: %+v", req)
	}
	if peer, ok := req.Peer.(*tg.InputPeerUser); !ok || peer.UserID != 42 {
		t.Fatalf("неожиданный peer: %#v", req.Peer)
	}
}

func TestSendMessageRetriesTransient(t *testing.T) {
	s := &fakeSender{fail: []error{errors.New("connection reset"), errors.New("connection reset")}}
	newTestNotifier(s).SendMessage(context.Background(), "42", "hello", nil)
	if s.calls != 3 || len(s.sent) != 1 {
		t.Fatalf("ожидалась доставка с третьей попытки: вызовов %d, отправлено %d", s.calls, len(s.sent))
	}
}

func TestSendMessageGivesUp(t *testing.T) {
	fail := errors.New("timeout")
	s := &fakeSender{fail: []error{fail, fail, fail, fail}}
	// Ошибка не должна всплывать к вызывающему
	newTestNotifier(s).SendMessage(context.Background(), "42", "hello", nil)
	if s.calls != DefaultAttempts || len(s.sent) != 0 {
		t.Fatalf("ожидалось %d попыток, получено %d", DefaultAttempts, s.calls)
	}
}

func TestSendMessageBadRequestNotRetried(t *testing.T) {
	s := &fakeSender{fail: []error{tgerr.New(400, "PEER_ID_INVALID")}}
	newTestNotifier(s).SendMessage(context.Background(), "42", "hello", nil)
	if s.calls != 1 {
		t.Fatalf("ожидалась одна попытка, получено %d", s.calls)
	}
}

func TestSendMessageUnknownRecipient(t *testing.T) {
	s := &fakeSender{resolveErr: errors.New("USERNAME_NOT_OCCUPIED")}
	newTestNotifier(s).SendMessage(context.Background(), "@nobody", "hello", nil)
	if s.calls != 0 {
		t.Fatalf("отправка не ожидалась, вызовов %d", s.calls)
	}
}

func TestSendMessageSplitsLongText(t *testing.T) {
	line := strings.Repeat("a", 99) + "\n"
	text := strings.Repeat(line, 50) // 5000 символов
	s := &fakeSender{}
	newTestNotifier(s).SendMessage(context.Background(), "42", text, nil)

	if len(s.sent) != 2 {
		t.Fatalf("ожидалось 2 части, получено %d", len(s.sent))
	}
	var joined strings.Builder
	for _, req := range s.sent {
		if n := utf8.RuneCountInString(req.Message); n > MaxMessageLength {
			t.Fatalf("слишком длинная часть: %d", n)
		}
		joined.WriteString(req.Message)
	}
	if joined.String() != text {
		t.Fatal("части не складываются в исходный текст")
	}
	if !strings.HasSuffix(s.sent[0].Message, "\n") {
		t.Fatal("ожидалось деление по переводу строки")
	}
}

func TestParsePeer(t *testing.T) {
	peer, _, err := ParsePeer("-1001234")
	if err != nil {
		t.Fatal(err)
	}
	if ch, ok := peer.(*tg.InputPeerChannel); !ok || ch.ChannelID != 1234 {
		t.Fatalf("неожиданный peer канала: %#v", peer)
	}

	peer, _, _ = ParsePeer("-55")
	if chat, ok := peer.(*tg.InputPeerChat); !ok || chat.ChatID != 55 {
		t.Fatalf("неожиданный peer группы: %#v", peer)
	}

	peer, username, err := ParsePeer("@digest_owner")
	if err != nil || peer != nil || username != "digest_owner" {
		t.Fatalf("неверный разбор username: %v %q %v", peer, username, err)
	}

	for _, bad := range []string{"", "@", "0"} {
		if _, _, err := ParsePeer(bad); err == nil {
			t.Fatalf("%q: ожидалась ошибка", bad)
		}
	}
}
