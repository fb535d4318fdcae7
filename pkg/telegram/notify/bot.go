package notify

import (
	"context"
	"sync"

	tgclient "tgdigest_go/pkg/telegram"

	"github.com/go-faster/errors"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
)

var _ Sender = (*Bot)(nil)

// Bot — отправитель через бота Telegram (MTProto, вход по токену).
type Bot struct {
	dial func(ctx context.Context) (*tgclient.Connection, error)
	log  *zap.Logger

	connMu sync.Mutex
	conn   *tgclient.Connection

	mu    sync.Mutex
	peers map[string]tg.InputPeerClass
}

// StartBot подключается и авторизуется токеном бота. Сессия бота хранится
// только в памяти: вход по токену повторяется при каждом запуске и после
// каждого обрыва соединения.
func StartBot(ctx context.Context, opts tgclient.ClientOptions, token string) (*Bot, error) {
	if token == "" {
		return nil, errors.New("bot token is empty")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger
	opts.Logger = log.Named("gotd")
	opts.Storage = nil
	dial := func(ctx context.Context) (*tgclient.Connection, error) {
		client, err := tgclient.NewClient(opts)
		if err != nil {
			return nil, errors.Wrap(err, "create bot client")
		}
		return tgclient.Connect(ctx, client, func(ctx context.Context, _ *tg.Client) error {
			status, err := client.Auth().Status(ctx)
			if err != nil {
				return errors.Wrap(err, "auth status")
			}
			if status.Authorized {
				return nil
			}
			if _, err := client.Auth().Bot(ctx, token); err != nil {
				return errors.Wrap(err, "bot auth")
			}
			return nil
		})
	}
	b, err := newBot(ctx, dial, log)
	if err != nil {
		return nil, err
	}
	log.Info("бот подключен")
	return b, nil
}

func newBot(ctx context.Context, dial func(ctx context.Context) (*tgclient.Connection, error), log *zap.Logger) (*Bot, error) {
	conn, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	return &Bot{dial: dial, log: log, conn: conn, peers: make(map[string]tg.InputPeerClass)}, nil
}

// api возвращает клиент живого соединения, при обрыве подключается заново.
func (b *Bot) api(ctx context.Context) (*tg.Client, error) {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	if b.conn != nil && b.conn.Alive() {
		return b.conn.API, nil
	}
	if b.conn != nil {
		b.log.Warn("соединение бота потеряно, переподключаемся", zap.Error(b.conn.Err()))
		_ = b.conn.Close()
		b.conn = nil
	}
	conn, err := b.dial(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "bot reconnect")
	}
	b.conn = conn
	b.log.Info("бот переподключен")
	return conn.API, nil
}

func (b *Bot) ResolvePeer(ctx context.Context, chatRef string) (tg.InputPeerClass, error) {
	peer, username, err := ParsePeer(chatRef)
	if err != nil {
		return nil, err
	}
	if peer != nil {
		return peer, nil
	}

	b.mu.Lock()
	cached, ok := b.peers[username]
	b.mu.Unlock()
	if ok {
		return cached, nil
	}
	api, err := b.api(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", username)
	}
	peer, err = inputPeerFromResolved(resolved)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.peers[username] = peer
	b.mu.Unlock()
	return peer, nil
}

func (b *Bot) Send(ctx context.Context, req *tg.MessagesSendMessageRequest) error {
	api, err := b.api(ctx)
	if err != nil {
		return err
	}
	if _, err := api.MessagesSendMessage(ctx, req); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}

func (b *Bot) Close() error {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
