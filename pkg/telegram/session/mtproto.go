package session

import (
	"context"
	"sync"

	tgclient "tgdigest_go/pkg/telegram"

	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"
)

// dialogsLimit — сколько диалогов просматривается при поиске канала по числовому ID.
const dialogsLimit = 100

var _ Network = (*MTProto)(nil)

// MTProto — реализация Network поверх клиента gotd.
type MTProto struct {
	opts tgclient.ClientOptions
	log  *zap.Logger

	mu       sync.Mutex
	conn     *tgclient.Connection
	storage  *tgclient.CredentialSession
	channels map[string]*tg.Channel
}

// NewMTProto создаёт сеть с параметрами клиента. Storage в opts игнорируется:
// сессия всегда берётся из строки, переданной в Connect.
func NewMTProto(opts tgclient.ClientOptions, log *zap.Logger) *MTProto {
	if log == nil {
		log = zap.NewNop()
	}
	return &MTProto{opts: opts, log: log, channels: make(map[string]*tg.Channel)}
}

func (n *MTProto) Connect(ctx context.Context, credential string) error {
	storage, err := tgclient.NewCredentialSession(credential)
	if err != nil {
		// Строку не разобрать, подключаемся без неё и проходим вход заново
		n.log.Warn("сохранённая сессия повреждена", zap.Error(err))
	}
	opts := n.opts
	opts.Storage = storage
	opts.Logger = n.log.Named("gotd")
	client, err := tgclient.NewClient(opts)
	if err != nil {
		return errors.Wrap(err, "create client")
	}
	conn, err := tgclient.Connect(ctx, client, nil)
	if err != nil {
		return errors.Wrap(err, "connect")
	}

	n.mu.Lock()
	n.conn = conn
	n.storage = storage
	n.channels = make(map[string]*tg.Channel)
	n.mu.Unlock()
	return nil
}

func (n *MTProto) current() (*tgclient.Connection, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil || !n.conn.Alive() {
		return nil, ErrNotConnected
	}
	return n.conn, nil
}

func (n *MTProto) Alive() bool {
	_, err := n.current()
	return err == nil
}

func (n *MTProto) Authorized(ctx context.Context) (bool, error) {
	conn, err := n.current()
	if err != nil {
		return false, err
	}
	status, err := conn.Client.Auth().Status(ctx)
	if err != nil {
		return false, errors.Wrap(err, "auth status")
	}
	return status.Authorized, nil
}

func (n *MTProto) SendCode(ctx context.Context, phone string) (string, error) {
	conn, err := n.current()
	if err != nil {
		return "", err
	}
	sent, err := conn.Client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return "", errors.Wrap(err, "send code")
	}
	switch s := sent.(type) {
	case *tg.AuthSentCode:
		return s.PhoneCodeHash, nil
	case *tg.AuthSentCodeSuccess:
		return "", ErrAlreadyAuthorized
	default:
		return "", errors.Errorf("unexpected sent code type: %T", sent)
	}
}

func (n *MTProto) SignIn(ctx context.Context, phone, code, codeHash string) error {
	conn, err := n.current()
	if err != nil {
		return err
	}
	if _, err := conn.Client.Auth().SignIn(ctx, phone, code, codeHash); err != nil {
		if errors.Is(err, auth.ErrPasswordAuthNeeded) {
			return ErrPasswordNeeded
		}
		return errors.Wrap(err, "sign in")
	}
	return nil
}

func (n *MTProto) Password(ctx context.Context, password string) error {
	conn, err := n.current()
	if err != nil {
		return err
	}
	if _, err := conn.Client.Auth().Password(ctx, password); err != nil {
		return errors.Wrap(err, "password")
	}
	return nil
}

func (n *MTProto) Credential() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.storage == nil {
		return ""
	}
	return n.storage.Credential()
}

// ResolveChannel находит канал по идентификатору. Найденные каналы кэшируются
// до следующего подключения.
func (n *MTProto) ResolveChannel(ctx context.Context, identifier string) (*tg.Channel, error) {
	ref, err := parseChannelRef(identifier)
	if err != nil {
		return nil, err
	}
	conn, err := n.current()
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	cached, ok := n.channels[ref.cacheKey()]
	n.mu.Unlock()
	if ok {
		return cached, nil
	}

	var ch *tg.Channel
	if ref.Username != "" {
		ch, err = resolveUsername(ctx, conn.API, ref.Username)
	} else {
		ch, err = findInDialogs(ctx, conn.API, ref.ID)
	}
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.channels[ref.cacheKey()] = ch
	n.mu.Unlock()
	return ch, nil
}

func resolveUsername(ctx context.Context, api *tg.Client, username string) (*tg.Channel, error) {
	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", username)
	}
	peer, ok := resolved.Peer.(*tg.PeerChannel)
	if !ok {
		return nil, errors.Errorf("%s is not a channel", username)
	}
	return findChannel(resolved.GetChats(), peer.ChannelID)
}

// findInDialogs ищет канал среди диалогов аккаунта: без access hash
// обратиться к каналу по одному только ID нельзя.
func findInDialogs(ctx context.Context, api *tg.Client, id int64) (*tg.Channel, error) {
	dialogs, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogsLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "get dialogs")
	}
	var chats []tg.ChatClass
	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		chats = d.Chats
	case *tg.MessagesDialogsSlice:
		chats = d.Chats
	default:
		return nil, errors.Errorf("unexpected dialogs type: %T", dialogs)
	}
	return findChannel(chats, id)
}

func findChannel(chats []tg.ChatClass, id int64) (*tg.Channel, error) {
	for _, chat := range chats {
		if ch, ok := chat.(*tg.Channel); ok && ch.ID == id {
			return ch, nil
		}
	}
	return nil, errors.Errorf("channel %d not found", id)
}

func inputChannel(ch *tg.Channel) *tg.InputChannel {
	return &tg.InputChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
}

// History возвращает последние сообщения канала в том порядке, в каком их отдал Telegram
// (новые первыми).
func (n *MTProto) History(ctx context.Context, ch *tg.Channel, limit int) ([]tg.MessageClass, error) {
	conn, err := n.current()
	if err != nil {
		return nil, err
	}
	history, err := conn.API.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer: &tg.InputPeerChannel{
			ChannelID:  ch.ID,
			AccessHash: ch.AccessHash,
		},
		Limit: limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "get history")
	}
	switch h := history.(type) {
	case *tg.MessagesChannelMessages:
		return h.Messages, nil
	case *tg.MessagesMessagesSlice:
		return h.Messages, nil
	case *tg.MessagesMessages:
		return h.Messages, nil
	default:
		return nil, errors.Errorf("unexpected messages type: %T", history)
	}
}

func (n *MTProto) Join(ctx context.Context, ch *tg.Channel) error {
	conn, err := n.current()
	if err != nil {
		return err
	}
	if _, err := conn.API.ChannelsJoinChannel(ctx, inputChannel(ch)); err != nil {
		if tgerr.Is(err, "USER_ALREADY_PARTICIPANT") {
			return nil
		}
		return errors.Wrap(err, "join channel")
	}
	return nil
}

func (n *MTProto) FullChannel(ctx context.Context, ch *tg.Channel) (*tg.ChannelFull, error) {
	conn, err := n.current()
	if err != nil {
		return nil, err
	}
	full, err := conn.API.ChannelsGetFullChannel(ctx, inputChannel(ch))
	if err != nil {
		return nil, errors.Wrap(err, "get full channel")
	}
	cf, ok := full.FullChat.(*tg.ChannelFull)
	if !ok {
		return nil, errors.Errorf("unexpected full chat type: %T", full.FullChat)
	}
	return cf, nil
}

func (n *MTProto) Disconnect() error {
	n.mu.Lock()
	conn := n.conn
	n.conn = nil
	n.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
