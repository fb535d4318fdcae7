package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gotd/td/tg"
)

// ParsePeer разбирает ссылку на чат. Числа трактуются как в Bot API:
// положительное — пользователь, -100… — канал или супергруппа,
// прочие отрицательные — обычная группа. Иначе ссылка считается username.
func ParsePeer(chatRef string) (peer tg.InputPeerClass, username string, err error) {
	ref := strings.TrimSpace(chatRef)
	if ref == "" {
		return nil, "", fmt.Errorf("empty chat reference")
	}
	id, perr := strconv.ParseInt(ref, 10, 64)
	if perr != nil {
		username = strings.TrimPrefix(ref, "@")
		if username == "" || strings.ContainsAny(username, " /") {
			return nil, "", fmt.Errorf("invalid chat reference %q", chatRef)
		}
		return nil, username, nil
	}
	switch {
	case id > 0:
		return &tg.InputPeerUser{UserID: id}, "", nil
	case strings.HasPrefix(ref, "-100") && len(ref) > len("-100"):
		channelID, err := strconv.ParseInt(ref[len("-100"):], 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("invalid channel reference %q", chatRef)
		}
		return &tg.InputPeerChannel{ChannelID: channelID}, "", nil
	case id < 0:
		return &tg.InputPeerChat{ChatID: -id}, "", nil
	}
	return nil, "", fmt.Errorf("invalid chat reference %q", chatRef)
}

// inputPeerFromResolved переводит ответ ContactsResolveUsername в InputPeer.
func inputPeerFromResolved(resolved *tg.ContactsResolvedPeer) (tg.InputPeerClass, error) {
	switch p := resolved.Peer.(type) {
	case *tg.PeerUser:
		for _, u := range resolved.Users {
			if user, ok := u.(*tg.User); ok && user.ID == p.UserID {
				return user.AsInputPeer(), nil
			}
		}
	case *tg.PeerChannel:
		for _, c := range resolved.Chats {
			if ch, ok := c.(*tg.Channel); ok && ch.ID == p.ChannelID {
				return ch.AsInputPeer(), nil
			}
		}
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: p.ChatID}, nil
	}
	return nil, fmt.Errorf("peer %v not found in resolved entities", resolved.Peer)
}
