package session

import (
	"fmt"
	"strconv"
	"strings"
)

// channelRef — разобранный идентификатор канала: либо username, либо числовой ID.
type channelRef struct {
	Username string
	ID       int64
}

// parseChannelRef принимает @username, username, ссылку t.me и числовой ID
// (в том числе в формате Bot API: -100XXXXXXXXXX).
func parseChannelRef(identifier string) (channelRef, error) {
	s := strings.TrimSpace(identifier)
	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			// Ссылка на пост: берём только имя канала
			if i := strings.Index(s, "/"); i >= 0 {
				s = s[:i]
			}
			break
		}
	}
	s = strings.TrimPrefix(s, "@")
	if s == "" {
		return channelRef{}, fmt.Errorf("empty channel identifier %q", identifier)
	}

	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		switch {
		case strings.HasPrefix(s, "-100"):
			id, err = strconv.ParseInt(s[len("-100"):], 10, 64)
			if err != nil {
				return channelRef{}, fmt.Errorf("invalid channel id %q", identifier)
			}
		case id < 0:
			id = -id
		}
		if id == 0 {
			return channelRef{}, fmt.Errorf("invalid channel id %q", identifier)
		}
		return channelRef{ID: id}, nil
	}

	if strings.ContainsAny(s, " /?#") {
		return channelRef{}, fmt.Errorf("invalid channel username %q", identifier)
	}
	return channelRef{Username: s}, nil
}

// cacheKey — ключ кэша разрешённых каналов.
func (r channelRef) cacheKey() string {
	if r.Username != "" {
		return strings.ToLower(r.Username)
	}
	return strconv.FormatInt(r.ID, 10)
}
