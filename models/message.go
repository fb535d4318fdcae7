package models

import "time"

// Типы вложений сообщения.
const (
	MediaPhoto    = "photo"
	MediaDocument = "document"
	MediaUnknown  = "unknown"
)

// Типы сущностей разметки.
const (
	EntityLink    = "link"
	EntityMention = "mention"
	EntityUnknown = "unknown"
)

// RawMessage — сообщение канала, приведённое к общему виду. В БД не сохраняется.
type RawMessage struct {
	ID        int             `json:"id"`
	Date      time.Time       `json:"date"`
	Text      string          `json:"text"`
	SenderID  *int64          `json:"sender_id,omitempty"`
	ReplyToID *int            `json:"reply_to_id,omitempty"`
	Media     *MessageMedia   `json:"media,omitempty"`
	Entities  []MessageEntity `json:"entities,omitempty"`
}

// MessageMedia описывает вложение грубо: тип и ID, если он есть.
type MessageMedia struct {
	Type string `json:"type"`
	ID   int64  `json:"id,omitempty"`
}

// MessageEntity — размеченный фрагмент текста. Смещения в UTF-16, как в Telegram.
type MessageEntity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	URL    string `json:"url,omitempty"`
}
