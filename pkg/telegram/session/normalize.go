package session

import (
	"time"

	"tgdigest_go/models"

	"github.com/gotd/td/tg"
)

// normalizeMessage приводит сообщение Telegram к models.RawMessage.
func normalizeMessage(msg *tg.Message) models.RawMessage {
	raw := models.RawMessage{
		ID:   msg.ID,
		Date: time.Unix(int64(msg.Date), 0).UTC(),
		Text: msg.Message,
	}
	// У постов канала отправителя нет, такие сообщения считаются анонимными
	if from, ok := msg.GetFromID(); ok {
		if id, ok := peerID(from); ok {
			raw.SenderID = &id
		}
	}
	if reply, ok := msg.GetReplyTo(); ok {
		if header, ok := reply.(*tg.MessageReplyHeader); ok {
			if id, ok := header.GetReplyToMsgID(); ok {
				raw.ReplyToID = &id
			}
		}
	}
	if media, ok := msg.GetMedia(); ok {
		raw.Media = normalizeMedia(media)
	}
	for _, ent := range msg.Entities {
		raw.Entities = append(raw.Entities, normalizeEntity(ent))
	}
	return raw
}

func peerID(peer tg.PeerClass) (int64, bool) {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID, true
	case *tg.PeerChannel:
		return p.ChannelID, true
	case *tg.PeerChat:
		return p.ChatID, true
	}
	return 0, false
}

func normalizeMedia(media tg.MessageMediaClass) *models.MessageMedia {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		out := &models.MessageMedia{Type: models.MediaPhoto}
		if photo, ok := m.GetPhoto(); ok {
			if p, ok := photo.(*tg.Photo); ok {
				out.ID = p.ID
			}
		}
		return out
	case *tg.MessageMediaDocument:
		out := &models.MessageMedia{Type: models.MediaDocument}
		if doc, ok := m.GetDocument(); ok {
			if d, ok := doc.(*tg.Document); ok {
				out.ID = d.ID
			}
		}
		return out
	}
	return &models.MessageMedia{Type: models.MediaUnknown}
}

func normalizeEntity(ent tg.MessageEntityClass) models.MessageEntity {
	out := models.MessageEntity{
		Type:   models.EntityUnknown,
		Offset: ent.GetOffset(),
		Length: ent.GetLength(),
	}
	switch e := ent.(type) {
	case *tg.MessageEntityTextURL:
		out.Type = models.EntityLink
		out.URL = e.URL
	case *tg.MessageEntityURL:
		out.Type = models.EntityLink
	case *tg.MessageEntityMention, *tg.MessageEntityMentionName:
		out.Type = models.EntityMention
	}
	return out
}
