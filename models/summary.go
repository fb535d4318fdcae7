package models

import "time"

// Summary — сохранённый дайджест канала. После создания не изменяется.
type Summary struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	ChannelID   *int      `json:"channel_id"`   // Ссылка на настройки канала, пусто если канал удалён
	ChannelName string    `json:"channel_name"` // Копия названия на момент создания
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}
