package models

import "time"

// User — пользователь бота, владелец каналов и дайджестов.
type User struct {
	ID         int       `json:"id"`
	TelegramID string    `json:"telegram_id"` // Уникальный ID пользователя в Telegram
	ChatID     string    `json:"chat_id"`     // Куда бот отправляет дайджесты
	CreatedAt  time.Time `json:"created_at"`
}
