package storage

import (
	"context"

	"tgdigest_go/models"
)

func (db *DB) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	query := `
		INSERT INTO users (telegram_id, chat_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := db.Conn.QueryRowContext(ctx, query, user.TelegramID, user.ChatID).Scan(&user.ID, scanTime(&user.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreateUser возвращает пользователя по Telegram ID, создавая его при первом обращении.
// Если пользователь уже есть, обновляет chat_id.
func (db *DB) GetOrCreateUser(ctx context.Context, telegramID, chatID string) (*models.User, error) {
	user := models.User{TelegramID: telegramID, ChatID: chatID}
	query := `
		INSERT INTO users (telegram_id, chat_id)
		VALUES ($1, $2)
		ON CONFLICT (telegram_id) DO UPDATE SET chat_id = EXCLUDED.chat_id
		RETURNING id, created_at
	`
	err := db.Conn.QueryRowContext(ctx, query, telegramID, chatID).Scan(&user.ID, scanTime(&user.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *DB) GetUserByTelegramID(ctx context.Context, telegramID string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, telegram_id, chat_id, created_at
		FROM users
		WHERE telegram_id = $1
	`
	err := db.Conn.QueryRowContext(ctx, query, telegramID).Scan(&user.ID, &user.TelegramID, &user.ChatID, scanTime(&user.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser удаляет пользователя вместе с его каналами и дайджестами.
func (db *DB) DeleteUser(ctx context.Context, id int) error {
	return execAffected(ctx, db, "DELETE FROM users WHERE id = $1", id)
}
