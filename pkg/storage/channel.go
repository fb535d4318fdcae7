package storage

import (
	"context"
	"database/sql"
	"errors"

	"tgdigest_go/models"

	"go.uber.org/zap"
)

// ErrChannelExists возвращается, если пользователь уже добавил канал с таким ID.
var ErrChannelExists = errors.New("channel already registered for user")

const channelColumns = `c.id, c.user_id, c.channel_id, c.channel_name, c.max_summary_length,
		c.summary_frequency, c.include_hashtags, c.include_user_mentions, c.created_at`

// CreateChannel сохраняет канал пользователя. Повтор того же channel_id у того же
// пользователя даёт ErrChannelExists.
func (db *DB) CreateChannel(ctx context.Context, ch models.Channel) (*models.Channel, error) {
	ch.ApplyDefaults()
	query := `
		INSERT INTO channels (user_id, channel_id, channel_name, max_summary_length,
			summary_frequency, include_hashtags, include_user_mentions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, channel_id) DO NOTHING
		RETURNING id, created_at
	`
	err := db.Conn.QueryRowContext(ctx, query,
		ch.UserID,
		ch.ChannelID,
		ch.ChannelName,
		ch.MaxSummaryLength,
		string(ch.SummaryFrequency),
		ch.IncludeHashtags,
		ch.IncludeUserMentions,
	).Scan(&ch.ID, scanTime(&ch.CreatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChannelExists
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (db *DB) GetChannelByID(ctx context.Context, id int) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels c WHERE c.id = $1`
	ch, err := scanChannel(db.Conn.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// GetChannelsByUser возвращает каналы пользователя в порядке добавления.
func (db *DB) GetChannelsByUser(ctx context.Context, userID int) ([]models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels c WHERE c.user_id = $1 ORDER BY c.id`
	rows, err := db.Conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	return channels, rows.Err()
}

// GetChannelsWithOwners возвращает все каналы вместе с владельцами.
// Строки, которые не удалось прочитать, пропускаются.
func (db *DB) GetChannelsWithOwners(ctx context.Context) ([]models.Channel, error) {
	query := `
		SELECT ` + channelColumns + `, u.id, u.telegram_id, u.chat_id, u.created_at
		FROM channels c
		JOIN users u ON u.id = c.user_id
		ORDER BY c.id
	`
	rows, err := db.Conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		var freq string
		owner := &models.User{}
		if err := rows.Scan(
			&ch.ID,
			&ch.UserID,
			&ch.ChannelID,
			&ch.ChannelName,
			&ch.MaxSummaryLength,
			&freq,
			&ch.IncludeHashtags,
			&ch.IncludeUserMentions,
			scanTime(&ch.CreatedAt),
			&owner.ID,
			&owner.TelegramID,
			&owner.ChatID,
			scanTime(&owner.CreatedAt),
		); err != nil {
			db.logger().Warn("пропускаем канал, не удалось прочитать строку", zap.Error(err))
			continue
		}
		ch.SummaryFrequency = models.SummaryFrequency(freq)
		ch.Owner = owner
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// UpdateChannelSettings сохраняет изменяемые настройки канала.
func (db *DB) UpdateChannelSettings(ctx context.Context, ch models.Channel) error {
	query := `
		UPDATE channels
		SET channel_name = $1, max_summary_length = $2, summary_frequency = $3,
			include_hashtags = $4, include_user_mentions = $5
		WHERE id = $6
	`
	return execAffected(ctx, db, query,
		ch.ChannelName,
		ch.MaxSummaryLength,
		string(ch.SummaryFrequency),
		ch.IncludeHashtags,
		ch.IncludeUserMentions,
		ch.ID,
	)
}

// DeleteChannel удаляет канал. Дайджесты остаются, ссылка на канал обнуляется.
func (db *DB) DeleteChannel(ctx context.Context, id int) error {
	return execAffected(ctx, db, "DELETE FROM channels WHERE id = $1", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*models.Channel, error) {
	var ch models.Channel
	var freq string
	if err := row.Scan(
		&ch.ID,
		&ch.UserID,
		&ch.ChannelID,
		&ch.ChannelName,
		&ch.MaxSummaryLength,
		&freq,
		&ch.IncludeHashtags,
		&ch.IncludeUserMentions,
		scanTime(&ch.CreatedAt),
	); err != nil {
		return nil, err
	}
	ch.SummaryFrequency = models.SummaryFrequency(freq)
	return &ch, nil
}

// execAffected выполняет запрос и возвращает sql.ErrNoRows, если ни одна строка не изменилась.
func execAffected(ctx context.Context, db *DB, query string, args ...any) error {
	res, err := db.Conn.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
