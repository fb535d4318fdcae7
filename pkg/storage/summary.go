package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tgdigest_go/models"
)

func (db *DB) CreateSummary(ctx context.Context, s models.Summary) (*models.Summary, error) {
	query := `
		INSERT INTO summaries (user_id, channel_id, channel_name, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := db.Conn.QueryRowContext(ctx, query, s.UserID, s.ChannelID, s.ChannelName, s.Content).Scan(&s.ID, scanTime(&s.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSummariesByUser возвращает последние дайджесты пользователя, новые первыми.
func (db *DB) GetSummariesByUser(ctx context.Context, userID, limit int) ([]models.Summary, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, user_id, channel_id, channel_name, content, created_at
		FROM summaries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := db.Conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.Summary
	for rows.Next() {
		var s models.Summary
		var channelID sql.NullInt64
		if err := rows.Scan(&s.ID, &s.UserID, &channelID, &s.ChannelName, &s.Content, scanTime(&s.CreatedAt)); err != nil {
			return nil, err
		}
		if channelID.Valid {
			id := int(channelID.Int64)
			s.ChannelID = &id
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// LastSummaryAt возвращает время последнего дайджеста канала.
// Второе значение false, если дайджестов ещё не было.
func (db *DB) LastSummaryAt(ctx context.Context, channelID int) (time.Time, bool, error) {
	var at time.Time
	query := `
		SELECT created_at
		FROM summaries
		WHERE channel_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := db.Conn.QueryRowContext(ctx, query, channelID).Scan(scanTime(&at))
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}
