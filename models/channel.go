package models

import (
	"fmt"
	"time"
)

// Значения настроек канала по умолчанию.
const (
	DefaultMaxSummaryLength = 150
	DefaultSummaryFrequency = FrequencyDaily
)

// SummaryFrequency задаёт, как часто пользователь хочет получать дайджест канала.
type SummaryFrequency string

const (
	FrequencyHourly SummaryFrequency = "hourly"
	FrequencyDaily  SummaryFrequency = "daily"
	FrequencyWeekly SummaryFrequency = "weekly"
)

// ParseSummaryFrequency проверяет значение частоты. Пустая строка даёт значение по умолчанию.
func ParseSummaryFrequency(s string) (SummaryFrequency, error) {
	switch SummaryFrequency(s) {
	case "":
		return DefaultSummaryFrequency, nil
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly:
		return SummaryFrequency(s), nil
	}
	return "", fmt.Errorf("unknown summary frequency %q", s)
}

// Period возвращает длительность периода частоты.
func (f SummaryFrequency) Period() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Channel — настройки канала, который пользователь добавил для дайджеста.
// ChannelID уникален в пределах одного пользователя.
type Channel struct {
	ID                  int              `json:"id"`
	UserID              int              `json:"user_id"`
	ChannelID           string           `json:"channel_id"` // Внешний идентификатор: @username, ссылка t.me или числовой ID
	ChannelName         string           `json:"channel_name"`
	MaxSummaryLength    int              `json:"max_summary_length"`
	SummaryFrequency    SummaryFrequency `json:"summary_frequency"`
	IncludeHashtags     bool             `json:"include_hashtags"`
	IncludeUserMentions bool             `json:"include_user_mentions"`
	CreatedAt           time.Time        `json:"created_at"`
	Owner               *User            `json:"owner,omitempty"` // Заполняется только при выборке вместе с владельцем
}

// ApplyDefaults заполняет незаданные настройки значениями по умолчанию.
func (c *Channel) ApplyDefaults() {
	if c.MaxSummaryLength <= 0 {
		c.MaxSummaryLength = DefaultMaxSummaryLength
	}
	if c.SummaryFrequency == "" {
		c.SummaryFrequency = DefaultSummaryFrequency
	}
	if c.ChannelName == "" {
		c.ChannelName = c.ChannelID
	}
}

// ChannelSettings — изменяемые пользователем настройки. nil означает «не менять».
type ChannelSettings struct {
	ChannelName         *string           `json:"channel_name"`
	MaxSummaryLength    *int              `json:"max_summary_length"`
	SummaryFrequency    *SummaryFrequency `json:"summary_frequency"`
	IncludeHashtags     *bool             `json:"include_hashtags"`
	IncludeUserMentions *bool             `json:"include_user_mentions"`
}

// Apply переносит заданные поля в канал.
func (s ChannelSettings) Apply(c *Channel) error {
	if s.ChannelName != nil {
		c.ChannelName = *s.ChannelName
	}
	if s.MaxSummaryLength != nil {
		if *s.MaxSummaryLength <= 0 {
			return fmt.Errorf("max_summary_length must be positive")
		}
		c.MaxSummaryLength = *s.MaxSummaryLength
	}
	if s.SummaryFrequency != nil {
		f, err := ParseSummaryFrequency(string(*s.SummaryFrequency))
		if err != nil {
			return err
		}
		c.SummaryFrequency = f
	}
	if s.IncludeHashtags != nil {
		c.IncludeHashtags = *s.IncludeHashtags
	}
	if s.IncludeUserMentions != nil {
		c.IncludeUserMentions = *s.IncludeUserMentions
	}
	return nil
}

// ChannelInfo — сведения о канале, полученные из Telegram.
type ChannelInfo struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Username          string `json:"username"`
	ParticipantsCount int    `json:"participants_count"`
	About             string `json:"about"`
}
