// Package summary обходит настроенные каналы и превращает их свежие сообщения
// в сохранённые и доставленные сводки.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tgdigest_go/models"
	"tgdigest_go/pkg/condense"
	"tgdigest_go/pkg/filter"
	"tgdigest_go/pkg/telegram/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultFetchLimit — сколько последних сообщений канала берётся в сводку.
	DefaultFetchLimit = 100

	// frequencySlack допускает небольшой сдвиг запуска относительно периода.
	frequencySlack = 5 * time.Minute
)

// ErrCycleInProgress — предыдущий цикл ещё не завершён, новый запуск отброшен.
var ErrCycleInProgress = errors.New("summary cycle already in progress")

// Source отдаёт последние сообщения канала; при ошибке — пустой список.
type Source interface {
	GetMessages(ctx context.Context, channelID string, limit int) []models.RawMessage
}

// Condenser сжимает текст до maxLength символов и не возвращает ошибок.
type Condenser interface {
	Condense(ctx context.Context, text string, maxLength int) string
}

// Notifier доставляет текст владельцу и не возвращает ошибок.
type Notifier interface {
	SendMessage(ctx context.Context, chatRef, text string, opts *notify.Options)
}

// Store — нужная конвейеру часть хранилища.
type Store interface {
	GetChannelsWithOwners(ctx context.Context) ([]models.Channel, error)
	CreateSummary(ctx context.Context, s models.Summary) (*models.Summary, error)
	LastSummaryAt(ctx context.Context, channelID int) (time.Time, bool, error)
}

// Config — параметры цикла.
type Config struct {
	FetchLimit int
	// RespectFrequency включает пропуск каналов, сводка которых ещё не устарела
	// по их SummaryFrequency. По умолчанию сводка строится в каждом цикле.
	RespectFrequency bool
	// BeforeCycle вызывается перед обходом каналов, например для восстановления
	// соединения. Ошибка записывается в журнал, цикл продолжается.
	BeforeCycle func(ctx context.Context) error
	Now         func() time.Time
}

// Report — итог одного цикла.
type Report struct {
	CycleID    string        `json:"cycle_id"`
	Channels   int           `json:"channels"`
	Summarized int           `json:"summarized"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

// Pipeline — один на процесс. Одновременно выполняется не больше одного цикла.
type Pipeline struct {
	source    Source
	condenser Condenser
	notifier  Notifier
	store     Store
	log       *zap.Logger
	cfg       Config

	running sync.Mutex
}

func New(source Source, condenser Condenser, notifier Notifier, store Store, log *zap.Logger, cfg Config) *Pipeline {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = DefaultFetchLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		source:    source,
		condenser: condenser,
		notifier:  notifier,
		store:     store,
		log:       log,
		cfg:       cfg,
	}
}

type outcome int

const (
	outcomeSummarized outcome = iota
	outcomeSkipped
	outcomeFailed
)

// RunCycle один раз обходит все каналы. Каналы обрабатываются по очереди
// и независимо: ошибка или паника в одном не прерывает остальные.
// Если цикл уже идёт, сразу возвращает ErrCycleInProgress.
func (p *Pipeline) RunCycle(ctx context.Context) (Report, error) {
	if !p.running.TryLock() {
		p.log.Warn("цикл уже выполняется, запуск пропущен")
		return Report{}, ErrCycleInProgress
	}
	defer p.running.Unlock()

	start := p.cfg.Now()
	report := Report{CycleID: uuid.NewString()}
	log := p.log.With(zap.String("cycle", report.CycleID))

	if p.cfg.BeforeCycle != nil {
		if err := p.cfg.BeforeCycle(ctx); err != nil {
			log.Error("подготовка к циклу не удалась", zap.Error(err))
		}
	}

	channels, err := p.store.GetChannelsWithOwners(ctx)
	if err != nil {
		return report, fmt.Errorf("list channels: %w", err)
	}
	report.Channels = len(channels)
	log.Info("цикл сводок запущен", zap.Int("channels", len(channels)))

	for _, ch := range channels {
		if ctx.Err() != nil {
			log.Warn("цикл прерван", zap.Error(ctx.Err()))
			break
		}
		chLog := log.With(zap.Int("channel_id", ch.ID), zap.String("channel", ch.ChannelID))
		switch p.processChannel(ctx, ch, chLog) {
		case outcomeSummarized:
			report.Summarized++
		case outcomeSkipped:
			report.Skipped++
		case outcomeFailed:
			report.Failed++
		}
	}

	report.Duration = p.cfg.Now().Sub(start)
	log.Info("цикл сводок завершён",
		zap.Int("summarized", report.Summarized),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (p *Pipeline) processChannel(ctx context.Context, ch models.Channel, log *zap.Logger) (res outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("паника при обработке канала", zap.Any("panic", r), zap.Stack("stack"))
			res = outcomeFailed
		}
	}()
	ch.ApplyDefaults()

	if ch.Owner == nil {
		log.Error("у канала нет владельца")
		return outcomeFailed
	}
	if p.cfg.RespectFrequency && !p.due(ctx, ch, log) {
		return outcomeSkipped
	}

	messages := p.source.GetMessages(ctx, ch.ChannelID, p.cfg.FetchLimit)
	if len(messages) == 0 {
		log.Debug("новых сообщений нет")
		return outcomeSkipped
	}

	texts := make([]string, len(messages))
	for i, m := range messages {
		texts[i] = m.Text
	}
	text := filter.Apply(strings.Join(texts, "\n"), ch)
	if strings.TrimSpace(text) == "" {
		log.Debug("после фильтрации текста не осталось")
		return outcomeSkipped
	}

	content := condense.Truncate(p.condenser.Condense(ctx, text, ch.MaxSummaryLength), ch.MaxSummaryLength)

	channelID := ch.ID
	saved, err := p.store.CreateSummary(ctx, models.Summary{
		UserID:      ch.UserID,
		ChannelID:   &channelID,
		ChannelName: ch.ChannelName,
		Content:     content,
	})
	if err != nil {
		// Без сохранённой сводки уведомление не отправляем
		log.Error("сводка не сохранена", zap.Error(err))
		return outcomeFailed
	}

	p.notifier.SendMessage(ctx, ch.Owner.ChatID, FormatNotification(ch.ChannelName, content), &notify.Options{NoWebpage: true})
	log.Info("сводка готова", zap.Int("summary_id", saved.ID), zap.Int("messages", len(messages)))
	return outcomeSummarized
}

// due сообщает, пора ли строить сводку с учётом частоты канала.
func (p *Pipeline) due(ctx context.Context, ch models.Channel, log *zap.Logger) bool {
	last, ok, err := p.store.LastSummaryAt(ctx, ch.ID)
	if err != nil {
		log.Warn("не удалось узнать время последней сводки", zap.Error(err))
		return true
	}
	if !ok {
		return true
	}
	if next := last.Add(ch.SummaryFrequency.Period() - frequencySlack); p.cfg.Now().Before(next) {
		log.Debug("сводка ещё актуальна", zap.Time("last", last), zap.Time("next", next))
		return false
	}
	return true
}

// FormatNotification — текст уведомления о новой сводке.
func FormatNotification(channelName, content string) string {
	return fmt.Sprintf("New summary for %s:\n\n%s", channelName, content)
}
