// Package condense сжимает текст канала в сводку заданной длины.
package condense

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// FallbackSummary подставляется, когда модель не ответила.
	FallbackSummary = "Unable to generate summary at this time."

	// DefaultMaxLength — бюджет сводки, если у канала он не задан.
	DefaultMaxLength = 150

	// DefaultTimeout ограничивает один запрос к модели.
	DefaultTimeout = 60 * time.Second

	minTokens     = 16
	charsPerToken = 4

	systemPrompt = "You are a helpful assistant that summarizes text."
)

// Engine превращает текст в сводку не длиннее бюджета. Ошибок не возвращает:
// при любом сбое отдаётся FallbackSummary.
type Engine struct {
	gen     Generator
	log     *zap.Logger
	timeout time.Duration
}

func NewEngine(gen Generator, log *zap.Logger, timeout time.Duration) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{gen: gen, log: log, timeout: timeout}
}

// Condense возвращает сводку text длиной не больше maxLength символов.
// maxLength <= 0 означает DefaultMaxLength.
func (e *Engine) Condense(ctx context.Context, text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Please summarize the following content in at most %d characters:\n\n%s",
		maxLength, text,
	)
	out, err := e.gen.Generate(ctx, systemPrompt, prompt, tokenCeiling(maxLength))
	if err != nil {
		e.log.Error("ошибка генерации сводки", zap.Error(err))
		return Truncate(FallbackSummary, maxLength)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		e.log.Warn("модель вернула пустую сводку")
		return Truncate(FallbackSummary, maxLength)
	}
	if n := utf8.RuneCountInString(out); n > maxLength {
		e.log.Debug("сводка обрезана", zap.Int("length", n), zap.Int("max", maxLength))
	}
	return Truncate(out, maxLength)
}

// tokenCeiling грубо переводит бюджет в символах в лимит токенов.
func tokenCeiling(maxLength int) int {
	if t := maxLength / charsPerToken; t > minTokens {
		return t
	}
	return minTokens
}

// Truncate обрезает s до max символов (рун).
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
