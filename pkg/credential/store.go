// Package credential хранит строку сессии Telegram между перезапусками процесса.
package credential

import (
	"context"
	"fmt"
)

// Store — хранилище одной строки сессии.
// Load возвращает пустую строку без ошибки, если сессия ещё не сохранялась.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, value string) error
}

// SaveIfChanged записывает значение, только если оно отличается от сохранённого.
// Возвращает true, если запись была выполнена.
func SaveIfChanged(ctx context.Context, store Store, value string) (bool, error) {
	current, err := store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load credential: %w", err)
	}
	if current == value {
		return false, nil
	}
	if err := store.Save(ctx, value); err != nil {
		return false, fmt.Errorf("save credential: %w", err)
	}
	return true, nil
}

// Memory держит сессию в памяти процесса. Подходит для тестов и одноразовых запусков.
type Memory struct {
	Value  string
	Writes int
}

func (m *Memory) Load(context.Context) (string, error) { return m.Value, nil }

func (m *Memory) Save(_ context.Context, value string) error {
	m.Value = value
	m.Writes++
	return nil
}

// WithDefault отдаёт value, пока в store ничего не сохранено. Так сессия,
// заданная переменной окружения, используется без записи в хранилище.
func WithDefault(store Store, value string) Store {
	if value == "" {
		return store
	}
	return &fallback{Store: store, value: value}
}

type fallback struct {
	Store
	value string
}

func (f *fallback) Load(ctx context.Context) (string, error) {
	v, err := f.Store.Load(ctx)
	if err != nil || v != "" {
		return v, err
	}
	return f.value, nil
}
