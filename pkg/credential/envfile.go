package credential

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	"github.com/joho/godotenv"
)

// DefaultEnvKey — ключ, под которым сессия лежит в .env файле.
const DefaultEnvKey = "TG_SESSION"

// EnvFile хранит сессию рядом с остальной конфигурацией процесса, в .env файле.
// При записи файл переписывается целиком: остальные ключи сохраняются, комментарии нет.
type EnvFile struct {
	Path string
	Key  string

	mu sync.Mutex
}

// NewEnvFile создаёт хранилище для файла path.
func NewEnvFile(path, key string) *EnvFile {
	if key == "" {
		key = DefaultEnvKey
	}
	return &EnvFile{Path: path, Key: key}
}

func (s *EnvFile) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read()
	if err != nil {
		return "", err
	}
	return env[s.Key], nil
}

func (s *EnvFile) Save(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read()
	if err != nil {
		return err
	}
	env[s.Key] = value
	return godotenv.Write(env, s.Path)
}

// read читает файл; отсутствующий файл считается пустым.
func (s *EnvFile) read() (map[string]string, error) {
	env, err := godotenv.Read(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return env, nil
}
