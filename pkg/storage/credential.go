package storage

import (
	"context"
	"database/sql"
	"errors"

	"tgdigest_go/pkg/credential"
)

var _ credential.Store = (*CredentialDB)(nil)

// CredentialDB хранит строку сессии Telegram в таблице telegram_session под именем Name.
type CredentialDB struct {
	DB   *DB
	Name string
}

// Load читает сессию. Пустая строка без ошибки означает, что сессии ещё нет.
func (s *CredentialDB) Load(ctx context.Context) (string, error) {
	var data string
	err := s.DB.Conn.QueryRowContext(ctx, "SELECT data FROM telegram_session WHERE name = $1", s.Name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return data, nil
}

// Save сохраняет сессию, перезаписывая существующую запись.
func (s *CredentialDB) Save(ctx context.Context, value string) error {
	_, err := s.DB.Conn.ExecContext(
		ctx,
		"INSERT INTO telegram_session (name, data) VALUES ($1, $2) "+
			"ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = CURRENT_TIMESTAMP",
		s.Name,
		value,
	)
	return err
}
