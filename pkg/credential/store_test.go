package credential

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestSaveIfChangedSkipsSameValue проверяет, что одинаковое значение не переписывается.
func TestSaveIfChangedSkipsSameValue(t *testing.T) {
	ctx := context.Background()
	store := &Memory{Value: "abc"}

	written, err := SaveIfChanged(ctx, store, "abc")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if written || store.Writes != 0 {
		t.Fatalf("запись не ожидалась, writes=%d", store.Writes)
	}

	written, err = SaveIfChanged(ctx, store, "def")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !written || store.Value != "def" || store.Writes != 1 {
		t.Fatalf("ожидалась одна запись нового значения, получено %q writes=%d", store.Value, store.Writes)
	}
}

// TestEnvFileMissingFile проверяет, что отсутствующий файл читается как пустая сессия.
func TestEnvFileMissingFile(t *testing.T) {
	store := NewEnvFile(filepath.Join(t.TempDir(), ".env"), "")
	v, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if v != "" {
		t.Fatalf("ожидалась пустая сессия, получено %q", v)
	}
}

// TestEnvFileKeepsOtherKeys проверяет, что запись сессии не теряет остальную конфигурацию.
func TestEnvFileKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("BOT_TOKEN=123:abc\nPORT=8080\n"), 0o600); err != nil {
		t.Fatalf("не удалось создать файл: %v", err)
	}
	ctx := context.Background()
	store := NewEnvFile(path, "")

	if err := store.Save(ctx, "c2Vzc2lvbg=="); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
	v, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if v != "c2Vzc2lvbg==" {
		t.Fatalf("неверная сессия: %q", v)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ошибка чтения файла: %v", err)
	}
	for _, want := range []string{"BOT_TOKEN=", "PORT=8080", "TG_SESSION="} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("в файле нет %s:\n%s", want, data)
		}
	}
}

func TestWithDefault(t *testing.T) {
	ctx := context.Background()
	mem := &Memory{}
	store := WithDefault(mem, "from-env")

	if v, _ := store.Load(ctx); v != "from-env" {
		t.Fatalf("ожидалось значение по умолчанию, получено %q", v)
	}
	if written, err := SaveIfChanged(ctx, store, "from-env"); err != nil || written {
		t.Fatalf("неизменённое значение не должно записываться: %v %v", written, err)
	}
	if _, err := SaveIfChanged(ctx, store, "fresh"); err != nil {
		t.Fatal(err)
	}
	if v, _ := store.Load(ctx); v != "fresh" || mem.Writes != 1 {
		t.Fatalf("ожидалось сохранённое значение, получено %q writes=%d", v, mem.Writes)
	}
}
