package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	log, err := New("warn")
	if err != nil {
		t.Fatal(err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) || !log.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("неверный уровень логгера")
	}
	if _, err := New("loud"); err == nil {
		t.Fatal("для неизвестного уровня ожидалась ошибка")
	}
}
