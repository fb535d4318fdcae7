// Package prompt содержит источники данных для входа в Telegram:
// консоль, заранее заданные значения и ввод через HTTP.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Поля, которые запрашивает вход.
const (
	FieldPhone    = "phone"
	FieldCode     = "code"
	FieldPassword = "password"
)

var (
	// ErrNoValue — значение не задано и запросить его негде.
	ErrNoValue = errors.New("value is not configured")
	// ErrNotPending — для этого поля сейчас никто не ждёт ввода.
	ErrNotPending = errors.New("no pending request for field")
)

// Static отдаёт заранее заданные значения. Код подтверждения так получить
// нельзя, поэтому Static годится только для уже авторизованной сессии
// или вместе с Code.
type Static struct {
	Phone    string
	Code     string
	Password string
}

func (s Static) RequestPhone(context.Context) (string, error)    { return value(FieldPhone, s.Phone) }
func (s Static) RequestCode(context.Context) (string, error)     { return value(FieldCode, s.Code) }
func (s Static) RequestPassword(context.Context) (string, error) { return value(FieldPassword, s.Password) }

func value(field, v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("%s: %w", field, ErrNoValue)
	}
	return v, nil
}

// Console читает значения построчно. Заранее заданные Phone и Password
// используются без вопроса.
type Console struct {
	Phone    string
	Password string

	in  *bufio.Reader
	out io.Writer
	mu  sync.Mutex
}

// NewConsole создаёт запрос через stdin/stdout.
func NewConsole(phone, password string) *Console {
	return NewConsoleIO(os.Stdin, os.Stdout, phone, password)
}

func NewConsoleIO(in io.Reader, out io.Writer, phone, password string) *Console {
	return &Console{Phone: phone, Password: password, in: bufio.NewReader(in), out: out}
}

func (c *Console) RequestPhone(ctx context.Context) (string, error) {
	if c.Phone != "" {
		return c.Phone, nil
	}
	return c.ask(ctx, "Номер телефона: ")
}

func (c *Console) RequestCode(ctx context.Context) (string, error) {
	return c.ask(ctx, "Код из Telegram: ")
}

func (c *Console) RequestPassword(ctx context.Context) (string, error) {
	if c.Password != "" {
		return c.Password, nil
	}
	return c.ask(ctx, "Пароль 2FA: ")
}

type line struct {
	text string
	err  error
}

// ask печатает вопрос и ждёт строку. Чтение из stdin нельзя прервать,
// поэтому при отмене ctx горутина чтения остаётся висеть до следующей строки.
func (c *Console) ask(ctx context.Context, question string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, question)

	ch := make(chan line, 1)
	go func() {
		s, err := c.in.ReadString('\n')
		if err == io.EOF && s != "" {
			err = nil
		}
		ch <- line{text: strings.TrimSpace(s), err: err}
	}()
	select {
	case l := <-ch:
		return l.text, l.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Remote ждёт значения, переданные через Supply (например, из HTTP-обработчика).
// Одновременно ожидается не больше одного поля.
type Remote struct {
	Phone    string
	Password string

	mu      sync.Mutex
	pending string
	ch      chan string
}

func NewRemote(phone, password string) *Remote {
	return &Remote{Phone: phone, Password: password}
}

func (r *Remote) RequestPhone(ctx context.Context) (string, error) {
	if r.Phone != "" {
		return r.Phone, nil
	}
	return r.wait(ctx, FieldPhone)
}

func (r *Remote) RequestCode(ctx context.Context) (string, error) {
	return r.wait(ctx, FieldCode)
}

func (r *Remote) RequestPassword(ctx context.Context) (string, error) {
	if r.Password != "" {
		return r.Password, nil
	}
	return r.wait(ctx, FieldPassword)
}

// Pending возвращает поле, которого сейчас ждёт вход, или пустую строку.
func (r *Remote) Pending() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Supply передаёт значение ожидающему запросу.
func (r *Remote) Supply(field, v string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == "" || r.pending != field {
		return fmt.Errorf("%s: %w", field, ErrNotPending)
	}
	select {
	case r.ch <- v:
		r.pending = ""
		return nil
	default:
		return fmt.Errorf("%s: %w", field, ErrNotPending)
	}
}

func (r *Remote) wait(ctx context.Context, field string) (string, error) {
	ch := make(chan string, 1)
	r.mu.Lock()
	r.pending = field
	r.ch = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.ch == ch {
			r.pending = ""
			r.ch = nil
		}
		r.mu.Unlock()
	}()

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
