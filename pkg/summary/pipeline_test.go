package summary

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"tgdigest_go/models"
	"tgdigest_go/pkg/condense"
	"tgdigest_go/pkg/telegram/notify"
)

type fakeSource struct {
	messages map[string][]string
	panicOn  string
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeSource) GetMessages(_ context.Context, channelID string, _ int) []models.RawMessage {
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.block != nil {
		<-f.block
	}
	if channelID == f.panicOn {
		panic("boom")
	}
	var out []models.RawMessage
	for i, text := range f.messages[channelID] {
		out = append(out, models.RawMessage{ID: i + 1, Text: text})
	}
	return out
}

type condenseCall struct {
	text      string
	maxLength int
}

type fakeCondenser struct {
	out   string
	calls []condenseCall
}

func (f *fakeCondenser) Condense(_ context.Context, text string, maxLength int) string {
	f.calls = append(f.calls, condenseCall{text, maxLength})
	if f.out != "" {
		return f.out
	}
	return "digest of " + text
}

type sentMessage struct {
	chat, text string
}

type fakeNotifier struct {
	sent []sentMessage
}

func (f *fakeNotifier) SendMessage(_ context.Context, chatRef, text string, _ *notify.Options) {
	f.sent = append(f.sent, sentMessage{chatRef, text})
}

type fakeStore struct {
	channels  []models.Channel
	listErr   error
	saveErr   map[int]error
	last      map[int]time.Time
	summaries []models.Summary
}

func (f *fakeStore) GetChannelsWithOwners(context.Context) ([]models.Channel, error) {
	return f.channels, f.listErr
}

func (f *fakeStore) CreateSummary(_ context.Context, s models.Summary) (*models.Summary, error) {
	if s.ChannelID != nil {
		if err := f.saveErr[*s.ChannelID]; err != nil {
			return nil, err
		}
	}
	s.ID = len(f.summaries) + 1
	f.summaries = append(f.summaries, s)
	return &s, nil
}

func (f *fakeStore) LastSummaryAt(_ context.Context, channelID int) (time.Time, bool, error) {
	t, ok := f.last[channelID]
	return t, ok, nil
}

func channel(id int, ref string, owner *models.User) models.Channel {
	return models.Channel{
		ID:               id,
		UserID:           owner.ID,
		ChannelID:        ref,
		ChannelName:      ref,
		MaxSummaryLength: 150,
		Owner:            owner,
	}
}

var owner = &models.User{ID: 1, TelegramID: "100", ChatID: "100"}

func TestRunCycleEndToEnd(t *testing.T) {
	source := &fakeSource{messages: map[string][]string{"@news": {"Hello #world", "cc @bob see you"}}}
	cond := &fakeCondenser{}
	notifier := &fakeNotifier{}
	store := &fakeStore{channels: []models.Channel{channel(5, "@news", owner)}}

	report, err := New(source, cond, notifier, store, nil, Config{}).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("ошибка цикла: %v", err)
	}
	if report.Summarized != 1 || report.CycleID == "" {
		t.Fatalf("неверный отчёт: %+v", report)
	}
	if len(cond.calls) != 1 || cond.calls[0].text != "Hello \ncc  see you" || cond.calls[0].maxLength != 150 {
		t.Fatalf("неверные вызовы сжатия: %+v", cond.calls)
	}
	if len(store.summaries) != 1 {
		t.Fatalf("ожидалась одна сводка, получено %d", len(store.summaries))
	}
	saved := store.summaries[0]
	if utf8.RuneCountInString(saved.Content) > 150 || saved.UserID != 1 || *saved.ChannelID != 5 || saved.ChannelName != "@news" {
		t.Fatalf("неверная сводка: %+v", saved)
	}
	want := sentMessage{chat: "100", text: "New summary for @news:\n\n" + saved.Content}
	if len(notifier.sent) != 1 || notifier.sent[0] != want {
		t.Fatalf("неверные уведомления: %+v", notifier.sent)
	}
}

func TestRunCycleFallbackIsPersistedAndSent(t *testing.T) {
	source := &fakeSource{messages: map[string][]string{"@news": {"text"}}}
	cond := &fakeCondenser{out: condense.FallbackSummary}
	notifier := &fakeNotifier{}
	store := &fakeStore{channels: []models.Channel{channel(5, "@news", owner)}}

	if _, err := New(source, cond, notifier, store, nil, Config{}).RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(store.summaries) != 1 || store.summaries[0].Content != condense.FallbackSummary {
		t.Fatalf("заглушка не сохранена: %+v", store.summaries)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].text != "New summary for @news:\n\n"+condense.FallbackSummary {
		t.Fatalf("заглушка не отправлена: %+v", notifier.sent)
	}
}

func TestRunCycleEmptyChannelProducesNothing(t *testing.T) {
	source := &fakeSource{messages: map[string][]string{"@tags": {"#only #tags"}}}
	cond := &fakeCondenser{}
	notifier := &fakeNotifier{}
	store := &fakeStore{channels: []models.Channel{
		channel(1, "@empty", owner),
		channel(2, "@tags", owner),
	}}

	report, err := New(source, cond, notifier, store, nil, Config{}).RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Skipped != 2 || len(store.summaries) != 0 || len(notifier.sent) != 0 || len(cond.calls) != 0 {
		t.Fatalf("ничего не должно создаваться, отчёт %+v", report)
	}
}

func TestRunCycleIsolatesChannels(t *testing.T) {
	source := &fakeSource{
		panicOn: "@panic",
		messages: map[string][]string{
			"@panic":  {"x"},
			"@broken": {"y"},
			"@ok":     {"z"},
		},
	}
	notifier := &fakeNotifier{}
	store := &fakeStore{
		channels: []models.Channel{
			channel(1, "@panic", owner),
			channel(2, "@broken", owner),
			{ID: 3, ChannelID: "@orphan"},
			channel(4, "@ok", owner),
		},
		saveErr: map[int]error{2: errors.New("disk full")},
	}

	report, err := New(source, &fakeCondenser{}, notifier, store, nil, Config{}).RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 3 || report.Summarized != 1 {
		t.Fatalf("неверный отчёт: %+v", report)
	}
	// Несохранённая сводка не отправляется
	if len(notifier.sent) != 1 || notifier.sent[0].text != "New summary for @ok:\n\ndigest of z" {
		t.Fatalf("неверные уведомления: %+v", notifier.sent)
	}
}

func TestRunCycleTruncatesOversizedSummary(t *testing.T) {
	source := &fakeSource{messages: map[string][]string{"@news": {"text"}}}
	ch := channel(1, "@news", owner)
	ch.MaxSummaryLength = 5
	store := &fakeStore{channels: []models.Channel{ch}}

	if _, err := New(source, &fakeCondenser{out: "much too long"}, &fakeNotifier{}, store, nil, Config{}).RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.summaries[0].Content != "much " {
		t.Fatalf("неверное содержимое: %q", store.summaries[0].Content)
	}
}

func TestRunCycleDropsOverlap(t *testing.T) {
	source := &fakeSource{
		messages: map[string][]string{"@news": {"text"}},
		block:    make(chan struct{}),
		started:  make(chan struct{}),
	}
	started := source.started
	store := &fakeStore{channels: []models.Channel{channel(1, "@news", owner)}}
	p := New(source, &fakeCondenser{}, &fakeNotifier{}, store, nil, Config{})

	done := make(chan error, 1)
	go func() {
		_, err := p.RunCycle(context.Background())
		done <- err
	}()
	<-started

	if _, err := p.RunCycle(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Fatalf("ожидалась ErrCycleInProgress, получена: %v", err)
	}
	close(source.block)
	if err := <-done; err != nil {
		t.Fatalf("ошибка первого цикла: %v", err)
	}
	if len(store.summaries) != 1 {
		t.Fatalf("ожидалась одна сводка, получено %d", len(store.summaries))
	}
}

func TestRunCycleRespectsFrequency(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{messages: map[string][]string{"@fresh": {"a"}, "@stale": {"b"}}}
	fresh := channel(1, "@fresh", owner)
	fresh.SummaryFrequency = models.FrequencyDaily
	stale := channel(2, "@stale", owner)
	stale.SummaryFrequency = models.FrequencyHourly
	store := &fakeStore{
		channels: []models.Channel{fresh, stale},
		last: map[int]time.Time{
			1: now.Add(-2 * time.Hour),
			2: now.Add(-58 * time.Minute),
		},
	}
	cfg := Config{RespectFrequency: true, Now: func() time.Time { return now }}

	report, err := New(source, &fakeCondenser{}, &fakeNotifier{}, store, nil, cfg).RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Summarized != 1 || report.Skipped != 1 {
		t.Fatalf("неверный отчёт: %+v", report)
	}
	if *store.summaries[0].ChannelID != 2 {
		t.Fatalf("ожидалась сводка ежечасного канала, получено %+v", store.summaries[0])
	}
}

func TestRunCycleListError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection refused")}
	called := false
	cfg := Config{BeforeCycle: func(context.Context) error {
		called = true
		return errors.New("not connected")
	}}
	if _, err := New(&fakeSource{}, &fakeCondenser{}, &fakeNotifier{}, store, nil, cfg).RunCycle(context.Background()); err == nil {
		t.Fatal("ожидалась ошибка, но её нет")
	}
	if !called {
		t.Fatal("BeforeCycle не вызван")
	}
}
