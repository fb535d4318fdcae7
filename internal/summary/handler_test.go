package summary

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tgdigest_go/models"
	pipeline "tgdigest_go/pkg/summary"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type fakeRunner struct {
	report pipeline.Report
	err    error
}

func (f *fakeRunner) RunCycle(context.Context) (pipeline.Report, error) { return f.report, f.err }

type fakeStore struct {
	users     map[string]*models.User
	summaries []models.Summary
	limit     int
}

func (f *fakeStore) GetUserByTelegramID(_ context.Context, telegramID string) (*models.User, error) {
	u, ok := f.users[telegramID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeStore) GetSummariesByUser(_ context.Context, _ int, limit int) ([]models.Summary, error) {
	f.limit = limit
	return f.summaries, nil
}

func newRouter(runner Runner, store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRoutes(r.Group("/summary"), NewHandler(runner, store, zap.NewNop()))
	return r
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRun(t *testing.T) {
	r := newRouter(&fakeRunner{report: pipeline.Report{CycleID: "c1", Summarized: 2}}, &fakeStore{})
	w := do(r, http.MethodPost, "/summary/run")
	if w.Code != http.StatusOK {
		t.Fatalf("неожиданный статус: %d", w.Code)
	}
	var report pipeline.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.CycleID != "c1" || report.Summarized != 2 {
		t.Fatalf("неверный отчёт: %+v", report)
	}
}

func TestRunInProgress(t *testing.T) {
	r := newRouter(&fakeRunner{err: pipeline.ErrCycleInProgress}, &fakeStore{})
	if w := do(r, http.MethodPost, "/summary/run"); w.Code != http.StatusConflict {
		t.Fatalf("ожидался 409, получен %d", w.Code)
	}
}

func TestList(t *testing.T) {
	store := &fakeStore{
		users:     map[string]*models.User{"100": {ID: 1, TelegramID: "100"}},
		summaries: []models.Summary{{ID: 3, UserID: 1, ChannelName: "@news", Content: "digest"}},
	}
	r := newRouter(&fakeRunner{}, store)

	w := do(r, http.MethodGet, "/summary/100?limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("неожиданный статус: %d", w.Code)
	}
	var got []models.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "digest" || store.limit != 5 {
		t.Fatalf("неверный ответ: %+v (limit %d)", got, store.limit)
	}

	if w := do(r, http.MethodGet, "/summary/404"); w.Code != http.StatusNotFound {
		t.Fatalf("ожидался 404, получен %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/summary/100?limit=-1"); w.Code != http.StatusBadRequest {
		t.Fatalf("ожидался 400, получен %d", w.Code)
	}
}
