// Package app собирает компоненты сервиса из конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tgdigest_go/internal/config"
	"tgdigest_go/internal/scheduler"
	"tgdigest_go/pkg/condense"
	"tgdigest_go/pkg/credential"
	"tgdigest_go/pkg/storage"
	"tgdigest_go/pkg/summary"
	tgclient "tgdigest_go/pkg/telegram"
	"tgdigest_go/pkg/telegram/notify"
	"tgdigest_go/pkg/telegram/prompt"
	"tgdigest_go/pkg/telegram/session"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// sessionKey — имя строки сессии в таблице telegram_session.
const sessionKey = "default"

// App держит компоненты одного процесса.
type App struct {
	Cfg *config.Config
	Log *zap.Logger

	DB          *storage.DB
	Credentials credential.Store
	Session     *session.Manager
	Remote      *prompt.Remote
	Bot         *notify.Bot
	Pipeline    *summary.Pipeline
}

func New(cfg *config.Config, log *zap.Logger) *App {
	return &App{Cfg: cfg, Log: log}
}

// Close освобождает всё, что было открыто.
func (a *App) Close() {
	if a.Bot != nil {
		_ = a.Bot.Close()
	}
	if a.Session != nil {
		_ = a.Session.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func (a *App) openDB(ctx context.Context) error {
	if a.DB != nil {
		return nil
	}
	db, err := storage.Open(ctx, a.Cfg.DBDriver, a.Cfg.DatabaseURL)
	if err != nil {
		return err
	}
	db.Log = a.Log.Named("storage")
	a.DB = db
	return nil
}

// Migrate создаёт схему БД.
func (a *App) Migrate(ctx context.Context) error {
	if err := a.openDB(ctx); err != nil {
		return err
	}
	if err := a.DB.Migrate(ctx); err != nil {
		return err
	}
	a.Log.Info("схема БД актуальна", zap.String("driver", a.Cfg.DBDriver))
	return nil
}

func (a *App) setupSession(ctx context.Context) error {
	if a.Session != nil {
		return nil
	}
	switch a.Cfg.CredentialStore {
	case config.CredentialStoreDB:
		if err := a.openDB(ctx); err != nil {
			return err
		}
		a.Credentials = &storage.CredentialDB{DB: a.DB, Name: sessionKey}
	default:
		a.Credentials = credential.NewEnvFile(a.Cfg.EnvFile, credential.DefaultEnvKey)
	}
	a.Credentials = credential.WithDefault(a.Credentials, a.Cfg.Session)

	var p session.Prompt
	switch a.Cfg.AuthPrompt {
	case config.PromptPreset:
		p = prompt.Static{Phone: a.Cfg.Phone, Password: a.Cfg.Password}
	case config.PromptHTTP:
		a.Remote = prompt.NewRemote(a.Cfg.Phone, a.Cfg.Password)
		p = a.Remote
	default:
		p = prompt.NewConsole(a.Cfg.Phone, a.Cfg.Password)
	}

	log := a.Log.Named("session")
	network := session.NewMTProto(tgclient.ClientOptions{
		APIID:   a.Cfg.APIID,
		APIHash: a.Cfg.APIHash,
		Proxy:   a.Cfg.Proxy,
	}, log)
	a.Session = session.NewManager(network, p, log, session.Config{
		RetryDelay:    5 * time.Second,
		PromptTimeout: 5 * time.Minute,
	})
	return nil
}

func (a *App) startSession(ctx context.Context) error {
	if err := session.Start(ctx, a.Session, a.Credentials); err != nil {
		return fmt.Errorf("telegram session: %w", err)
	}
	return nil
}

// Login проводит вход в Telegram и сохраняет сессию.
func (a *App) Login(ctx context.Context) error {
	if err := a.setupSession(ctx); err != nil {
		return err
	}
	if err := a.startSession(ctx); err != nil {
		return err
	}
	a.Log.Info("сессия Telegram готова", zap.Stringer("state", a.Session.State()))
	return nil
}

func (a *App) setupPipeline(ctx context.Context) error {
	if err := a.Migrate(ctx); err != nil {
		return err
	}
	if err := a.setupSession(ctx); err != nil {
		return err
	}
	bot, err := notify.StartBot(ctx, tgclient.ClientOptions{
		APIID:   a.Cfg.APIID,
		APIHash: a.Cfg.APIHash,
		Proxy:   a.Cfg.Proxy,
		Logger:  a.Log.Named("bot"),
	}, a.Cfg.BotToken)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	a.Bot = bot

	gen := condense.NewOpenAIGenerator(a.Cfg.OpenAIKey, a.Cfg.OpenAIBaseURL, a.Cfg.OpenAIModel)
	engine := condense.NewEngine(gen, a.Log.Named("condense"), 0)
	notifier := notify.New(bot, a.Log.Named("notify"))

	a.Pipeline = summary.New(a.Session, engine, notifier, a.DB, a.Log.Named("summary"), summary.Config{
		RespectFrequency: a.Cfg.RespectFrequency,
		BeforeCycle:      a.startSession,
	})
	return nil
}

// RunOnce выполняет один цикл сводок и завершается.
func (a *App) RunOnce(ctx context.Context) error {
	if err := a.setupPipeline(ctx); err != nil {
		return err
	}
	if err := a.startSession(ctx); err != nil {
		return err
	}
	report, err := a.Pipeline.RunCycle(ctx)
	if err != nil {
		return err
	}
	a.Log.Info("цикл выполнен", zap.Any("report", report))
	return nil
}

// Serve запускает HTTP API и расписание до отмены ctx. Ошибка входа в Telegram
// останавливает процесс; при входе через HTTP API поднимается раньше,
// чтобы через него можно было передать код.
func (a *App) Serve(ctx context.Context) error {
	if err := a.setupPipeline(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.Cfg.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("HTTP сервер запущен", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := a.startSession(ctx); err != nil {
			return err
		}
		sched := scheduler.New(a.Cfg.SummaryInterval, func(ctx context.Context) error {
			_, err := a.Pipeline.RunCycle(ctx)
			return err
		}, a.Log.Named("scheduler"))
		a.Log.Info("расписание сводок запущено", zap.Duration("interval", a.Cfg.SummaryInterval))
		if err := sched.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
