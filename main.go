package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tgdigest_go/internal/app"
	"tgdigest_go/internal/config"
	"tgdigest_go/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:           "tgdigest",
		Short:         "Сводки Telegram-каналов",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "путь к .env (по умолчанию ENV_FILE или .env)")

	cmd.AddCommand(
		newCmd("serve", "HTTP API и сводки по расписанию", &envFile, (*config.Config).Validate, (*app.App).Serve),
		newCmd("run", "один цикл сводок", &envFile, (*config.Config).Validate, (*app.App).RunOnce),
		newCmd("login", "вход в Telegram и сохранение сессии", &envFile, (*config.Config).ValidateLogin, (*app.App).Login),
		newCmd("migrate", "создание схемы БД", &envFile, validateDB, (*app.App).Migrate),
	)
	return cmd
}

func validateDB(c *config.Config) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("missing required settings: DATABASE_URL")
	}
	return nil
}

func newCmd(use, short string, envFile *string, validate func(*config.Config) error, run func(*app.App, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := validate(cfg); err != nil {
				log.Error("некорректная конфигурация", zap.Error(err))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a := app.New(cfg, log)
			defer a.Close()
			if err := run(a, ctx); err != nil {
				log.Error("команда завершилась с ошибкой", zap.String("command", use), zap.Error(err))
				return err
			}
			return nil
		},
	}
}
