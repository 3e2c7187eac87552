package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/paleo-digest/app/api"
	"github.com/lysyi3m/paleo-digest/app/notify"
	"github.com/lysyi3m/paleo-digest/app/tasks"
)

const shutdownTimeout = 30 * time.Second

type serveCommand struct {
	app *App
}

func (c *serveCommand) Execute(args []string) error {
	a := c.app
	conf := a.cfg

	slog.Info("Starting PaleoDigest server", "version", conf.Version, "port", conf.Port)

	scheduler := tasks.NewScheduler(a.newPipeline(), conf.GetSchedulerInterval())
	scheduler.Start()
	defer scheduler.Stop()

	var bot *api.Bot
	if conf.TelegramBotToken != "" {
		bot = api.NewBot(a.recipients, notify.NewTelegram(conf.TelegramBotToken))
	} else {
		slog.Info("Telegram bot disabled (TELEGRAM_BOT_TOKEN not set)")
	}

	handler := api.NewHandler(a.items, a.recipients, a.runs, scheduler, bot)
	router := api.NewServer(handler, conf.APIAccessKey, conf.TelegramWebhookKey)

	httpServer := &http.Server{
		Addr:         ":" + conf.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var result error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErr:
		result = err
	}

	slog.Info("Shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return result
}
