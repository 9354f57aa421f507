package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	tele "gopkg.in/telebot.v4"

	"github.com/example/classbook/internal/auth"
	"github.com/example/classbook/internal/logx"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

type Dispatcher interface {
	Handle(ctx context.Context, command string, from int64) string
}

type Replier interface {
	NotifyTo(chatID int64, text string)
}

type SchedulerStatus interface {
	Armed() bool
}

type WebhookSetter interface {
	SetWebhook(publicURL, secret string) error
}

// Server exposes the chat webhook, a health probe and the operator
// set-webhook endpoint.
type Server struct {
	Dispatcher Dispatcher
	Replier    Replier
	Scheduler  SchedulerStatus
	// Webhook is nil when no bot token is configured.
	Webhook WebhookSetter
	// Secret, when set, must match the secret token header on every update.
	Secret   string
	Operator auth.Operator
	Log      logx.Logger
}

func (s *Server) Routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.Log.Debug("http request",
				logx.String("method", v.Method),
				logx.String("uri", v.URI),
				logx.Int("status", v.Status),
				logx.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/health", s.handleHealth)
	e.POST("/webhook", s.handleWebhook)

	if s.Operator.Enabled() {
		e.GET("/set-webhook", s.handleSetWebhook, middleware.BasicAuth(func(user, pw string, c echo.Context) (bool, error) {
			return s.Operator.Check(user, pw), nil
		}))
	}

	return e
}

func (s *Server) handleHealth(c echo.Context) error {
	status := "stopped"
	if s.Scheduler != nil && s.Scheduler.Armed() {
		status = "running"
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "scheduler": status})
}

func (s *Server) handleWebhook(c echo.Context) (err error) {
	log := s.Log.With(logx.String("comp", "webhook"))

	defer func() {
		if r := recover(); r != nil {
			log.Error("webhook panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			err = c.JSON(http.StatusInternalServerError, map[string]any{"ok": false, "error": fmt.Sprint(r)})
		}
	}()

	if s.Secret != "" && !auth.SecureEq(c.Request().Header.Get(secretHeader), s.Secret) {
		log.Warn("webhook secret mismatch")
		return c.JSON(http.StatusUnauthorized, map[string]any{"ok": false, "error": "unauthorized"})
	}

	var upd tele.Update
	if err := json.NewDecoder(c.Request().Body).Decode(&upd); err != nil {
		log.Warn("invalid update body", logx.Err(err))
		return c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid update"})
	}

	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return c.JSON(http.StatusOK, map[string]any{"ok": true})
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return c.JSON(http.StatusOK, map[string]any{"ok": true})
	}

	cmd := strings.Fields(text)[0]
	chatID := msg.Chat.ID
	ctx := context.WithoutCancel(c.Request().Context())
	reply := s.Dispatcher.Handle(ctx, cmd, chatID)
	s.Replier.NotifyTo(chatID, reply)

	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSetWebhook(c echo.Context) error {
	if s.Webhook == nil {
		return c.String(http.StatusBadRequest, "Missing TELEGRAM_BOT_TOKEN env var")
	}
	url := strings.TrimSpace(c.QueryParam("url"))
	if url == "" {
		return c.String(http.StatusBadRequest, "Provide ?url=https://yourdomain.com/webhook")
	}
	if err := s.Webhook.SetWebhook(url, s.Secret); err != nil {
		s.Log.Error("set webhook failed", logx.String("url", url), logx.Err(err))
		return c.JSON(http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
	}
	s.Log.Info("webhook registered", logx.String("url", url))
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "url": url})
}

// Start serves e on addr until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, e *echo.Echo, log logx.Logger) error {
	e.Server.ReadHeaderTimeout = 5 * time.Second

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", logx.String("addr", addr))
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
