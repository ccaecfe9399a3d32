// Package echoapi exposes the store over HTTP.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/access"
	"github.com/saber-pedagogico/saber/core/billing"
	"github.com/saber-pedagogico/saber/core/pedagogy"
	"github.com/saber-pedagogico/saber/core/store"
)

type ServerDeps struct {
	Conf       *core.Config
	Logger     core.Logger
	Store      *store.Store
	Policy     *access.Policy
	Analyzer   *pedagogy.Analyzer
	Billing    *billing.Service
	Validate   *validator.Validate
	Translator ut.Translator
}

type Server struct {
	ServerDeps
	app         *echo.Echo
	metrics     *metrics
	started     time.Time
	errors      chan error
	shutdown    chan os.Signal
	unsubscribe func()
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		metrics:    newMetrics(),
		started:    time.Now(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	s.unsubscribe = deps.Store.Subscribe(s.metrics.onStateChange)
	return s
}

func (s *Server) setup() {
	conf := s.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if conf.Server.RequestLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())
	s.app.Use(s.metrics.middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/api/health", s.health)
	s.app.GET("/metrics", s.metrics.handler())
	s.app.POST("/api/webhooks/mercadopago", s.mercadoPagoWebhook)

	v1 := s.app.Group("/v1")
	auth := authMiddleware(s.Store)
	limiter := newRateLimiter(conf.Server.LoginRateLimit, conf.Server.LoginBurst)

	registerAuthAPI(v1, auth, limiter.middleware(), s)
	registerSchoolAPI(v1, auth, s)
	registerReportsAPI(v1, auth, s)
	registerBillingAPI(v1, auth, s)
	registerAdminAPI(v1, auth, s)
}

// Start listens in the background; listening errors are sent to Errors.
func (s *Server) Start() {
	go func() {
		if err := s.app.Start(s.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
			s.errors <- err
		}
	}()
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	s.stop()
	return s.app.Close()
}

func (s *Server) stop() {
	signal.Stop(s.shutdown)
	s.unsubscribe()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Bem-vindo à API do "+s.Conf.AppName+"!")
}

func (s *Server) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"status":      "ok",
		"uptime":      time.Since(s.started).Seconds(),
		"timestamp":   time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"environment": s.Conf.Env,
	})
}
