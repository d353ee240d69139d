package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/diario/core"
	"github.com/trezcool/diario/core/attendance"
)

type Server struct {
	conf     *core.Config
	logger   core.Logger
	app      *echo.Echo
	editors  *editRegistry
	shutdown chan os.Signal
	errors   chan error
}

var _ http.Handler = (*Server)(nil)

func NewServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	svc *attendance.Service,
) *Server {
	s := &Server{
		conf:     conf,
		logger:   logger,
		app:      echo.New(),
		editors:  newEditRegistry(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	s.setup(validate, translator, svc)
	return s
}

func (s *Server) setup(validate *validator.Validate, translator ut.Translator, svc *attendance.Service) {
	s.app.HideBanner = true
	s.app.Logger.SetLevel(log.ERROR)
	s.app.Debug = s.conf.Debug && !s.conf.TestMode
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	registerAttendanceAPI(v1, svc, s.editors, validate)
}

// Start serves HTTP until Shutdown is called; other listener errors are sent to Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.logger.Info("API listening on " + s.conf.Server.Address)
	if err := s.app.Start(s.conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
