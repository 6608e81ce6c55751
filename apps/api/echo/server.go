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

	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/group"
	"github.com/BruceGoodGuy/moodle/core/quiz"
	"github.com/BruceGoodGuy/moodle/core/settings"
	"github.com/BruceGoodGuy/moodle/core/user"
	sessioncache "github.com/BruceGoodGuy/moodle/storage/cache"
	"github.com/BruceGoodGuy/moodle/widget"
)

type (
	ServerDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		UserSvc     user.ServiceInterface
		GroupSvc    group.ServiceInterface
		QuizSvc     quiz.ServiceInterface
		SettingsSvc settings.ServiceInterface
		Renderer    *widget.Renderer
		Cache       sessioncache.Cache
		Validate    *validator.Validate
		Translator  ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig(conf))

	registerUserAPI(v1, jwt, s.deps)
	registerQuizAPI(v1, jwt, s.deps)
	registerReportAPI(v1, jwt, s.deps)
	registerSettingsAPI(v1, jwt, s.deps)
}

func (s *server) Start() {
	addr := s.deps.Conf.Server.Host + ":" + s.deps.Conf.Server.Port
	if err := s.app.Start(addr); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errs
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown triggers a graceful shutdown from within a request.
func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Quiz Grading API!")
}
