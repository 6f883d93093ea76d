package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"gloss-relay/internal/config"
	"gloss-relay/internal/provider"
	"gloss-relay/internal/relay"
	"gloss-relay/internal/translator"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 45 * time.Second
	idleTimeout         = 120 * time.Second

	// upstreamLabel names the upstream in client-facing error details.
	upstreamLabel = "Ollama"
)

type Server struct {
	cfg     config.Config
	relay   *relay.Relay
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, rl *relay.Relay) (*Server, error) {
	if rl == nil {
		return nil, errors.New("relay must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = detailErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(corsConfig(cfg.CORS)))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	srv := &Server{
		cfg:     cfg,
		relay:   rl,
		app:     e,
		address: cfg.Server.Address(),
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed echo instance.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg)
	slog.Info("starting server", "addr", s.address, "upstream", s.cfg.Upstream.URL, "model", s.cfg.Upstream.Model)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/", s.handleRoot)
	s.app.GET("/health", s.handleHealth)
	s.app.POST("/generate", s.handleGenerate)
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Hello World"})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(c echo.Context) error {
	var req translator.GenerateRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	resp, err := s.relay.GenerateSentence(c.Request().Context(), req.ASLWords)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, resp)
}

func corsConfig(cfg config.CORSConfig) middleware.CORSConfig {
	out := middleware.CORSConfig{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		AllowCredentials: cfg.AllowCredentials,
	}
	for _, origin := range cfg.AllowOrigins {
		// A literal "*" cannot be combined with credentials in browsers, so
		// the wildcard reflects the caller's origin instead.
		if origin == "*" && cfg.AllowCredentials {
			out.UnsafeWildcardOriginWithAllowCredentials = true
		}
	}
	return out
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusUnprocessableEntity,
				Message: "request body is required",
			}
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return requestError{
				Status:  http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
			}
		}
		return requestError{
			Status:  http.StatusUnprocessableEntity,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusUnprocessableEntity,
			Message: "request body must contain a single JSON object",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeError(c echo.Context, status int, message string) error {
	if c.Response().Committed {
		return nil
	}
	return c.JSON(status, errorBody{Detail: message})
}

func detailErrorHandler(err error, c echo.Context) {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = writeError(c, he.Code, fmt.Sprint(he.Message))
		return
	}

	slog.Error("unhandled request error", "method", c.Request().Method, "uri", c.Request().RequestURI, "err", err)
	_ = writeError(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// toHTTPError maps relay and upstream failures onto client responses.
func toHTTPError(err error) error {
	if errors.Is(err, relay.ErrInvalidInput) {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: relay.ErrInvalidInput.Error(),
		}
	}

	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		return requestError{
			Status:  http.StatusBadGateway,
			Message: fmt.Sprintf("%s error %d: %s", upstreamLabel, statusErr.StatusCode, statusErr.Body),
		}
	}

	var transportErr *provider.TransportError
	if errors.As(err, &transportErr) {
		return requestError{
			Status:  http.StatusBadGateway,
			Message: fmt.Sprintf("Failed to reach %s: %v", upstreamLabel, transportErr.Err),
		}
	}

	if errors.Is(err, provider.ErrEmptyReply) {
		return requestError{
			Status:  http.StatusBadGateway,
			Message: upstreamLabel + " returned an empty message",
		}
	}

	return err
}

func printStartupBanner(cfg config.Config) {
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	fmt.Println()
	fmt.Println("gloss-relay ready")
	fmt.Printf("Listening on http://%s:%d\n", host, cfg.Server.Port)
	fmt.Printf("Upstream: %s (model %s)\n", cfg.Upstream.URL, cfg.Upstream.Model)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /generate")
	fmt.Printf("Example:\n  curl http://%s:%d/generate -H 'Content-Type: application/json' -d '{\"aslWords\":[\"STORE\",\"I\",\"GO\"]}'\n\n", host, cfg.Server.Port)
}
