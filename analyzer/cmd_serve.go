package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/abiiranathan/rex"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
	"github.com/abiiranathan/dot-analyzer/analyzer/validator"
)

// shutdownTimeout bounds the wait for pending requests on exit.
const shutdownTimeout = 5 * time.Second

// templateRequest is the body of POST /analyze and POST /expand.
type templateRequest struct {
	Template string `json:"template" validate:"required"`
	// Context declares the types of root variables (see scope.Seed).
	Context map[string]any `json:"context,omitempty"`
}

type expandResponse struct {
	Expanded string `json:"expanded"`
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve template analysis over HTTP",
		Long: "Serve POST /analyze and POST /expand. Both take a JSON body\n" +
			`{"template": "...", "context": {...}}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), addr, newRouter(a.cfg, a.logger), a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	return cmd
}

// serve runs handler on addr until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, addr string, handler http.Handler, logger zerolog.Logger) error {
	srv, err := rex.NewServer(addr, handler)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// server handles the HTTP endpoints. Each request analyzes in its own
// scope, so handlers share only read-only configuration.
type server struct {
	cfg    validator.Config
	logger zerolog.Logger
}

func newRouter(cfg validator.Config, logger zerolog.Logger) *rex.Router {
	s := &server{cfg: cfg, logger: logger}

	// Requests are logged by logRequests.
	r := rex.NewRouter(rex.SkipLog(func(*rex.Context) bool { return true }))
	r.Use(s.logRequests)
	r.POST("/analyze", s.analyze)
	r.POST("/expand", s.expand)
	return r
}

func (s *server) logRequests(next rex.HandlerFunc) rex.HandlerFunc {
	return func(c *rex.Context) error {
		start := time.Now()
		err := next(c)

		event := s.logger.Debug()
		if err != nil {
			event = s.logger.Warn().Err(err)
		}
		event.Str("method", c.Method()).Str("path", c.Path()).Dur("latency", time.Since(start)).Msg("request")
		return err
	}
}

// analyze responds with the FileResult of the template: 200 when it has
// no error diagnostic, 422 otherwise.
func (s *server) analyze(c *rex.Context) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	root := scope.New()
	if req.Context != nil {
		if err := scope.Seed(root, req.Context); err != nil {
			return writeJSON(c, http.StatusBadRequest, rex.ErrorResponse{
				Error: rex.ErrorDetail{Message: err.Error(), Code: "invalid_context"},
			})
		}
	}

	result := validator.AnalyzeTemplate("request", req.Template, root, s.cfg)
	status := http.StatusOK
	for _, d := range result.Diagnostics {
		if d.Severity == validator.SeverityError {
			status = http.StatusUnprocessableEntity
			break
		}
	}
	return writeJSON(c, status, result)
}

func (s *server) expand(c *rex.Context) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}
	expanded := s.cfg.Expander.Expand(req.Template, scope.New())
	return writeJSON(c, http.StatusOK, expandResponse{Expanded: expanded})
}

// writeJSON sends v with status. Template text is not HTML-escaped.
func writeJSON(c *rex.Context, status int, v any) error {
	c.Response.Header().Set("Content-Type", rex.ContentTypeJSON)
	c.WriteHeader(status)

	enc := json.NewEncoder(c.Response)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
