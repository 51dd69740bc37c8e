// Package server exposes the caption pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz       liveness and build info
//	GET  /v1/profiles   available caption profiles
//	POST /v1/caption    multipart upload, answers with the captioned image
//	POST /v1/inspect    multipart upload, answers with the input's geometry
//
// Failures are answered as JSON {"code": ..., "message": ...} with the
// status given by errors.HTTPStatus.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/captioner/pkg/buildinfo"
	"github.com/matzehuels/captioner/pkg/codec"
	"github.com/matzehuels/captioner/pkg/errors"
	"github.com/matzehuels/captioner/pkg/observability"
	"github.com/matzehuels/captioner/pkg/pipeline"
)

const (
	// DefaultMaxUpload caps multipart bodies when Options leaves it unset.
	DefaultMaxUpload = 20 << 20

	defaultShutdownTimeout = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// Server serves caption requests through a shared pipeline.Runner.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
	opts   Options
	router chi.Router
}

// New builds a server around runner. A nil logger selects log.Default().
func New(runner *pipeline.Runner, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUpload
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{runner: runner, logger: logger, opts: opts}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/profiles", s.handleProfiles)
		r.Post("/caption", s.handleCaption)
		r.Post("/inspect", s.handleInspect)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// observe reports every request to the HTTP hooks and the debug log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

type profileInfo struct {
	Name        string `json:"name"`
	ScaleFactor int    `json:"scale_factor"`
	Policy      string `json:"policy"`
	Placement   string `json:"placement"`
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := s.runner.Profiles
	out := make([]profileInfo, 0, len(profiles))
	for _, name := range profiles.Names() {
		p := profiles[name]
		out = append(out, profileInfo{
			Name:        p.Name,
			ScaleFactor: p.FontScaleFactor,
			Policy:      p.Policy.String(),
			Placement:   p.Placement.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": out})
}

func (s *Server) handleCaption(w http.ResponseWriter, r *http.Request) {
	input, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := pipeline.Options{
		Title:     r.FormValue("title"),
		Profile:   r.FormValue("profile"),
		Flags:     pipeline.SplitFlags(r.FormValue("flags")),
		Author:    r.FormValue("author"),
		Format:    r.FormValue("format"),
		Placement: r.FormValue("placement"),
	}
	if v := r.FormValue("refresh"); v != "" {
		opts.Refresh, _ = strconv.ParseBool(v)
	}

	res, err := s.runner.Execute(r.Context(), input, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id := uuid.NewString()
	s.logger.Info("caption served",
		"id", id,
		"format", res.Format,
		"frames", res.Frames,
		"cache_hit", res.CacheHit,
		"request_id", middleware.GetReqID(r.Context()))

	h := w.Header()
	h.Set("Content-Type", codec.ContentType(res.Format))
	h.Set("Content-Length", strconv.Itoa(len(res.Artifact)))
	h.Set("X-Caption-Id", id)
	h.Set("X-Caption-Upscaled", strconv.FormatBool(res.Upscaled))
	h.Set("X-Caption-Frames", strconv.Itoa(res.Frames))
	h.Set("X-Caption-Cache", cacheStatus(res.CacheHit))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifact)
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	input, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ins, err := s.runner.Inspect(r.Context(), input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ins)
}

// readUpload returns the bytes of the multipart "image" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.opts.MaxUploadBytes
	if r.ContentLength > limit {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, &http.MaxBytesError{Limit: limit}, "upload exceeds %d bytes", limit)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "upload exceeds %d bytes", limit)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "expected a multipart form")
	}
	f, _, err := r.FormFile("image")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "missing image field")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read image")
	}
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "image is empty")
	}
	return data, nil
}

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)

	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatus(code)
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}

	msg := errors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		if code == errors.ErrCodeInternal {
			msg = "internal error"
		}
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "code", code, "error", err)
	}
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
