// Package api exposes the camera client over HTTP. Every dispatch is
// serialised through one lock because the session manager is single-threaded.
package api

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"

	"github.com/nexus-ptz/ptzctl/internal/camera"
	"github.com/nexus-ptz/ptzctl/internal/commands"
	"github.com/nexus-ptz/ptzctl/internal/dispatch"
	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/logging"
	"github.com/nexus-ptz/ptzctl/internal/transport"
)

var codec = jsoniter.Config{
	EscapeHTML:  true,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

const maxBodyBytes = 64 << 10

// Server is the HTTP bridge
type Server struct {
	mu       sync.Mutex
	client   *camera.Client
	router   chi.Router
	errors   *errors.Handler
	logger   *logging.Logger
	shutdown time.Duration
}

// NewServer builds the router for client
func NewServer(client *camera.Client, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.For("api")
	}
	s := &Server{
		client:   client,
		errors:   errors.NewHandler(),
		logger:   logger,
		shutdown: 5 * time.Second,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.HandleHealth)
	r.Get("/status", s.HandleStatus)
	r.Route("/commands", func(r chi.Router) {
		r.Get("/", s.HandleListCommands)
		r.Get("/{name}", s.HandleDescribeCommand)
		r.Post("/{name}", s.HandleExecute)
	})
	r.Post("/camera", s.HandleSetCamera)
	s.router = r
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP bridge listening", "addr", addr, "camera", s.client.Camera())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		s.logger.Info("Shutting down HTTP bridge")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.LogHTTPRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

type healthResponse struct {
	Status       string                `json:"status"`
	Camera       string                `json:"camera"`
	Host         string                `json:"host"`
	SessionValid bool                  `json:"session_valid"`
	Dispatch     dispatch.Stats        `json:"dispatch"`
	Requests     *transport.Statistics `json:"requests,omitempty"`
}

// HandleHealth reports the target without contacting it
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	host, _ := s.client.Host()
	state := s.client.Session()
	resp := healthResponse{
		Status:       "ok",
		Camera:       s.client.Camera(),
		Host:         host,
		SessionValid: state.Valid(time.Now()),
		Dispatch:     s.client.Stats(),
	}
	if stats, ok := s.client.RequestStats(); ok {
		resp.Requests = &stats
	}
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, resp)
}

// HandleStatus samples position, zoom and speed
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	report, err := s.client.Status(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

type paramView struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Required bool    `json:"required"`
	Default  *string `json:"default,omitempty"`
	Help     string  `json:"help,omitempty"`
}

type commandView struct {
	Name        string            `json:"name"`
	Action      string            `json:"action"`
	Description string            `json:"description,omitempty"`
	Usage       string            `json:"usage"`
	Static      map[string]string `json:"static_params,omitempty"`
	Params      []paramView       `json:"params"`
}

func viewOf(spec *commands.CommandSpec) commandView {
	v := commandView{
		Name:        spec.Name,
		Action:      spec.Action,
		Description: spec.Description,
		Usage:       spec.Usage(),
		Params:      []paramView{},
	}
	if len(spec.StaticParams) > 0 {
		v.Static = spec.StaticParams.Map()
	}
	for _, p := range spec.Params {
		v.Params = append(v.Params, paramView{
			Name:     p.Name,
			Type:     p.Kind.String(),
			Required: p.Required,
			Default:  p.Default,
			Help:     p.Help,
		})
	}
	return v
}

// HandleListCommands lists the registry in file order
func (s *Server) HandleListCommands(w http.ResponseWriter, r *http.Request) {
	specs := s.client.Registry().Commands()
	out := make([]commandView, 0, len(specs))
	for _, spec := range specs {
		out = append(out, viewOf(spec))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"commands": out})
}

// HandleDescribeCommand describes one command
func (s *Server) HandleDescribeCommand(w http.ResponseWriter, r *http.Request) {
	spec, err := s.client.Registry().Lookup(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(spec))
}

// HandleExecute dispatches a command with the JSON object body as parameters
func (s *Server) HandleExecute(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	params, err := decodeObject(r.Body)
	if err != nil {
		s.writeError(w, errors.NewErrorBuilder(errors.KindInvalidParameterValue).
			WithCommand(name).
			WithMessage("request body must be a JSON object of parameters").
			WithCause(err).
			Build())
		return
	}

	s.mu.Lock()
	resp, err := s.client.Execute(r.Context(), name, params)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type cameraRequest struct {
	Camera string `json:"camera"`
	Host   string `json:"host"`
}

// HandleSetCamera switches the target camera
func (s *Server) HandleSetCamera(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err == nil {
		err = codec.Unmarshal(body, &req)
	}
	if err != nil || (req.Camera == "" && req.Host == "") {
		s.writeError(w, errors.NewErrorBuilder(errors.KindMissingParameter).
			WithParam("camera").
			WithMessage("body must name a camera alias or a host").
			WithOptions(s.client.Cameras()).
			Build())
		return
	}

	s.mu.Lock()
	err = s.client.SetCamera(req.Camera, req.Host)
	alias := s.client.Camera()
	host, _ := s.client.Host()
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"camera": alias, "host": host})
}

func decodeObject(r io.Reader) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return map[string]any{}, nil
	}
	params := map[string]any{}
	if err := codec.Unmarshal(body, &params); err != nil {
		return nil, err
	}
	return params, nil
}

type errorBody struct {
	Kind    errors.Kind `json:"kind"`
	Message string      `json:"message"`
	Command string      `json:"command,omitempty"`
	Param   string      `json:"param,omitempty"`
	Options []string    `json:"options,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	report := s.errors.Process(err)
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "kind", report.Kind, "error", report.Message)
	}
	s.writeJSON(w, status, map[string]errorBody{"error": {
		Kind:    report.Kind,
		Message: report.Message,
		Command: report.Command,
		Param:   report.Param,
		Options: report.Options,
	}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := codec.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to encode response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
