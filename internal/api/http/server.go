package httpapi

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Paintersrp/reaper/internal/api"
	"github.com/Paintersrp/reaper/internal/logging"
	"github.com/Paintersrp/reaper/internal/metrics"
	"github.com/Paintersrp/reaper/internal/node"
)

const (
	defaultAddr            = "127.0.0.1:7664"
	defaultReadHeader      = 5 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	maxInvokeBody          = 1 << 20

	nodesPrefix = "/api/v1/nodes"
)

// Config controls construction of the API server.
type Config struct {
	Addr              string
	Controller        api.Controller
	Listener          net.Listener
	Logger            logrus.FieldLogger
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server wraps an http.Server exposing the configured nodes.
type Server struct {
	ctrl            api.Controller
	srv             *http.Server
	listener        net.Listener
	log             logrus.FieldLogger
	shutdownTimeout time.Duration
}

// NewServer constructs a Server with sane defaults.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if v := reflect.ValueOf(cfg.Controller); v.Kind() == reflect.Ptr && v.IsNil() {
		return nil, fmt.Errorf("controller is required (got nil %T)", cfg.Controller)
	}
	addr := normalizeAddr(cfg.Addr)
	mux := http.NewServeMux()
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	if srv.ReadHeaderTimeout == 0 {
		srv.ReadHeaderTimeout = defaultReadHeader
	}
	server := &Server{
		ctrl:            cfg.Controller,
		srv:             srv,
		listener:        cfg.Listener,
		log:             cfg.Logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if server.log == nil {
		server.log = logging.Discard()
	}
	if server.shutdownTimeout == 0 {
		server.shutdownTimeout = defaultShutdownTimeout
	}
	server.registerRoutes(mux)
	metrics.EmitBuildInfo()
	return server, nil
}

// Run starts serving until the provided context is cancelled.
func (s *Server) Run(ctx stdcontext.Context) error {
	if ctx == nil {
		ctx = stdcontext.Background()
	}
	errCh := make(chan error, 1)
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), s.shutdownTimeout)
			defer cancel()
			_ = s.srv.Shutdown(shutdownCtx)
		case <-stop:
		}
	}()

	go func() {
		var err error
		if s.listener != nil {
			err = s.srv.Serve(s.listener)
		} else {
			err = s.srv.ListenAndServe()
		}
		errCh <- err
	}()

	s.log.WithField("addr", s.Addr()).Info("node server listening")
	err := <-errCh
	close(stop)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc(nodesPrefix, s.handleNodes)
	mux.HandleFunc(nodesPrefix+"/", s.handleNode)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	defs, err := s.ctrl.Nodes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"nodes": defs})
}

// handleNode serves /api/v1/nodes/{name} and /api/v1/nodes/{name}/invoke.
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, nodesPrefix+"/")
	name, action, _ := strings.Cut(rest, "/")
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(action, "/") {
		s.writeErrorWithDetails(w, fmt.Errorf("%w: invalid node path", api.ErrUnknownNode), map[string]any{"node": name})
		return
	}

	switch action {
	case "":
		s.handleDefinition(w, r, name)
	case "invoke":
		s.handleInvoke(w, r, name)
	default:
		s.writeErrorWithDetails(w, fmt.Errorf("%w: unknown action %q", api.ErrUnknownNode, action), map[string]any{"node": name})
	}
}

func (s *Server) handleDefinition(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	def, err := s.ctrl.Node(r.Context(), name)
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"node": name})
		return
	}
	s.writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	in, err := decodeInvoke(io.LimitReader(r.Body, maxInvokeBody))
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"node": name})
		return
	}
	result, err := s.ctrl.Invoke(r.Context(), name, in)
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"node": name})
		return
	}
	s.log.WithFields(logrus.Fields{
		"node":    name,
		"outcome": result.Details.Outcome,
	}).Info("node invoked")
	s.writeJSON(w, http.StatusOK, result)
}

// invokeRequest distinguishes an absent text field from an empty one.
type invokeRequest struct {
	Text      *string   `json:"text"`
	Trigger   bool      `json:"trigger"`
	ForceKill node.Flag `json:"force_kill"`
}

func decodeInvoke(r io.Reader) (node.Inputs, error) {
	var req invokeRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return node.Inputs{}, fmt.Errorf("%w: request body is required", api.ErrInvalidRequest)
		}
		return node.Inputs{}, fmt.Errorf("%w: %v", api.ErrInvalidRequest, err)
	}
	if req.Text == nil {
		return node.Inputs{}, fmt.Errorf("%w: text is required", api.ErrInvalidRequest)
	}
	return node.Inputs{Text: *req.Text, Trigger: req.Trigger, ForceKill: req.ForceKill}, nil
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, method string) {
	w.Header().Set("Allow", method)
	s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{
		Code:    "method_not_allowed",
		Message: fmt.Sprintf("method %s not allowed", method),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorWithDetails(w, err, nil)
}

func (s *Server) writeErrorWithDetails(w http.ResponseWriter, err error, extra map[string]any) {
	status, code := classifyError(err)
	details := map[string]any{
		"timestamp": time.Now().UTC(),
	}
	for k, v := range extra {
		details[k] = v
	}
	body := errorBody{
		Code:    code,
		Message: err.Error(),
		Details: details,
	}
	s.writeJSON(w, status, body)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, stdcontext.Canceled):
		return 499, "context_canceled"
	case errors.Is(err, api.ErrUnknownNode):
		return http.StatusNotFound, "unknown_node"
	case errors.Is(err, api.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func normalizeAddr(addr string) string {
	if strings.TrimSpace(addr) == "" {
		return defaultAddr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// If parsing failed, trust caller.
		return addr
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
