// Package httpapi serves the chatbot endpoint and Prometheus metrics over
// plain HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/common"
	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/dmitrijs2005/civicreport/internal/server/auth"
	"github.com/dmitrijs2005/civicreport/internal/server/metrics"
	"github.com/dmitrijs2005/civicreport/internal/server/services"
)

const (
	maxBodyBytes    = 8 << 10
	shutdownTimeout = 5 * time.Second
)

// Chatbot answers assistant queries.
type Chatbot interface {
	Answer(ctx context.Context, query, userID string) (*services.ChatReply, error)
}

type chatQuery struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
}

type chatReply struct {
	Response     string `json:"response"`
	RequiresAuth bool   `json:"requiresAuth"`
}

type errorReply struct {
	Message string `json:"message"`
}

type Server struct {
	address   string
	chatbot   Chatbot
	jwtSecret []byte
	metrics   *metrics.Metrics
	logger    logging.Logger
}

func NewServer(address string, chatbot Chatbot, secretKey string, mt *metrics.Metrics, logger logging.Logger) *Server {
	return &Server{
		address:   address,
		chatbot:   chatbot,
		jwtSecret: []byte(secretKey),
		metrics:   mt,
		logger:    logger.With("module", "http_server"),
	}
}

// Handler returns the routed handler:
//
//	POST /api/chatbot/query
//	GET  /metrics
//	GET  /healthz
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chatbot/query", s.chatbotQuery)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s.logRequests(mux)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is done. A listener failure stops the
// shutdown watcher before the error is returned.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-stopped
		return err
	}
	return <-stopped
}

func (s *Server) chatbotQuery(w http.ResponseWriter, r *http.Request) {
	var q chatQuery
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Message: "malformed request"})
		return
	}

	userID, err := s.caller(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorReply{Message: err.Error()})
		return
	}
	if q.UserID != "" && userID != "" && q.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorReply{Message: common.ErrorForbidden.Error()})
		return
	}

	reply, err := s.chatbot.Answer(r.Context(), q.Query, userID)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorReply{Message: err.Error()})
			return
		}
		s.logger.Error(r.Context(), "chatbot failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorReply{Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, chatReply{Response: reply.Response, RequiresAuth: reply.RequiresAuth})
}

// caller returns the account behind the bearer token, or "" when the
// request carries none. The userId in the body is never trusted on its own.
func (s *Server) caller(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", nil
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return "", common.ErrInvalidToken
	}
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug(r.Context(), "http request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
