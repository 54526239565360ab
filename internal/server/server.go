package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"diet-coach/internal/conversation"
	"diet-coach/internal/gateway"
	"diet-coach/internal/logger"
	"diet-coach/internal/metrics"
	"diet-coach/internal/models"
	"diet-coach/internal/storage"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Host          string
	Port          int
	ChannelSecret string
	// RequestsPerSecond and Burst bound inbound messages per user.
	RequestsPerSecond float64
	Burst             int
}

type CoachServer struct {
	httpServer *http.Server
	storage    storage.Store
	machine    *conversation.Machine
	messenger  gateway.Messenger
	limiter    *userLimiter
	config     *Config
}

// NewCoachServer wires the HTTP surface around store and messenger. The server
// owns store and closes it on Stop.
func NewCoachServer(cfg *Config, store storage.Store, messenger gateway.Messenger) *CoachServer {
	if messenger == nil {
		messenger = gateway.Unconfigured{}
	}

	s := &CoachServer{
		storage:   store,
		machine:   conversation.NewMachine(store),
		messenger: messenger,
		limiter:   newUserLimiter(cfg.RequestsPerSecond, cfg.Burst),
		config:    cfg,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the routed HTTP handler.
func (s *CoachServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	r.HandleFunc("/callback", s.handleCallback).Methods(http.MethodPost)
	r.Handle("/mcp", c.Handler(http.HandlerFunc(s.handleMCP))).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *CoachServer) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		duration := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.statusCode), duration)
		logger.Debug("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", path),
			zap.Int("status", rec.statusCode),
			zap.Duration("duration", duration))
	})
}

func (s *CoachServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.config.ChannelSecret == "" || !gateway.Configured(s.messenger) {
		http.Error(w, "Missing messaging credentials", http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	events, err := gateway.ParseWebhook(body, r.Header.Get(gateway.SignatureHeader), s.config.ChannelSecret)
	if err != nil {
		logger.Warn("rejected webhook", zap.Error(err))
		http.Error(w, "Invalid signature/body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	for _, ev := range events {
		if !s.limiter.Allow(ev.UserID) {
			metrics.RecordRateLimited()
			logger.Warn("rate limited", zap.String("user_id", ev.UserID))
			continue
		}

		res, err := s.machine.Handle(ctx, ev.UserID, strings.TrimSpace(ev.Text))
		if err != nil {
			metrics.RecordStoreError()
			logger.Error("failed to handle message", zap.String("user_id", ev.UserID), zap.Error(err))
			http.Error(w, "Session store unavailable", http.StatusInternalServerError)
			return
		}
		metrics.RecordMessage(string(res.Command), res.Completed)

		if err := s.messenger.Reply(ctx, ev.ReplyToken, res.Reply); err != nil {
			logger.Error("failed to send reply", zap.String("user_id", ev.UserID), zap.Error(err))
		}
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *CoachServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var request protocol.CallToolRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools()[request.Name]
	if !ok {
		metrics.RecordToolCall(request.Name, "unknown")
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		status := statusFor(err)
		metrics.RecordToolCall(request.Name, strconv.Itoa(status))
		if status == http.StatusInternalServerError {
			logger.Error("tool call failed", zap.String("tool", request.Name), zap.Error(err))
		}
		http.Error(w, err.Error(), status)
		return
	}
	metrics.RecordToolCall(request.Name, "ok")

	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidParams),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrIncompleteProfile),
		errors.Is(err, storage.ErrInvalidUserID):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *CoachServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status":    "healthy",
		"messaging": gateway.Configured(s.messenger),
	}
	if err := s.storage.Ping(ctx); err != nil {
		status["status"] = "unhealthy"
		status["error"] = err.Error()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(status)
		return
	}
	writeJSON(w, status)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *CoachServer) Start(ctx context.Context) error {
	logger.Info("starting diet coach server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *CoachServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.storage != nil {
		if cerr := s.storage.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *CoachServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
