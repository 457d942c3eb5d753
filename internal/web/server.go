// Package web exposes the webhook endpoint receiving price-candle signals.
// Requests are validated and acknowledged immediately; trade execution runs
// on a background worker so the signal source never blocks on a swap.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/custosbot/custos/internal/domain"
	"github.com/custosbot/custos/internal/treasury"
)

const (
	defaultQueueSize       = 64
	shutdownTimeout        = 5 * time.Second
	signalExecutionTimeout = 3 * time.Minute
)

type signalHandler interface {
	HandleSignal(ctx context.Context, token string, candle domain.Candle) (treasury.SignalOutcome, error)
}

type tokenResolver interface {
	Lookup(token string) (domain.Asset, error)
}

type queuedSignal struct {
	id     string
	token  string
	candle domain.Candle
}

// Server is the webhook HTTP listener.
type Server struct {
	addr     string
	handler  signalHandler
	registry tokenResolver
	logger   *zap.Logger

	queue chan queuedSignal
	wg    sync.WaitGroup
}

// NewServer creates the webhook server.
func NewServer(addr string, handler signalHandler, registry tokenResolver, logger *zap.Logger) *Server {
	return &Server{
		addr:     addr,
		handler:  handler,
		registry: registry,
		logger:   logger.With(zap.String("component", "webhook")),
		queue:    make(chan queuedSignal, defaultQueueSize),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/webhook", s.handleWebhook)
	r.Get("/healthz", s.handleHealth)

	return r
}

// Start runs the listener and the signal worker until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.wg.Add(1)
	go s.worker()

	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)

		close(s.queue)
		s.wg.Wait()
	}()

	s.logger.Info("webhook server listening", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) worker() {
	defer s.wg.Done()

	for signal := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), signalExecutionTimeout)
		outcome, err := s.handler.HandleSignal(ctx, signal.token, signal.candle)
		cancel()

		if err != nil {
			s.logger.Error("signal processing failed",
				zap.String("signal_id", signal.id),
				zap.String("token", signal.token),
				zap.Error(err))
			continue
		}

		s.logger.Info("signal processed",
			zap.String("signal_id", signal.id),
			zap.String("token", signal.token),
			zap.String("action", outcome.Action),
			zap.String("reason", outcome.Reason))
	}
}

type webhookRequest struct {
	Token string      `json:"token"`
	Open  json.Number `json:"open"`
	Close json.Number `json:"close"`
}

type webhookResponse struct {
	Success  bool   `json:"success"`
	Action   string `json:"action,omitempty"`
	SignalID string `json:"id,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, webhookResponse{Error: "invalid payload"})
		return
	}

	if _, err := s.registry.Lookup(req.Token); err != nil {
		s.writeJSON(w, http.StatusBadRequest, webhookResponse{Error: "unknown token"})
		return
	}

	candle, err := parseCandle(req)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, webhookResponse{Error: err.Error()})
		return
	}

	signal := queuedSignal{id: uuid.NewString(), token: req.Token, candle: candle}
	select {
	case s.queue <- signal:
	default:
		s.writeJSON(w, http.StatusServiceUnavailable, webhookResponse{Error: "signal queue full"})
		return
	}

	action := "buy"
	if candle.Rising() {
		action = "sell"
	}
	s.writeJSON(w, http.StatusOK, webhookResponse{Success: true, Action: action, SignalID: signal.id})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}

func parseCandle(req webhookRequest) (domain.Candle, error) {
	openPrice, err := decimal.NewFromString(req.Open.String())
	if err != nil {
		return domain.Candle{}, errors.New("invalid open price")
	}
	closePrice, err := decimal.NewFromString(req.Close.String())
	if err != nil {
		return domain.Candle{}, errors.New("invalid close price")
	}
	return domain.Candle{Open: openPrice, Close: closePrice}, nil
}
