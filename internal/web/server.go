// Package web serves the chat webhook that kicks off bookkeeping and a live feed of finished runs.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/finbook/internal/domain"
)

const (
	runPollInterval   = 2 * time.Second
	heartbeatInterval = 30 * time.Second
	maxEventBodyBytes = 1 << 20
)

type runReader interface {
	RecordsAfter(index uint64) ([]domain.RunRecordEntry, error)
}

type dispatcher interface {
	Dispatch(ctx context.Context) error
}

// TriggerRule decides which chat messages start the bookkeeping workflow.
type TriggerRule struct {
	// ChannelID channel accepted in addition to direct messages.
	ChannelID string
	BotName   string
	Phrase    string
}

// Server exposes the chat event endpoint and an SSE stream of run records.
type Server struct {
	Addr          string
	SigningSecret string
	Rule          TriggerRule
	Dispatcher    dispatcher
	Runs          runReader
	logger        *zap.Logger
}

// NewServer creates a new web server instance. runs may be nil when no journal is configured.
func NewServer(addr, signingSecret string, rule TriggerRule, d dispatcher, runs runReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:          addr,
		SigningSecret: signingSecret,
		Rule:          rule,
		Dispatcher:    d,
		Runs:          runs,
		logger:        logger,
	}
}

// Handler returns the routes served by Start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/slack/events", s.handleSlackEvents)
	mux.HandleFunc("/runs/stream", s.handleRunStream)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	runCtx, stop := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("Webhook server listening", zap.String("addr", s.Addr))
	err := server.ListenAndServe()
	stop()
	<-stopped

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	if s.Runs == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "run journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat keeps proxies from closing the connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(runPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendRuns := func() error {
		records, err := s.Runs.RecordsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Record)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: run\n")
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendRuns(); err != nil {
		http.Error(w, "failed to load runs", http.StatusInternalServerError)
		s.logger.Error("Run stream initial load failed", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendRuns(); err != nil {
				s.logger.Warn("Run stream poll failed", zap.Error(err))
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
