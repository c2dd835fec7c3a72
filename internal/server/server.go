// Package server exposes the labeling workflow over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ordaro/shipping/internal/labels"
	"github.com/ordaro/shipping/internal/store"
	"github.com/ordaro/shipping/pkg/carrier"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the shipping service.
type Server struct {
	port     int
	registry *carrier.Registry
	service  *labels.Service
	logger   *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, registry *carrier.Registry, service *labels.Service, logger *otelzap.Logger) *Server {
	return &Server{
		port:     cfg.Port,
		registry: registry,
		service:  service,
		logger:   logger,
	}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /shipments/{id}/label", s.handleCreateLabel)
	mux.HandleFunc("POST /carriers/test", s.handleTestCredentials)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type labelResponse struct {
	ShipmentID           string   `json:"shipment_id"`
	TrackingNumber       string   `json:"tracking_number"`
	PieceTrackingNumbers []string `json:"piece_tracking_numbers"`
	Attachment           string   `json:"attachment,omitempty"`
	State                string   `json:"state"`
	Error                string   `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreateLabel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	shipmentID := r.PathValue("id")
	outcome, err := s.service.IssueLabel(r.Context(), shipmentID)

	if err != nil && outcome == nil {
		status := statusForError(err)
		s.logger.Warn("Label issuance failed",
			zap.String("shipment_id", shipmentID),
			zap.Error(err),
		)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(errorResponse{Error: displayMessage(err)})
		return
	}

	resp := labelResponse{
		ShipmentID:           outcome.ShipmentID,
		TrackingNumber:       outcome.TrackingNumber,
		PieceTrackingNumbers: outcome.PieceTrackingNumbers,
		Attachment:           outcome.AttachmentName,
		State:                string(outcome.State),
	}
	if err != nil {
		// Tracking numbers are committed; only the label fetch failed.
		resp.Error = displayMessage(err)
		w.WriteHeader(http.StatusBadGateway)
	}
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleTestCredentials(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	results := s.registry.TestAllCredentials(r.Context())

	type carrierResult struct {
		Carrier string `json:"carrier"`
		OK      bool   `json:"ok"`
		Error   string `json:"error,omitempty"`
	}

	out := make([]carrierResult, 0, len(results))
	allOK := true
	for name, err := range results {
		res := carrierResult{Carrier: name, OK: err == nil}
		if err != nil {
			res.Error = displayMessage(err)
			allOK = false
		}
		out = append(out, res)
	}

	if !allOK {
		w.WriteHeader(http.StatusBadGateway)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"carriers": out})
}

// statusForError maps the carrier error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	switch carrier.ErrKind(err) {
	case carrier.KindValidation:
		return http.StatusBadRequest
	case carrier.KindAuth:
		return http.StatusUnauthorized
	case carrier.KindRemote:
		return http.StatusUnprocessableEntity
	case carrier.KindTransport, carrier.KindDownload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// displayMessage strips the error down to the user-facing message; no
// machine-readable codes are exposed.
func displayMessage(err error) string {
	var cerr *carrier.Error
	if errors.As(err, &cerr) {
		return cerr.Message
	}
	return err.Error()
}
