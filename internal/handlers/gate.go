package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vavebg/ops-console/internal/gate"
)

// GateHandler exchanges access codes for unlock tokens
type GateHandler struct {
	gate   *gate.Gate
	logger *zap.Logger
}

// NewGateHandler creates a new gate handler
func NewGateHandler(g *gate.Gate, logger *zap.Logger) *GateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GateHandler{gate: g, logger: logger}
}

// RegisterRoutes registers gate routes on the given router
func (h *GateHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/unlock", h.Unlock).Methods("POST")
}

// UnlockRequest represents an unlock request
type UnlockRequest struct {
	Code string `json:"code"`
}

// UnlockResponse carries the unlock token and its expiry
type UnlockResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Unlock validates the access code and issues an unlock token
func (h *GateHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON in request body")
		return
	}

	token, expiresAt, err := h.gate.Unlock(req.Code)
	if err != nil {
		if errors.Is(err, gate.ErrInvalidCode) {
			h.logger.Warn("gate_unlock_rejected")
			respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid access code")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to issue unlock token")
		return
	}

	h.logger.Info("gate_unlocked",
		zap.Time("expires_at", expiresAt),
	)
	respondJSON(w, http.StatusOK, UnlockResponse{Token: token, ExpiresAt: expiresAt})
}
