package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vavebg/ops-console/internal/counter"
)

// CounterHandler exposes the daily upload counter
type CounterHandler struct {
	counter *counter.DailyCounter
}

// NewCounterHandler creates a new counter handler
func NewCounterHandler(c *counter.DailyCounter) *CounterHandler {
	return &CounterHandler{counter: c}
}

// RegisterRoutes registers counter routes on the given router
func (h *CounterHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/counter", h.GetCounter).Methods("GET")
}

// CounterResponse carries today's upload count
type CounterResponse struct {
	Count int `json:"count"`
}

// GetCounter returns today's upload count
func (h *CounterHandler) GetCounter(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CounterResponse{Count: h.counter.Get(r.Context())})
}
