package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vavebg/ops-console/internal/pipeline"
)

const (
	// maxUploadMemory bounds the in-memory portion of multipart parsing
	maxUploadMemory = 32 << 20
)

// BatchHandler exposes the upload pipeline over HTTP
type BatchHandler struct {
	orchestrator *pipeline.Orchestrator
	logger       *zap.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(orchestrator *pipeline.Orchestrator, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{orchestrator: orchestrator, logger: logger}
}

// RegisterRoutes registers batch routes on the given router.
// The router should already have the /batch prefix.
func (h *BatchHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.StartBatch).Methods("POST")
	r.HandleFunc("/status", h.BatchStatus).Methods("GET")
}

// StartBatchResponse acknowledges an accepted batch
type StartBatchResponse struct {
	Files int `json:"files"`
}

// StartBatch launches a pipeline run over the uploaded files
func (h *BatchHandler) StartBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Expected multipart form upload")
		return
	}

	var files []pipeline.File
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", "Failed to read uploaded file")
				return
			}
			data, err := io.ReadAll(f)
			closeErr := f.Close()
			if err != nil {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", "Failed to read uploaded file")
				return
			}
			if closeErr != nil {
				h.logger.Warn("upload_close_failed", zap.Error(closeErr))
			}
			files = append(files, pipeline.File{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	if err := h.orchestrator.Start(files); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoFiles):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "No files in batch")
		case errors.Is(err, pipeline.ErrBatchInFlight):
			respondJSONError(w, http.StatusConflict, "Conflict", "A batch is already running")
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to start batch")
		}
		return
	}

	h.logger.Info("batch_accepted",
		zap.Int("files", len(files)),
	)
	respondJSON(w, http.StatusAccepted, StartBatchResponse{Files: len(files)})
}

// BatchStatus reports the current run's log and per-item progress
func (h *BatchHandler) BatchStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orchestrator.Status())
}
