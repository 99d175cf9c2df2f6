// Package storage implements the object-store collaborator on Cloudinary's
// unsigned upload endpoint.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vavebg/ops-console/internal/models"
	"github.com/vavebg/ops-console/internal/pipeline"
)

const (
	// DefaultUploadURLFormat is the Cloudinary unsigned image upload endpoint
	DefaultUploadURLFormat = "https://api.cloudinary.com/v1_1/%s/image/upload"
	// DefaultTimeout is the default timeout for upload calls
	DefaultTimeout = 60 * time.Second
)

// CloudinaryStore uploads files with an unsigned upload preset
type CloudinaryStore struct {
	uploadURL    string
	uploadPreset string
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewCloudinaryStore creates an object store for the given cloud name and
// unsigned upload preset
func NewCloudinaryStore(cloudName, uploadPreset string, logger *zap.Logger) *CloudinaryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudinaryStore{
		uploadURL:    fmt.Sprintf(DefaultUploadURLFormat, cloudName),
		uploadPreset: uploadPreset,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		logger:       logger,
	}
}

// uploadResponse is the subset of Cloudinary's response the pipeline needs
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	AssetID   string `json:"asset_id"`
}

// Upload submits the file and returns its public URL and asset identifier
func (s *CloudinaryStore) Upload(ctx context.Context, file pipeline.File) (*models.StoredAsset, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.WriteField("upload_preset", s.uploadPreset); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn("failed_to_close_upload_response", zap.Error(closeErr))
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload returned status %d", resp.StatusCode)
	}

	var parsed uploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	if parsed.SecureURL == "" || parsed.AssetID == "" {
		return nil, fmt.Errorf("upload response missing url or asset id")
	}

	s.logger.Debug("file_uploaded",
		zap.String("file", file.Name),
		zap.String("asset_id", parsed.AssetID),
	)

	return &models.StoredAsset{URL: parsed.SecureURL, AssetID: parsed.AssetID}, nil
}
