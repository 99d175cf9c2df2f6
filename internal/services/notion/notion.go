// Package notion records published assets as pages in a Notion database and
// queues the channel announcement that follows a successful record.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vavebg/ops-console/internal/models"
	"github.com/vavebg/ops-console/internal/queue"
)

const (
	// DefaultAPIBaseURL is the Notion API endpoint
	DefaultAPIBaseURL = "https://api.notion.com"
	// APIVersion is the pinned Notion-Version header value
	APIVersion = "2022-06-28"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second
)

// Recorder writes analysis results to a Notion database. On success it
// enqueues an announcement job; enqueue failures are logged and swallowed so
// the record outcome stays intact.
type Recorder struct {
	apiKey        string
	databaseID    string
	siteBaseURL   string
	announceDelay time.Duration
	apiBaseURL    string
	httpClient    *http.Client
	jobQueue      queue.JobQueue
	logger        *zap.Logger
	now           func() time.Time
}

// NewRecorder creates a Notion recorder. jobQueue may be nil to disable
// announcements.
func NewRecorder(apiKey, databaseID, siteBaseURL string, announceDelay time.Duration, jobQueue queue.JobQueue, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		apiKey:        apiKey,
		databaseID:    databaseID,
		siteBaseURL:   siteBaseURL,
		announceDelay: announceDelay,
		apiBaseURL:    DefaultAPIBaseURL,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		jobQueue:      jobQueue,
		logger:        logger,
		now:           time.Now,
	}
}

func richText(content string) map[string]any {
	return map[string]any{
		"rich_text": []map[string]any{
			{"text": map[string]any{"content": content}},
		},
	}
}

// Record creates a page for the asset in the configured database
func (r *Recorder) Record(ctx context.Context, req models.RecordRequest) error {
	title := req.Title
	if title == "" {
		title = "Untitled"
	}

	page := map[string]any{
		"parent": map[string]any{"database_id": r.databaseID},
		"properties": map[string]any{
			"Title": map[string]any{
				"title": []map[string]any{
					{"text": map[string]any{"content": title}},
				},
			},
			"AssetID":     richText(req.AssetID),
			"Description": richText(req.Description),
			"Prompt":      richText(req.Prompt),
			"Tag 1":       richText(req.Tag1),
			"Tag 2":       richText(req.Tag2),
			"Tag 3":       richText(req.Tag3),
			"Date": map[string]any{
				"date": map[string]any{"start": r.now().UTC().Format(time.RFC3339)},
			},
			"Image": map[string]any{
				"files": []map[string]any{
					{
						"name": "cover",
						"type": "external",
						"external": map[string]any{
							"url": req.ImageURL,
						},
					},
				},
			},
		},
	}

	payload, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal notion page: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiBaseURL+"/v1/pages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build notion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Notion-Version", APIVersion)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("notion request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errorData struct {
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errorData); decodeErr == nil && errorData.Message != "" {
			return fmt.Errorf("notion error: %s", errorData.Message)
		}
		return fmt.Errorf("notion returned status %d", resp.StatusCode)
	}

	r.logger.Info("notion_page_created",
		zap.String("asset_id", req.AssetID),
	)

	r.enqueueAnnouncement(ctx, req)
	return nil
}

// enqueueAnnouncement schedules the channel post for a recorded asset.
// Best effort: the page already exists, so failures only cost the announcement.
func (r *Recorder) enqueueAnnouncement(ctx context.Context, req models.RecordRequest) {
	if r.jobQueue == nil {
		return
	}

	caption := fmt.Sprintf("New post from %s/p/%s", r.siteBaseURL, req.AssetID)
	job := queue.NewAnnounceJob(req.AssetID, req.ImageURL, caption)
	if r.announceDelay > 0 {
		notBefore := r.now().Add(r.announceDelay)
		job.NotBefore = &notBefore
	}

	if err := r.jobQueue.Enqueue(ctx, job); err != nil {
		r.logger.Error("announce_enqueue_failed",
			zap.String("asset_id", req.AssetID),
			zap.Error(err),
		)
		return
	}

	r.logger.Info("announce_enqueued",
		zap.String("asset_id", req.AssetID),
		zap.Duration("delay", r.announceDelay),
	)
}
