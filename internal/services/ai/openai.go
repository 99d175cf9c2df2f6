// Package ai implements the image-analysis collaborator on an
// OpenAI-compatible chat completions API. The base URL is configurable so the
// same client serves any compatible vision endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/vavebg/ops-console/internal/models"
)

const (
	// DefaultModel is the default vision-capable model
	DefaultModel = "gpt-4o-mini"
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 60 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

const analysisPrompt = `Analyze this image and output a JSON object strictly based on this structure:
{
  "title": "String (English, 30-60 chars, SEO friendly)",
  "description": "String (English, 80-150 chars)",
  "prompt": "String (Midjourney style detailed prompt, >150 words)",
  "tag1": "String (Primary Subject)",
  "tag2": "String (Mood/Tone)",
  "tag3": "String (Key Element)"
}
Rules:
- NO markdown formatting.
- NO slugs.
- STRICTLY use straight double quotes (").`

// OpenAIAnalyzer implements the pipeline's Analyzer on chat completions
type OpenAIAnalyzer struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIAnalyzer creates an analyzer with default logging
func NewOpenAIAnalyzer(apiKey, model string) *OpenAIAnalyzer {
	return NewOpenAIAnalyzerWithLogger(apiKey, DefaultBaseURL, model, nil, false)
}

// NewOpenAIAnalyzerWithLogger creates an analyzer with logger support
func NewOpenAIAnalyzerWithLogger(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIAnalyzer {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIAnalyzer{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Analyze submits the stored image URL for captioning and returns the
// structured result. Upstream failures (content-policy rejections, quota
// errors) keep their explanation intact for the caller to surface.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, imageURL string) (*models.AnalysisResult, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are an image captioning assistant. Respond with valid JSON only."),
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(analysisPrompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: imageURL,
			}),
		}),
	}

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(a.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	if a.logger != nil && a.debugMode {
		a.logger.Debug("llm_api_request",
			zap.String("operation", "analyze_image"),
			zap.String("model", a.model),
			zap.String("image_url", imageURL),
		)
	}

	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if a.logger != nil && a.debugMode {
			a.logger.Debug("llm_api_error",
				zap.String("operation", "analyze_image"),
				zap.String("model", a.model),
				zap.Error(err),
				zap.Duration("latency", latency),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, apiErr
		}
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if a.logger != nil && a.debugMode {
		a.logger.Debug("llm_api_response",
			zap.String("operation", "analyze_image"),
			zap.String("model", a.model),
			zap.Int("response_length", len(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return parseAnalysisResponse(content)
}

// parseAnalysisResponse decodes the model's JSON output, tolerating stray
// text around the object the way models occasionally emit it
func parseAnalysisResponse(content string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	raw := content
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		if len(raw) > 0 && raw[0] != '{' {
			start := bytes.Index([]byte(raw), []byte("{"))
			end := bytes.LastIndex([]byte(raw), []byte("}"))
			if start != -1 && end != -1 && end > start {
				raw = raw[start : end+1]
			}
		}
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, fmt.Errorf("failed to parse analysis response: %w", err)
		}
	}

	if result.Title == "" {
		return nil, fmt.Errorf("analysis response missing title")
	}
	return &result, nil
}
