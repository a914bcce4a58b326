// Package caption provides AI-generated captions for photos, with
// single-flight race protection per photo.
package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kimhsiao/photowall/backend/internal/apperr"
)

// Captioner produces a short caption for an image. The payload is a
// base64-encoded JPEG with no embedding-format prefix; language is a BCP 47
// tag selecting the caption language.
type Captioner interface {
	Caption(ctx context.Context, imageB64, language string) (string, error)
}

// ServiceConfig holds captioning service configuration.
type ServiceConfig struct {
	APIEndpoint string `json:"api_endpoint"`
	APIKey      string `json:"api_key"`
	ModelName   string `json:"model_name"`
	MaxTokens   int    `json:"max_tokens"`
}

// HTTPCaptioner calls an OpenAI-compatible vision endpoint.
type HTTPCaptioner struct {
	config     *ServiceConfig
	httpClient *http.Client
}

// NewHTTPCaptioner creates a captioner against the configured endpoint.
func NewHTTPCaptioner(config *ServiceConfig) *HTTPCaptioner {
	if config.MaxTokens == 0 {
		config.MaxTokens = 60
	}
	return &HTTPCaptioner{
		config: config,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type visionRequest struct {
	Model     string          `json:"model"`
	Messages  []visionMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type visionMessage struct {
	Role    string          `json:"role"`
	Content []visionContent `json:"content"`
}

type visionContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL string `json:"url"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Caption asks the vision model for a short caption in the given language.
func (c *HTTPCaptioner) Caption(ctx context.Context, imageB64, language string) (string, error) {
	reqBody := visionRequest{
		Model: c.config.ModelName,
		Messages: []visionMessage{
			{
				Role: "user",
				Content: []visionContent{
					{
						Type: "text",
						Text: fmt.Sprintf("Write a short, warm caption for this "+
							"instant photo in at most 15 words. Respond in %s with "+
							"the caption only, no quotes.", language),
					},
					{
						Type: "image_url",
						ImageURL: &visionImageURL{
							URL: "data:image/jpeg;base64," + imageB64,
						},
					},
				},
			},
		},
		MaxTokens: c.config.MaxTokens,
	}

	resp, err := c.doRequest(ctx, reqBody)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrCaptionFailed, "caption request failed", err)
	}

	if resp.Error != nil {
		return "", apperr.New(apperr.ErrCaptionFailed, "captioning API error: "+resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.ErrCaptionFailed, "no response from captioning service")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", apperr.New(apperr.ErrCaptionFailed, "empty caption from captioning service")
	}
	return text, nil
}

func (c *HTTPCaptioner) doRequest(ctx context.Context, reqBody visionRequest) (*visionResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		c.config.APIEndpoint+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("captioning API returned %d: %s", resp.StatusCode, string(body))
	}

	var visionResp visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&visionResp); err != nil {
		return nil, err
	}

	return &visionResp, nil
}
