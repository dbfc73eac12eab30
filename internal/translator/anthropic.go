package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/valpere/sefer/internal/postprocess"
)

const (
	anthropicVersion      = "2023-06-01"
	defaultAnthropicModel = "claude-3-5-sonnet-latest"
	defaultMaxTokens      = 1024
	maxResponseSize       = 10 * 1024 * 1024
)

// Anthropic calls the Anthropic messages API.
type Anthropic struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	client    *http.Client
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
}

// NewAnthropic creates an Anthropic backend. An empty apiKey falls back to
// the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(apiKey, baseURL, model string, maxTokens int) *Anthropic {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Anthropic{
		apiKey:    apiKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 180 * time.Second},
	}
}

func (s *Anthropic) Name() string {
	return "anthropic"
}

// Model returns the model identifier sent with each request.
func (s *Anthropic) Model() string {
	return s.model
}

func (s *Anthropic) setTimeout(d time.Duration) {
	s.client.Timeout = d
}

func (s *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	if s.apiKey == "" {
		return "", newError(s.Name(), KindPermanent, errors.New("Anthropic API key required"))
	}

	jsonData, err := json.Marshal(anthropicRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", newError(s.Name(), KindPermanent, fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", newError(s.Name(), KindPermanent, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", newError(s.Name(), KindTransient, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", newError(s.Name(), KindTransient, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(s.Name(), resp.StatusCode, body)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", newError(s.Name(), KindPermanent, fmt.Errorf("failed to decode response: %w", err))
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := postprocess.Clean(sb.String())
	if text == "" {
		return "", newError(s.Name(), KindPermanent, errors.New("empty response from API"))
	}
	return text, nil
}
