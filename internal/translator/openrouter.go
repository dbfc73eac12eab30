package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/sefer/internal/postprocess"
)

var DefaultOpenRouterModels = []string{
	"anthropic/claude-3.5-sonnet",
	"google/gemini-2.0-flash-exp:free",
	"qwen/qwen2.5-72b-instruct:free",
}

type OpenRouter struct {
	apiKey    string
	baseURL   string
	models    []string
	maxTokens int
	client    *http.Client
}

func NewOpenRouter(apiKey, baseURL string, models []string, maxTokens int) *OpenRouter {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if len(models) == 0 {
		models = DefaultOpenRouterModels
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &OpenRouter{
		apiKey:    apiKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		models:    models,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *OpenRouter) Name() string {
	return "openrouter"
}

func (s *OpenRouter) setTimeout(d time.Duration) {
	s.client.Timeout = d
}

func (s *OpenRouter) getRandomModel() string {
	if len(s.models) == 0 {
		return DefaultOpenRouterModels[0]
	}
	return s.models[rand.Intn(len(s.models))]
}

func (s *OpenRouter) Generate(ctx context.Context, prompt string) (string, error) {
	if s.apiKey == "" {
		return "", newError(s.Name(), KindPermanent, errors.New("OpenRouter API key required"))
	}

	jsonData, err := json.Marshal(map[string]interface{}{
		"model": s.getRandomModel(),
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens": s.maxTokens,
	})
	if err != nil {
		return "", newError(s.Name(), KindPermanent, fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat/completions", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", newError(s.Name(), KindPermanent, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	httpReq.Header.Set("X-Title", "Sefer")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", newError(s.Name(), KindTransient, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return "", statusError(s.Name(), resp.StatusCode, body)
	}

	var openrouterResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&openrouterResp); err != nil {
		return "", newError(s.Name(), KindPermanent, fmt.Errorf("failed to decode response: %w", err))
	}

	if len(openrouterResp.Choices) == 0 {
		return "", newError(s.Name(), KindPermanent, errors.New("empty response from API"))
	}

	text := postprocess.Clean(openrouterResp.Choices[0].Message.Content)
	if text == "" {
		return "", newError(s.Name(), KindPermanent, errors.New("empty response from API"))
	}
	return text, nil
}

func (s *OpenRouter) Models() []string {
	return s.models
}
