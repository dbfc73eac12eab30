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

var DefaultOllamaModels = []string{
	"llama3.2",
	"gemma2:2b",
	"qwen2.5:3b",
	"mistral:7b",
	"phi4:14b",
}

type Ollama struct {
	baseURL string
	models  []string
	client  *http.Client
}

func NewOllama(baseURL string, models []string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if len(models) == 0 {
		models = DefaultOllamaModels
	}
	return &Ollama{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		models:  models,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *Ollama) Name() string {
	return "ollama"
}

func (s *Ollama) setTimeout(d time.Duration) {
	s.client.Timeout = d
}

func (s *Ollama) getRandomModel() string {
	if len(s.models) == 0 {
		return "llama3.2"
	}
	return s.models[rand.Intn(len(s.models))]
}

func (s *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	model := s.getRandomModel()

	jsonData, err := json.Marshal(map[string]interface{}{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return "", newError(s.Name(), KindPermanent, fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/generate", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", newError(s.Name(), KindPermanent, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", newError(s.Name(), KindTransient, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return "", statusError(s.Name(), resp.StatusCode, body)
	}

	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", newError(s.Name(), KindPermanent, fmt.Errorf("failed to decode response: %w", err))
	}

	text := postprocess.Clean(ollamaResp.Response)
	if text == "" {
		return "", newError(s.Name(), KindPermanent, errors.New("empty response from model "+model))
	}
	return text, nil
}

// IsAvailable checks that the Ollama server answers.
func (s *Ollama) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/api/tags", s.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama not available: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *Ollama) Models() []string {
	return s.models
}
