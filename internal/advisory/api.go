package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/360Method/360-method-app-sub002/internal/config"
)

const (
	openAIURL    = "https://api.openai.com/v1/chat/completions"
	anthropicURL = "https://api.anthropic.com/v1/messages"
)

// APIAdvisor calls an LLM provider's HTTP API directly.
type APIAdvisor struct {
	cfg     config.Advisory
	apiKey  string
	baseURL string // overrides the provider endpoint when set
	client  *http.Client
}

// NewAPIAdvisor creates an advisor that calls LLM APIs.
func NewAPIAdvisor(cfg config.Advisory) (*APIAdvisor, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("advisory: environment variable %q is not set", cfg.APIKeyEnv)
	}
	switch cfg.Provider {
	case "openai", "anthropic":
	default:
		return nil, fmt.Errorf("unsupported API provider: %s", cfg.Provider)
	}

	timeout := time.Duration(cfg.DefaultTimeout()) * time.Second
	return &APIAdvisor{
		cfg:    cfg,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Assess sends the prompt to the configured provider.
func (a *APIAdvisor) Assess(ctx context.Context, req Request) (*Assessment, error) {
	prompt := BuildPrompt(req)

	var (
		output string
		err    error
	)
	switch a.cfg.Provider {
	case "openai":
		output, err = a.callOpenAI(ctx, prompt)
	case "anthropic":
		output, err = a.callAnthropic(ctx, prompt)
	default:
		return nil, fmt.Errorf("unsupported API provider: %s", a.cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return ParseAssessment(output)
}

func (a *APIAdvisor) endpoint(def string) string {
	if a.baseURL != "" {
		return a.baseURL
	}
	return def
}

// callOpenAI handles OpenAI-compatible APIs (OpenAI, OpenRouter, local proxies).
func (a *APIAdvisor) callOpenAI(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model": a.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens": 512,
	}
	headers := map[string]string{"Authorization": "Bearer " + a.apiKey}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := a.post(ctx, a.endpoint(openAIURL), headers, body, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", nil
	}
	return result.Choices[0].Message.Content, nil
}

// callAnthropic handles Anthropic's Messages API.
func (a *APIAdvisor) callAnthropic(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":      a.cfg.Model,
		"max_tokens": 512,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": "2023-06-01",
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := a.post(ctx, a.endpoint(anthropicURL), headers, body, &result); err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		return "", nil
	}
	return result.Content[0].Text, nil
}

func (a *APIAdvisor) post(ctx context.Context, url string, headers map[string]string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("API call failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
