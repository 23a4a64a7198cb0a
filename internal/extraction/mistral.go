package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const mistralPrompt = "Extract all mathematical text, equations, and problems from this image. " +
	"Return the mathematical content as plain text, preserving mathematical notation, " +
	"symbols, and formatting. Include all visible text and mathematical expressions " +
	"exactly as they appear."

// mistralConfidence is the fixed confidence assigned to vision-model output;
// the model reports none of its own.
const mistralConfidence = 0.9

// MistralConfig configures the Mistral vision provider.
type MistralConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// MistralProvider extracts math text with Mistral's vision chat-completions
// endpoint. It is the high-accuracy, math-aware head of the provider list.
type MistralProvider struct {
	cfg    MistralConfig
	client *http.Client
	logger *slog.Logger
}

func NewMistralProvider(cfg MistralConfig, client *http.Client, logger *slog.Logger) *MistralProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "pixtral-large-latest"
	}
	return &MistralProvider{cfg: cfg, client: client, logger: logger}
}

func (p *MistralProvider) Name() string { return "mistral" }

func (p *MistralProvider) Attempt(ctx context.Context, data []byte, mimeType string) (Result, error) {
	if p.cfg.APIKey == "" {
		return Result{}, fmt.Errorf("mistral api key not configured")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return Result{}, fmt.Errorf("unsupported mime type %q", mimeType)
	}

	rid := uuid.New().String()
	start := time.Now()
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	body := map[string]any{
		"model": p.cfg.Model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": mistralPrompt},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
		"max_tokens":  2000,
		"temperature": 0.1,
	}

	p.logger.Info("extraction.mistral.request",
		"req_id", rid, "model", p.cfg.Model, "image_bytes", len(data))

	raw, err := p.post(ctx, strings.TrimRight(p.cfg.BaseURL, "/")+"/chat/completions", body)
	if err != nil {
		p.logger.Error("extraction.mistral.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Result{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return Result{}, fmt.Errorf("decode mistral response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return Result{}, fmt.Errorf("no choices in mistral response")
	}
	text := strings.TrimSpace(cc.Choices[0].Message.Content)

	p.logger.Info("extraction.mistral.ok",
		"req_id", rid, "text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return Result{
		Text:       text,
		Normalized: Normalize(text),
		Confidence: mistralConfidence,
	}, nil
}

func (p *MistralProvider) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mistral http error: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.logger.Warn("mistral response body close error", "error", err)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("non-2xx status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}
	return raw, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
