package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anhducmata/myath/constants"
)

// OpenAIConfig configures the chat-completions structurer.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAIStructurer implements Structurer using text-only chat/completions
// with a JSON response format.
type OpenAIStructurer struct {
	cfg    OpenAIConfig
	client *http.Client
	log    *slog.Logger
}

func NewOpenAIStructurer(cfg OpenAIConfig, logger *slog.Logger) *OpenAIStructurer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &OpenAIStructurer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger,
	}
}

const structurerSystemPrompt = "You are a precise math problem analyzer. You turn recognized text " +
	"from a scanned math problem into structured JSON. Classify the problem, write its statement " +
	"as a single plain-ASCII expression or relation (use ^, *, /, sqrt(), standard function names, " +
	"no LaTeX), list the requested operations and the symbol names involved. " +
	"Respond with valid JSON only."

func (c *OpenAIStructurer) Structure(ctx context.Context, text string) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.structure.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(text))

	schema := BuildProblemJSONSchema()
	user := fmt.Sprintf("Recognized problem text:\n%s\n\nKnown problem types: %s.\n\nReturn ONLY JSON that matches the provided schema.",
		text, strings.Join(constants.ProblemTypeNames(), ", "))

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": structurerSystemPrompt},
			{"role": "user", "content": user},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("llm.structure.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("no choices in openai response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)

	c.log.Info("llm.structure.ok",
		"req_id", rid,
		"content_bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds())
	return []byte(content), nil
}

func (c *OpenAIStructurer) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("openai response body close error", "error", err)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("non-2xx status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
