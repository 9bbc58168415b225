package llm

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

	cb "github.com/sony/gobreaker"

	"CaseCollector/internal/config"
	"CaseCollector/internal/ports"
)

const defaultSystemPrompt = `너는 팀 프로젝트 사례를 분류하는 분석가다. 주어진 제목과 요약을 읽고 아래 형식의 JSON 객체 하나만 답하라.
{"isRelevant": true|false,
 "actor": {"label": "학생|직장인|개발자|조장|교수|취준생|기타", "confidence": 0-100, "alternatives": []},
 "teamType": {"label": "유형", "category": "기여|리더십|계획|소통|협력|성과|기타", "confidence": 0-100, "alternatives": []},
 "primaryCategory": {"label": "분류", "confidence": 0-100},
 "excerpt": "근거 문장",
 "reasoning": {"actorReason": "", "typeReason": "", "isPositive": true|false}}
팀 활동과 무관하면 isRelevant를 false로 답하라.`

// ChatGPTClient implements ports.Oracle backed by OpenAI-compatible chat APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	breaker      *cb.CircuitBreaker
}

var _ ports.Oracle = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration. Consecutive failures open the breaker.
func NewChatGPTClient(cfg config.ChatGPTConfig, log *slog.Logger) *ChatGPTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxFailures := cfg.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := cb.Settings{
		Name:        "chatgpt",
		MaxRequests: 1,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to cb.State) {
			if log != nil {
				log.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			}
		},
	}

	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{Timeout: timeout},
		breaker:      cb.NewCircuitBreaker(settings),
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze sends title and snippet as the user message and returns the raw assistant text.
func (c *ChatGPTClient) Analyze(ctx context.Context, title, snippet string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, fmt.Sprintf("제목: %s\n요약: %s", title, snippet))
	})
	if err != nil {
		return "", fmt.Errorf("analyze: %w", err)
	}
	return out.(string), nil
}

func (c *ChatGPTClient) complete(ctx context.Context, userMessage string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": userMessage},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}
