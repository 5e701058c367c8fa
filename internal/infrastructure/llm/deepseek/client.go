package deepseek

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/paper-grader/internal/core/domain"
	"github.com/kirillkom/paper-grader/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL     = "https://api.deepseek.com"
	DefaultModel       = "deepseek-chat"
	DefaultTemperature = 0.1
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	temperature := cfg.Temperature
	if temperature < 0 {
		temperature = DefaultTemperature
	}
	return &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
		executor:    executor,
	}
}

// Grader scores recognized answers with a single chat completion.
type Grader struct {
	client *Client
}

func NewGrader(client *Client) *Grader {
	return &Grader{client: client}
}

func (g *Grader) Grade(ctx context.Context, text string, rubric domain.Rubric) domain.Grade {
	content, err := g.client.complete(ctx, buildGradingPrompt(text, rubric))
	if err != nil {
		return domain.Grade{Cause: domain.WrapError(domain.ErrScoring, "deepseek grade", err)}
	}
	return domain.Grade{Outcome: domain.ParseScore(content), Raw: content}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
	N           int           `json:"n"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", domain.WrapError(domain.ErrConfig, "deepseek complete", errors.New("api key required"))
	}
	request := chatCompletionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		Stream:      false,
		N:           1,
	}

	var response chatCompletionResponse
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/chat/completions", request, &response, "chat completion")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "deepseek.chat", call, classifyDeepSeekError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("deepseek chat", err)
	}

	if response.Error != nil {
		return "", errors.New("deepseek api error: " + strings.TrimSpace(response.Error.Message))
	}
	if len(response.Choices) == 0 {
		return "", errors.New("deepseek: empty choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
