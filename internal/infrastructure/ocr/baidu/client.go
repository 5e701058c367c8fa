package baidu

import (
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/paper-grader/internal/infrastructure/resilience"
)

const (
	DefaultTokenURL = "https://aip.baidubce.com/oauth/2.0/token"
	DefaultOCRURL   = "https://aip.baidubce.com/rest/2.0/ocr/v1/accurate_basic"
	DefaultLanguage = "CHN_ENG"

	// fragmentSeparator joins recognized lines into one answer.
	fragmentSeparator = "，"
)

type Config struct {
	APIKey    string
	SecretKey string
	TokenURL  string
	OCRURL    string
	Language  string
	Timeout   time.Duration
}

type Client struct {
	apiKey     string
	secretKey  string
	tokenURL   string
	ocrURL     string
	language   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		tokenURL:   orDefault(cfg.TokenURL, DefaultTokenURL),
		ocrURL:     orDefault(cfg.OCRURL, DefaultOCRURL),
		language:   orDefault(cfg.Language, DefaultLanguage),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
