package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

type Config struct {
	LogLevel string

	DeepSeekAPIKey      string
	DeepSeekURL         string
	DeepSeekModel       string
	DeepSeekTemperature float64

	BaiduAPIKey      string
	BaiduSecretKey   string
	BaiduTokenURL    string
	BaiduOCRURL      string
	BaiduOCRLanguage string

	InputDir     string
	OutputFile   string
	OutputXLSX   string
	RubricFile   string
	PaceInterval time.Duration

	OCRQPS float64
	LLMQPS float64

	HTTPTimeoutSeconds int

	BreakerEnabled            bool
	BreakerMinRequests        int
	BreakerFailureRatio       float64
	BreakerOpenTimeoutSeconds int

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	MetricsPushgatewayURL string
}

// LoadDotEnv reads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return domain.WrapError(domain.ErrConfig, "load env file", fmt.Errorf("%s: %w", path, err))
		}
	}
	return nil
}

func Load() Config {
	return Config{
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		DeepSeekAPIKey:      mustEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekURL:         mustEnv("DEEPSEEK_URL", "https://api.deepseek.com"),
		DeepSeekModel:       mustEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		DeepSeekTemperature: mustEnvFloat("DEEPSEEK_TEMPERATURE", 0.1),

		BaiduAPIKey:      mustEnv("BAIDU_API_KEY", ""),
		BaiduSecretKey:   mustEnv("BAIDU_SECRET_KEY", ""),
		BaiduTokenURL:    mustEnv("BAIDU_TOKEN_URL", "https://aip.baidubce.com/oauth/2.0/token"),
		BaiduOCRURL:      mustEnv("BAIDU_OCR_URL", "https://aip.baidubce.com/rest/2.0/ocr/v1/accurate_basic"),
		BaiduOCRLanguage: mustEnv("BAIDU_OCR_LANGUAGE", "CHN_ENG"),

		InputDir:     mustEnv("INPUT_DIR", "./papers"),
		OutputFile:   mustEnv("OUTPUT_FILE", "./results.json"),
		OutputXLSX:   mustEnv("OUTPUT_XLSX", ""),
		RubricFile:   mustEnv("RUBRIC_FILE", ""),
		PaceInterval: time.Duration(mustEnvInt("PACE_INTERVAL_MS", 1000)) * time.Millisecond,

		OCRQPS: mustEnvFloat("OCR_QPS", 2),
		LLMQPS: mustEnvFloat("LLM_QPS", 0),

		HTTPTimeoutSeconds: mustEnvInt("HTTP_TIMEOUT_SECONDS", 60),

		BreakerEnabled:            mustEnvBool("BREAKER_ENABLED", true),
		BreakerMinRequests:        mustEnvInt("BREAKER_MIN_REQUESTS", 10),
		BreakerFailureRatio:       mustEnvFloat("BREAKER_FAILURE_RATIO", 0.5),
		BreakerOpenTimeoutSeconds: mustEnvInt("BREAKER_OPEN_TIMEOUT_SECONDS", 30),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "grading.runs.completed"),

		MetricsPushgatewayURL: mustEnv("METRICS_PUSHGATEWAY_URL", ""),
	}
}

// Validate reports every missing or out-of-range setting at once.
func (c Config) Validate() error {
	var problems []string
	for _, required := range []struct{ key, value string }{
		{"DEEPSEEK_API_KEY", c.DeepSeekAPIKey},
		{"BAIDU_API_KEY", c.BaiduAPIKey},
		{"BAIDU_SECRET_KEY", c.BaiduSecretKey},
	} {
		if strings.TrimSpace(required.value) == "" {
			problems = append(problems, required.key+" is required")
		}
	}
	if strings.TrimSpace(c.InputDir) == "" {
		problems = append(problems, "INPUT_DIR must not be empty")
	}
	if strings.TrimSpace(c.OutputFile) == "" {
		problems = append(problems, "OUTPUT_FILE must not be empty")
	}
	if c.PaceInterval < 0 {
		problems = append(problems, "PACE_INTERVAL_MS must be >= 0")
	}
	if c.DeepSeekTemperature < 0 || c.DeepSeekTemperature > 2 {
		problems = append(problems, "DEEPSEEK_TEMPERATURE must be within [0, 2]")
	}
	if c.OCRQPS < 0 || c.LLMQPS < 0 {
		problems = append(problems, "OCR_QPS and LLM_QPS must be >= 0")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		problems = append(problems, "HTTP_TIMEOUT_SECONDS must be > 0")
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		problems = append(problems, "BREAKER_FAILURE_RATIO must be within (0, 1]")
	}
	if c.BreakerMinRequests < 0 || c.BreakerOpenTimeoutSeconds < 0 {
		problems = append(problems, "breaker thresholds must be >= 0")
	}
	if len(problems) == 0 {
		return nil
	}
	return domain.WrapError(domain.ErrConfig, "validate config", errors.New(strings.Join(problems, "; ")))
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
