package deepseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/paper-grader/internal/core/domain"
	"github.com/kirillkom/paper-grader/internal/infrastructure/resilience"
)

func completionServer(t *testing.T, content string, capture *chatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Fatalf("decode request: %v", err)
			}
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
}

func TestGradeParsesFirstDigitRun(t *testing.T) {
	var captured chatCompletionRequest
	server := completionServer(t, "I would give this 7 out of 10.", &captured)
	defer server.Close()

	grader := NewGrader(New(Config{APIKey: "key-1", BaseURL: server.URL, Temperature: 0.1}, nil))
	grade := grader.Grade(context.Background(), "photosynthesis makes sugar", domain.Rubric{Text: "2 points per idea", MaxScore: 10})

	if grade.Cause != nil {
		t.Fatalf("unexpected cause: %v", grade.Cause)
	}
	if !grade.Outcome.Parsed || grade.Score() != 7 {
		t.Fatalf("expected score 7, got %+v", grade)
	}
	if captured.Model != DefaultModel || captured.Temperature != 0.1 || captured.N != 1 || captured.Stream {
		t.Fatalf("unexpected request settings: %+v", captured)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("expected a single user message, got %+v", captured.Messages)
	}
	prompt := captured.Messages[0].Content
	for _, want := range []string{"2 points per idea", "photosynthesis makes sugar", "忽略OCR识别产生的明显错别字", "0 到 10 之间"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestGradeWithoutDigitsIsUnparseable(t *testing.T) {
	server := completionServer(t, "Mostly correct, good effort.", nil)
	defer server.Close()

	grade := NewGrader(New(Config{APIKey: "key-1", BaseURL: server.URL}, nil)).
		Grade(context.Background(), "answer", domain.Rubric{Text: "rules"})
	if grade.Cause != nil {
		t.Fatalf("unexpected cause: %v", grade.Cause)
	}
	if grade.Outcome.Parsed || grade.Score() != 0 {
		t.Fatalf("expected unparseable outcome, got %+v", grade)
	}
	if grade.Raw != "Mostly correct, good effort." {
		t.Fatalf("expected raw response retained, got %q", grade.Raw)
	}
}

func TestGradeHTTPErrorScoresZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	grade := NewGrader(New(Config{APIKey: "key-1", BaseURL: server.URL}, nil)).
		Grade(context.Background(), "answer", domain.Rubric{Text: "rules"})
	if grade.Cause == nil || grade.Score() != 0 {
		t.Fatalf("expected failed grade, got %+v", grade)
	}
	if !domain.IsKind(grade.Cause, domain.ErrScoring) || !domain.IsKind(grade.Cause, domain.ErrTemporary) {
		t.Fatalf("expected scoring+temporary kinds, got %v", grade.Cause)
	}
	if !strings.Contains(grade.Cause.Error(), "service overloaded") {
		t.Fatalf("expected response body in error, got %v", grade.Cause)
	}
}

func TestGradeAPIErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"Insufficient Balance"}}`))
	}))
	defer server.Close()

	grade := NewGrader(New(Config{APIKey: "key-1", BaseURL: server.URL}, nil)).
		Grade(context.Background(), "answer", domain.Rubric{Text: "rules"})
	if grade.Cause == nil || !strings.Contains(grade.Cause.Error(), "Insufficient Balance") {
		t.Fatalf("expected api error, got %+v", grade)
	}
}

func TestGradeRequiresAPIKey(t *testing.T) {
	grade := NewGrader(New(Config{BaseURL: "http://127.0.0.1:1"}, nil)).
		Grade(context.Background(), "answer", domain.Rubric{Text: "rules"})
	if !domain.IsKind(grade.Cause, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", grade.Cause)
	}
}

func TestGradeThroughOpenBreakerFailsFast(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:     true,
		BreakerMinRequests: 2,
		BreakerOpenTimeout: time.Minute,
	})
	grader := NewGrader(New(Config{APIKey: "key-1", BaseURL: server.URL}, exec))
	for i := 0; i < 3; i++ {
		grade := grader.Grade(context.Background(), "answer", domain.Rubric{Text: "rules"})
		if grade.Cause == nil {
			t.Fatalf("iteration %d: expected failure", i)
		}
	}
	if calls != 2 {
		t.Fatalf("expected breaker to stop the third call, server saw %d", calls)
	}
}

func TestClassifyDeepSeekError(t *testing.T) {
	if classifyDeepSeekError(&HTTPStatusError{StatusCode: http.StatusUnauthorized}).RecordFailure {
		t.Fatalf("401 must not trip the breaker")
	}
	if !classifyDeepSeekError(&HTTPStatusError{StatusCode: http.StatusTooManyRequests}).RecordFailure {
		t.Fatalf("429 must count as a failure")
	}
	if classifyDeepSeekError(context.Canceled).RecordFailure {
		t.Fatalf("cancellation must not count as a failure")
	}
}
