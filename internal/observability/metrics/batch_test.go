package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

func TestBatchMetricsCountsItemsByStatus(t *testing.T) {
	m := NewBatchMetrics("grader")
	item := domain.InputItem{Name: "a.jpg"}

	m.RunStarted(3)
	m.RecognitionFinished(item, domain.Recognized("text"), 200*time.Millisecond)
	m.GradingFinished(item, domain.Grade{Outcome: domain.ParseScore("7")}, time.Second)
	m.ItemFinished(item, domain.ResultRecord{File: "a.jpg", Score: 7, Status: domain.RecordGraded}, time.Second)
	m.ItemFinished(item, domain.ResultRecord{File: "b.jpg", Status: domain.RecordOCRFailed}, time.Millisecond)

	if got := testutil.ToFloat64(m.itemsTotal.WithLabelValues("grader", "graded")); got != 1 {
		t.Fatalf("expected 1 graded item, got %v", got)
	}
	if got := testutil.ToFloat64(m.itemsTotal.WithLabelValues("grader", "ocr_failed")); got != 1 {
		t.Fatalf("expected 1 ocr failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.itemsPending); got != 1 {
		t.Fatalf("expected 1 pending item, got %v", got)
	}
	if got := testutil.CollectAndCount(m.scores); got != 1 {
		t.Fatalf("expected score histogram to be collected, got %d", got)
	}

	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	m.RunFinished(domain.RunResult{StartedAt: start, FinishedAt: start.Add(4 * time.Second)})
	if got := testutil.ToFloat64(m.runDuration); got != 4 {
		t.Fatalf("expected run duration 4s, got %v", got)
	}
	if got := testutil.ToFloat64(m.itemsPending); got != 0 {
		t.Fatalf("expected no pending items, got %v", got)
	}
}

func TestGradingOutcomeLabels(t *testing.T) {
	m := NewBatchMetrics("grader")
	item := domain.InputItem{Name: "a.jpg"}
	m.GradingFinished(item, domain.Grade{Outcome: domain.ParseScore("no digits")}, time.Second)
	m.GradingFinished(item, domain.Grade{Cause: domain.ErrScoring}, time.Second)

	if got := testutil.CollectAndCount(m.gradingDuration); got != 2 {
		t.Fatalf("expected two outcome series, got %d", got)
	}
	if got := testutil.CollectAndCount(m.scores); got != 1 {
		t.Fatalf("unparsed scores must not be observed")
	}
}

func TestPusherSendsRegistry(t *testing.T) {
	var path, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := NewBatchMetrics("grader")
	m.ItemFinished(domain.InputItem{}, domain.ResultRecord{Status: domain.RecordGraded}, time.Second)

	if err := NewPusher(m, server.URL, "").Persist(context.Background(), domain.RunResult{RunID: "run-1"}); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if !strings.Contains(path, "/metrics/job/paper_grader") || !strings.Contains(path, "run_id/run-1") {
		t.Fatalf("unexpected push path %q", path)
	}
	if body == "" {
		t.Fatalf("expected pushed metrics payload")
	}
}

func TestPusherReportsGatewayErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewPusher(NewBatchMetrics("grader"), server.URL, "job").Persist(context.Background(), domain.RunResult{})
	if err == nil {
		t.Fatalf("expected push error")
	}
}
