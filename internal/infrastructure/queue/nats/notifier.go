package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/paper-grader/internal/core/domain"
	"github.com/kirillkom/paper-grader/internal/infrastructure/resilience"
)

const DefaultSubject = "grading.runs.completed"

type publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

// Notifier publishes a run-completed event once results are persisted.
type Notifier struct {
	conn     publisher
	closer   func()
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	FlushTimeout       time.Duration
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func NewWithOptions(url, subject string, options Options) (*Notifier, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 5
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("paper-grader"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newNotifier(conn, conn.Close, subject, options.ResilienceExecutor), nil
}

func newNotifier(conn publisher, closer func(), subject string, executor *resilience.Executor) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Notifier{conn: conn, closer: closer, subject: subject, executor: executor}
}

func (n *Notifier) Close() {
	if n.closer != nil {
		n.closer()
	}
}

// RunCompletedEvent is the payload published for each finished run.
type RunCompletedEvent struct {
	RunID        string    `json:"run_id"`
	InputDir     string    `json:"input_dir"`
	Rubric       string    `json:"rubric"`
	Total        int       `json:"total"`
	Graded       int       `json:"graded"`
	Failed       int       `json:"failed"`
	AverageScore float64   `json:"average_score"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

func NewRunCompletedEvent(run domain.RunResult) RunCompletedEvent {
	stats := run.Stats()
	return RunCompletedEvent{
		RunID:        run.RunID,
		InputDir:     run.InputDir,
		Rubric:       run.Rubric.Title,
		Total:        stats.Total,
		Graded:       stats.Graded,
		Failed:       stats.Failed,
		AverageScore: stats.AverageScore,
		StartedAt:    run.StartedAt.UTC(),
		FinishedAt:   run.FinishedAt.UTC(),
	}
}

func (n *Notifier) PublishRunCompleted(ctx context.Context, run domain.RunResult) error {
	payload, err := json.Marshal(NewRunCompletedEvent(run))
	if err != nil {
		return fmt.Errorf("encode run event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := n.conn.Publish(n.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		// The process exits right after; flush so the event is not lost in the buffer.
		if err := n.conn.FlushTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("nats flush: %w", err)
		}
		return nil
	}

	if n.executor != nil {
		err = n.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}
