package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/paper-grader/internal/core/domain"
	"github.com/kirillkom/paper-grader/internal/core/ports"
)

// SinkFunc adapts a function to ports.ResultSink.
type SinkFunc func(ctx context.Context, run domain.RunResult) error

func (f SinkFunc) Persist(ctx context.Context, run domain.RunResult) error {
	return f(ctx, run)
}

func Archive(archive ports.RunArchive) ports.ResultSink {
	return SinkFunc(archive.SaveRun)
}

func Notify(notifier ports.RunNotifier) ports.ResultSink {
	return SinkFunc(notifier.PublishRunCompleted)
}

type target struct {
	name     string
	sink     ports.ResultSink
	required bool
}

// Fanout hands a finished run to every registered sink in registration
// order. Required sink failures fail the run; best-effort ones are logged.
type Fanout struct {
	targets []target
	logger  *slog.Logger
}

func NewFanout(logger *slog.Logger) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{logger: logger}
}

func (f *Fanout) Required(name string, sink ports.ResultSink) *Fanout {
	f.targets = append(f.targets, target{name: name, sink: sink, required: true})
	return f
}

func (f *Fanout) BestEffort(name string, sink ports.ResultSink) *Fanout {
	f.targets = append(f.targets, target{name: name, sink: sink})
	return f
}

func (f *Fanout) Persist(ctx context.Context, run domain.RunResult) error {
	var errs []error
	for _, t := range f.targets {
		err := t.sink.Persist(ctx, run)
		if err == nil {
			f.logger.Debug("sink_persisted", "sink", t.name, "run_id", run.RunID)
			continue
		}
		if t.required {
			f.logger.Error("sink_failed", "sink", t.name, "run_id", run.RunID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
			continue
		}
		f.logger.Warn("sink_failed", "sink", t.name, "run_id", run.RunID, "error", err, "required", false)
	}
	return errors.Join(errs...)
}
