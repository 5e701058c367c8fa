package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/paper-grader/internal/core/domain"
	"github.com/kirillkom/paper-grader/internal/core/ports"
)

type GradeBatchUseCase struct {
	credentials ports.CredentialProvider
	recognizer  ports.Recognizer
	grader      ports.Grader
	source      ports.InputSource
	sink        ports.ResultSink
	pacer       ports.Pacer
	rubric      domain.Rubric
	inputDir    string

	observers observerSet
	logger    *slog.Logger
	now       func() time.Time
	newRunID  func() string
}

type Option func(*GradeBatchUseCase)

func WithObservers(observers ...ports.RunObserver) Option {
	return func(uc *GradeBatchUseCase) {
		for _, o := range observers {
			if o != nil {
				uc.observers = append(uc.observers, o)
			}
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(uc *GradeBatchUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *GradeBatchUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

func WithRunID(newRunID func() string) Option {
	return func(uc *GradeBatchUseCase) {
		if newRunID != nil {
			uc.newRunID = newRunID
		}
	}
}

// WithInputDir labels runs with the directory they were read from.
func WithInputDir(dir string) Option {
	return func(uc *GradeBatchUseCase) {
		uc.inputDir = dir
	}
}

func NewGradeBatchUseCase(
	credentials ports.CredentialProvider,
	recognizer ports.Recognizer,
	grader ports.Grader,
	source ports.InputSource,
	sink ports.ResultSink,
	pacer ports.Pacer,
	rubric domain.Rubric,
	opts ...Option,
) *GradeBatchUseCase {
	uc := &GradeBatchUseCase{
		credentials: credentials,
		recognizer:  recognizer,
		grader:      grader,
		source:      source,
		sink:        sink,
		pacer:       pacer,
		rubric:      rubric,
		logger:      slog.Default(),
		now:         time.Now,
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Run grades every image of the input source once, in listing order, and hands
// the result set to the sink. Config and auth failures abort before any item.
func (uc *GradeBatchUseCase) Run(ctx context.Context) (domain.RunResult, error) {
	run := domain.RunResult{
		RunID:     uc.newRunID(),
		InputDir:  uc.inputDir,
		Rubric:    uc.rubric,
		State:     domain.RunInit,
		StartedAt: uc.now(),
	}
	logger := uc.logger.With("run_id", run.RunID)

	if err := uc.source.Check(ctx); err != nil {
		return uc.abort(logger, run, domain.WrapError(domain.ErrConfig, "check input", err))
	}

	cred, err := uc.refreshCredential(ctx)
	if err != nil {
		return uc.abort(logger, run, err)
	}
	uc.transition(logger, &run, domain.RunTokenReady)

	items, err := uc.source.List(ctx)
	if err != nil {
		return uc.abort(logger, run, domain.WrapError(domain.ErrConfig, "list input", err))
	}

	uc.transition(logger, &run, domain.RunProcessing)
	uc.observers.RunStarted(len(items))
	run.Records = make([]domain.ResultRecord, 0, len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return run, fmt.Errorf("grading run interrupted before %s: %w", item.Name, err)
		}

		record, graded := uc.processItem(ctx, logger, cred, item, len(items))
		run.Records = append(run.Records, record)

		if graded {
			if err := uc.pacer.Pause(ctx); err != nil {
				return run, fmt.Errorf("pace after %s: %w", item.Name, err)
			}
		}
	}
	// A cancel that lands inside the last item leaves a bogus record behind.
	if err := ctx.Err(); err != nil {
		return run, fmt.Errorf("grading run interrupted: %w", err)
	}

	run.FinishedAt = uc.now()
	uc.transition(logger, &run, domain.RunDone)
	uc.observers.RunFinished(run)

	if err := uc.sink.Persist(ctx, run); err != nil {
		return run, fmt.Errorf("persist results: %w", err)
	}
	return run, nil
}

func (uc *GradeBatchUseCase) refreshCredential(ctx context.Context) (domain.Credential, error) {
	cred, err := uc.credentials.Refresh(ctx)
	if err != nil {
		if domain.IsKind(err, domain.ErrAuth) {
			return domain.Credential{}, err
		}
		return domain.Credential{}, domain.WrapError(domain.ErrAuth, "refresh credential", err)
	}
	if !cred.Valid() {
		return domain.Credential{}, domain.WrapError(domain.ErrAuth, "refresh credential", errors.New("empty access token"))
	}
	return cred, nil
}

// processItem is the item boundary: every outcome, including a panic in an
// adapter, becomes exactly one record. graded reports whether the grader ran.
func (uc *GradeBatchUseCase) processItem(
	ctx context.Context,
	logger *slog.Logger,
	cred domain.Credential,
	item domain.InputItem,
	total int,
) (record domain.ResultRecord, graded bool) {
	started := uc.now()
	uc.observers.ItemStarted(item, total)
	logger = logger.With("file", item.Name, "index", item.Index+1, "total", total)

	defer func() {
		if r := recover(); r != nil {
			record = itemFailure(item, fmt.Errorf("panic: %v", r))
			graded = false
		}
		if record.Status == domain.RecordProcessingError {
			logger.Error("item_failed", "reason", record.Reason)
		}
		uc.observers.ItemFinished(item, record, uc.now().Sub(started))
	}()

	image, err := uc.source.Read(ctx, item)
	if err != nil {
		return itemFailure(item, err), false
	}

	recStarted := uc.now()
	rec := uc.recognizer.Recognize(ctx, image, cred)
	uc.observers.RecognitionFinished(item, rec, uc.now().Sub(recStarted))

	switch rec.Status {
	case domain.RecognitionRecognized:
	case domain.RecognitionFailed:
		logger.Warn("recognition_failed", "error", rec.Cause)
		return domain.ResultRecord{
			File:   item.Name,
			Reason: fmt.Sprintf("%s: %v", domain.ReasonOCRError, rec.Cause),
			Status: domain.RecordOCRFailed,
		}, false
	default:
		logger.Warn("recognition_empty")
		return domain.ResultRecord{
			File:   item.Name,
			Reason: domain.ReasonOCREmpty,
			Status: domain.RecordOCRFailed,
		}, false
	}

	gradeStarted := uc.now()
	grade := uc.grader.Grade(ctx, rec.Text, uc.rubric)
	uc.observers.GradingFinished(item, grade, uc.now().Sub(gradeStarted))

	record = domain.ResultRecord{
		File:   item.Name,
		Score:  grade.Score(),
		Answer: rec.Text,
		Status: domain.RecordGraded,
	}
	switch {
	case grade.Cause != nil:
		logger.Warn("grading_failed", "error", grade.Cause)
		record.Status = domain.RecordScoringFailed
		record.Reason = fmt.Sprintf("%s: %v", domain.ReasonScoring, grade.Cause)
	case !grade.Outcome.Parsed:
		logger.Warn("score_unparsed", "response", grade.Raw)
		record.Status = domain.RecordScoreUnparsed
		record.Reason = domain.ReasonUnparsed
	default:
		logger.Info("item_graded", "score", record.Score, "answer_chars", len([]rune(rec.Text)))
	}
	return record, true
}

func itemFailure(item domain.InputItem, err error) domain.ResultRecord {
	err = domain.WrapError(domain.ErrItem, "process "+item.Name, err)
	return domain.ResultRecord{
		File:   item.Name,
		Reason: fmt.Sprintf("%s: %v", domain.ReasonItem, err),
		Status: domain.RecordProcessingError,
	}
}

func (uc *GradeBatchUseCase) transition(logger *slog.Logger, run *domain.RunResult, next domain.RunState) {
	logger.Debug("run_state", "from", string(run.State), "to", string(next))
	run.State = next
}

func (uc *GradeBatchUseCase) abort(logger *slog.Logger, run domain.RunResult, err error) (domain.RunResult, error) {
	logger.Error("run_aborted", "state", string(run.State), "error", err)
	run.State = domain.RunAborted
	run.FinishedAt = uc.now()
	return run, err
}
