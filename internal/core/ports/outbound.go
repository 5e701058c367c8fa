package ports

import (
	"context"
	"time"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

// CredentialProvider obtains the recognition service bearer token.
type CredentialProvider interface {
	Refresh(ctx context.Context) (domain.Credential, error)
}

// Recognizer extracts handwritten text from one image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, cred domain.Credential) domain.Recognition
}

// Grader scores extracted text against a rubric.
type Grader interface {
	Grade(ctx context.Context, text string, rubric domain.Rubric) domain.Grade
}

// InputSource enumerates and reads answer-sheet images.
type InputSource interface {
	Check(ctx context.Context) error
	List(ctx context.Context) ([]domain.InputItem, error)
	Read(ctx context.Context, item domain.InputItem) ([]byte, error)
}

// Pacer enforces the delay between successfully scored items.
type Pacer interface {
	Pause(ctx context.Context) error
}

// ResultSink persists a finished run.
type ResultSink interface {
	Persist(ctx context.Context, run domain.RunResult) error
}

// RunObserver receives progress events from the batch loop.
type RunObserver interface {
	RunStarted(total int)
	ItemStarted(item domain.InputItem, total int)
	RecognitionFinished(item domain.InputItem, rec domain.Recognition, elapsed time.Duration)
	GradingFinished(item domain.InputItem, grade domain.Grade, elapsed time.Duration)
	ItemFinished(item domain.InputItem, record domain.ResultRecord, elapsed time.Duration)
	RunFinished(run domain.RunResult)
}

// RunArchive stores finished runs for later auditing.
type RunArchive interface {
	SaveRun(ctx context.Context, run domain.RunResult) error
}

// RunNotifier announces finished runs to downstream consumers.
type RunNotifier interface {
	PublishRunCompleted(ctx context.Context, run domain.RunResult) error
}
