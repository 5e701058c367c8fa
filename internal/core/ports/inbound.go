package ports

import (
	"context"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

// BatchGrader is the inbound contract for one grading run over an input directory.
type BatchGrader interface {
	Run(ctx context.Context) (domain.RunResult, error)
}
