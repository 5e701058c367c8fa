package baidu

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/paper-grader/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "baidu status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("baidu %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("baidu %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// APIError is an error_code/error_msg pair reported inside a 200 response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("baidu ocr error_code %d: %s", e.Code, strings.TrimSpace(e.Message))
}

// Service-side codes: 2 service unavailable, 18 QPS limit, 282000 internal error.
func (e *APIError) Temporary() bool {
	switch e.Code {
	case 2, 18, 282000:
		return true
	default:
		return false
	}
}

func classifyBaiduError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{RecordFailure: false}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return resilience.ErrorClassification{RecordFailure: apiErr.Temporary()}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return resilience.ErrorClassification{RecordFailure: true}
		}
		return resilience.ErrorClassification{RecordFailure: statusErr.StatusCode >= http.StatusInternalServerError}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: false}
}
