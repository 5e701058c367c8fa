package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfig       = errors.New("configuration error")
	ErrAuth         = errors.New("authentication failure")
	ErrRecognition  = errors.New("recognition failure")
	ErrScoring      = errors.New("scoring failure")
	ErrItem         = errors.New("item processing failure")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsFatal reports whether err aborts a run before any item is processed.
func IsFatal(err error) bool {
	return IsKind(err, ErrConfig) || IsKind(err, ErrAuth)
}
