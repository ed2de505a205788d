package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryCapture   Category = "capture"
	CategoryEncode    Category = "encode"
	CategoryPool      Category = "pool"
	CategoryPipeline  Category = "pipeline"
	CategoryPlatform  Category = "platform"
	CategoryConfig    Category = "config"
	CategoryTransient Category = "transient"
)

// StreamError is the structured error type used throughout the module.
type StreamError struct {
	Category  Category
	Op        string // operation name
	Err       error
	Retryable bool
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// New creates a non-retryable StreamError.
func New(category Category, op string, err error) *StreamError {
	return &StreamError{Category: category, Op: op, Err: err}
}

// Transient creates a retryable StreamError.
func Transient(op string, err error) *StreamError {
	return &StreamError{Category: CategoryTransient, Op: op, Err: err, Retryable: true}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsRetryable reports whether err represents a transient failure.
func IsRetryable(err error) bool {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Category == cat
	}
	return false
}

// Sentinel errors for common failure modes.
var (
	ErrInvalidBufferSize = errors.New("invalid buffer size: zero-length request")
	ErrAlreadyRunning    = errors.New("pipeline already running")
	ErrDisplayNotFound   = errors.New("display not found")
	ErrInvalidDimensions = errors.New("invalid image dimensions")
	ErrInvalidFormat     = errors.New("unsupported pixel format")
	ErrUnsupportedCodec  = errors.New("no encoder registered for format")
	ErrNotSupported      = errors.New("not supported on this platform")
	ErrEmptyInput        = errors.New("empty input")
)
