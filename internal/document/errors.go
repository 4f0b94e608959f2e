package document

import "fmt"

// InvalidRequestError marks user-correctable input problems: bad page range,
// unsupported content type, missing file, ceiling violations. Mapped to 4xx.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// NewInvalidRequest builds an InvalidRequestError with a formatted reason.
func NewInvalidRequest(format string, args ...any) *InvalidRequestError {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

// ProcessingError marks engine-level failures: crashes, corrupt or
// unsupported documents, timeouts. Retrying with the same input will not
// help. Mapped to 5xx, distinct from internal bugs.
type ProcessingError struct {
	Stage string // pipeline stage that failed
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed at %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessingError wraps an engine or pipeline failure with its stage.
func NewProcessingError(stage string, err error) *ProcessingError {
	return &ProcessingError{Stage: stage, Err: err}
}
