package soundglow

import "fmt"

// InputError reports an unusable audio or image input. It is returned
// before any intermediate frames are written.
type InputError struct {
	Path   string // offending file
	Reason string
	Err    error // underlying error (if any)
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid input '%s': %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *InputError) Unwrap() error {
	return e.Err
}

// NewInputError creates a new InputError.
func NewInputError(path, reason string, err error) *InputError {
	return &InputError{Path: path, Reason: reason, Err: err}
}

// AnalysisError reports a failure while analyzing the audio spectrum.
type AnalysisError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	return fmt.Sprintf("audio analysis failed: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError creates a new AnalysisError.
func NewAnalysisError(message string, err error) *AnalysisError {
	return &AnalysisError{Message: message, Err: err}
}

// RenderError reports a failure while producing the frame sequence.
type RenderError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("frame rendering failed: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewRenderError creates a new RenderError.
func NewRenderError(message string, err error) *RenderError {
	return &RenderError{Message: message, Err: err}
}

// EncodeError reports a failed ffmpeg run. Stderr carries the tail of
// the encoder's diagnostics when available.
type EncodeError struct {
	Stderr string
	Err    error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("video encoding failed: %v", e.Err)
	}
	return fmt.Sprintf("video encoding failed: %v\n%s", e.Err, e.Stderr)
}

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// NewEncodeError creates a new EncodeError.
func NewEncodeError(stderr string, err error) *EncodeError {
	return &EncodeError{Stderr: stderr, Err: err}
}

// CleanupError reports a failure to remove intermediate frames. It is
// logged rather than returned when a more significant error is already
// in flight.
type CleanupError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *CleanupError) Error() string {
	return fmt.Sprintf("failed to clean up '%s': %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *CleanupError) Unwrap() error {
	return e.Err
}

// NewCleanupError creates a new CleanupError.
func NewCleanupError(path string, err error) *CleanupError {
	return &CleanupError{Path: path, Err: err}
}

// ValidationError reports an out-of-range style or option field.
type ValidationError struct {
	Field   string      // Field that failed validation
	Value   interface{} // Value that failed validation
	Message string      // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}
