package attendance

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/diario/core"
)

var (
	ErrNotFound    = errors.New("class not found")
	ErrUnknownCell = errors.New("enrollment or lesson is not part of this session")
)

// ConfigurationError is returned when an operation cannot run on the data it was given,
// e.g. a session without lessons. Nothing must be submitted after it.
type ConfigurationError struct {
	Reason string
}

func newConfigurationError(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

func (err *ConfigurationError) Error() string {
	return "attendance configuration error: " + err.Reason
}

// IsConfigurationError reports whether err, or its cause, is a *ConfigurationError.
func IsConfigurationError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigurationError)
	return ok
}

// SubmissionError is returned when the FactWriter fails a batch.
// The batch is all-or-nothing: the caller may retry with the very same matrix.
type SubmissionError struct {
	Mode Mode
	Date time.Time
	Err  error
}

func (err *SubmissionError) Error() string {
	action := "recording"
	if err.Mode == ModeAmend {
		action = "amending"
	}
	return fmt.Sprintf("%s attendance of %s failed: %v", action, err.Date.Format(DateLayout), err.Err)
}

func (err *SubmissionError) Unwrap() error { return err.Err }

// Retryable is false when the store reported it can no longer be trusted.
func (err *SubmissionError) Retryable() bool { return !core.IsShutdown(err.Err) }

// AsSubmissionError returns the *SubmissionError held by err, if any.
func AsSubmissionError(err error) (*SubmissionError, bool) {
	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		return subErr, true
	}
	return nil, false
}

// Anomaly kinds
const (
	AnomalyDuplicateSequence = "duplicate_sequence"
	AnomalySiblingFallback   = "sibling_fallback"
	AnomalyNoStoredPresence  = "no_stored_presence"
)

// DataAnomaly is advisory: it is reported to the caller and logged, but never blocks.
type DataAnomaly struct {
	Kind     string    `json:"kind"`
	Date     time.Time `json:"date"`
	LessonID string    `json:"lesson_id,omitempty"`
	Detail   string    `json:"detail"`
}

func (a DataAnomaly) String() string {
	return fmt.Sprintf("%s on %s: %s", a.Kind, a.Date.Format(DateLayout), a.Detail)
}
