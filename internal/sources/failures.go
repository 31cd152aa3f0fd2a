package sources

import (
	"errors"
	"fmt"
)

// Converter failure taxonomy. Per-record failures tag their marker so the
// orchestrator can classify an outcome with errors.Is and keep the batch
// going; ErrInternal aborts the whole batch.
var (
	// ErrInvalidScore marks a malformed record. The record is rejected,
	// the batch continues.
	ErrInvalidScore = errors.New("invalid score")
	// ErrDataNotFound marks a record whose song or chart could not be
	// resolved in the catalog. The record is skipped, the batch continues.
	ErrDataNotFound = errors.New("data not found")
	// ErrInternal marks a data-store inconsistency, such as a chart whose
	// song does not exist. The batch aborts.
	ErrInternal = errors.New("internal failure")
)

// InvalidScoref builds an ErrInvalidScore-tagged failure.
func InvalidScoref(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScore, fmt.Sprintf(format, args...))
}

// NotFoundf builds an ErrDataNotFound-tagged failure.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataNotFound, fmt.Sprintf(format, args...))
}

// Internalf builds an ErrInternal-tagged failure.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// FatalError aborts an import at the batch boundary and carries an
// HTTP-style status code for the poll surface. Parsers raise it for
// transport or envelope problems; the orchestrator raises it for internal
// failures.
type FatalError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FatalError) Error() string {
	return e.Message
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatalf builds a FatalError with a formatted message.
func Fatalf(statusCode int, format string, args ...any) *FatalError {
	return &FatalError{StatusCode: statusCode, Message: fmt.Sprintf(format, args...)}
}

// AsFatal extracts a FatalError from err, if it carries one.
func AsFatal(err error) (*FatalError, bool) {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return fatal, true
	}
	return nil, false
}
