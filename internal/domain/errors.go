package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the kind shared by every missing-entity error.
	ErrNotFound = errors.New("not found")
	// ErrQuizNotFound indicates the quiz does not exist or is not visible to the requester.
	ErrQuizNotFound = notFound("quiz not found")
	// ErrQuestionNotFound indicates a question id is unknown.
	ErrQuestionNotFound = notFound("question not found")
	// ErrAnswerNotFound indicates an answer id is unknown.
	ErrAnswerNotFound = notFound("answer not found")
	// ErrNotAuthorized is returned when the requester lacks ownership or copy rights.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrSessionActive is returned when a user starts a second play while one is running.
	ErrSessionActive = errors.New("a quiz session is already active for this user")
)

type notFoundError struct {
	msg string
}

func notFound(msg string) error {
	return &notFoundError{msg: msg}
}

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports malformed input. It is returned before any mutation.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
