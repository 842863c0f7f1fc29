package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"shoplist/internal/llm"
)

var (
	ErrEmptyEvent = errors.New("event name is required")
	ErrSuperseded = errors.New("generation superseded by a newer request")
)

// SaveError means the reply arrived but the store rejected the new list.
type SaveError struct {
	Err error
}

func (e *SaveError) Error() string {
	return "failed to save generated list: " + e.Err.Error()
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// Describe collapses a generation error into the message shown to a person.
func Describe(err error) string {
	var (
		statusErr *llm.StatusError
		saveErr   *SaveError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyEvent):
		return "Enter an event name to generate a list"
	case errors.Is(err, ErrSuperseded):
		return "Request was replaced by a newer one"
	case errors.Is(err, context.Canceled):
		return "Request was canceled"
	case errors.As(err, &saveErr):
		return "Error saving the generated list: " + saveErr.Err.Error()
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Error: HTTP %d - %s\nDetails: %s",
			statusErr.StatusCode, http.StatusText(statusErr.StatusCode), statusErr.Message)
	case errors.Is(err, llm.ErrNoChoices):
		return "No response content available"
	default:
		return "Error connecting to the completion API: " + err.Error()
	}
}
