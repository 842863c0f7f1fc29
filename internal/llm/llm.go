package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal chat-completion interface to allow pluggable providers.
type Client interface {
	// Complete sends one system turn and one user turn and returns the
	// full, non-streamed text of the first choice.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Options configures a provider client.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

const (
	DefaultBaseURL = "https://api.deepseek.com"
	DefaultModel   = "deepseek-chat"

	defaultChatTimeout = 60 * time.Second
)

var (
	ErrMissingAPIKey = errors.New("api key required")
	ErrNoChoices     = errors.New("completion api: no choices returned")
)

// StatusError is a non-success HTTP reply from the completion API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion api: HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// errorDetails prefers the API's own error message and falls back to the raw
// response body, so proxies and non-OpenAI error shapes still reach the user.
func errorDetails(message string, body []byte) string {
	if message != "" {
		return message
	}
	return strings.TrimSpace(string(body))
}

func (o Options) withDefaults() (Options, error) {
	if o.APIKey == "" {
		return o, ErrMissingAPIKey
	}
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultChatTimeout
	}
	return o, nil
}
