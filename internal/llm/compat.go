package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/sjson"
)

// CompatClient talks to OpenAI-compatible servers through go-openai. Some
// self-hosted gateways accept its request shape where openai-go's does not.
type CompatClient struct {
	opts   Options
	client *goopenai.Client
}

func NewCompatClient(opts Options) (*CompatClient, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	cfg := goopenai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = opts.BaseURL
	cfg.HTTPClient = &compatDoer{base: &http.Client{}}
	return &CompatClient{
		opts:   opts,
		client: goopenai.NewClientWithConfig(cfg),
	}, nil
}

func (c *CompatClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil compat client")
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var errBody []byte
	reqCtx = context.WithValue(reqCtx, errBodyKey{}, &errBody)

	resp, err := c.client.CreateChatCompletion(reqCtx, goopenai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(c.opts.Temperature),
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{StatusCode: apiErr.HTTPStatusCode, Message: errorDetails(apiErr.Message, errBody)}
		}
		var reqErr *goopenai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
			body := errBody
			if len(body) == 0 {
				body = reqErr.Body
			}
			return "", &StatusError{StatusCode: reqErr.HTTPStatusCode, Message: errorDetails("", body)}
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

type errBodyKey struct{}

// compatDoer adjusts go-openai's wire traffic: go-openai drops "stream" when
// false, so it is written back into every POST body, and failed response
// bodies are copied to the *[]byte stored under errBodyKey.
type compatDoer struct {
	base *http.Client
}

func (d *compatDoer) Do(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost && req.Body != nil {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		body, err = sjson.SetBytes(body, "stream", false)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}

	resp, err := d.base.Do(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}
	dst, ok := req.Context().Value(errBodyKey{}).(*[]byte)
	if !ok {
		return resp, nil
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	*dst = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
