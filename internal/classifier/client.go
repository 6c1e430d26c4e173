// Package classifier talks to the remote model service that scores text for
// prompt-injection and turns its raw class scores into a probability.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gzhole/toolguard/internal/config"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 4 << 10

// BatchInferRequest is the wire form of a model-service call.
type BatchInferRequest struct {
	Model        string        `json:"model"`
	Version      string        `json:"version"`
	Source       string        `json:"source"`
	InputNames   []string      `json:"input_names"`
	RequestItems []RequestItem `json:"request_items"`
}

type RequestItem struct {
	Inputs []Input `json:"inputs"`
}

type Input struct {
	StringValue string `json:"string_value"`
}

// BatchInferResponse is the wire form of a model-service reply.
type BatchInferResponse struct {
	Model         string         `json:"model"`
	Version       string         `json:"version"`
	OccurredAt    string         `json:"occurred_at"`
	ResponseItems []ResponseItem `json:"response_items"`
}

type ResponseItem struct {
	DoubleListValue *DoubleList `json:"double_list_value,omitempty"`
}

type DoubleList struct {
	DoubleValues []float64 `json:"double_values"`
}

// Client posts batch-infer requests to a single endpoint.
type Client struct {
	endpoint   string
	source     string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the HTTP client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithSource sets the caller tag sent with every request.
func WithSource(source string) ClientOption {
	return func(c *Client) { c.source = source }
}

// NewClient returns a client for endpoint with a 30s timeout.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   endpoint,
		source:     config.DefaultSource,
		httpClient: &http.Client{Timeout: config.DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// BatchInfer sends texts as one batch, each under inputName.
func (c *Client) BatchInfer(ctx context.Context, model, version, inputName string, texts []string) (*BatchInferResponse, error) {
	req := BatchInferRequest{
		Model:        model,
		Version:      version,
		Source:       c.source,
		InputNames:   []string{inputName},
		RequestItems: make([]RequestItem, 0, len(texts)),
	}
	for _, t := range texts {
		req.RequestItems = append(req.RequestItems, RequestItem{Inputs: []Input{{StringValue: t}}})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Op: "request", Err: fmt.Errorf("encode: %w", err)}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Op: "request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{Op: "response", Err: &StatusError{StatusCode: resp.StatusCode, Body: string(msg)}}
	}

	var out BatchInferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &Error{Op: "decode", Err: err}
	}
	return &out, nil
}
