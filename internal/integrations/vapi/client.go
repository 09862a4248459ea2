package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"integrity-responder/internal/integrations/paramstore"
)

const defaultBaseURL = "https://api.vapi.ai"

// SecretReader decodes a JSON secret by parameter name.
type SecretReader interface {
	GetJSON(ctx context.Context, name string, v any) error
}

// HTTPStatusError captures non-2xx responses from the voice platform.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("vapi: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// UpstreamMessage returns the message field of the error body, if any.
func (e *HTTPStatusError) UpstreamMessage() string {
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err != nil {
		return ""
	}
	var msg string
	if err := json.Unmarshal(body.Message, &msg); err == nil {
		return msg
	}
	// validation failures come back as a list of messages
	var msgs []string
	if err := json.Unmarshal(body.Message, &msgs); err == nil {
		return strings.Join(msgs, "; ")
	}
	return ""
}

// CallRequest places an outbound call from an existing assistant.
type CallRequest struct {
	AssistantID string `json:"assistantId"`
	PhoneNumber string `json:"phoneNumber"`
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	secrets     SecretReader
	paramPrefix string

	tokenMu sync.Mutex
	token   string
}

type Option func(*Client)

// WithBaseURL overrides the platform host. Empty values are ignored.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if v := strings.TrimSpace(baseURL); v != "" {
			c.baseURL = v
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client. The API token is read from SSM on first successful
// use.
func NewClient(secrets SecretReader, paramPrefix string, opts ...Option) (*Client, error) {
	if secrets == nil {
		return nil, errors.New("vapi: secret reader must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("vapi: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		secrets:     secrets,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	var payload struct {
		Token string `json:"token"`
	}
	name := paramstore.Name(c.paramPrefix, "vapi/token")
	if err := c.secrets.GetJSON(ctx, name, &payload); err != nil {
		return "", fmt.Errorf("vapi: fetch token: %w", err)
	}
	if strings.TrimSpace(payload.Token) == "" {
		return "", errors.New("vapi: token parameter is empty")
	}
	c.token = payload.Token
	return c.token, nil
}

// CreateAssistant registers the assistant and returns the platform response.
func (c *Client) CreateAssistant(ctx context.Context, a Assistant) (json.RawMessage, error) {
	return c.post(ctx, "/assistant", a)
}

// CreateCall starts a call and returns the platform response.
func (c *Client) CreateCall(ctx context.Context, in CallRequest) (json.RawMessage, error) {
	if strings.TrimSpace(in.AssistantID) == "" {
		return nil, errors.New("vapi: assistant id is required")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		return nil, errors.New("vapi: phone number is required")
	}
	return c.post(ctx, "/call", in)
}

func (c *Client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	token, err := c.resolveToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vapi: marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vapi: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vapi: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        endpoint,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("vapi: read response body: %w", err)
	}
	if !json.Valid(buf) {
		return nil, errors.New("vapi: response is not valid JSON")
	}
	return json.RawMessage(buf), nil
}
