package guesty

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"integrity-responder/internal/domain"
	"integrity-responder/internal/integrations/paramstore"
)

const (
	defaultBaseURL = "https://open-api.guesty.com"
	quoteSource    = "manual_reservations"
	searchLimit    = 25
	oauthScope     = "open-api"
)

// Credentials is the JSON document stored in SSM for the client-credentials grant.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// SecretReader decodes a JSON secret by parameter name.
type SecretReader interface {
	GetJSON(ctx context.Context, name string, v any) error
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("guesty: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// UpstreamMessage returns the message field of the upstream error body, if any.
// The "error" field is either an object with a message or an OAuth error code.
func (e *HTTPStatusError) UpstreamMessage() string {
	var body struct {
		Message          string          `json:"message"`
		ErrorDescription string          `json:"error_description"`
		Error            json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err != nil {
		return ""
	}
	var nested struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body.Error, &nested)
	return lo.CoalesceOrEmpty(body.Message, nested.Message, body.ErrorDescription)
}

// tokenResponse is the OAuth token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// listingsResponse is the minimal shape of the listings search response.
type listingsResponse struct {
	Results []rawListing `json:"results"`
}

// availabilityFilter is sent JSON-encoded in the "available" query parameter.
type availabilityFilter struct {
	CheckIn      string `json:"checkIn"`
	CheckOut     string `json:"checkOut"`
	MinOccupancy int    `json:"minOccupancy,omitempty"`
}

// quotePayload maps local field names onto the names the quotes endpoint expects.
type quotePayload struct {
	ListingID             string `json:"listingId"`
	CheckInDateLocalized  string `json:"checkInDateLocalized"`
	CheckOutDateLocalized string `json:"checkOutDateLocalized"`
	GuestsCount           int    `json:"guestsCount"`
	Source                string `json:"source"`
	Email                 string `json:"email"`
}

// Client talks to the Guesty open API: OAuth token exchange, listing search and
// quote creation.
type Client struct {
	apiBaseURL  string
	authBaseURL string
	httpClient  *http.Client
	secrets     SecretReader
	paramPrefix string

	credsMu sync.Mutex
	creds   *Credentials
}

type Option func(*Client)

// WithAPIBaseURL overrides the listings/quotes host. Empty values are ignored.
func WithAPIBaseURL(baseURL string) Option {
	return func(c *Client) {
		if v := strings.TrimSpace(baseURL); v != "" {
			c.apiBaseURL = v
		}
	}
}

// WithAuthBaseURL overrides the OAuth host. Empty values are ignored.
func WithAuthBaseURL(baseURL string) Option {
	return func(c *Client) {
		if v := strings.TrimSpace(baseURL); v != "" {
			c.authBaseURL = v
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client whose OAuth credentials are read from SSM on first
// use and reused for the lifetime of the process. A failed read is retried on
// the next call.
func NewClient(secrets SecretReader, paramPrefix string, opts ...Option) (*Client, error) {
	if secrets == nil {
		return nil, errors.New("guesty: secret reader must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("guesty: parameter prefix must not be empty")
	}
	c := &Client{
		apiBaseURL:  defaultBaseURL,
		authBaseURL: defaultBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		secrets:     secrets,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) credentialsParameterName() string {
	return paramstore.Name(c.paramPrefix, "guesty/credentials")
}

func (c *Client) resolveCredentials(ctx context.Context) (Credentials, error) {
	c.credsMu.Lock()
	defer c.credsMu.Unlock()
	if c.creds != nil {
		return *c.creds, nil
	}

	var creds Credentials
	if err := c.secrets.GetJSON(ctx, c.credentialsParameterName(), &creds); err != nil {
		return Credentials{}, fmt.Errorf("guesty: fetch credentials: %w", err)
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return Credentials{}, errors.New("guesty: credentials are incomplete")
	}
	c.creds = &creds
	return creds, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func joinURL(baseURL, path string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + path
}

// ExchangeToken performs the client-credentials grant.
func (c *Client) ExchangeToken(ctx context.Context) (domain.TokenGrant, error) {
	creds, err := c.resolveCredentials(ctx)
	if err != nil {
		return domain.TokenGrant{}, err
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", oauthScope)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("client_id", creds.ClientID)

	tokenURL := joinURL(c.authBaseURL, "/oauth2/token")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.TokenGrant{}, fmt.Errorf("guesty: create token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	raw, err := c.doJSONRequest(req, tokenURL)
	if err != nil {
		return domain.TokenGrant{}, fmt.Errorf("guesty: token request failed: %w", err)
	}

	var payload tokenResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.TokenGrant{}, fmt.Errorf("guesty: decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return domain.TokenGrant{}, errors.New("guesty: token response has no access_token")
	}
	if payload.ExpiresIn <= 0 {
		return domain.TokenGrant{}, errors.New("guesty: token response has no expires_in")
	}
	return domain.TokenGrant{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		ExpiresIn:   time.Duration(payload.ExpiresIn) * time.Second,
	}, nil
}

// SearchListings returns the active, published, listed listings available for the
// query, normalized.
func (c *Client) SearchListings(ctx context.Context, token string, q domain.AvailabilityQuery) ([]domain.Listing, error) {
	if token == "" {
		return nil, errors.New("guesty: token must not be empty")
	}

	query, err := encodeQuery([]queryParam{
		{"active", true},
		{"pmsActive", true},
		{"listed", true},
		{"limit", searchLimit},
		{"skip", 0},
		{"available", availabilityFilter{
			CheckIn:      q.CheckIn,
			CheckOut:     q.CheckOut,
			MinOccupancy: q.MinOccupancy,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("guesty: encode listings query: %w", err)
	}

	listingsURL := joinURL(c.apiBaseURL, "/v1/listings") + "?" + query
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("guesty: create listings request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	raw, err := c.doJSONRequest(req, listingsURL)
	if err != nil {
		return nil, fmt.Errorf("guesty: listings request failed: %w", err)
	}

	var payload listingsResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("guesty: decode listings response: %w", err)
	}
	listings := normalizeListings(payload.Results)
	slog.DebugContext(ctx, "guesty listings fetched", "count", len(listings), "check_in", q.CheckIn, "check_out", q.CheckOut)
	return listings, nil
}

// CreateQuote creates a quote and returns the upstream response body as is.
func (c *Client) CreateQuote(ctx context.Context, token string, q domain.QuoteRequest) (json.RawMessage, error) {
	if token == "" {
		return nil, errors.New("guesty: token must not be empty")
	}

	body, err := json.Marshal(quotePayload{
		ListingID:             q.ListingID,
		CheckInDateLocalized:  q.CheckIn,
		CheckOutDateLocalized: q.CheckOut,
		GuestsCount:           q.Guests,
		Source:                quoteSource,
		Email:                 q.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("guesty: marshal quote request: %w", err)
	}

	quotesURL := joinURL(c.apiBaseURL, "/v1/quotes")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, quotesURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("guesty: create quote request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.doJSONRequest(req, quotesURL)
	if err != nil {
		return nil, fmt.Errorf("guesty: quote request failed: %w", err)
	}
	if !json.Valid(raw) {
		return nil, errors.New("guesty: decode quote response: invalid JSON")
	}
	return json.RawMessage(raw), nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
