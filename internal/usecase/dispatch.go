package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"

	"integrity-responder/internal/domain"
)

const (
	FunctionSeeListings     = "see_listings"
	FunctionUserWantsToBook = "user_wants_to_book"

	defaultMaxToolCalls = 1
	noListingsSummary   = "No listings are available for the selected dates."
)

type ListingFinder interface {
	SearchAvailability(ctx context.Context, p AvailabilityParams) ([]domain.Listing, error)
	CreateQuote(ctx context.Context, p QuoteParams) (json.RawMessage, error)
}

// ToolCallRecorder remembers which listings were offered for a tool call.
type ToolCallRecorder interface {
	RecordToolCallListings(ctx context.Context, rows []domain.ToolCallListing) error
}

// FunctionCall is a single assistant function invocation with its parameters
// already decoded. Exactly one of Availability and Quote is set.
type FunctionCall struct {
	ToolCallID   string
	Name         string
	Availability *AvailabilityParams
	Quote        *QuoteParams
}

// FunctionRequest is the flat caller shape: a function name and camelCase
// parameters.
type FunctionRequest struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

type functionParameters struct {
	CheckInDate  string `json:"checkInDate"`
	CheckOutDate string `json:"checkOutDate"`
	GuestsCount  *count `json:"guestsCount"`
	ListingID    string `json:"listingId"`
	Email        string `json:"email"`
}

// count is a JSON number that must be whole. Models often send 2.0 for 2.
type count int

func (c *count) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("%s is not a whole number", b)
	}
	*c = count(f)
	return nil
}

func (c *count) intPtr() *int {
	if c == nil {
		return nil
	}
	return lo.ToPtr(int(*c))
}

// ToolCallEnvelope is what the voice platform posts to its server URL.
type ToolCallEnvelope struct {
	Message struct {
		ToolCallList []ToolCall `json:"toolCallList"`
	} `json:"message"`
}

type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
		// Arguments is a JSON document, usually sent as a string.
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type availableArguments struct {
	Available *struct {
		CheckIn      string `json:"check_in" validate:"required,datetime=2006-01-02"`
		CheckOut     string `json:"check_out" validate:"required,datetime=2006-01-02"`
		MinOccupancy count  `json:"min_occupancy" validate:"gte=0"`
	} `json:"available" validate:"required"`
}

type ListingsResult struct {
	Listings []domain.Listing `json:"listings"`
}

type QuoteResult struct {
	Quote json.RawMessage `json:"quote"`
}

type ToolCallResponse struct {
	Results []ToolCallResult `json:"results"`
}

type ToolCallResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// outcome is what executing a FunctionCall produced, before it is shaped for
// either caller.
type outcome struct {
	listings []domain.Listing
	quote    json.RawMessage
}

type Dispatcher struct {
	listings ListingFinder
	recorder ToolCallRecorder
	maxCalls int
	now      func() time.Time
}

func NewDispatcher(listings ListingFinder, recorder ToolCallRecorder, maxCalls int) (*Dispatcher, error) {
	if listings == nil {
		return nil, errors.New("usecase: listing finder must not be nil")
	}
	if recorder == nil {
		return nil, errors.New("usecase: tool call recorder must not be nil")
	}
	if maxCalls <= 0 {
		maxCalls = defaultMaxToolCalls
	}
	return &Dispatcher{
		listings: listings,
		recorder: recorder,
		maxCalls: maxCalls,
		now:      time.Now,
	}, nil
}

// Call runs a flat-shape request and returns ListingsResult or QuoteResult.
func (d *Dispatcher) Call(ctx context.Context, req FunctionRequest) (any, error) {
	call, err := req.normalize()
	if err != nil {
		return nil, err
	}
	out, err := d.execute(ctx, call)
	if err != nil {
		return nil, err
	}
	if call.Name == FunctionSeeListings {
		return ListingsResult{Listings: out.listings}, nil
	}
	return QuoteResult{Quote: out.quote}, nil
}

// DispatchToolCalls runs the tool calls of one envelope in order, up to the
// configured batch limit. Calls past the limit get an error entry.
func (d *Dispatcher) DispatchToolCalls(ctx context.Context, env ToolCallEnvelope) (ToolCallResponse, error) {
	calls := env.Message.ToolCallList
	if len(calls) == 0 {
		return ToolCallResponse{}, newMessageError(ErrorInvalidInput, "empty_tool_call_list",
			"message.toolCallList must contain at least one tool call", nil)
	}

	results := make([]ToolCallResult, 0, len(calls))
	for i, tc := range calls {
		if i >= d.maxCalls {
			results = append(results, ToolCallResult{
				ToolCallID: tc.ID,
				Error:      fmt.Sprintf("tool call not processed: batch limit %d reached", d.maxCalls),
			})
			continue
		}

		call, err := tc.normalize()
		if err != nil {
			return ToolCallResponse{}, err
		}
		out, err := d.execute(ctx, call)
		if err != nil {
			return ToolCallResponse{}, err
		}

		var result any = out.quote
		if call.Name == FunctionSeeListings {
			result = summarizeListings(out.listings)
		}
		results = append(results, ToolCallResult{ToolCallID: call.ToolCallID, Result: result})
	}

	if skipped := len(calls) - d.maxCalls; skipped > 0 {
		slog.WarnContext(ctx, "tool calls over batch limit not processed", "limit", d.maxCalls, "skipped", skipped)
	}
	return ToolCallResponse{Results: results}, nil
}

func (d *Dispatcher) execute(ctx context.Context, call FunctionCall) (outcome, error) {
	switch {
	case call.Availability != nil:
		listings, err := d.listings.SearchAvailability(ctx, *call.Availability)
		if err != nil {
			return outcome{}, err
		}
		if err := d.record(ctx, call.ToolCallID, listings); err != nil {
			return outcome{}, err
		}
		return outcome{listings: listings}, nil
	case call.Quote != nil:
		quote, err := d.listings.CreateQuote(ctx, *call.Quote)
		if err != nil {
			return outcome{}, err
		}
		return outcome{quote: quote}, nil
	default:
		return outcome{}, unknownFunction(call.Name)
	}
}

func (d *Dispatcher) record(ctx context.Context, toolCallID string, listings []domain.Listing) error {
	if toolCallID == "" {
		return nil
	}
	now := d.now().UTC()
	rows := lo.FilterMap(listings, func(l domain.Listing, _ int) (domain.ToolCallListing, bool) {
		return domain.ToolCallListing{
			ToolCallID: toolCallID,
			ListingID:  l.ID,
			Title:      l.Title,
			CreatedAt:  now,
		}, l.ID != ""
	})
	if len(rows) == 0 {
		return nil
	}
	if err := d.recorder.RecordToolCallListings(ctx, rows); err != nil {
		return newError(ErrorInternal, "tool_call_record_error", err)
	}
	return nil
}

func (r FunctionRequest) normalize() (FunctionCall, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" || isJSONNull(r.Parameters) {
		return FunctionCall{}, newMessageError(ErrorInvalidInput, "invalid_request_format",
			`Missing "name" or "parameters" in request body`, nil)
	}
	return buildCall("", name, r.Parameters)
}

func (tc ToolCall) normalize() (FunctionCall, error) {
	id := strings.TrimSpace(tc.ID)
	if id == "" {
		return FunctionCall{}, newMessageError(ErrorInvalidInput, "missing_tool_call_id", "Tool call id is required", nil)
	}
	args, err := decodeArguments(tc.Function.Arguments)
	if err != nil {
		return FunctionCall{}, err
	}

	name := strings.TrimSpace(tc.Function.Name)
	if name != FunctionSeeListings {
		return buildCall(id, name, args)
	}

	var in availableArguments
	if err := json.Unmarshal(args, &in); err != nil {
		return FunctionCall{}, invalidArguments(err)
	}
	if err := validateParams(in); err != nil {
		return FunctionCall{}, err
	}
	return FunctionCall{
		ToolCallID: id,
		Name:       name,
		Availability: &AvailabilityParams{
			CheckIn:  in.Available.CheckIn,
			CheckOut: in.Available.CheckOut,
			Guests:   int(in.Available.MinOccupancy),
		},
	}, nil
}

// buildCall decodes camelCase parameters for the named function.
func buildCall(toolCallID, name string, raw json.RawMessage) (FunctionCall, error) {
	if name != FunctionSeeListings && name != FunctionUserWantsToBook {
		return FunctionCall{}, unknownFunction(name)
	}

	var p functionParameters
	if err := json.Unmarshal(raw, &p); err != nil {
		return FunctionCall{}, invalidArguments(err)
	}

	call := FunctionCall{ToolCallID: toolCallID, Name: name}
	if name == FunctionSeeListings {
		call.Availability = &AvailabilityParams{
			CheckIn:  p.CheckInDate,
			CheckOut: p.CheckOutDate,
			Guests:   lo.FromPtr(p.GuestsCount.intPtr()),
		}
		return call, nil
	}
	call.Quote = &QuoteParams{
		ListingID: p.ListingID,
		CheckIn:   p.CheckInDate,
		CheckOut:  p.CheckOutDate,
		Guests:    p.GuestsCount.intPtr(),
		Email:     p.Email,
	}
	return call, nil
}

// decodeArguments accepts arguments either as a JSON-encoded string or as an
// inline JSON object.
func decodeArguments(raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if isJSONNull(raw) {
		return json.RawMessage("{}"), nil
	}
	if raw[0] != '"' {
		return raw, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, invalidArguments(err)
	}
	if strings.TrimSpace(s) == "" {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid([]byte(s)) {
		return nil, newMessageError(ErrorInvalidInput, "invalid_arguments", "Tool call arguments must be valid JSON", nil)
	}
	return json.RawMessage(s), nil
}

func isJSONNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func invalidArguments(err error) *Error {
	return newMessageError(ErrorInvalidInput, "invalid_arguments", "Function parameters could not be decoded", err)
}

func unknownFunction(name string) *Error {
	return newMessageError(ErrorUnknownFunction, "unknown_function", "Unknown function name", fmt.Errorf("function %q", name))
}

// summarizeListings renders listings as a short numbered list for the assistant
// to read out.
func summarizeListings(listings []domain.Listing) string {
	if len(listings) == 0 {
		return noListingsSummary
	}
	lines := lo.Map(listings, func(l domain.Listing, i int) string {
		return fmt.Sprintf("%d. %s - %s", i+1, l.ID, l.Title)
	})
	return "Available listings:\n" + strings.Join(lines, "\n")
}
