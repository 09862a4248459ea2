package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"integrity-responder/internal/domain"
)

type fakeFinder struct {
	listings   []domain.Listing
	quote      json.RawMessage
	err        error
	avail      []AvailabilityParams
	quotes     []QuoteParams
	validating *ListingService
}

func (f *fakeFinder) SearchAvailability(ctx context.Context, p AvailabilityParams) ([]domain.Listing, error) {
	f.avail = append(f.avail, p)
	if f.validating != nil {
		return f.validating.SearchAvailability(ctx, p)
	}
	return f.listings, f.err
}

func (f *fakeFinder) CreateQuote(ctx context.Context, p QuoteParams) (json.RawMessage, error) {
	f.quotes = append(f.quotes, p)
	if f.validating != nil {
		return f.validating.CreateQuote(ctx, p)
	}
	return f.quote, f.err
}

type fakeRecorder struct {
	rows []domain.ToolCallListing
	err  error
}

func (f *fakeRecorder) RecordToolCallListings(_ context.Context, rows []domain.ToolCallListing) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

var dispatchNow = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func newTestDispatcher(t *testing.T, finder *fakeFinder, rec *fakeRecorder, maxCalls int) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(finder, rec, maxCalls)
	require.NoError(t, err)
	d.now = func() time.Time { return dispatchNow }
	return d
}

func decodeEnvelope(t *testing.T, body string) ToolCallEnvelope {
	t.Helper()
	var env ToolCallEnvelope
	require.NoError(t, json.Unmarshal([]byte(body), &env))
	return env
}

func TestNewDispatcher_Defaults(t *testing.T) {
	_, err := NewDispatcher(nil, &fakeRecorder{}, 1)
	require.Error(t, err)
	_, err = NewDispatcher(&fakeFinder{}, nil, 1)
	require.Error(t, err)

	d, err := NewDispatcher(&fakeFinder{}, &fakeRecorder{}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, d.maxCalls)
}

// ---------------------------------------------------------------------------
// flat shape
// ---------------------------------------------------------------------------

func TestCall_SeeListings(t *testing.T) {
	finder := &fakeFinder{listings: []domain.Listing{{ID: "l-1", Title: "Loft"}}}
	rec := &fakeRecorder{}
	d := newTestDispatcher(t, finder, rec, 1)

	out, err := d.Call(context.Background(), FunctionRequest{
		Name:       "see_listings",
		Parameters: json.RawMessage(`{"checkInDate":"2024-06-01","checkOutDate":"2024-06-05","guestsCount":2}`),
	})
	require.NoError(t, err)
	require.Equal(t, ListingsResult{Listings: finder.listings}, out)
	require.Equal(t, []AvailabilityParams{{CheckIn: "2024-06-01", CheckOut: "2024-06-05", Guests: 2}}, finder.avail)
	require.Empty(t, rec.rows, "flat calls carry no tool call id")

	raw, err := json.Marshal(ListingsResult{Listings: []domain.Listing{}})
	require.NoError(t, err)
	require.JSONEq(t, `{"listings":[]}`, string(raw))
}

func TestCall_UserWantsToBook(t *testing.T) {
	finder := &fakeFinder{quote: json.RawMessage(`{"_id":"q-1"}`)}
	d := newTestDispatcher(t, finder, &fakeRecorder{}, 1)

	out, err := d.Call(context.Background(), FunctionRequest{
		Name:       "user_wants_to_book",
		Parameters: json.RawMessage(`{"listingId":"l-1","checkInDate":"2024-06-01","checkOutDate":"2024-06-05","guestsCount":3,"email":"g@example.com"}`),
	})
	require.NoError(t, err)
	require.Equal(t, QuoteResult{Quote: json.RawMessage(`{"_id":"q-1"}`)}, out)
	require.Equal(t, []QuoteParams{{
		ListingID: "l-1",
		CheckIn:   "2024-06-01",
		CheckOut:  "2024-06-05",
		Guests:    lo.ToPtr(3),
		Email:     "g@example.com",
	}}, finder.quotes)
}

func TestCall_RejectsMalformedRequests(t *testing.T) {
	d := newTestDispatcher(t, &fakeFinder{}, &fakeRecorder{}, 1)

	_, err := d.Call(context.Background(), FunctionRequest{Parameters: json.RawMessage(`{}`)})
	requireCode(t, err, ErrorInvalidInput)

	_, err = d.Call(context.Background(), FunctionRequest{Name: "see_listings"})
	requireCode(t, err, ErrorInvalidInput)

	_, err = d.Call(context.Background(), FunctionRequest{Name: "see_listings", Parameters: json.RawMessage(`{"guestsCount":"two"}`)})
	requireCode(t, err, ErrorInvalidInput)

	_, err = d.Call(context.Background(), FunctionRequest{Name: "cancel_booking", Parameters: json.RawMessage(`{}`)})
	requireCode(t, err, ErrorUnknownFunction)
}

// ---------------------------------------------------------------------------
// tool-call envelope
// ---------------------------------------------------------------------------

func TestDispatchToolCalls_SeeListingsSummarizesAndRecords(t *testing.T) {
	finder := &fakeFinder{listings: []domain.Listing{{ID: "l-1", Title: "Loft"}, {ID: "l-2", Title: "Cabin"}}}
	rec := &fakeRecorder{}
	d := newTestDispatcher(t, finder, rec, 1)

	env := decodeEnvelope(t, `{"message":{"toolCallList":[{"id":"call-1","type":"function","function":{"name":"see_listings","arguments":"{\"available\":{\"check_in\":\"2024-06-01\",\"check_out\":\"2024-06-05\",\"min_occupancy\":2}}"}}]}}`)
	out, err := d.DispatchToolCalls(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, []ToolCallResult{{ToolCallID: "call-1", Result: "Available listings:\n1. l-1 - Loft\n2. l-2 - Cabin"}}, out.Results)
	require.Equal(t, []AvailabilityParams{{CheckIn: "2024-06-01", CheckOut: "2024-06-05", Guests: 2}}, finder.avail)
	require.Equal(t, []domain.ToolCallListing{
		{ToolCallID: "call-1", ListingID: "l-1", Title: "Loft", CreatedAt: dispatchNow},
		{ToolCallID: "call-1", ListingID: "l-2", Title: "Cabin", CreatedAt: dispatchNow},
	}, rec.rows)
}

func TestDispatchToolCalls_ObjectArgumentsAndEmptyResult(t *testing.T) {
	rec := &fakeRecorder{}
	d := newTestDispatcher(t, &fakeFinder{listings: []domain.Listing{}}, rec, 1)

	env := decodeEnvelope(t, `{"message":{"toolCallList":[{"id":"call-1","type":"function","function":{"name":"see_listings","arguments":{"available":{"check_in":"2024-06-01","check_out":"2024-06-05"}}}}]}}`)
	out, err := d.DispatchToolCalls(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, "No listings are available for the selected dates.", out.Results[0].Result)
	require.Empty(t, rec.rows)
}

func TestDispatchToolCalls_AcceptsWholeNumberFloats(t *testing.T) {
	finder := &fakeFinder{listings: []domain.Listing{}, quote: json.RawMessage(`{"_id":"q-1"}`)}
	d := newTestDispatcher(t, finder, &fakeRecorder{}, 2)

	env := decodeEnvelope(t, `{"message":{"toolCallList":[
		{"id":"call-1","function":{"name":"see_listings","arguments":{"available":{"check_in":"2024-06-01","check_out":"2024-06-05","min_occupancy":2.0}}}},
		{"id":"call-2","function":{"name":"user_wants_to_book","arguments":{"listingId":"l-1","checkInDate":"2024-06-01","checkOutDate":"2024-06-05","guestsCount":2.0,"email":"g@example.com"}}}
	]}}`)
	_, err := d.DispatchToolCalls(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, []AvailabilityParams{{CheckIn: "2024-06-01", CheckOut: "2024-06-05", Guests: 2}}, finder.avail)
	require.Len(t, finder.quotes, 1)
	require.Equal(t, lo.ToPtr(2), finder.quotes[0].Guests)

	env = decodeEnvelope(t, `{"message":{"toolCallList":[{"id":"call-3","function":{"name":"see_listings","arguments":{"available":{"check_in":"2024-06-01","check_out":"2024-06-05","min_occupancy":2.5}}}}]}}`)
	_, err = d.DispatchToolCalls(context.Background(), env)
	requireCode(t, err, ErrorInvalidInput)
	require.Len(t, finder.avail, 1)
}

func TestDispatchToolCalls_SeeListingsMissingDates(t *testing.T) {
	finder := &fakeFinder{}
	d := newTestDispatcher(t, finder, &fakeRecorder{}, 1)

	env := decodeEnvelope(t, `{"message":{"toolCallList":[{"id":"call-1","function":{"name":"see_listings","arguments":"{\"available\":{\"check_in\":\"2024-06-01\"}}"}}]}}`)
	_, err := d.DispatchToolCalls(context.Background(), env)
	ue := requireCode(t, err, ErrorInvalidInput)
	require.Equal(t, "Missing required parameters: check_out", ue.Message)
	require.Empty(t, finder.avail)

	env = decodeEnvelope(t, `{"message":{"toolCallList":[{"id":"call-1","function":{"name":"see_listings","arguments":"{}"}}]}}`)
	_, err = d.DispatchToolCalls(context.Background(), env)
	ue = requireCode(t, err, ErrorInvalidInput)
	require.Equal(t, "Missing required parameters: available", ue.Message)
}

func TestDispatchToolCalls_BookListsMissingFields(t *testing.T) {
	svc, err := NewListingService(&fakeTokenSource{token: "tok"}, &fakeListingClient{})
	require.NoError(t, err)
	finder := &fakeFinder{validating: svc}
	d := newTestDispatcher(t, finder, &fakeRecorder{}, 1)

	env := decodeEnvelope(t, `{"message":{"toolCallList":[{"id":"call-1","function":{"name":"user_wants_to_book","arguments":"{\"listingId\":\"l-1\",\"checkInDate\":\"2024-06-01\",\"checkOutDate\":\"2024-06-05\"}"}}]}}`)
	_, err = d.DispatchToolCalls(context.Background(), env)
	ue := requireCode(t, err, ErrorInvalidInput)
	require.Equal(t, "Missing required parameters: email, guestsCount", ue.Message)
}

func TestDispatchToolCalls_BookReturnsQuoteVerbatim(t *testing.T) {
	d := newTestDispatcher(t, &fakeFinder{quote: json.RawMessage(`{"_id":"q-1","money":{"total":420}}`)}, &fakeRecorder{}, 1)

	env := decodeEnvelope(t, `{"message":{"toolCallList":[{"id":"call-9","function":{"name":"user_wants_to_book","arguments":"{\"listingId\":\"l-1\",\"checkInDate\":\"2024-06-01\",\"checkOutDate\":\"2024-06-05\",\"guestsCount\":2,\"email\":\"g@example.com\"}"}}]}}`)
	out, err := d.DispatchToolCalls(context.Background(), env)
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"results":[{"toolCallId":"call-9","result":{"_id":"q-1","money":{"total":420}}}]}`, string(raw))
}

func TestDispatchToolCalls_InvalidInput(t *testing.T) {
	d := newTestDispatcher(t, &fakeFinder{}, &fakeRecorder{}, 1)

	cases := map[string]string{
		"empty list":         `{"message":{"toolCallList":[]}}`,
		"missing id":         `{"message":{"toolCallList":[{"function":{"name":"see_listings","arguments":"{}"}}]}}`,
		"arguments not json": `{"message":{"toolCallList":[{"id":"c","function":{"name":"see_listings","arguments":"{not json"}}]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := d.DispatchToolCalls(context.Background(), decodeEnvelope(t, body))
			requireCode(t, err, ErrorInvalidInput)
		})
	}

	_, err := d.DispatchToolCalls(context.Background(), decodeEnvelope(t, `{"message":{"toolCallList":[{"id":"c","function":{"name":"transfer_call","arguments":"{}"}}]}}`))
	requireCode(t, err, ErrorUnknownFunction)
}

func TestDispatchToolCalls_BatchLimit(t *testing.T) {
	finder := &fakeFinder{listings: []domain.Listing{{ID: "l-1", Title: "Loft"}}}
	d := newTestDispatcher(t, finder, &fakeRecorder{}, 1)

	args := `"{\"available\":{\"check_in\":\"2024-06-01\",\"check_out\":\"2024-06-05\"}}"`
	env := decodeEnvelope(t, `{"message":{"toolCallList":[
		{"id":"call-1","function":{"name":"see_listings","arguments":`+args+`}},
		{"id":"call-2","function":{"name":"see_listings","arguments":`+args+`}}
	]}}`)
	out, err := d.DispatchToolCalls(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	require.Equal(t, "call-1", out.Results[0].ToolCallID)
	require.Empty(t, out.Results[0].Error)
	require.Equal(t, ToolCallResult{ToolCallID: "call-2", Error: "tool call not processed: batch limit 1 reached"}, out.Results[1])
	require.Len(t, finder.avail, 1)

	d = newTestDispatcher(t, finder, &fakeRecorder{}, 2)
	out, err = d.DispatchToolCalls(context.Background(), env)
	require.NoError(t, err)
	require.Empty(t, out.Results[1].Error)
}

func TestDispatchToolCalls_RecordFailureFailsRequest(t *testing.T) {
	d := newTestDispatcher(t, &fakeFinder{listings: []domain.Listing{{ID: "l-1"}}}, &fakeRecorder{err: errors.New("conn reset")}, 1)

	env := decodeEnvelope(t, `{"message":{"toolCallList":[{"id":"call-1","function":{"name":"see_listings","arguments":"{\"available\":{\"check_in\":\"2024-06-01\",\"check_out\":\"2024-06-05\"}}"}}]}}`)
	_, err := d.DispatchToolCalls(context.Background(), env)
	ue := requireCode(t, err, ErrorInternal)
	require.Equal(t, "tool_call_record_error", ue.Reason)
}

func TestDispatchToolCalls_UpstreamErrorFailsRequest(t *testing.T) {
	d := newTestDispatcher(t, &fakeFinder{err: newMessageError(ErrorUpstream, "guesty_listings_error", "Invalid dates", nil)}, &fakeRecorder{}, 1)

	env := decodeEnvelope(t, `{"message":{"toolCallList":[{"id":"call-1","function":{"name":"see_listings","arguments":"{\"available\":{\"check_in\":\"2024-06-01\",\"check_out\":\"2024-06-05\"}}"}}]}}`)
	_, err := d.DispatchToolCalls(context.Background(), env)
	ue := requireCode(t, err, ErrorUpstream)
	require.Equal(t, "Invalid dates", ue.Message)
}

func TestSummarizeListings(t *testing.T) {
	require.Equal(t, noListingsSummary, summarizeListings(nil))
	require.Equal(t, "Available listings:\n1. a - A", summarizeListings([]domain.Listing{{ID: "a", Title: "A"}}))
}
