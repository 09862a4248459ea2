package vapi

import (
	"encoding/json"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"integrity-responder/internal/domain"
)

func TestLoadAssistant(t *testing.T) {
	a, err := LoadAssistant("  You book stays.  ", "https://responder.example.com/")
	require.NoError(t, err)

	require.Equal(t, "Integrity Housing Assistant", a.Name)
	require.Equal(t, "openai", a.Model.Provider)
	require.Equal(t, 0.7, a.Model.Temperature)
	require.Equal(t, "11labs", a.Voice.Provider)
	require.Equal(t, "https://responder.example.com/api/vapi/tool-calls", a.ServerURL)
	require.Equal(t, []domain.ChatMessage{{Role: "system", Content: "You book stays."}}, a.Model.Messages)

	names := lo.Map(a.Model.Functions, func(f Function, _ int) string { return f.Name })
	require.Equal(t, []string{"see_listings", "user_wants_to_book"}, names)

	see := a.Model.Functions[0].Parameters.Properties["available"]
	require.Equal(t, "object", see.Type)
	require.ElementsMatch(t, []string{"check_in", "check_out"}, see.Required)
	require.Equal(t, "integer", see.Properties["min_occupancy"].Type)

	book := a.Model.Functions[1].Parameters
	require.ElementsMatch(t, []string{"listingId", "checkInDate", "checkOutDate", "guestsCount", "email"}, book.Required)
	require.Equal(t, "integer", book.Properties["guestsCount"].Type)
}

func TestLoadAssistant_NoPrompt(t *testing.T) {
	a, err := LoadAssistant("", "https://responder.example.com")
	require.NoError(t, err)
	require.Empty(t, a.Model.Messages)

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	require.NotContains(t, string(raw), `"messages"`)
}

func TestLoadAssistant_RequiresBaseURL(t *testing.T) {
	_, err := LoadAssistant("prompt", " ")
	require.Error(t, err)
}
