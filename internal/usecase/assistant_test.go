package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"integrity-responder/internal/integrations/vapi"
)

type fakeAssistantCreator struct {
	got vapi.Assistant
	out json.RawMessage
	err error
}

func (f *fakeAssistantCreator) CreateAssistant(_ context.Context, a vapi.Assistant) (json.RawMessage, error) {
	f.got = a
	return f.out, f.err
}

func TestAssistantService_Create(t *testing.T) {
	creator := &fakeAssistantCreator{out: json.RawMessage(`{"id":"asst-1"}`)}
	s, err := NewAssistantService(creator, "You help guests.", "https://responder.example.com")
	require.NoError(t, err)

	out, err := s.Create(context.Background())
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"asst-1"}`, string(out))
	require.Equal(t, "https://responder.example.com/api/vapi/tool-calls", creator.got.ServerURL)
	require.Equal(t, "You help guests.", creator.got.Model.Messages[0].Content)
}

func TestAssistantService_Errors(t *testing.T) {
	_, err := NewAssistantService(nil, "", "")
	require.Error(t, err)

	s, err := NewAssistantService(&fakeAssistantCreator{}, "prompt", "")
	require.NoError(t, err)
	_, err = s.Create(context.Background())
	requireCode(t, err, ErrorInternal)

	s, err = NewAssistantService(&fakeAssistantCreator{err: messageErr{msg: "Unauthorized"}}, "prompt", "https://x.example.com")
	require.NoError(t, err)
	_, err = s.Create(context.Background())
	ue := requireCode(t, err, ErrorUpstream)
	require.Equal(t, "Unauthorized", ue.Message)
}
