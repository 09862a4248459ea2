package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/samber/lo"

	"integrity-responder/internal/integrations/vapi"
)

type AssistantCreator interface {
	CreateAssistant(ctx context.Context, a vapi.Assistant) (json.RawMessage, error)
}

// AssistantService registers the voice assistant with the platform, pointing its
// tool calls back at this service.
type AssistantService struct {
	creator       AssistantCreator
	prompt        string
	publicBaseURL string
}

func NewAssistantService(creator AssistantCreator, prompt, publicBaseURL string) (*AssistantService, error) {
	if creator == nil {
		return nil, errors.New("usecase: assistant creator must not be nil")
	}
	return &AssistantService{creator: creator, prompt: prompt, publicBaseURL: publicBaseURL}, nil
}

func (s *AssistantService) Create(ctx context.Context) (json.RawMessage, error) {
	a, err := vapi.LoadAssistant(s.prompt, s.publicBaseURL)
	if err != nil {
		return nil, newMessageError(ErrorInternal, "assistant_definition_error", "Failed to create assistant", err)
	}
	out, err := s.creator.CreateAssistant(ctx, a)
	if err != nil {
		msg := lo.CoalesceOrEmpty(upstreamMessage(err), "Failed to create assistant")
		return nil, newMessageError(ErrorUpstream, "vapi_assistant_error", msg, err)
	}
	return out, nil
}
