package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"integrity-responder/internal/usecase"
)

type TokenRefresher interface {
	Refresh(ctx context.Context) (usecase.RefreshOutput, error)
}

// ScheduledHandler refreshes the upstream token on an EventBridge schedule.
type ScheduledHandler struct {
	tokens TokenRefresher
}

func NewScheduledHandler(tokens TokenRefresher) (*ScheduledHandler, error) {
	if tokens == nil {
		return nil, errors.New("handler: token refresher must not be nil")
	}
	return &ScheduledHandler{tokens: tokens}, nil
}

// Handle logs a failed refresh and reports success to Lambda; the next
// scheduled run is the retry.
func (h *ScheduledHandler) Handle(ctx context.Context, event events.CloudWatchEvent) error {
	out, err := h.tokens.Refresh(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "scheduled token refresh failed", "event_id", event.ID, "rule", event.Resources, "err", err)
		return nil
	}
	slog.InfoContext(ctx, "scheduled token refresh complete", "event_id", event.ID, "expires_at", out.ExpiresAt)
	return nil
}
