package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"integrity-responder/internal/domain"
	"integrity-responder/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type TokenUseCase interface {
	Refresh(ctx context.Context) (usecase.RefreshOutput, error)
	Current(ctx context.Context) (domain.AuthToken, error)
}

type InboxUseCase interface {
	List(ctx context.Context, limit int) ([]domain.ConversationSummary, error)
	Messages(ctx context.Context, conversationID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, conversationID string) (int64, error)
}

type BotUseCase interface {
	Status(ctx context.Context, conversationID string) (bool, error)
	Toggle(ctx context.Context, conversationID string) (bool, error)
}

type PropertyUseCase interface {
	Get(ctx context.Context, listingID string) (domain.Property, error)
}

type FunctionUseCase interface {
	Call(ctx context.Context, req usecase.FunctionRequest) (any, error)
	DispatchToolCalls(ctx context.Context, env usecase.ToolCallEnvelope) (usecase.ToolCallResponse, error)
}

type AssistantUseCase interface {
	Create(ctx context.Context) (json.RawMessage, error)
}

// Deps are the use cases the HTTP surface delegates to. All are required.
type Deps struct {
	Tokens     TokenUseCase
	Inbox      InboxUseCase
	Bot        BotUseCase
	Properties PropertyUseCase
	Functions  FunctionUseCase
	Assistant  AssistantUseCase
}

type Handler struct {
	deps   Deps
	routes []route
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func NewHandler(d Deps) (*Handler, error) {
	switch {
	case d.Tokens == nil:
		return nil, errors.New("handler: token use case must not be nil")
	case d.Inbox == nil:
		return nil, errors.New("handler: inbox use case must not be nil")
	case d.Bot == nil:
		return nil, errors.New("handler: bot use case must not be nil")
	case d.Properties == nil:
		return nil, errors.New("handler: property use case must not be nil")
	case d.Functions == nil:
		return nil, errors.New("handler: function use case must not be nil")
	case d.Assistant == nil:
		return nil, errors.New("handler: assistant use case must not be nil")
	}
	h := &Handler{deps: d}
	h.routes = h.buildRoutes()
	return h, nil
}

// Handle serves one API Gateway proxy request.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)

	rt, params, allowed := h.match(event.HTTPMethod, event.Path)
	if rt == nil {
		if len(allowed) > 0 {
			resp := errorJSON(corrID, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed", Code: "METHOD_NOT_ALLOWED"})
			resp.Headers["Allow"] = strings.Join(allowed, ", ")
			return resp, nil
		}
		return errorJSON(corrID, http.StatusNotFound, errorResponse{Error: "Route not found", Code: string(usecase.ErrorNotFound)}), nil
	}

	body, err := requestBody(event)
	if err != nil {
		return h.fail(ctx, corrID, event, invalidBody(err)), nil
	}

	status, out, err := rt.handle(ctx, request{event: event, params: params, body: body})
	if err != nil {
		return h.fail(ctx, corrID, event, err), nil
	}
	return jsonResponse(corrID, status, out), nil
}

func (h *Handler) fail(ctx context.Context, corrID string, event events.APIGatewayProxyRequest, err error) events.APIGatewayProxyResponse {
	status, resp := classify(err)
	attrs := []any{
		"correlation_id", corrID,
		"method", event.HTTPMethod,
		"path", event.Path,
		"code", resp.Code,
		"err", err,
	}
	var ue *usecase.Error
	if errors.As(err, &ue) {
		attrs = append(attrs, "reason", ue.Reason)
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", attrs...)
	} else {
		slog.WarnContext(ctx, "request rejected", attrs...)
	}
	return errorJSON(corrID, status, resp)
}

// classify maps an error onto a status code and the body the caller sees.
func classify(err error) (int, errorResponse) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError, errorResponse{
			Error: "Internal server error",
			Code:  string(usecase.ErrorInternal),
		}
	}

	status := http.StatusInternalServerError
	fallback := "Internal server error"
	switch ue.Code {
	case usecase.ErrorInvalidInput:
		status, fallback = http.StatusBadRequest, "Invalid request"
	case usecase.ErrorUnknownFunction:
		status, fallback = http.StatusBadRequest, "Unknown function name"
	case usecase.ErrorNotFound:
		status, fallback = http.StatusNotFound, "Not found"
	case usecase.ErrorTokenExpired:
		status, fallback = http.StatusForbidden, "Token expired"
	case usecase.ErrorUpstream:
		fallback = "Upstream request failed"
	}

	resp := errorResponse{Error: fallback, Code: string(ue.Code)}
	if ue.Message != "" {
		resp.Error = ue.Message
	}
	if status >= http.StatusInternalServerError {
		resp.Details = ue.Reason
	}
	return status, resp
}

func jsonResponse(corrID string, status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return errorJSON(corrID, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Code: string(usecase.ErrorInternal)})
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(body),
	}
}

func errorJSON(corrID string, status int, resp errorResponse) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(resp)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(body),
	}
}

func requestBody(event events.APIGatewayProxyRequest) ([]byte, error) {
	if !event.IsBase64Encoded {
		return []byte(event.Body), nil
	}
	return base64.StdEncoding.DecodeString(event.Body)
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return uuid.NewString()
}

func invalidBody(err error) error {
	return &usecase.Error{
		Code:    usecase.ErrorInvalidInput,
		Reason:  "invalid_body",
		Message: "Invalid request format",
		Err:     err,
	}
}

// decodeBody decodes a JSON object body. An empty body decodes to the zero value.
func decodeBody(body []byte, v any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return invalidBody(err)
	}
	return nil
}
