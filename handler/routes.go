package handler

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"integrity-responder/internal/usecase"
)

type request struct {
	event  events.APIGatewayProxyRequest
	params map[string]string
	body   []byte
}

type handleFunc func(ctx context.Context, req request) (int, any, error)

// route matches a path pattern such as "api/inbox/{id}/messages". An empty
// method accepts every method.
type route struct {
	method   string
	segments []string
	handle   handleFunc
}

func newRoute(method, pattern string, fn handleFunc) route {
	return route{method: method, segments: splitPath(pattern), handle: fn}
}

func (h *Handler) buildRoutes() []route {
	return []route{
		newRoute(http.MethodGet, "/api/inbox", h.listInbox),
		newRoute(http.MethodGet, "/api/inbox/{id}/messages", h.inboxMessages),
		newRoute(http.MethodPost, "/api/inbox/{id}/read", h.markRead),
		newRoute(http.MethodGet, "/api/bot/status", h.botStatus),
		newRoute(http.MethodPost, "/api/bot/toggle", h.botToggle),
		newRoute(http.MethodPost, "/api/properties/get-property", h.getProperty),
		newRoute(http.MethodGet, "/api/token/current", h.currentToken),
		newRoute(http.MethodPost, "/api/token/refresh", h.refreshToken),
		newRoute("", "/api/cron", h.refreshToken),
		newRoute(http.MethodPost, "/api/vapi/functions", h.callFunction),
		newRoute(http.MethodPost, "/api/vapi/tool-calls", h.toolCalls),
		newRoute(http.MethodPost, "/api/assistant", h.createAssistant),
	}
}

// match returns the route for method and path. When only the method is wrong
// it returns nil and the methods the path does accept.
func (h *Handler) match(method, path string) (*route, map[string]string, []string) {
	segs := splitPath(path)
	var allowed []string
	for i := range h.routes {
		rt := &h.routes[i]
		params, ok := matchSegments(rt.segments, segs)
		if !ok {
			continue
		}
		if rt.method == "" || strings.EqualFold(rt.method, method) {
			return rt, params, nil
		}
		allowed = append(allowed, rt.method)
	}
	slices.Sort(allowed)
	return nil, nil, slices.Compact(allowed)
}

func matchSegments(pattern, segs []string) (map[string]string, bool) {
	if len(pattern) != len(segs) {
		return nil, false
	}
	params := map[string]string{}
	for i, p := range pattern {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			if segs[i] == "" {
				return nil, false
			}
			params[strings.Trim(p, "{}")] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// ---- inbox ----

func (h *Handler) listInbox(ctx context.Context, req request) (int, any, error) {
	limit := 0
	if v := req.event.QueryStringParameters["limit"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_limit", Message: "limit must be an integer", Err: err}
		}
		limit = n
	}
	conversations, err := h.deps.Inbox.List(ctx, limit)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]any{"conversations": conversations}, nil
}

func (h *Handler) inboxMessages(ctx context.Context, req request) (int, any, error) {
	messages, err := h.deps.Inbox.Messages(ctx, req.params["id"])
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]any{"messages": messages}, nil
}

func (h *Handler) markRead(ctx context.Context, req request) (int, any, error) {
	n, err := h.deps.Inbox.MarkRead(ctx, req.params["id"])
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]any{"success": true, "updated": n}, nil
}

// ---- bot ----

type botStateResponse struct {
	IsActive bool `json:"is_active"`
}

func (h *Handler) botStatus(ctx context.Context, req request) (int, any, error) {
	active, err := h.deps.Bot.Status(ctx, req.event.QueryStringParameters["conversationId"])
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, botStateResponse{IsActive: active}, nil
}

func (h *Handler) botToggle(ctx context.Context, req request) (int, any, error) {
	var in struct {
		ConversationID string `json:"conversationId"`
	}
	if err := decodeBody(req.body, &in); err != nil {
		return 0, nil, err
	}
	active, err := h.deps.Bot.Toggle(ctx, in.ConversationID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, botStateResponse{IsActive: active}, nil
}

// ---- properties ----

func (h *Handler) getProperty(ctx context.Context, req request) (int, any, error) {
	var in struct {
		ListingID string `json:"listing_id"`
	}
	if err := decodeBody(req.body, &in); err != nil {
		return 0, nil, err
	}
	p, err := h.deps.Properties.Get(ctx, in.ListingID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, p, nil
}

// ---- tokens ----

func (h *Handler) currentToken(ctx context.Context, _ request) (int, any, error) {
	tok, err := h.deps.Tokens.Current(ctx)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]string{"token": tok.Token}, nil
}

type refreshResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) refreshToken(ctx context.Context, _ request) (int, any, error) {
	out, err := h.deps.Tokens.Refresh(ctx)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, refreshResponse{Success: true, AccessToken: out.AccessToken, TokenType: out.TokenType}, nil
}

// ---- assistant functions ----

func (h *Handler) callFunction(ctx context.Context, req request) (int, any, error) {
	var in usecase.FunctionRequest
	if err := decodeBody(req.body, &in); err != nil {
		return 0, nil, err
	}
	out, err := h.deps.Functions.Call(ctx, in)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out, nil
}

func (h *Handler) toolCalls(ctx context.Context, req request) (int, any, error) {
	var in usecase.ToolCallEnvelope
	if err := decodeBody(req.body, &in); err != nil {
		return 0, nil, err
	}
	out, err := h.deps.Functions.DispatchToolCalls(ctx, in)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out, nil
}

func (h *Handler) createAssistant(ctx context.Context, _ request) (int, any, error) {
	out, err := h.deps.Assistant.Create(ctx)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out, nil
}
