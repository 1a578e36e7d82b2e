package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"ticket-tracker/internal/trigger"
	"ticket-tracker/security"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

const maxTriggerBody = 1 << 20

type PayloadHandler interface {
	HandlePayload(ctx context.Context, payload []byte) error
}

type TriggerHandler struct {
	handler PayloadHandler
	auth    *security.TriggerAuth
	limiter *security.RateLimiter
}

func NewTriggerHandler(handler PayloadHandler, auth *security.TriggerAuth, limiter *security.RateLimiter) *TriggerHandler {
	return &TriggerHandler{
		handler: handler,
		auth:    auth,
		limiter: limiter,
	}
}

// Trigger - Run a scrape or dump_price_history action
func (h *TriggerHandler) Trigger(e *core.RequestEvent) error {
	if security.IsSuspiciousUserAgent(e.Request.UserAgent()) {
		return apis.NewForbiddenError("Forbidden", nil)
	}

	if !h.auth.Enabled() {
		return apis.NewForbiddenError("Trigger endpoint is disabled", nil)
	}

	// Throttle before the bcrypt compare so bad tokens are rate limited too.
	ctx := e.Request.Context()
	if h.limiter != nil && !h.limiter.Allow(ctx, "trigger:"+clientIP(e.Request)) {
		return apis.NewApiError(http.StatusTooManyRequests, "Too many requests", nil)
	}

	if err := h.auth.Verify(e.Request.Header.Get("Authorization")); err != nil {
		if errors.Is(err, security.ErrTriggerOff) {
			return apis.NewForbiddenError("Trigger endpoint is disabled", nil)
		}
		return apis.NewUnauthorizedError("Invalid trigger token", nil)
	}

	payload, err := io.ReadAll(io.LimitReader(e.Request.Body, maxTriggerBody))
	if err != nil {
		return apis.NewBadRequestError("Failed to read body", err)
	}

	if err := h.handler.HandlePayload(ctx, payload); err != nil {
		slog.Error("trigger failed", "error", err)

		var syntaxErr *json.SyntaxError
		if errors.Is(err, trigger.ErrUnknownAction) || errors.Is(err, trigger.ErrEmptyPayload) || errors.As(err, &syntaxErr) {
			return apis.NewBadRequestError("Invalid trigger: "+err.Error(), nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Trigger failed", nil)
	}

	return e.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
