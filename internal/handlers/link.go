// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/botlink-app/botlink/internal/models"
)

// BotTokenHeader carries the shared secret of the bot backend.
const BotTokenHeader = "X-Bot-Token"

// IssueLinkToken handles POST /link/token. Requires an authenticated
// owner session; issuance is gated by the rate-limit policy over the
// owner's recent link tokens.
func (h *Handlers) IssueLinkToken(c echo.Context) error {
	sess, err := h.sessions.Get(c.Request())
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	decision, err := h.lifecycle.IssueAllowance(c.Request().Context(), sess.OwnerID, models.TokenPurposeLink)
	if err != nil {
		slog.Error("issuance allowance check failed", "owner_id", sess.OwnerID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal"})
	}
	if !decision.Allowed {
		return c.JSON(http.StatusTooManyRequests, map[string]any{
			"error":             string(decision.Reason),
			"retryAfterSeconds": decision.RetryAfterSeconds(),
		})
	}

	issued, err := h.lifecycle.Issue(c.Request().Context(), sess.OwnerID, models.TokenPurposeLink)
	if err != nil {
		slog.Error("link token issue failed", "owner_id", sess.OwnerID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal"})
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"token":     issued.Value,
		"expiresAt": issued.ExpiresAt.UTC().Format(time.RFC3339),
		"deepLink":  issued.DeepLink,
	})
}

// LinkVerifyRequest is the body presented by the bot backend.
type LinkVerifyRequest struct {
	Token              string `json:"token"`
	SecondaryAccountID int64  `json:"secondaryAccountId"`
}

// VerifyLink handles POST /link/verify, invoked by the bot backend
// with a presented token and the bot-side account identifier.
func (h *Handlers) VerifyLink(c echo.Context) error {
	if !h.validBotToken(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	var req LinkVerifyRequest
	if err := c.Bind(&req); err != nil || req.SecondaryAccountID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	outcome, err := h.linking.Link(c.Request().Context(), req.Token, req.SecondaryAccountID)
	if err != nil {
		if status, code, ok := tokenErrorResponse(err); ok {
			return c.JSON(status, map[string]string{"error": code})
		}
		slog.Error("link verification failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal"})
	}

	status := "linked"
	if outcome.AlreadyLinked {
		status = "already_linked"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": status,
		"locale": outcome.Locale,
	})
}

func (h *Handlers) validBotToken(c echo.Context) bool {
	if h.botToken == "" {
		return false
	}
	presented := c.Request().Header.Get(BotTokenHeader)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.botToken)) == 1
}
