// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/botlink-app/botlink/internal/models"
	"github.com/botlink-app/botlink/internal/services/magiclink"
)

// MagicLinkRequest is the request body for requesting a sign-in link.
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// MagicLink handles POST /auth/magic-link. The response for a known
// and an unknown address is identical.
func (h *Handlers) MagicLink(c echo.Context) error {
	var req MagicLinkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	result, err := h.magicLink.Request(c.Request().Context(), req.Email, c.RealIP())
	if err != nil {
		var rateErr *magiclink.RateLimitError
		switch {
		case errors.Is(err, models.ErrInvalidEmail):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_email"})
		case errors.As(err, &rateErr):
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error":             string(rateErr.Reason),
				"retryAfterSeconds": rateErr.RetryAfter,
			})
		}
		slog.Error("magic link request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"cooldownSeconds": result.CooldownSeconds,
	})
}

// VerifyMagicLink handles GET /auth/verify?token=. A valid token
// signs the owner in and sets the session cookie.
func (h *Handlers) VerifyMagicLink(c echo.Context) error {
	owner, err := h.magicLink.Verify(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		if status, code, ok := tokenErrorResponse(err); ok {
			return c.JSON(status, map[string]string{"error": code})
		}
		slog.Error("magic link verification failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal"})
	}

	cookie, err := h.sessions.Create(owner.ID, owner.Email)
	if err != nil {
		slog.Error("session creation failed", "owner_id", owner.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal"})
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"owner_id": owner.ID,
	})
}

// Logout handles POST /auth/logout. The bot unlink is propagated
// before the response, but its failure never fails the sign-out.
func (h *Handlers) Logout(c echo.Context) error {
	sess, err := h.sessions.Get(c.Request())
	if err == nil {
		if unlinkErr := h.signOut.OnSignOut(c.Request().Context(), sess.OwnerID); unlinkErr != nil {
			slog.Error("sign-out propagation failed", "owner_id", sess.OwnerID, "error", unlinkErr)
		}
	}

	c.SetCookie(h.sessions.Destroy())
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
