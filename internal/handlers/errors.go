// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"github.com/botlink-app/botlink/internal/services/lifecycle"
	"github.com/botlink-app/botlink/internal/services/linking"
)

// tokenErrorResponse maps validation and linking outcomes to an HTTP
// status and a stable error code. The codes are message categories;
// wording is the client's localization concern.
func tokenErrorResponse(err error) (int, string, bool) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidFormat):
		return http.StatusBadRequest, "invalid_format", true
	case errors.Is(err, lifecycle.ErrTokenNotFound):
		return http.StatusNotFound, "not_found", true
	case errors.Is(err, lifecycle.ErrTokenExpired):
		return http.StatusGone, "expired", true
	case errors.Is(err, lifecycle.ErrTokenUsed):
		return http.StatusGone, "used", true
	case errors.Is(err, lifecycle.ErrTokenInvalidated):
		return http.StatusGone, "invalidated", true
	case errors.Is(err, linking.ErrCollision):
		return http.StatusConflict, "collision", true
	}
	return 0, "", false
}
