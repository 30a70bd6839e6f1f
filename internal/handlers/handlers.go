// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains all HTTP handlers.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/botlink-app/botlink/internal/repository"
	"github.com/botlink-app/botlink/internal/services/lifecycle"
	"github.com/botlink-app/botlink/internal/services/linking"
	"github.com/botlink-app/botlink/internal/services/magiclink"
	"github.com/botlink-app/botlink/internal/services/session"
)

// Handlers contains all HTTP handlers and their collaborators.
type Handlers struct {
	repo      *repository.Repository
	sessions  *session.Manager
	magicLink *magiclink.Service
	lifecycle *lifecycle.Manager
	linking   *linking.Coordinator
	signOut   *linking.SignOutPropagator
	botToken  string
}

// New creates a new Handlers instance.
func New(
	repo *repository.Repository,
	sessions *session.Manager,
	ml *magiclink.Service,
	lm *lifecycle.Manager,
	lc *linking.Coordinator,
	so *linking.SignOutPropagator,
	botToken string,
) *Handlers {
	return &Handlers{
		repo:      repo,
		sessions:  sessions,
		magicLink: ml,
		lifecycle: lm,
		linking:   lc,
		signOut:   so,
		botToken:  botToken,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
