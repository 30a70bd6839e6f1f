// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session manages the signed owner session cookie.
package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/botlink-app/botlink/internal/config"
)

// ErrNoSession is returned when the request carries no valid session.
var ErrNoSession = errors.New("no valid session")

// Session is the authenticated owner attached to a request.
type Session struct {
	OwnerID  int64
	Email    string
	IssuedAt time.Time
}

// Manager signs and verifies session cookies with securecookie.
type Manager struct {
	codec      *securecookie.SecureCookie
	cookieName string
	maxAge     int
	secure     bool
}

// NewManager creates a Manager. Keys are hex-encoded 32-byte strings;
// an empty hash key generates an ephemeral one for development, which
// invalidates all sessions on restart.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey, "session hash key")
	if err != nil {
		return nil, err
	}
	if hashKey == nil {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			return nil, fmt.Errorf("generating session hash key")
		}
	}

	blockKey, err := decodeKey(cfg.BlockKey, "session block key")
	if err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)

	return &Manager{
		codec:      codec,
		cookieName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     secure,
	}, nil
}

// decodeKey decodes a hex key, allowing empty, requiring 32 bytes.
func decodeKey(hexKey, what string) ([]byte, error) {
	if hexKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", what, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must be 32 bytes, got %d", what, len(key))
	}
	return key, nil
}

// Create signs a new session cookie for the owner.
func (m *Manager) Create(ownerID int64, email string) (*http.Cookie, error) {
	sess := Session{OwnerID: ownerID, Email: email, IssuedAt: time.Now()}
	value, err := m.codec.Encode(m.cookieName, sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   m.maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Get resolves the request's session cookie.
func (m *Manager) Get(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	var sess Session
	if err := m.codec.Decode(m.cookieName, cookie.Value, &sess); err != nil {
		return nil, ErrNoSession
	}
	if sess.OwnerID == 0 {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// Destroy returns an expired cookie that clears the session.
func (m *Manager) Destroy() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
