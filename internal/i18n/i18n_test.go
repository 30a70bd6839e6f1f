// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package i18n_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botlink-app/botlink/internal/i18n"
)

func TestMain(m *testing.M) {
	if err := i18n.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

func TestT(t *testing.T) {
	assert.Equal(t, "Your sign-in link", i18n.T("en", "magic_link_subject"))
	assert.Equal(t, "Dein Anmeldelink", i18n.T("de", "magic_link_subject"))

	// Empty and unsupported locales fall back to English.
	assert.Equal(t, "Your sign-in link", i18n.T("", "magic_link_subject"))
	assert.Equal(t, "Your sign-in link", i18n.T("fr", "magic_link_subject"))
}

func TestT_UnknownMessageID(t *testing.T) {
	assert.Equal(t, "does_not_exist", i18n.T("en", "does_not_exist"))
}

func TestTData(t *testing.T) {
	body := i18n.TData("en", "magic_link_body", map[string]any{
		"SignInURL": "https://example.com/auth/verify?token=abc",
	})
	require.Contains(t, body, "https://example.com/auth/verify?token=abc")
	assert.Contains(t, body, "expires in 15 minutes")
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{"de", "de"},
		{"de-DE,de;q=0.9", "de"},
		{"en-US", "en"},
		{"fr", "en"},
		{"", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			base, _ := i18n.MatchLanguage(tt.accept).Base()
			assert.Equal(t, tt.want, base.String())
		})
	}
}
