package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
)

func TestUserID_Missing(t *testing.T) {
	_, err := auth.UserID(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestUserID_RoundTrip(t *testing.T) {
	id := uuid.New()

	got, err := auth.UserID(auth.WithUser(context.Background(), id))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestIssuer_IssueAndParse(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	id := uuid.New()

	token, err := issuer.Issue(id)
	require.NoError(t, err)

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestIssuer_ParseWrongSecret(t *testing.T) {
	token, err := auth.NewIssuer("secret", time.Hour).Issue(uuid.New())
	require.NoError(t, err)

	_, err = auth.NewIssuer("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestIssuer_Middleware(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	id := uuid.New()

	token, err := issuer.Issue(id)
	require.NoError(t, err)

	var seen uuid.UUID

	h := issuer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "Valid", header: "Bearer " + token, want: http.StatusOK},
		{name: "Missing", header: "", want: http.StatusUnauthorized},
		{name: "WrongScheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "Garbage", header: "Bearer not-a-token", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}

	assert.Equal(t, id, seen)
}
