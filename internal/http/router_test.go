package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
	apihttp "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/account"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/budget"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/category"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/export"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/importcsv"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/matching"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/transaction"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/transfer"
)

func newRouter() http.Handler {
	handlers := apihttp.Handlers{
		Accounts:     account.NewHandler(nil, nil),
		Categories:   category.NewHandler(nil),
		Transactions: transaction.NewHandler(nil),
		Transfers:    transfer.NewHandler(nil, time.Now),
		Budgets:      budget.NewHandler(nil),
		Rules:        matching.NewHandler(nil),
		Import:       importcsv.NewHandler(nil, time.Now),
		Export:       export.NewHandler(nil, time.Now),
	}

	issuer := auth.NewIssuer("secret", time.Hour)

	return apihttp.New(handlers, issuer.Middleware, []string{"http://localhost:5173"})
}

func TestRouter(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		header     map[string]string
		wantStatus int
	}{
		{
			name:       "health check is public",
			method:     http.MethodGet,
			target:     "/healthz",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "api requires a token",
			method:     http.MethodGet,
			target:     "/api/v1/accounts",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token rejected",
			method:     http.MethodGet,
			target:     "/api/v1/transactions",
			header:     map[string]string{"Authorization": "Bearer nope"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "cors preflight",
			method: http.MethodOptions,
			target: "/api/v1/accounts",
			header: map[string]string{
				"Origin":                        "http://localhost:5173",
				"Access-Control-Request-Method": "POST",
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			target:     "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	router := newRouter()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
