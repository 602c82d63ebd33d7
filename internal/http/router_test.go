package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ridebud/internal/infra"
)

type denyAll struct{}

func (denyAll) VerifyIDToken(context.Context, string) (*infra.Identity, error) {
	return nil, infra.ErrNoProject
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := NewRouter(ServerDeps{Verifier: denyAll{}, Log: log})

	cases := []struct {
		method, path string
		code         int
		body         string
	}{
		{http.MethodGet, "/health", http.StatusOK, "OK"},
		{http.MethodGet, "/metrics", http.StatusOK, "ridebud_http_requests_total"},
		{http.MethodPost, "/api/journeys", http.StatusUnauthorized, "invalid token"},
		{http.MethodGet, "/api/rides/nearby?lat=1&lng=1", http.StatusUnauthorized, ""},
		{http.MethodPost, "/api/fares/estimate", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.code {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.code, w.Code)
		}
		if tc.body != "" && !strings.Contains(w.Body.String(), tc.body) {
			t.Errorf("%s %s: body does not contain %q", tc.method, tc.path, tc.body)
		}
	}
}
