package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/phishguard/pkg/auth"
)

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("ip:10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("ip:10.0.0.1"))
	assert.True(t, rl.Allow("ip:10.0.0.2"), "other clients have their own bucket")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("ip:10.0.0.1"), "one token refilled")
	assert.False(t, rl.Allow("ip:10.0.0.1"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(10, 0)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.Equal(t, 10, rl.burst)
	rl.Allow("a")
	now = now.Add(5 * time.Minute)
	rl.Allow("b")
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, rl.Sweep())
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "b")
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scan", nil)
	req.RemoteAddr = "192.0.2.10:51234"
	assert.Equal(t, "ip:192.0.2.10", clientKey(req))

	claims := &auth.Claims{ClientID: "browser-extension"}
	req = req.WithContext(auth.ContextWithClaims(req.Context(), claims))
	assert.Equal(t, "client:browser-extension", clientKey(req))
}

func TestAuthMiddleware(t *testing.T) {
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret-key", Issuer: "test"})
	require.NoError(t, err)

	var gotClaims *auth.Claims
	h := AuthMiddleware(jwtSvc, []string{"/open"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = auth.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"skip path", "/open", "", http.StatusOK},
		{"missing header", "/api/v1/scan", "", http.StatusUnauthorized},
		{"basic scheme", "/api/v1/scan", "Basic abc123", http.StatusUnauthorized},
		{"garbage token", "/api/v1/scan", "Bearer invalid-token-string", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("valid token", func(t *testing.T) {
		token, err := jwtSvc.GenerateToken("extension", []string{auth.ScopeScan})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/scan", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, gotClaims)
		assert.Equal(t, "extension", gotClaims.ClientID)
	})

	t.Run("nil service disables auth", func(t *testing.T) {
		open := AuthMiddleware(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		rec := httptest.NewRecorder()
		open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scan", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
