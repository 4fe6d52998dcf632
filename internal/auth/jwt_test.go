package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/isdelr/airmove-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = models.User{ID: "user-1", Email: "rider@example.com", Name: "Rider"}

func TestGenerateAndValidate(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, err := m.Generate(testUser)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "rider@example.com", claims.Email)
}

func TestValidate_Rejects(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, err := m.Generate(testUser)
	require.NoError(t, err)

	_, err = NewTokenManager("other-secret", time.Hour).Validate(token)
	assert.Error(t, err, "wrong secret")

	expired := NewTokenManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Validate(token)
	assert.Error(t, err, "expired")

	_, err = m.Validate("not-a-token")
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(r))
}

func TestMiddleware(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, err := m.Generate(testUser)
	require.NoError(t, err)

	var seen *Claims
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "Bearer garbage", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.want, w.Code)
		})
	}
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.UserID)
}
