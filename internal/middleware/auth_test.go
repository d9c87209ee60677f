package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/segyhp/microloan-ledger/internal/config"
	"github.com/segyhp/microloan-ledger/internal/domain"
	"github.com/segyhp/microloan-ledger/internal/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "testsecret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, subject, role string, expires time.Time) string {
	t.Helper()
	claims := ActorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

// captureActor records the actor the handler saw.
func captureActor(seen *domain.Actor, found *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, *found = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticate_Enabled(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, JWTSecret: testSecret}
	actorID := uuid.New()
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantActor  domain.Actor
	}{
		{
			name:       "valid manager token",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), actorID.String(), "manager", future),
			wantStatus: http.StatusNoContent,
			wantActor:  domain.Actor{ID: actorID, Role: domain.ActorRoleManager},
		},
		{
			name:       "lowercase scheme and upper role",
			header:     "bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), actorID.String(), "ADMIN", future),
			wantStatus: http.StatusNoContent,
			wantActor:  domain.Actor{ID: actorID, Role: domain.ActorRoleAdmin},
		},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), actorID.String(), "manager", future),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), actorID.String(), "manager", time.Now().Add(-time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "subject is not a uuid",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "alice", "manager", future),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "system role cannot be claimed",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), actorID.String(), "system", future),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unsigned token",
			header:     "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, actorID.String(), "admin", future),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen domain.Actor
			var found bool
			handler := Authenticate(cfg, logging.Discard())(captureActor(&seen, &found))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNoContent {
				require.True(t, found)
				assert.Equal(t, tt.wantActor, seen)
			}
		})
	}
}

func TestAuthenticate_DisabledUsesHeaders(t *testing.T) {
	handlerFor := func(seen *domain.Actor, found *bool) http.Handler {
		return Authenticate(config.AuthConfig{}, logging.Discard())(captureActor(seen, found))
	}

	t.Run("headers resolve the actor", func(t *testing.T) {
		var seen domain.Actor
		var found bool
		id := uuid.New()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", nil)
		req.Header.Set(HeaderActorID, id.String())
		req.Header.Set(HeaderActorRole, "admin")
		rec := httptest.NewRecorder()

		handlerFor(&seen, &found).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, found)
		assert.Equal(t, domain.Actor{ID: id, Role: domain.ActorRoleAdmin}, seen)
	})

	t.Run("no headers is anonymous", func(t *testing.T) {
		var seen domain.Actor
		var found bool
		rec := httptest.NewRecorder()

		handlerFor(&seen, &found).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, found)
	})

	t.Run("bad role is rejected", func(t *testing.T) {
		var seen domain.Actor
		var found bool
		req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
		req.Header.Set(HeaderActorID, uuid.NewString())
		req.Header.Set(HeaderActorRole, "borrower")
		rec := httptest.NewRecorder()

		handlerFor(&seen, &found).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireActor(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	RequireActor(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithActor(req.Context(), domain.Actor{ID: uuid.New(), Role: domain.ActorRoleManager}))
	rec = httptest.NewRecorder()
	RequireActor(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
