package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"snipspace/handlers/auth"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := auth.AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Username: subject,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func setupAuth(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	auth.InitAuth()
}

func TestAuthJWT_ValidToken(t *testing.T) {
	setupAuth(t)

	var gotClaims *auth.AppClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = r.Context().Value(ClaimsContextKey).(*auth.AppClaims)
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthJWT(next)

	req := httptest.NewRequest(http.MethodGet, "/api/snippets", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "alice", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	if gotClaims == nil || gotClaims.Subject != "alice" {
		t.Errorf("Claims not propagated: %+v", gotClaims)
	}
}

func TestAuthJWT_MissingHeader(t *testing.T) {
	setupAuth(t)
	handler := AuthJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/snippets", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthJWT_MalformedHeader(t *testing.T) {
	setupAuth(t)
	handler := AuthJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	testCases := []struct {
		name   string
		header string
	}{
		{"no scheme", "just-a-token"},
		{"wrong scheme", "Basic abc123"},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/snippets", http.NoBody)
			req.Header.Set("Authorization", tc.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthJWT_ExpiredToken(t *testing.T) {
	setupAuth(t)
	handler := AuthJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/snippets", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "alice", time.Now().Add(-time.Hour)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthJWT_WrongSecret(t *testing.T) {
	setupAuth(t)

	claims := auth.AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("a-different-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	handler := AuthJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/snippets", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
