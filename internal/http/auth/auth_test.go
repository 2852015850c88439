package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/colmado/internal/http/auth"
)

func sign(t *testing.T, secret, subject string, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	return s
}

func TestMiddleware(t *testing.T) {
	var gotUser string

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = auth.User(r.Context())
	})

	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
		wantUser   string
	}{
		{name: "Disabled", wantStatus: http.StatusOK},
		{name: "Missing", secret: "s3cret", wantStatus: http.StatusUnauthorized},
		{
			name:       "Valid",
			secret:     "s3cret",
			header:     "Bearer " + sign(t, "s3cret", "cajera-1", time.Now().Add(time.Hour)),
			wantStatus: http.StatusOK,
			wantUser:   "cajera-1",
		},
		{
			name:       "WrongSecret",
			secret:     "s3cret",
			header:     "Bearer " + sign(t, "other", "x", time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Expired",
			secret:     "s3cret",
			header:     "Bearer " + sign(t, "s3cret", "x", time.Now().Add(-time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			auth.Middleware(tt.secret)(next).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantUser, gotUser)
		})
	}
}
