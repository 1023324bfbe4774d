package auth

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "stoop/pkg/domain"
	"stoop/pkg/requestcontext"
)

type stubValidator struct {
	accountID id.AccountID
	err       error
}

func (s stubValidator) Validate(string) (id.AccountID, error) { return s.accountID, s.err }

func TestRequireOnboardingToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	accountID := id.NewAccountID()

	var bound id.AccountID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bound = requestcontext.AccountID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("missing header", func(t *testing.T) {
		h := RequireOnboardingToken(stubValidator{accountID: accountID}, logger)(next)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/onboarding", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), `"error":"unauthorized"`)
	})

	t.Run("invalid token", func(t *testing.T) {
		h := RequireOnboardingToken(stubValidator{err: errors.New("bad signature")}, logger)(next)
		r := httptest.NewRequest(http.MethodPost, "/onboarding", nil)
		r.Header.Set("Authorization", "Bearer nope")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token binds account", func(t *testing.T) {
		h := RequireOnboardingToken(stubValidator{accountID: accountID}, logger)(next)
		r := httptest.NewRequest(http.MethodPost, "/onboarding", nil)
		r.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, accountID, bound)
	})
}
