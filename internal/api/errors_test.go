package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rsanzone/go-social/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestApiErrorConstructors(t *testing.T) {
	tcases := []struct {
		name string
		err  *ApiError
		code int
	}{
		{"bad request", NewBadRequestError(), http.StatusBadRequest},
		{"not found", NewNotFoundError(), http.StatusNotFound},
		{"unauthorized", NewUnauthorizedError(), http.StatusUnauthorized},
		{"forbidden", NewForbiddenError(), http.StatusForbidden},
		{"internal", NewInternalServerError(nil), http.StatusInternalServerError},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.StatusCode)
			assert.NotEmpty(t, tc.err.Message)
			assert.Equal(t, tc.err.Message, tc.err.Error())
		})
	}
}

func TestApiErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	e := NewInternalServerError(cause)

	assert.ErrorIs(t, e, cause, "expected wrapped cause to be reachable")
	assert.Contains(t, e.Error(), "connection refused")
}

func TestErrorHandlerRecovers(t *testing.T) {
	s := &GoSocialApp{log: testutil.TestLogger(t)}

	h := s.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/posts/feed", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected panic to surface as 500")
	assert.Equal(t, "close", rr.Header().Get("Connection"))
}
