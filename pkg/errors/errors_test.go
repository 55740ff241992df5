package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInternal, http.StatusTeapot, "brew"), http.StatusTeapot},
		{"wrapped app error", fmt.Errorf("resolving: %w", SiteNotFound(9)), http.StatusNotFound},
		{"site sentinel", fmt.Errorf("lookup: %w", ErrSiteNotFound), http.StatusNotFound},
		{"page sentinel", ErrPageNotFound, http.StatusNotFound},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"unknown", context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestSiteNotFound(t *testing.T) {
	err := SiteNotFound(42)
	assert.ErrorIs(t, err, ErrSiteNotFound)
	assert.Equal(t, "site not found: no site configured for page 42", err.Error())
}
