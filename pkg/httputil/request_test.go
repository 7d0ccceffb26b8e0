package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"problem":"too busy"}`))
		var dest struct {
			Problem string `json:"problem"`
		}
		require.NoError(t, ParseJSON(req, &dest))
		assert.Equal(t, "too busy", dest.Problem)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		var dest map[string]interface{}
		err := ParseJSON(req, &dest)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON")
	})
}

func TestParseJSONOrError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	w := httptest.NewRecorder()
	var dest map[string]interface{}

	ok := ParseJSONOrError(w, req, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"valid", "Bearer abc.def", "abc.def", nil},
		{"case insensitive scheme", "bearer abc", "abc", nil},
		{"missing", "", "", ErrMissingAuthorization},
		{"wrong scheme", "Basic dXNlcg==", "", ErrInvalidAuthorization},
		{"no token", "Bearer ", "", ErrInvalidAuthorization},
		{"no separator", "Bearer", "", ErrInvalidAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/credits", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			got, err := BearerToken(req)

			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
