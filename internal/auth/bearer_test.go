package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "missing", header: "", wantErr: ErrMissingAuthorization},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: ErrInvalidScheme},
		{name: "lowercase scheme", header: "bearer abc", wantErr: ErrInvalidScheme},
		{name: "no token", header: "Bearer", wantErr: ErrInvalidScheme},
		{name: "blank token", header: "Bearer    ", wantErr: ErrInvalidScheme},
		{name: "ok", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/emails", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := BearerToken(r)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, got)
		})
	}
}
