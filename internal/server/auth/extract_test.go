package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

func TestParseBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "ok", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "surrounding spaces", header: "  Bearer   abc  ", want: "abc"},
		{name: "empty", header: "", wantErr: common.ErrMissingToken},
		{name: "scheme only", header: "Bearer", wantErr: common.ErrMissingToken},
		{name: "scheme and blank", header: "Bearer    ", wantErr: common.ErrMissingToken},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: common.ErrMissingToken},
		{name: "raw token", header: "abc.def.ghi", wantErr: common.ErrMissingToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBearer(tt.header)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBearerFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/users/me", nil)
	_, err := BearerFromRequest(r)
	require.ErrorIs(t, err, common.ErrMissingToken)

	r.Header.Set("Authorization", "Bearer tok")
	got, err := BearerFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestBearerFromMetadata(t *testing.T) {
	_, err := BearerFromMetadata(context.Background())
	require.ErrorIs(t, err, common.ErrMissingToken)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("other", "x"))
	_, err = BearerFromMetadata(ctx)
	require.ErrorIs(t, err, common.ErrMissingToken)

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer tok"))
	got, err := BearerFromMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	_, ok = PrincipalFromContext(WithPrincipal(context.Background(), nil))
	assert.False(t, ok)

	u := &models.User{ID: "u1"}
	got, ok := PrincipalFromContext(WithPrincipal(context.Background(), u))
	require.True(t, ok)
	assert.Same(t, u, got)
}
