package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/authrpc"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type stubResolver struct {
	user *models.User
	err  error
	got  string
}

func (r *stubResolver) ValidatePrincipal(ctx context.Context, token string) (*models.User, error) {
	r.got = token
	return r.user, r.err
}

func newTestServer(r *stubResolver) *GRPCServer {
	return NewGRPCServer("", logging.Nop{}, nil, nil, r)
}

func incoming(header string) context.Context {
	return metadata.NewIncomingContext(context.Background(),
		metadata.Pairs(common.AccessTokenHeaderName, header))
}

func TestInterceptor_UnprotectedSkipsResolver(t *testing.T) {
	r := &stubResolver{err: errors.New("must not be called")}
	s := newTestServer(r)

	info := &grpc.UnaryServerInfo{FullMethod: authrpc.LoginMethod}
	called := false
	h := func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
	assert.Empty(t, r.got)
}

func TestInterceptor_Protected(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		resolver  *stubResolver
		wantCode  codes.Code
		wantToken string
	}{
		{
			name:      "valid token sets principal",
			ctx:       incoming("Bearer tok"),
			resolver:  &stubResolver{user: &models.User{ID: "u1"}},
			wantCode:  codes.OK,
			wantToken: "tok",
		},
		{
			name:     "no metadata",
			ctx:      context.Background(),
			resolver: &stubResolver{err: common.ErrMissingToken},
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "wrong scheme",
			ctx:      incoming("Token tok"),
			resolver: &stubResolver{err: common.ErrMissingToken},
			wantCode: codes.Unauthenticated,
		},
		{
			name:      "expired",
			ctx:       incoming("Bearer old"),
			resolver:  &stubResolver{err: common.ErrTokenExpired},
			wantCode:  codes.Unauthenticated,
			wantToken: "old",
		},
		{
			name:      "store unavailable",
			ctx:       incoming("bearer tok"),
			resolver:  &stubResolver{err: fmt.Errorf("%w: down", common.ErrorUnavailable)},
			wantCode:  codes.Unavailable,
			wantToken: "tok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(tt.resolver)
			info := &grpc.UnaryServerInfo{FullMethod: authrpc.WhoAmIMethod}

			var seen *models.User
			h := func(ctx context.Context, req any) (any, error) {
				seen, _ = auth.PrincipalFromContext(ctx)
				return "ok", nil
			}

			_, err := s.accessTokenInterceptor(tt.ctx, nil, info, h)
			assert.Equal(t, tt.wantCode, status.Code(err))
			assert.Equal(t, tt.wantToken, tt.resolver.got)

			if tt.wantCode == codes.OK {
				require.NotNil(t, seen)
				assert.Equal(t, "u1", seen.ID)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	s := newTestServer(&stubResolver{})
	info := &grpc.UnaryServerInfo{FullMethod: authrpc.PingMethod}

	_, err := s.recoveryInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})

	st := status.Convert(err)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Equal(t, msgInternal, st.Message())
}

func TestToStatus(t *testing.T) {
	s := newTestServer(&stubResolver{})

	tests := []struct {
		err  error
		code codes.Code
	}{
		{common.ErrMissingToken, codes.Unauthenticated},
		{common.ErrInvalidSignature, codes.Unauthenticated},
		{common.ErrorInvalidCredentials, codes.Unauthenticated},
		{fmt.Errorf("%w: x", common.ErrorValidation), codes.InvalidArgument},
		{common.ErrEmailTaken, codes.AlreadyExists},
		{common.ErrUsernameTaken, codes.AlreadyExists},
		{common.ErrorNotFound, codes.NotFound},
		{common.ErrorTimeout, codes.DeadlineExceeded},
		{common.ErrorUnavailable, codes.Unavailable},
		{context.Canceled, codes.Canceled},
		{errors.New("db password=hunter2"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			st := status.Convert(s.toStatus(context.Background(), tt.err))
			assert.Equal(t, tt.code, st.Code())
			assert.NotContains(t, st.Message(), "hunter2")
		})
	}

	st := status.Convert(s.loginStatus(context.Background(), common.ErrorNotFound))
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, msgInvalidCredentials, st.Message())
}
