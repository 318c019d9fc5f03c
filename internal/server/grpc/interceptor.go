package grpc

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/authrpc"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// protectedMethods need an authenticated caller.
var protectedMethods = map[string]struct{}{
	authrpc.WhoAmIMethod:        {},
	authrpc.UpdateProfileMethod: {},
	authrpc.DeleteAccountMethod: {},
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if _, ok := protectedMethods[info.FullMethod]; !ok {
		return handler(ctx, req)
	}

	// an empty token is reported by the resolver as missing
	token, err := s.extract(ctx)
	if err != nil {
		token = ""
	}

	user, err := s.resolver.ValidatePrincipal(ctx, token)
	if err != nil {
		if common.IsTokenError(err) {
			s.logger.Info(ctx, "call not authenticated", "kind", common.Kind(err), "method", info.FullMethod)
			return nil, status.Error(codes.Unauthenticated, msgUnauthenticated)
		}
		return nil, s.toStatus(ctx, err)
	}

	return handler(auth.WithPrincipal(ctx, user), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{
		"method", info.FullMethod,
		"code", code.String(),
		"duration_ms", float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond),
	}

	switch code {
	case codes.OK:
		s.logger.Info(ctx, "grpc_request", args...)
	case codes.Internal, codes.Unavailable, codes.DeadlineExceeded:
		s.logger.Error(ctx, "grpc_request", args...)
	default:
		s.logger.Warn(ctx, "grpc_request", args...)
	}

	return resp, err
}

func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "panic recovered",
				"panic", r,
				"method", info.FullMethod,
				"stack", string(debug.Stack()),
			)
			resp, err = nil, status.Error(codes.Internal, msgInternal)
		}
	}()

	return handler(ctx, req)
}
