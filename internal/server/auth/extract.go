package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"google.golang.org/grpc/metadata"
)

// HTTPExtractor pulls a raw token out of an HTTP request.
type HTTPExtractor func(r *http.Request) (string, error)

// MetadataExtractor pulls a raw token out of incoming gRPC metadata.
type MetadataExtractor func(ctx context.Context) (string, error)

// ParseBearer returns the token of an "Authorization: Bearer <token>" value.
// The scheme is matched case-insensitively.
func ParseBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", common.ErrMissingToken
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", common.ErrMissingToken
	}
	return token, nil
}

func BearerFromRequest(r *http.Request) (string, error) {
	return ParseBearer(r.Header.Get(common.AccessTokenHeaderName))
}

func BearerFromMetadata(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", common.ErrMissingToken
	}

	values := md.Get(common.AccessTokenHeaderName)
	if len(values) == 0 {
		return "", common.ErrMissingToken
	}
	return ParseBearer(values[0])
}
