package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/authrpc"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      authrpc.AuthServiceClient

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, common.BearerScheme+" "+token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if token := s.token(); token != "" {
		ctx = withAccessToken(ctx, token)
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewAuthKeeperClient creates a client for endpointURL. Extra dial options
// are appended to the defaults (plaintext transport, token interceptor).
func NewAuthKeeperClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.initGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) initGRPCClient(opts ...grpc.DialOption) error {

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = authrpc.NewAuthServiceClient(conn)
	return nil
}

func (s *GRPCClient) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) Register(ctx context.Context, req authrpc.RegisterRequest) (*authrpc.User, error) {

	in, err := req.Struct()
	if err != nil {
		return nil, err
	}

	out, err := s.client.Register(ctx, in)
	if err != nil {
		return nil, s.mapError(err)
	}

	var resp authrpc.RegisterResponse
	if err := authrpc.Decode(out, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil

}

// Login authenticates and keeps the returned token for later calls.
func (s *GRPCClient) Login(ctx context.Context, email string, password []byte) (*authrpc.LoginResponse, error) {

	out, err := s.client.Login(ctx, authrpc.LoginStruct(email, password))
	if err != nil {
		return nil, s.mapError(err)
	}

	var resp authrpc.LoginResponse
	if err := authrpc.Decode(out, &resp); err != nil {
		return nil, err
	}

	s.SetAccessToken(resp.AccessToken)
	return &resp, nil

}

func (s *GRPCClient) WhoAmI(ctx context.Context) (*authrpc.User, error) {

	out, err := s.client.WhoAmI(ctx, &structpb.Struct{})
	if err != nil {
		return nil, s.mapError(err)
	}

	var user authrpc.User
	if err := authrpc.Decode(out, &user); err != nil {
		return nil, err
	}
	return &user, nil

}

func (s *GRPCClient) UpdateProfile(ctx context.Context, req authrpc.UpdateRequest) (*authrpc.User, error) {

	in, err := authrpc.Encode(req)
	if err != nil {
		return nil, err
	}

	out, err := s.client.UpdateProfile(ctx, in)
	if err != nil {
		return nil, s.mapError(err)
	}

	var user authrpc.User
	if err := authrpc.Decode(out, &user); err != nil {
		return nil, err
	}
	return &user, nil

}

func (s *GRPCClient) DeleteAccount(ctx context.Context) error {

	if _, err := s.client.DeleteAccount(ctx, &structpb.Struct{}); err != nil {
		return s.mapError(err)
	}

	s.SetAccessToken("")
	return nil

}

func (s *GRPCClient) Ping(ctx context.Context) error {

	out, err := s.client.Ping(ctx, &structpb.Struct{})
	if err != nil {
		return s.mapError(err)
	}

	var resp authrpc.PingResponse
	if err := authrpc.Decode(out, &resp); err != nil || resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil

}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// mapError keeps the server's message for errors the user can act on.
func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
