package client

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/authrpc"
)

// Client is the server API as seen by the CLI services.
type Client interface {
	Close() error
	SetAccessToken(token string)
	Register(ctx context.Context, req authrpc.RegisterRequest) (*authrpc.User, error)
	Login(ctx context.Context, email string, password []byte) (*authrpc.LoginResponse, error)
	WhoAmI(ctx context.Context) (*authrpc.User, error)
	UpdateProfile(ctx context.Context, req authrpc.UpdateRequest) (*authrpc.User, error)
	DeleteAccount(ctx context.Context) error
	Ping(ctx context.Context) error
}
