// Package services contains the application services of the authkeeper CLI.
// AuthService drives the account over the Client and keeps the session
// (access token and who it belongs to) in the local metadata table, so a
// restarted CLI is still logged in.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/authrpc"
	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

const (
	keyAccessToken = "access_token"
	keyEmail       = "email"
	keyUserName    = "username"
)

// Session is the locally cached login.
type Session struct {
	AccessToken string
	Email       string
	UserName    string
}

// AuthService defines the account operations of the CLI. All methods honor
// context cancellation.
type AuthService interface {
	Register(ctx context.Context, req authrpc.RegisterRequest) (*authrpc.User, error)
	Login(ctx context.Context, email string, password []byte) (*Session, error)
	RestoreSession(ctx context.Context) (*Session, error)
	WhoAmI(ctx context.Context) (*authrpc.User, error)
	UpdateProfile(ctx context.Context, req authrpc.UpdateRequest) (*authrpc.User, error)
	DeleteAccount(ctx context.Context) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

func NewAuthService(c client.Client, db *sql.DB) AuthService {
	return &authService{client: c, db: db}
}

func (a *authService) getMetadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (a *authService) Register(ctx context.Context, req authrpc.RegisterRequest) (*authrpc.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrInvalidArgument, err)
	}
	return a.client.Register(ctx, req)
}

// Login authenticates against the server and saves the session in a single
// transaction.
func (a *authService) Login(ctx context.Context, email string, password []byte) (*Session, error) {
	if err := authrpc.ValidateLogin(email, password); err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrInvalidArgument, err)
	}

	resp, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	s := &Session{AccessToken: resp.AccessToken, Email: resp.User.Email, UserName: resp.User.Username}
	if err := a.saveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return s, nil
}

func (a *authService) saveSession(ctx context.Context, s *Session) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		if err := repo.Set(ctx, keyAccessToken, s.AccessToken); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyEmail, s.Email); err != nil {
			return err
		}
		return repo.Set(ctx, keyUserName, s.UserName)
	})
}

// RestoreSession loads a saved session and hands its token to the client.
// It returns client.ErrNotLoggedIn when nothing is saved.
func (a *authService) RestoreSession(ctx context.Context) (*Session, error) {
	repo := a.getMetadataRepo(a.db)

	var s Session
	for key, dst := range map[string]*string{
		keyAccessToken: &s.AccessToken,
		keyEmail:       &s.Email,
		keyUserName:    &s.UserName,
	} {
		v, err := repo.Get(ctx, key)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, client.ErrNotLoggedIn
		}
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	a.client.SetAccessToken(s.AccessToken)
	return &s, nil
}

func (a *authService) WhoAmI(ctx context.Context) (*authrpc.User, error) {
	return a.client.WhoAmI(ctx)
}

func (a *authService) UpdateProfile(ctx context.Context, req authrpc.UpdateRequest) (*authrpc.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrInvalidArgument, err)
	}

	user, err := a.client.UpdateProfile(ctx, req)
	if err != nil {
		return nil, err
	}

	// keep the prompt in sync with a renamed account
	repo := a.getMetadataRepo(a.db)
	if err := repo.Set(ctx, keyEmail, user.Email); err != nil {
		return nil, err
	}
	if err := repo.Set(ctx, keyUserName, user.Username); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the account on the server and then the local session.
func (a *authService) DeleteAccount(ctx context.Context) error {
	if err := a.client.DeleteAccount(ctx); err != nil {
		return err
	}
	return a.Logout(ctx)
}

// Logout forgets the token locally. Issued tokens stay valid on the server
// until they expire.
func (a *authService) Logout(ctx context.Context) error {
	a.client.SetAccessToken("")
	return a.getMetadataRepo(a.db).Clear(ctx)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
