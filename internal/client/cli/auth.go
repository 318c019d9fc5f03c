package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/authrpc"
	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// Input seams, replaced in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getProfile    = GetProfile
)

func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	profile, err := getProfile(a.reader, a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	user, err := a.authService.Register(ctx, authrpc.RegisterRequest{
		Email:    email,
		Username: userName,
		Password: string(password),
		Profile:  profile,
	})
	if err != nil {
		return describe(err)
	}

	printlnFn(fmt.Sprintf("User %s (%s) successfully created, you can login now", user.Username, user.Email))
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	s, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return describe(err)
	}

	a.setSession(s)
	printlnFn("Login successful!")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.setSession(nil)
	printlnFn("Logged out")
	return nil
}

// describe makes client errors readable at the prompt.
func describe(err error) error {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		return errors.New("server is unavailable, try again later")
	case errors.Is(err, client.ErrUnauthorized):
		return errors.New("not authorized, please login again")
	default:
		return err
	}
}
