package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/authrpc"
	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

func (a *App) WhoAmI(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	user, err := a.authService.WhoAmI(ctx)
	if err != nil {
		return a.dropSessionOnAuthError(ctx, err)
	}

	printlnFn(formatUser(user))
	return nil
}

// Update asks for each field; an empty answer leaves the field unchanged.
func (a *App) Update(ctx context.Context) error {
	var req authrpc.UpdateRequest

	email, err := getSimpleText(a.reader, "New email (empty to keep)", a.out)
	if err != nil {
		return err
	}
	if email != "" {
		req.Email = &email
	}

	userName, err := getSimpleText(a.reader, "New username (empty to keep)", a.out)
	if err != nil {
		return err
	}
	if userName != "" {
		req.Username = &userName
	}

	answer, err := getSimpleText(a.reader, "Change password? (y/N)", a.out)
	if err != nil {
		return err
	}
	if strings.EqualFold(answer, "y") {
		password, err := getPassword(a.out)
		if err != nil {
			return err
		}
		pw := string(password)
		common.WipeByteArray(password)
		req.Password = &pw
	}

	profile, err := getProfile(a.reader, a.out)
	if err != nil {
		return err
	}
	req.Profile = profile

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	user, err := a.authService.UpdateProfile(ctx, req)
	if err != nil {
		return a.dropSessionOnAuthError(ctx, err)
	}

	a.mu.Lock()
	if a.session != nil {
		a.session.Email = user.Email
		a.session.UserName = user.Username
	}
	a.mu.Unlock()

	printlnFn("Account updated")
	printlnFn(formatUser(user))
	return nil
}

func (a *App) Delete(ctx context.Context) error {
	answer, err := getSimpleText(a.reader, "Delete the account permanently? Type 'yes' to confirm", a.out)
	if err != nil {
		return err
	}
	if answer != "yes" {
		printlnFn("Cancelled")
		return nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.authService.DeleteAccount(ctx); err != nil {
		return a.dropSessionOnAuthError(ctx, err)
	}

	a.setSession(nil)
	printlnFn("Account deleted")
	return nil
}

// dropSessionOnAuthError forgets a session the server no longer accepts.
func (a *App) dropSessionOnAuthError(ctx context.Context, err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		_ = a.authService.Logout(ctx)
		a.setSession(nil)
	}
	return describe(err)
}

func formatUser(u *authrpc.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID:       %s\n", u.ID)
	fmt.Fprintf(&b, "Email:    %s\n", u.Email)
	fmt.Fprintf(&b, "Username: %s\n", u.Username)
	fmt.Fprintf(&b, "Created:  %s\n", u.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Updated:  %s", u.UpdatedAt.Format("2006-01-02 15:04:05"))
	for _, k := range slices.Sorted(maps.Keys(u.Profile)) {
		fmt.Fprintf(&b, "\n  %s: %v", k, u.Profile[k])
	}
	return b.String()
}
