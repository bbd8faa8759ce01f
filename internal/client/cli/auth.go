package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/civicreport/internal/client/client"
	"github.com/dmitrijs2005/civicreport/internal/client/router"
	"github.com/dmitrijs2005/civicreport/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username, display name and password and creates a
// citizen account. The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Register(ctx, userName, name, password); err != nil {
		if errors.Is(err, client.ErrAlreadyExists) {
			return fmt.Errorf("username %q is taken", userName)
		}
		return err
	}

	a.println(okStyle.Render("Account created, you can now log in."))
	return nil
}

// Login prompts for credentials and the remember-me choice, authenticates,
// and opens the home page of the account's role.
func (a *App) Login(ctx context.Context) error {
	if a.IsLoggedIn() {
		a.println("Already logged in, use 'logout' first.")
		return nil
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

	rememberAnswer, err := getSimpleText(a.reader, "Remember me on this device? (y/N)", a.out)
	if err != nil {
		return err
	}
	remember := strings.HasPrefix(strings.ToLower(rememberAnswer), "y")

	s, err := a.auth.Login(ctx, userName, password, remember)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, client.ErrNotFound) {
			return errors.New("invalid username or password")
		}
		return err
	}

	a.setMode(ModeOnline)
	a.println(okStyle.Render(fmt.Sprintf("Welcome, %s (%s)", s.Name, s.Role)))
	return a.Navigate(ctx, router.Home(a.store.Snapshot()))
}

// Logout ends the session and returns to the landing page.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		a.printErr(err)
	}
	a.wizard.Reset()
	a.println("Logged out.")
	return a.Navigate(ctx, "/")
}
