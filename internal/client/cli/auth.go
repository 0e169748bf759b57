package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskkeeper/internal/client/client"
	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/spf13/cobra"
)

func (a *App) newSignupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			email, err := GetSimpleText(a.reader, "Enter email", a.out)
			if err != nil {
				return err
			}
			username, err := GetSimpleText(a.reader, "Enter username", a.out)
			if err != nil {
				return err
			}
			password, err := GetPassword(a.reader, a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			a.unmount()
			if err := a.session.Signup(ctx, email, username, password); err != nil {
				if errors.Is(err, client.ErrUnavailable) {
					return err
				}
				fmt.Fprintf(a.out, "Signup failed: %s\n", detailOr(err, "Registration failed. Please try again."))
				return nil
			}

			a.takeRedirect()
			fmt.Fprintf(a.out, "Welcome, %s!\n", a.session.User().Username)
			return nil
		},
	}
}

func (a *App) newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in with email or username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			identifier, err := GetSimpleText(a.reader, "Enter email or username", a.out)
			if err != nil {
				return err
			}
			password, err := GetPassword(a.reader, a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			a.unmount()
			if err := a.session.Login(ctx, identifier, password); err != nil {
				if errors.Is(err, client.ErrUnavailable) {
					return err
				}
				fmt.Fprintf(a.out, "Login failed: %s\n", detailOr(err, "Incorrect username/email or password"))
				return nil
			}

			a.takeRedirect()
			fmt.Fprintf(a.out, "Logged in as %s\n", a.session.User().Username)
			return nil
		},
	}
}

func (a *App) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.unmount()
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			a.takeRedirect()
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func (a *App) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Short:   "Show the logged-in user",
		Args:    cobra.NoArgs,
		PreRunE: a.requireAuth,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := a.session.User()
			if u == nil {
				return nil
			}
			fmt.Fprintf(a.out, "%s <%s> (id %d)\n", u.Username, u.Email, u.ID)
			return nil
		},
	}
}
