package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/talkboard/talkboard-web/internal/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Talkboard",
		Long: `Signs in with email and password and saves the credentials to the
credentials file. The ID token is refreshed automatically when it expires.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email == "" {
				email, err = pterm.DefaultInteractiveTextInput.Show("Email")
				if err != nil {
					return err
				}
			}

			var password string
			if passwordStdin {
				password, err = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && password == "" {
					return fmt.Errorf("read password: %w", err)
				}
			} else {
				password, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
				if err != nil {
					return err
				}
			}

			creds, err := a.provider.SignIn(cmd.Context(), strings.TrimSpace(email), strings.TrimSpace(password))
			if err != nil {
				return err
			}
			if err := a.creds.Save(creds); err != nil {
				return err
			}

			pterm.Success.Printfln("Signed in as %s", creds.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved credentials",
		RunE: func(*cobra.Command, []string) error {
			if err := a.creds.Clear(); err != nil {
				return err
			}
			pterm.Info.Println("Signed out")
			return nil
		},
	}
}

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account and its role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, creds, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}

			// Refresh before the role lookup so an expired token is renewed once.
			if _, err := a.creds.Token(ctx); err != nil {
				return err
			}
			res := a.roles.Resolve(ctx, session.FromContext(ctx))

			pterm.DefaultSection.Println("Account")
			return pterm.DefaultTable.WithData(pterm.TableData{
				{"Email", creds.Email},
				{"Name", valueOr(creds.DisplayName, "-")},
				{"Role", string(res.Role)},
				{"Token expires", creds.ExpiresAt.Local().Format(time.RFC1123)},
				{"Credentials", a.creds.Path()},
			}).Render()
		},
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
