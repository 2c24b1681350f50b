package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/swapdesk/internal/session"
	"github.com/nhle/swapdesk/internal/theme"
)

const resetNotice = "Check your email for a link to reset your password."

var (
	loginEmail    string
	loginPassword string
	resetEmail    string
)

// loginCmd signs in and stores the bearer token.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the marketplace",
	Long: `Sign in with your marketplace email and password. Missing values are
prompted for. The token is kept in the system keyring.`,
	RunE: runLogin,
}

// logoutCmd forgets the stored token.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored token",
	RunE:  runLogout,
}

// forgotPasswordCmd requests a password reset email.
var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Request a password reset email",
	RunE:  runForgotPassword,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when empty)")
	forgotPasswordCmd.Flags().StringVar(&resetEmail, "email", "", "Account email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if env.manager.TakePasswordResetNotice(ctx) {
		fmt.Fprintln(out, theme.SuccessStyle.Render(resetNotice))
	}

	s, err := login(ctx, loginEmail, loginPassword)
	if err != nil {
		return err
	}
	defer s.End()

	fmt.Fprintln(out, theme.SuccessStyle.Render("Logged in."))
	return nil
}

// login signs in with email and password, prompting for whichever is
// empty.
func login(ctx context.Context, email, password string) (*session.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Email").
					Value(&email).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return errors.New("email is required")
						}
						return nil
					}),
				huh.NewInput().
					Title("Password").
					EchoMode(huh.EchoModePassword).
					Value(&password),
			),
		)
		if err := form.Run(); err != nil {
			return nil, err
		}
	}

	return env.manager.Login(ctx, email, password)
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := env.manager.Resume(ctx)
	if err != nil && !errors.Is(err, session.ErrNoSession) && !errors.Is(err, session.ErrExpired) {
		return err
	}
	if err := env.manager.Logout(ctx, s); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}

func runForgotPassword(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	email := resetEmail
	if strings.TrimSpace(email) == "" {
		if err := huh.NewInput().Title("Email").Value(&email).Run(); err != nil {
			return err
		}
	}

	if err := env.manager.RequestPasswordReset(ctx, email); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Password reset requested for %s.\n", strings.TrimSpace(email))
	return nil
}
