package main

import (
	"context"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with an existing account",
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE:  runRegister,
}

var guestCmd = &cobra.Command{
	Use:   "guest",
	Short: "Start an anonymous guest session",
	RunE:  runGuest,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	RunE:  runLogout,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	loginCmd.Flags().StringVarP(&authEmail, "email", "e", "", "Account email")
	registerCmd.Flags().StringVarP(&authEmail, "email", "e", "", "Account email")
	rootCmd.AddCommand(loginCmd, registerCmd, guestCmd, logoutCmd)
}

// promptPassword reads a password without echoing it.
func promptPassword() (string, error) {
	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

func runLogin(_ *cobra.Command, _ []string) error {
	if authEmail == "" {
		return fmt.Errorf("--email is required")
	}
	password, err := promptPassword()
	if err != nil {
		return err
	}

	state, err := stateStore()
	if err != nil {
		return err
	}
	client, err := newAPIClient(state)
	if err != nil {
		return err
	}

	if err := client.Login(context.Background(), authEmail, password); err != nil {
		return err
	}
	if err := persistSession(state, client); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	successColor.Printf("Signed in as %s\n", authEmail)
	return nil
}

func runRegister(_ *cobra.Command, _ []string) error {
	if authEmail == "" {
		return fmt.Errorf("--email is required")
	}
	password, err := promptPassword()
	if err != nil {
		return err
	}

	state, err := stateStore()
	if err != nil {
		return err
	}
	client, err := newAPIClient(state)
	if err != nil {
		return err
	}

	if err := client.Register(context.Background(), authEmail, password); err != nil {
		return err
	}
	if err := persistSession(state, client); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	successColor.Printf("Account created. Signed in as %s\n", authEmail)
	return nil
}

func runGuest(_ *cobra.Command, _ []string) error {
	state, err := stateStore()
	if err != nil {
		return err
	}
	client, err := newAPIClient(state)
	if err != nil {
		return err
	}

	if err := client.Guest(context.Background()); err != nil {
		return err
	}
	if err := persistSession(state, client); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	successColor.Println("Guest session started")
	dimColor.Println("Your reviews are kept under this guest account on this machine only.")
	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	state, err := stateStore()
	if err != nil {
		return err
	}
	client, err := newAPIClient(state)
	if err != nil {
		return err
	}

	// Best effort on the server side; the local session is always dropped.
	_ = client.Logout(context.Background())
	if err := state.Set(sessionKey, ""); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	successColor.Println("Signed out")
	return nil
}
