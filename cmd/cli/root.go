package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codecritic/codecritic/internal/appapi"
	"github.com/codecritic/codecritic/internal/kvstore"
)

var serverURL string

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "codecritic",
	Short: "codecritic is the command-line interface for the CodeCritic review service.",
	Long:  `A CLI for submitting source code for AI review, browsing your review history, and managing your account.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server-url", "s", "http://localhost:3000", "Application server URL")

	if err := viper.BindPFlag("SERVER_URL", rootCmd.PersistentFlags().Lookup("server-url")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("CC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// stateDir is where the CLI keeps its session and selection state.
func stateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".codecritic"), nil
}

// stateStore opens the persistent key-value state file.
func stateStore() (*kvstore.File, error) {
	dir, err := stateDir()
	if err != nil {
		return nil, err
	}
	return kvstore.NewFile(filepath.Join(dir, "state.json"))
}

const sessionKey = "session-token"

// newAPIClient creates a client for the application server, restoring the
// saved session if one exists.
func newAPIClient(state *kvstore.File) (*appapi.Client, error) {
	client, err := appapi.NewClient(viper.GetString("SERVER_URL"))
	if err != nil {
		return nil, err
	}
	if token, ok := state.Get(sessionKey); ok && token != "" {
		client.SetSessionToken(token)
	}
	return client, nil
}

// persistSession stores the client's current session so later invocations
// stay signed in.
func persistSession(state *kvstore.File, client *appapi.Client) error {
	token, ok := client.SessionToken()
	if !ok {
		return nil
	}
	return state.Set(sessionKey, token)
}
