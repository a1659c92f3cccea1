package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codecritic/codecritic/internal/catalog"
	"github.com/codecritic/codecritic/internal/config"
	"github.com/codecritic/codecritic/internal/jobs"
	"github.com/codecritic/codecritic/internal/kvstore"
	"github.com/codecritic/codecritic/internal/llm"
	"github.com/codecritic/codecritic/internal/prompt"
	"github.com/codecritic/codecritic/internal/review"
)

var (
	flagModel    string
	flagLanguage string
	verbose      bool
)

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Submit a source file for AI code review",
	Long: `Submit a source file for AI code review.

Online models are reviewed by the hosted service and stream back through it.
Offline models run against a local Ollama runtime; the finished review is
uploaded to your history afterwards.

Examples:
  codecritic review main.py
  codecritic review --model TinySwallow-1.5B --language javascript app.js`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().StringVarP(&flagModel, "model", "m", "", "Chat model to review with (see 'codecritic models')")
	reviewCmd.Flags().StringVarP(&flagLanguage, "language", "l", "", "Programming language of the file")
	reviewCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.AddCommand(reviewCmd)
}

// detectLanguage guesses the language from the file extension.
func detectLanguage(path string) (catalog.LanguageID, bool) {
	switch filepath.Ext(path) {
	case ".py":
		return catalog.LangPython, true
	case ".js", ".mjs", ".jsx":
		return catalog.LangJavaScript, true
	}
	return "", false
}

func cliLogger() *slog.Logger {
	if verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.DiscardHandler)
}

func runReview(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%s is empty", path)
	}

	state, err := stateStore()
	if err != nil {
		return err
	}
	client, err := newAPIClient(state)
	if err != nil {
		return err
	}

	log := cliLogger()
	prompts, err := prompt.NewManager()
	if err != nil {
		return err
	}

	ollamaHost := viper.GetString("OLLAMA_HOST")
	if ollamaHost == "" {
		ollamaHost = "http://localhost:11434"
	}
	adapter := llm.NewAdapter(llm.NewOllamaEngine(ollamaHost, log), log)

	dispatcher := jobs.NewDispatcher(client, 1, log)
	defer dispatcher.Stop() // drain the history upload before exiting

	streamed := 0
	orch := review.NewOrchestrator(review.Options{
		API:       client,
		Local:     adapter,
		Prompts:   prompts,
		Persister: dispatcher,
		Store:     state,
		Logger:    log,
		Notify: func(msg string) {
			errorColor.Fprintf(os.Stderr, "\n%s\n", msg)
		},
		OnReviewChanged: func(text string) {
			// Stream only the unseen tail; updates are cumulative.
			if len(text) > streamed {
				dimColor.Print(text[streamed:])
				streamed = len(text)
			}
		},
		OnNavigate: func(id string) {
			if verbose {
				dimColor.Printf("Review ID: %s\n", id)
			}
		},
		InvalidateHistory: func() {},
	})

	if err := applySelection(orch, state, path); err != nil {
		return err
	}
	orch.SetCode(string(code))

	model, _ := catalog.ChatModelByID(orch.Model())
	titleColor.Println("CodeCritic - Code Review")
	dimColor.Printf("   File: %s\n", path)
	dimColor.Printf("   Model: %s  Language: %s\n\n", model.Name, orch.Language())

	start := time.Now()
	if err := orch.Submit(ctx); err != nil {
		if errors.Is(err, review.ErrSubmissionInFlight) {
			return err
		}
		return fmt.Errorf("review failed: %w", err)
	}

	text, ok := orch.ReviewText()
	if !ok || text == "" {
		return fmt.Errorf("the model returned an empty review")
	}

	rendered, err := glamour.Render(text, "dark")
	if err != nil {
		// Fall back to the raw markdown already streamed above.
		rendered = "\n"
	}
	fmt.Print("\n")
	boldColor.Println("Review")
	fmt.Print(rendered)

	if verbose {
		dimColor.Printf("\nTotal time: %s\n", time.Since(start).Round(time.Millisecond))
	}

	if err := persistSession(state, client); err != nil {
		log.Warn("failed to refresh saved session", "error", err)
	}
	return nil
}

// applySelection resolves the model and language for this run. Precedence:
// explicit flags, then the saved selection, then .codecritic.yaml in the
// working directory, then the catalog defaults. The file extension decides
// the language when nothing else does.
func applySelection(orch *review.Orchestrator, state kvstore.Store, path string) error {
	projectCfg, err := config.LoadProjectConfig(".")
	if err != nil && !errors.Is(err, config.ErrProjectConfigNotFound) {
		return err
	}

	switch {
	case flagModel != "":
		if err := orch.SelectModel(catalog.ChatModelID(flagModel)); err != nil {
			return err
		}
	default:
		if _, saved := state.Get(catalog.KeyChatModelID); !saved && projectCfg != nil {
			if err := orch.SelectModel(catalog.ChatModelID(projectCfg.ChatModel)); err != nil {
				return err
			}
		}
	}

	switch {
	case flagLanguage != "":
		if err := orch.SelectLanguage(catalog.LanguageID(flagLanguage)); err != nil {
			return err
		}
	default:
		if detected, ok := detectLanguage(path); ok {
			if err := orch.SelectLanguage(detected); err != nil {
				return err
			}
		} else if _, saved := state.Get(catalog.KeyLanguageID); !saved && projectCfg != nil {
			if err := orch.SelectLanguage(catalog.LanguageID(projectCfg.Language)); err != nil {
				return err
			}
		}
	}
	return nil
}
