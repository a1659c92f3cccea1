// Package prompt renders the code-review prompt sent to language models.
// Templates are embedded in the binary.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"embed"

	"github.com/codecritic/codecritic/internal/catalog"
)

//go:embed prompts/*.prompt
var promptFiles embed.FS

// ReviewData is the data rendered into the code-review template.
type ReviewData struct {
	Language string
	Code     string
}

// Manager holds the parsed prompt templates.
type Manager struct {
	review *template.Template
}

// NewManager parses the embedded templates.
func NewManager() (*Manager, error) {
	content, err := promptFiles.ReadFile("prompts/code_review.prompt")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompt file: %w", err)
	}

	tmpl, err := template.New("code_review").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("could not parse code review template: %w", err)
	}

	return &Manager{review: tmpl}, nil
}

// CodeReview renders the review prompt for the given source code and
// language identifier.
func (m *Manager) CodeReview(code string, language catalog.LanguageID) (string, error) {
	var buf bytes.Buffer
	data := ReviewData{Language: string(language), Code: code}
	if err := m.review.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render code review prompt: %w", err)
	}
	return buf.String(), nil
}
