package service

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"

	"github.com/roundtable-ai/roundtable/internal/core"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// PromptRenderer renders persona prompts from embedded templates.
type PromptRenderer struct {
	templates map[string]*template.Template
	mu        sync.RWMutex
}

// NewPromptRenderer creates a new prompt renderer.
func NewPromptRenderer() (*PromptRenderer, error) {
	r := &PromptRenderer{
		templates: make(map[string]*template.Template),
	}

	if err := r.loadTemplates(); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	return r, nil
}

// loadTemplates loads all templates from the embedded filesystem.
// Frontmatter metadata is stripped before parsing so it never leaks
// into rendered prompts.
func (r *PromptRenderer) loadTemplates() error {
	return fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}

		content, err := promptsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		name := promptIDFromPath(path)
		_, body, ok := splitFrontmatter(string(content))
		if !ok {
			return fmt.Errorf("template %s: missing frontmatter", name)
		}

		tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(body)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}

		r.templates[name] = tmpl
		return nil
	})
}

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join":      strings.Join,
		"indent":    indent,
		"trimSpace": strings.TrimSpace,
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"add":       func(a, b int) int { return a + b },
		"sub":       func(a, b int) int { return a - b },
	}
}

func indent(spaces int, s string) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

// SystemPrompt composes the system prompt for one persona: the
// persona's role fragment plus the shared deliberation framing.
func SystemPrompt(p core.PersonaProfile) string {
	var b strings.Builder
	b.WriteString(p.SystemPromptFragment)
	b.WriteString("\n\n")
	b.WriteString("You are one voice at a roundtable of several personas deliberating a decision. ")
	b.WriteString("Stay in character, address the topic directly, and never speak for the other participants.")
	return b.String()
}

// DiscussionParams contains parameters for the discussion-round template.
type DiscussionParams struct {
	Topic      string
	Round      int // 1-based, for display
	MaxRounds  int
	Transcript string
}

// RenderDiscussion renders the per-round discussion prompt.
func (r *PromptRenderer) RenderDiscussion(params DiscussionParams) (string, error) {
	return r.render("discussion", params)
}

// ProposalParams contains parameters for the proposal template.
type ProposalParams struct {
	Topic      string
	Transcript string
}

// RenderProposal renders the structured-proposal prompt.
func (r *PromptRenderer) RenderProposal(params ProposalParams) (string, error) {
	return r.render("proposal", params)
}

// BallotProposal is one proposal as presented on a ballot.
type BallotProposal struct {
	ID          string
	Title       string
	Description string
}

// BallotParams contains parameters for the ballot template.
type BallotParams struct {
	Topic     string
	Rule      core.VotingRule
	Proposals []BallotProposal
}

// RenderBallot renders the voting prompt for the session's rule.
func (r *PromptRenderer) RenderBallot(params BallotParams) (string, error) {
	return r.render("ballot", params)
}

func (r *PromptRenderer) render(name string, data interface{}) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}

	return buf.String(), nil
}

// ListTemplates returns available template names.
func (r *PromptRenderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}
