package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PromptMeta describes one embedded prompt template.
type PromptMeta struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Phase  string `json:"phase"`
	Status string `json:"status"`
	Sha256 string `json:"sha256"`
}

// Prompt is a prompt template with its metadata and raw body.
type Prompt struct {
	PromptMeta
	Content string `json:"content"`
}

type promptFrontmatter struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Phase  string `yaml:"phase"`
	Status string `yaml:"status"`
}

func splitFrontmatter(raw string) (frontmatter, body string, ok bool) {
	// Normalize Windows line endings for consistent parsing/hashing.
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	if !strings.HasPrefix(s, "---\n") {
		return "", s, false
	}

	rest := s[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end == -1 {
		// No closing delimiter: treat as no frontmatter.
		return "", s, false
	}

	frontmatter = rest[:end]
	body = rest[end+len("\n---\n"):]
	body = strings.TrimLeft(body, "\n")
	return frontmatter, body, true
}

func hashSha256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func validatePromptMeta(meta promptFrontmatter, idFromFilename string) error {
	if strings.TrimSpace(meta.ID) == "" {
		return fmt.Errorf("frontmatter: id is required")
	}
	if meta.ID != idFromFilename {
		return fmt.Errorf("frontmatter: id %q does not match filename %q", meta.ID, idFromFilename)
	}
	if strings.TrimSpace(meta.Title) == "" {
		return fmt.Errorf("frontmatter: title is required (id=%s)", meta.ID)
	}
	switch meta.Phase {
	case "message", "proposal", "voting":
	default:
		return fmt.Errorf("frontmatter: invalid phase %q (id=%s)", meta.Phase, meta.ID)
	}
	switch meta.Status {
	case "active", "reserved", "deprecated":
	default:
		return fmt.Errorf("frontmatter: invalid status %q (id=%s)", meta.Status, meta.ID)
	}
	return nil
}

func promptIDFromPath(path string) string {
	name := strings.TrimPrefix(path, "prompts/")
	name = strings.TrimSuffix(name, ".md.tmpl")
	return name
}

// ListPrompts returns metadata for all embedded prompt templates,
// ordered message, proposal, voting.
func ListPrompts() ([]PromptMeta, error) {
	var metas []PromptMeta

	err := fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
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

		id := promptIDFromPath(path)
		fmRaw, body, ok := splitFrontmatter(string(content))
		if !ok {
			return fmt.Errorf("missing frontmatter (id=%s)", id)
		}

		var fm promptFrontmatter
		if err := yaml.Unmarshal([]byte(fmRaw), &fm); err != nil {
			return fmt.Errorf("parsing frontmatter (id=%s): %w", id, err)
		}
		if err := validatePromptMeta(fm, id); err != nil {
			return fmt.Errorf("invalid frontmatter (id=%s): %w", id, err)
		}

		metas = append(metas, PromptMeta{
			ID:     fm.ID,
			Title:  fm.Title,
			Phase:  fm.Phase,
			Status: fm.Status,
			Sha256: hashSha256(body),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	phaseOrder := map[string]int{
		"message":  0,
		"proposal": 1,
		"voting":   2,
	}

	sort.Slice(metas, func(i, j int) bool {
		pi := phaseOrder[metas[i].Phase]
		pj := phaseOrder[metas[j].Phase]
		if pi != pj {
			return pi < pj
		}
		return metas[i].ID < metas[j].ID
	})

	return metas, nil
}

// GetPrompt returns a single embedded prompt template with metadata
// and body.
func GetPrompt(id string) (*Prompt, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}

	path := "prompts/" + id + ".md.tmpl"
	content, err := promptsFS.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fmRaw, body, ok := splitFrontmatter(string(content))
	if !ok {
		return nil, fmt.Errorf("missing frontmatter (id=%s)", id)
	}

	var fm promptFrontmatter
	if err := yaml.Unmarshal([]byte(fmRaw), &fm); err != nil {
		return nil, fmt.Errorf("parsing frontmatter (id=%s): %w", id, err)
	}
	if err := validatePromptMeta(fm, id); err != nil {
		return nil, fmt.Errorf("invalid frontmatter (id=%s): %w", id, err)
	}

	return &Prompt{
		PromptMeta: PromptMeta{
			ID:     fm.ID,
			Title:  fm.Title,
			Phase:  fm.Phase,
			Status: fm.Status,
			Sha256: hashSha256(body),
		},
		Content: body,
	}, nil
}
