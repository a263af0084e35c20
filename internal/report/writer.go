// Package report renders finished sessions to markdown transcripts,
// one file per session, and prettifies them for terminal display.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/google/renameio/v2"

	"github.com/roundtable-ai/roundtable/internal/core"
)

// Writer persists one markdown report per session under dir.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir. The directory is created on
// the first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the reports directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write renders the session and writes <dir>/<session-id>.md atomically,
// returning the written path.
func (w *Writer) Write(sess *core.Session, result *core.SessionResult) (string, error) {
	if sess == nil {
		return "", errors.New("nil session")
	}
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("creating reports directory: %w", err)
	}

	path := filepath.Join(w.dir, sess.ID+".md")
	if err := renameio.WriteFile(path, []byte(Markdown(sess, result)), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// Render prettifies a markdown document for terminal display.
func Render(markdown string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("building renderer: %w", err)
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
