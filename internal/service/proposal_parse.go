package service

import (
	"regexp"
	"strings"
)

// parsedProposal holds the four sections extracted from a proposal
// response. Slices are never nil.
type parsedProposal struct {
	Title       string
	Description string
	Benefits    []string
	Steps       []string
}

// sectionPattern matches the section markers personas are asked to
// emit, tolerating markdown headings and bold variants.
var sectionPattern = regexp.MustCompile(`(?im)^\s{0,3}(?:#{1,6}\s*|\*{1,2}\s*)?(title|description|benefits|steps)\b\s*:?\s*(?:\*{1,2})?[ \t]*`)

var itemNumberPattern = regexp.MustCompile(`^\d+[.)]\s*`)

// parseProposal scans free text for the expected sections. Sections
// that are missing stay empty; a partially parsed proposal is still
// valid. Text with no markers at all degrades to first-line-as-title.
func parseProposal(text string) parsedProposal {
	out := parsedProposal{Benefits: []string{}, Steps: []string{}}

	matches := sectionPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		out.Title, out.Description = splitLead(text)
		return out
	}

	for i, m := range matches {
		name := strings.ToLower(text[m[2]:m[3]])
		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := strings.TrimSpace(text[start:end])

		switch name {
		case "title":
			if out.Title == "" {
				out.Title = firstLine(content)
			}
		case "description":
			if out.Description == "" {
				out.Description = content
			}
		case "benefits":
			if len(out.Benefits) == 0 {
				out.Benefits = splitItems(content)
			}
		case "steps":
			if len(out.Steps) == 0 {
				out.Steps = splitItems(content)
			}
		}
	}

	return out
}

// splitLead treats the first non-empty line as a title and the rest as
// description.
func splitLead(text string) (title, description string) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		title = truncateLine(line, 120)
		description = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		return title, description
	}
	return "", ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return truncateLine(strings.TrimSpace(s), 120)
}

func truncateLine(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max])
}

// splitItems turns a bulleted or numbered block into list items. Lines
// without a bullet or number still count as one item each.
func splitItems(block string) []string {
	items := []string{}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•")
		line = itemNumberPattern.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}
