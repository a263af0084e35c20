package core

import (
	"sort"
	"strings"
)

// PersonaID uniquely identifies a persona in the registry catalog.
type PersonaID string

// PersonaProfile describes one fixed agent personality. Profiles are
// immutable once loaded from the catalog; every other entity references
// them by ID only.
type PersonaProfile struct {
	ID                   PersonaID `json:"id" yaml:"id"`
	DisplayName          string    `json:"display_name" yaml:"display_name"`
	SystemPromptFragment string    `json:"system_prompt_fragment" yaml:"system_prompt_fragment"`
	Tags                 []string  `json:"tags" yaml:"tags"`

	// Index is the registration index (position in the catalog). It is the
	// canonical ordering key for transcripts and vote tie-breaks.
	Index int `json:"index" yaml:"-"`
}

// String returns the persona ID.
func (p PersonaID) String() string {
	return string(p)
}

// HasTag reports whether the profile carries the given tag
// (case-insensitive).
func (p *PersonaProfile) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// SortPersonas orders profiles by registration index in place.
func SortPersonas(personas []PersonaProfile) {
	sort.SliceStable(personas, func(i, j int) bool {
		return personas[i].Index < personas[j].Index
	})
}

// PersonaIDs extracts the IDs of the given profiles, preserving order.
func PersonaIDs(personas []PersonaProfile) []PersonaID {
	ids := make([]PersonaID, len(personas))
	for i, p := range personas {
		ids[i] = p.ID
	}
	return ids
}
