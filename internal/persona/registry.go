package persona

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/roundtable-ai/roundtable/internal/core"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Preset names understood by Preset. Matching is case-insensitive.
const (
	PresetDefault = "DEFAULT"
	PresetFull    = "FULL"
	PresetCompact = "COMPACT"
)

// Team suggestion bounds.
const (
	suggestMin = 2
	suggestMax = 4
)

type catalogFile struct {
	Personas []catalogEntry      `yaml:"personas"`
	Presets  map[string][]string `yaml:"presets"`
}

type catalogEntry struct {
	ID           string   `yaml:"id"`
	DisplayName  string   `yaml:"display_name"`
	Tags         []string `yaml:"tags"`
	SystemPrompt string   `yaml:"system_prompt"`
}

// Registry resolves persona ids against the embedded catalog.
// Immutable after construction and safe for concurrent use.
type Registry struct {
	profiles []core.PersonaProfile
	byID     map[core.PersonaID]int
	presets  map[string][]core.PersonaID

	// Flattened tag index for team suggestion: tags[i] belongs to
	// profiles[tagOwner[i]].
	tags     []string
	tagOwner []int
}

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// NewRegistry loads and validates the embedded persona catalog.
func NewRegistry() (*Registry, error) {
	return newRegistry(catalogYAML)
}

func newRegistry(raw []byte) (*Registry, error) {
	var cat catalogFile
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("parsing persona catalog: %w", err)
	}
	if len(cat.Personas) == 0 {
		return nil, fmt.Errorf("persona catalog: no personas defined")
	}

	r := &Registry{
		byID:    make(map[core.PersonaID]int, len(cat.Personas)),
		presets: make(map[string][]core.PersonaID, len(cat.Presets)),
	}
	for i, e := range cat.Personas {
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("persona catalog: %w", err)
		}
		id := core.PersonaID(e.ID)
		if _, dup := r.byID[id]; dup {
			return nil, fmt.Errorf("persona catalog: duplicate id %q", e.ID)
		}
		r.byID[id] = i
		r.profiles = append(r.profiles, core.PersonaProfile{
			ID:                   id,
			DisplayName:          e.DisplayName,
			SystemPromptFragment: strings.TrimSpace(e.SystemPrompt),
			Tags:                 append([]string(nil), e.Tags...),
			Index:                i,
		})
		for _, tag := range e.Tags {
			r.tags = append(r.tags, strings.ToLower(tag))
			r.tagOwner = append(r.tagOwner, i)
		}
	}

	for name, ids := range cat.Presets {
		if len(ids) == 0 {
			return nil, fmt.Errorf("persona catalog: preset %q is empty", name)
		}
		members := make([]core.PersonaID, 0, len(ids))
		for _, id := range ids {
			if _, ok := r.byID[core.PersonaID(id)]; !ok {
				return nil, fmt.Errorf("persona catalog: preset %q references unknown persona %q", name, id)
			}
			members = append(members, core.PersonaID(id))
		}
		r.presets[strings.ToUpper(name)] = members
	}
	if _, ok := r.presets[PresetDefault]; !ok {
		return nil, fmt.Errorf("persona catalog: preset %q is required", PresetDefault)
	}

	return r, nil
}

func validateEntry(e catalogEntry) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if !idPattern.MatchString(e.ID) {
		return fmt.Errorf("id %q must be lowercase letters, digits, and hyphens", e.ID)
	}
	if strings.TrimSpace(e.DisplayName) == "" {
		return fmt.Errorf("display_name is required (id=%s)", e.ID)
	}
	if strings.TrimSpace(e.SystemPrompt) == "" {
		return fmt.Errorf("system_prompt is required (id=%s)", e.ID)
	}
	if len(e.Tags) == 0 {
		return fmt.Errorf("tags must not be empty (id=%s)", e.ID)
	}
	return nil
}

// All returns every persona in registration order.
func (r *Registry) All() []core.PersonaProfile {
	return append([]core.PersonaProfile(nil), r.profiles...)
}

// Lookup returns the profile for a single id.
func (r *Registry) Lookup(id core.PersonaID) (core.PersonaProfile, bool) {
	i, ok := r.byID[id]
	if !ok {
		return core.PersonaProfile{}, false
	}
	return r.profiles[i], true
}

// Get resolves ids in request order. The whole call fails on the first
// unknown id; no partial result is returned.
func (r *Registry) Get(ids []core.PersonaID) ([]core.PersonaProfile, error) {
	out := make([]core.PersonaProfile, 0, len(ids))
	for _, id := range ids {
		i, ok := r.byID[id]
		if !ok {
			return nil, core.ErrUnknownPersona(string(id))
		}
		out = append(out, r.profiles[i])
	}
	return out, nil
}

// Preset returns the named preset team. Name matching is
// case-insensitive.
func (r *Registry) Preset(name string) ([]core.PersonaProfile, error) {
	ids, ok := r.presets[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return nil, core.ErrValidation("UNKNOWN_PRESET",
			fmt.Sprintf("unknown team preset %q (valid: %s)", name, strings.Join(r.PresetNames(), ", ")))
	}
	return r.Get(ids)
}

// PresetNames returns the available preset names, sorted.
func (r *Registry) PresetNames() []string {
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SuggestTeam proposes a team whose tags resemble words in the topic,
// ordered by relevance. The result is never empty: when nothing
// matches it falls back to the DEFAULT preset, and a single match is
// topped up from the default team.
func (r *Registry) SuggestTeam(topic string) []core.PersonaProfile {
	words := topicWords(topic)

	counts := make([]int, len(r.profiles))
	for ti, tag := range r.tags {
		counts[r.tagOwner[ti]] += len(fuzzy.Find(tag, words))
	}

	var hits []int
	for i, c := range counts {
		if c > 0 {
			hits = append(hits, i)
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if counts[hits[a]] != counts[hits[b]] {
			return counts[hits[a]] > counts[hits[b]]
		}
		return hits[a] < hits[b]
	})
	if len(hits) > suggestMax {
		hits = hits[:suggestMax]
	}

	team := make([]core.PersonaProfile, 0, suggestMax)
	for _, i := range hits {
		team = append(team, r.profiles[i])
	}

	if len(team) < suggestMin {
		def, _ := r.Preset(PresetDefault)
		for _, p := range def {
			if len(team) >= suggestMin {
				break
			}
			if !containsPersona(team, p.ID) {
				team = append(team, p)
			}
		}
	}
	return team
}

func containsPersona(list []core.PersonaProfile, id core.PersonaID) bool {
	for _, p := range list {
		if p.ID == id {
			return true
		}
	}
	return false
}

// topicWords lowercases the topic and splits it into deduplicated
// words of three or more characters.
func topicWords(topic string) []string {
	fields := strings.FieldsFunc(strings.ToLower(topic), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	var words []string
	for _, f := range fields {
		if len(f) < 3 || seen[f] {
			continue
		}
		seen[f] = true
		words = append(words, f)
	}
	return words
}
