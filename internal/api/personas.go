package api

import (
	"net/http"

	"github.com/roundtable-ai/roundtable/internal/core"
)

// presetSummary lists one preset team and its members.
type presetSummary struct {
	Name     string           `json:"name"`
	Personas []core.PersonaID `json:"personas"`
}

// handleListPersonas returns the full persona catalog.
func (s *Server) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	profiles := s.registry.All()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"personas": profiles,
		"count":    len(profiles),
	})
}

// handleListPresets returns the named preset teams.
func (s *Server) handleListPresets(w http.ResponseWriter, _ *http.Request) {
	names := s.registry.PresetNames()
	presets := make([]presetSummary, 0, len(names))
	for _, name := range names {
		members, err := s.registry.Preset(name)
		if err != nil {
			s.respondDomainError(w, err)
			return
		}
		ids := make([]core.PersonaID, len(members))
		for i, p := range members {
			ids[i] = p.ID
		}
		presets = append(presets, presetSummary{Name: name, Personas: ids})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"presets": presets})
}

// handleSuggestTeam proposes a team for ?topic= without launching
// anything.
func (s *Server) handleSuggestTeam(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		s.respondError(w, http.StatusBadRequest, "topic query parameter is required", "")
		return
	}

	team := s.registry.SuggestTeam(topic)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"topic":    topic,
		"personas": team,
	})
}
