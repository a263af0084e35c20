package api

import (
	"net/http"
)

// handlePersonaWinRates returns per-persona win rates over all
// completed sessions in the store.
func (s *Server) handlePersonaWinRates(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.WinRateByPersona(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"personas": rows,
		"count":    len(rows),
	})
}

// handleRuleEffectiveness returns aggregate outcome metrics grouped by
// voting rule.
func (s *Server) handleRuleEffectiveness(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.EffectivenessByVotingRule(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"rules": rows,
		"count": len(rows),
	})
}
