package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/service"
)

// createSessionRequest is the body of POST /api/v1/sessions. Personas
// wins over Team; with neither set the team is suggested from the
// topic.
type createSessionRequest struct {
	Topic      string   `json:"topic"`
	UserID     string   `json:"user_id,omitempty"`
	MaxRounds  int      `json:"max_rounds,omitempty"`
	VotingRule string   `json:"voting_rule,omitempty"`
	Team       string   `json:"team,omitempty"`
	Personas   []string `json:"personas,omitempty"`
}

// sessionResponse pairs a session with its result. Result is nil while
// the session is still deliberating and for failed sessions.
type sessionResponse struct {
	Session *core.Session       `json:"session"`
	Result  *core.SessionResult `json:"result,omitempty"`
}

// handleCreateSession launches a deliberation in the background and
// returns the created session snapshot.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}

	trigger, err := s.buildTrigger(req)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	sess, err := s.launcher.Launch(trigger)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.logger.Info("session launched",
		"session_id", sess.ID,
		"personas", len(sess.Personas),
		"rule", sess.VotingRule.String(),
	)
	s.respondJSON(w, http.StatusAccepted, sessionResponse{Session: sess})
}

// buildTrigger resolves the request into a launch trigger, applying
// the configured session defaults.
func (s *Server) buildTrigger(req createSessionRequest) (service.Trigger, error) {
	rule := req.VotingRule
	if rule == "" {
		rule = s.defaults.VotingRule
	}
	if rule == "" {
		rule = core.RuleMajority.String()
	}
	parsed, err := core.ParseVotingRule(rule)
	if err != nil {
		return service.Trigger{}, core.ErrValidation("INVALID_VOTING_RULE", err.Error())
	}

	rounds := req.MaxRounds
	if rounds == 0 {
		rounds = s.defaults.MaxRounds
	}
	if rounds == 0 {
		rounds = 3
	}

	var team []core.PersonaProfile
	switch {
	case len(req.Personas) > 0:
		ids := make([]core.PersonaID, len(req.Personas))
		for i, id := range req.Personas {
			ids[i] = core.PersonaID(id)
		}
		team, err = s.registry.Get(ids)
	case req.Team != "":
		team, err = s.registry.Preset(req.Team)
	default:
		team = s.registry.SuggestTeam(req.Topic)
	}
	if err != nil {
		return service.Trigger{}, err
	}

	return service.Trigger{
		Topic:     req.Topic,
		UserID:    req.UserID,
		MaxRounds: rounds,
		Rule:      parsed,
		Personas:  team,
	}, nil
}

// handleListSessions returns stored session summaries, newest first.
// Filters: ?topic= (substring), ?user=, ?status=, ?limit=.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter := core.SessionFilter{
		Topic:  r.URL.Query().Get("topic"),
		UserID: r.URL.Query().Get("user"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := core.ParseStatus(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		filter.Status = status.String()
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw), "")
			return
		}
		filter.Limit = limit
	}

	summaries, err := s.store.ListSessions(r.Context(), filter)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": summaries,
		"count":    len(summaries),
	})
}

// handleActiveSessions returns the ids of sessions still running.
func (s *Server) handleActiveSessions(w http.ResponseWriter, _ *http.Request) {
	ids := s.launcher.Active()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"active": ids,
		"count":  len(ids),
	})
}

// handleGetSession returns one session, preferring the live snapshot
// over the stored copy.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	if sess, ok := s.launcher.Get(id); ok {
		resp := sessionResponse{Session: sess}
		if res, ok := s.launcher.Result(id); ok {
			resp.Result = res
		}
		s.respondJSON(w, http.StatusOK, resp)
		return
	}

	sess, result, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse{Session: sess, Result: result})
}

// handleGetResult returns just the result of a finished session. A
// session that failed, or is still deliberating, has none.
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	if result, ok := s.launcher.Result(id); ok {
		s.respondJSON(w, http.StatusOK, result)
		return
	}

	_, result, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	if result == nil {
		s.respondError(w, http.StatusNotFound,
			fmt.Sprintf("session %q has no result", id), core.CodeNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}
