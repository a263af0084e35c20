// Package state persists finished deliberation sessions to SQLite.
//
// The store is a write-behind sink: the engine enqueues saves through
// service.Saver and never blocks a phase on a write. Deliberation
// payloads (personas, rounds, proposals, votes) are stored as JSON
// columns; everything the list view and the analytics queries touch is
// promoted to scalar columns.
package state

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/roundtable-ai/roundtable/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const defaultListLimit = 50

// SQLiteStore implements core.SessionStore on a single SQLite file
// opened in WAL mode.
type SQLiteStore struct {
	db *sql.DB
}

var _ core.SessionStore = (*SQLiteStore)(nil)

// Open creates the parent directory if needed, opens the database and
// applies pending migrations.
func Open(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// migrate applies embedded migrations newer than the recorded schema
// version, each in its own transaction.
func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		version, err := migrationVersion(name)
		if err != nil {
			return err
		}
		if version <= current {
			continue
		}
		body, err := migrationsFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(body)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *SQLiteStore) applyMigration(version int, body string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(body); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}
	return tx.Commit()
}

// migrationVersion parses the numeric prefix of "001_name.sql".
func migrationVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration %s: missing version prefix", name)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("migration %s: %w", name, err)
	}
	return version, nil
}

// SaveSession upserts the session row and, when result is non-nil, its
// result row, in one transaction.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *core.Session, result *core.SessionResult) error {
	if session == nil {
		return core.ErrStorage("save", errors.New("nil session"))
	}

	personasJSON, err := json.Marshal(session.Personas)
	if err != nil {
		return core.ErrStorage("save", fmt.Errorf("marshaling personas: %w", err))
	}
	roundsJSON, err := json.Marshal(session.Rounds)
	if err != nil {
		return core.ErrStorage("save", fmt.Errorf("marshaling rounds: %w", err))
	}
	proposalsJSON, err := json.Marshal(session.Proposals)
	if err != nil {
		return core.ErrStorage("save", fmt.Errorf("marshaling proposals: %w", err))
	}
	votesJSON, err := json.Marshal(session.Votes)
	if err != nil {
		return core.ErrStorage("save", fmt.Errorf("marshaling votes: %w", err))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ErrStorage("save", fmt.Errorf("beginning transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (
			id, topic, user_id, status, voting_rule, max_rounds, rounds_used,
			failure_code, personas, rounds, proposals, votes,
			started_at, ended_at, saved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			topic = excluded.topic,
			user_id = excluded.user_id,
			status = excluded.status,
			voting_rule = excluded.voting_rule,
			max_rounds = excluded.max_rounds,
			rounds_used = excluded.rounds_used,
			failure_code = excluded.failure_code,
			personas = excluded.personas,
			rounds = excluded.rounds,
			proposals = excluded.proposals,
			votes = excluded.votes,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			saved_at = excluded.saved_at
	`,
		session.ID, session.Topic, nullableString(session.UserID),
		string(session.Status), string(session.VotingRule), session.MaxRounds,
		len(session.Rounds), nullableString(session.FailureCode),
		string(personasJSON), string(roundsJSON), string(proposalsJSON), string(votesJSON),
		nullableTime(session.StartedAt), nullableTime(session.EndedAt), time.Now().UTC(),
	)
	if err != nil {
		return core.ErrStorage("save", fmt.Errorf("upserting session: %w", err))
	}

	if result != nil {
		if err := upsertResult(ctx, tx, session.ID, result); err != nil {
			return core.ErrStorage("save", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.ErrStorage("save", fmt.Errorf("committing: %w", err))
	}
	return nil
}

func upsertResult(ctx context.Context, tx *sql.Tx, sessionID string, result *core.SessionResult) error {
	distributionJSON, err := json.Marshal(result.Distribution)
	if err != nil {
		return fmt.Errorf("marshaling distribution: %w", err)
	}
	participantsJSON, err := json.Marshal(result.Participants)
	if err != nil {
		return fmt.Errorf("marshaling participants: %w", err)
	}
	qualityJSON, err := json.Marshal(result.Quality)
	if err != nil {
		return fmt.Errorf("marshaling quality: %w", err)
	}

	unanimous := 0
	if result.Distribution.Unanimous {
		unanimous = 1
	}
	earlyStopped := 0
	if result.EarlyStopped {
		earlyStopped = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_results (
			session_id, winner_proposal_id, winner_persona_id, consensus_score,
			voting_rule, unanimous, rounds_used, early_stopped,
			input_tokens, output_tokens, distribution, participants, quality,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			winner_proposal_id = excluded.winner_proposal_id,
			winner_persona_id = excluded.winner_persona_id,
			consensus_score = excluded.consensus_score,
			voting_rule = excluded.voting_rule,
			unanimous = excluded.unanimous,
			rounds_used = excluded.rounds_used,
			early_stopped = excluded.early_stopped,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			distribution = excluded.distribution,
			participants = excluded.participants,
			quality = excluded.quality,
			created_at = excluded.created_at
	`,
		sessionID, result.WinnerProposalID, string(result.WinnerPersonaID),
		result.ConsensusScore, string(result.VotingRule), unanimous,
		result.RoundsUsed, earlyStopped,
		result.Usage.InputTokens, result.Usage.OutputTokens,
		string(distributionJSON), string(participantsJSON), string(qualityJSON),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting result: %w", err)
	}
	return nil
}

// GetSession loads a session and its result. The result is nil for
// sessions that never completed.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*core.Session, *core.SessionResult, error) {
	var (
		sess          core.Session
		status, rule  string
		userID        sql.NullString
		failureCode   sql.NullString
		personasJSON  string
		roundsJSON    string
		proposalsJSON string
		votesJSON     string
		startedAt     sql.NullTime
		endedAt       sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, topic, user_id, status, voting_rule, max_rounds,
		       failure_code, personas, rounds, proposals, votes,
		       started_at, ended_at
		FROM sessions WHERE id = ?
	`, id).Scan(
		&sess.ID, &sess.Topic, &userID, &status, &rule, &sess.MaxRounds,
		&failureCode, &personasJSON, &roundsJSON, &proposalsJSON, &votesJSON,
		&startedAt, &endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, core.ErrNotFound("session", id)
	}
	if err != nil {
		return nil, nil, core.ErrStorage("get", fmt.Errorf("scanning session: %w", err))
	}

	sess.UserID = userID.String
	sess.Status = core.Status(status)
	sess.VotingRule = core.VotingRule(rule)
	sess.FailureCode = failureCode.String
	if startedAt.Valid {
		t := startedAt.Time
		sess.StartedAt = &t
	}
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}

	if err := json.Unmarshal([]byte(personasJSON), &sess.Personas); err != nil {
		return nil, nil, core.ErrStorage("get", fmt.Errorf("decoding personas: %w", err))
	}
	if err := json.Unmarshal([]byte(roundsJSON), &sess.Rounds); err != nil {
		return nil, nil, core.ErrStorage("get", fmt.Errorf("decoding rounds: %w", err))
	}
	if err := json.Unmarshal([]byte(proposalsJSON), &sess.Proposals); err != nil {
		return nil, nil, core.ErrStorage("get", fmt.Errorf("decoding proposals: %w", err))
	}
	if err := json.Unmarshal([]byte(votesJSON), &sess.Votes); err != nil {
		return nil, nil, core.ErrStorage("get", fmt.Errorf("decoding votes: %w", err))
	}

	result, err := s.getResult(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &sess, result, nil
}

func (s *SQLiteStore) getResult(ctx context.Context, sessionID string) (*core.SessionResult, error) {
	var (
		result           core.SessionResult
		winnerPersona    string
		rule             string
		distributionJSON string
		participantsJSON string
		qualityJSON      string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT winner_proposal_id, winner_persona_id, consensus_score,
		       voting_rule, rounds_used, early_stopped,
		       input_tokens, output_tokens, distribution, participants, quality
		FROM session_results WHERE session_id = ?
	`, sessionID).Scan(
		&result.WinnerProposalID, &winnerPersona, &result.ConsensusScore,
		&rule, &result.RoundsUsed, &result.EarlyStopped,
		&result.Usage.InputTokens, &result.Usage.OutputTokens,
		&distributionJSON, &participantsJSON, &qualityJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.ErrStorage("get", fmt.Errorf("scanning result: %w", err))
	}

	result.SessionID = sessionID
	result.WinnerPersonaID = core.PersonaID(winnerPersona)
	result.VotingRule = core.VotingRule(rule)
	if err := json.Unmarshal([]byte(distributionJSON), &result.Distribution); err != nil {
		return nil, core.ErrStorage("get", fmt.Errorf("decoding distribution: %w", err))
	}
	if err := json.Unmarshal([]byte(participantsJSON), &result.Participants); err != nil {
		return nil, core.ErrStorage("get", fmt.Errorf("decoding participants: %w", err))
	}
	if err := json.Unmarshal([]byte(qualityJSON), &result.Quality); err != nil {
		return nil, core.ErrStorage("get", fmt.Errorf("decoding quality: %w", err))
	}
	return &result, nil
}

// ListSessions returns summaries newest first. Zero filter fields match
// everything; a zero limit falls back to the default.
func (s *SQLiteStore) ListSessions(ctx context.Context, filter core.SessionFilter) ([]core.SessionSummary, error) {
	query := `
		SELECT s.id, s.topic, s.user_id, s.status, s.voting_rule, s.rounds_used,
		       COALESCE(r.winner_proposal_id, ''), COALESCE(r.consensus_score, 0),
		       s.started_at, s.ended_at
		FROM sessions s
		LEFT JOIN session_results r ON r.session_id = s.id`

	var (
		where []string
		args  []interface{}
	)
	if filter.Topic != "" {
		where = append(where, "s.topic LIKE ?")
		args = append(args, "%"+filter.Topic+"%")
	}
	if filter.UserID != "" {
		where = append(where, "s.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "s.status = ?")
		args = append(args, filter.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY s.started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.ErrStorage("list", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []core.SessionSummary
	for rows.Next() {
		var (
			sum          core.SessionSummary
			userID       sql.NullString
			status, rule string
			startedAt    sql.NullTime
			endedAt      sql.NullTime
		)
		err := rows.Scan(
			&sum.ID, &sum.Topic, &userID, &status, &rule, &sum.RoundsUsed,
			&sum.WinnerProposalID, &sum.ConsensusScore, &startedAt, &endedAt,
		)
		if err != nil {
			return nil, core.ErrStorage("list", fmt.Errorf("scanning row: %w", err))
		}
		sum.UserID = userID.String
		sum.Status = core.Status(status)
		sum.VotingRule = core.VotingRule(rule)
		if startedAt.Valid {
			t := startedAt.Time
			sum.StartedAt = &t
		}
		if endedAt.Valid {
			t := endedAt.Time
			sum.EndedAt = &t
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrStorage("list", err)
	}
	return summaries, nil
}

// WinRateByPersona counts, for every persona that sat in a completed
// session, how many of those sessions it won.
func (s *SQLiteStore) WinRateByPersona(ctx context.Context) ([]core.PersonaWinRate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT json_extract(p.value, '$.id') AS persona_id,
		       COUNT(*) AS sessions,
		       SUM(CASE WHEN r.winner_persona_id = json_extract(p.value, '$.id') THEN 1 ELSE 0 END) AS wins
		FROM sessions s
		JOIN json_each(s.personas) p
		JOIN session_results r ON r.session_id = s.id
		WHERE s.status = ?
		GROUP BY persona_id
		ORDER BY persona_id
	`, string(core.StatusCompleted))
	if err != nil {
		return nil, core.ErrStorage("analytics", err)
	}
	defer func() { _ = rows.Close() }()

	var rates []core.PersonaWinRate
	for rows.Next() {
		var (
			personaID      string
			sessions, wins int
		)
		if err := rows.Scan(&personaID, &sessions, &wins); err != nil {
			return nil, core.ErrStorage("analytics", fmt.Errorf("scanning row: %w", err))
		}
		rate := core.PersonaWinRate{
			PersonaID: core.PersonaID(personaID),
			Sessions:  sessions,
			Wins:      wins,
		}
		if sessions > 0 {
			rate.WinRate = float64(wins) / float64(sessions)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrStorage("analytics", err)
	}
	return rates, nil
}

// EffectivenessByVotingRule aggregates result metrics per voting rule
// over completed sessions.
func (s *SQLiteStore) EffectivenessByVotingRule(ctx context.Context) ([]core.RuleEffectiveness, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.voting_rule,
		       COUNT(*) AS sessions,
		       AVG(r.consensus_score),
		       AVG(r.rounds_used),
		       AVG(CASE WHEN r.unanimous = 1 THEN 1.0 ELSE 0.0 END)
		FROM sessions s
		JOIN session_results r ON r.session_id = s.id
		WHERE s.status = ?
		GROUP BY s.voting_rule
		ORDER BY s.voting_rule
	`, string(core.StatusCompleted))
	if err != nil {
		return nil, core.ErrStorage("analytics", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.RuleEffectiveness
	for rows.Next() {
		var (
			rule core.RuleEffectiveness
			name string
		)
		err := rows.Scan(&name, &rule.Sessions, &rule.AvgConsensus, &rule.AvgRounds, &rule.UnanimousShare)
		if err != nil {
			return nil, core.ErrStorage("analytics", fmt.Errorf("scanning row: %w", err))
		}
		rule.Rule = core.VotingRule(name)
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrStorage("analytics", err)
	}
	return out, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
