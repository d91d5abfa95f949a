// internal/httpserver/server.go
//
// HTTP server wiring for the Champion Quiz backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Quiz endpoints (optional auth): /quiz/new, /quiz/guess, /quiz/giveup,
//     /quiz/state, /quiz/board, /quiz/hint.
//   - Champion of the Day endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints (require auth): /auth/*, /stats/me, /quiz/mine.
//   - JWT + cookie handling, anonymous session cookie, user CRUD helpers.
//   - Database persistence for finished quiz runs and user stats.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token is
//     present; routes can still run for guests.
//   - Guess/give-up on a finished session are silent no-ops echoing state:
//     stray late events from a typing client are expected, never errors.
//   - Hint requests are gated to one in flight per session, and the oracle
//     result is discarded if the session moved on while the call was out.

package httpserver

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/champquiz/go-server/internal/catalog"
	"github.com/champquiz/go-server/internal/hint"
	"github.com/champquiz/go-server/internal/quiz"
	"github.com/champquiz/go-server/internal/store"
)

// Server bundles router, in-memory session store, DB handle, and hint oracle.
type Server struct {
	r      *chi.Mux
	store  store.Store
	db     *sql.DB
	oracle hint.Oracle

	hintMu       sync.Mutex          // guards hintInFlight
	hintInFlight map[string]struct{} // session ids with an outstanding hint call
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB, oracle hint.Oracle) *Server {
	s := &Server{
		r:            chi.NewRouter(),
		store:        st,
		db:           db,
		oracle:       oracle,
		hintInFlight: make(map[string]struct{}),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(60 * time.Second)) // bound handler time (hint calls included)
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"champquiz-go","endpoints":["/health","POST /quiz/new","POST /quiz/guess","POST /quiz/giveup","GET /quiz/state","GET /quiz/board","POST /quiz/hint","/daily/*","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Quiz endpoints — OPTIONAL AUTH (guests can play)
	s.r.With(s.withOptionalAuth()).Post("/quiz/new", s.handleNewQuiz)
	s.r.With(s.withOptionalAuth()).Post("/quiz/guess", s.handleGuess)
	s.r.With(s.withOptionalAuth()).Post("/quiz/giveup", s.handleGiveUp)
	s.r.Get("/quiz/state", s.handleState)
	s.r.Get("/quiz/board", s.handleBoard)
	s.r.Post("/quiz/hint", s.handleHint)

	// Champion of the Day — OPTIONAL AUTH (guests can play; result persisted on win)
	s.mountDaily(s.r.With(s.withOptionalAuth()))

	// Auth + profile/stats (require auth)
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	// Debug: catalog size
	s.r.Get("/debug/catalog", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"champions": catalog.Stats()})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ QUIZ ---------------------------------------

// newQuizReq/Res payloads for POST /quiz/new.
type newQuizReq struct {
	Difficulty string `json:"difficulty"` // "normal" | "hard" (defaults to normal)
}
type newQuizRes struct {
	SessionID  string `json:"sessionId"`
	Difficulty string `json:"difficulty"`
	Total      int    `json:"total"`
	StartedAt  string `json:"startedAt"`
}

// handleNewQuiz creates a new in-memory session. Restart is the same call:
// the old session simply stops being referenced by the client.
func (s *Server) handleNewQuiz(w http.ResponseWriter, r *http.Request) {
	var req newQuizReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	sess := quiz.New(quiz.ParseDifficulty(req.Difficulty))
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	_ = json.NewEncoder(w).Encode(newQuizRes{
		SessionID:  sess.ID,
		Difficulty: string(sess.Difficulty),
		Total:      catalog.Size(),
		StartedAt:  sess.StartedAt.Format(time.RFC3339),
	})
}

// guessReq/Res payloads for POST /quiz/guess.
type guessReq struct {
	SessionID string `json:"sessionId"`
	Input     string `json:"input"`
}
type guessRes struct {
	Matched bool   `json:"matched"`
	ChampID string `json:"champId,omitempty"` // set when the guess landed
	Guessed int    `json:"guessed"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
	Status  string `json:"status"` // "playing" | "finished"
}

// handleGuess applies raw input to a session. Called on every keystroke, so
// no-match, duplicates, and wrong-state calls all answer 200 with the current
// state — the only error here is an unknown session.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, err := s.store.Get(r.Context(), req.SessionID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	next, champ, matched := sess.SubmitGuess(req.Input, catalog.All())
	if matched {
		if err := s.store.Save(r.Context(), next); err != nil {
			http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
			return
		}
		if next.Status == quiz.StatusFinished {
			s.persistResult(w, r, next)
		}
	}

	res := guessRes{
		Matched: matched,
		Guessed: len(next.GuessedIDs),
		Total:   catalog.Size(),
		Percent: next.CompletionPercent(catalog.Size()),
		Status:  string(next.Status),
	}
	if matched {
		res.ChampID = champ.ID
	}
	_ = json.NewEncoder(w).Encode(res)
}

// giveUpReq/Res payloads for POST /quiz/giveup.
type giveUpReq struct {
	SessionID string `json:"sessionId"`
}
type giveUpRes struct {
	Status  string `json:"status"`
	GaveUp  bool   `json:"gaveUp"`
	Guessed int    `json:"guessed"`
	Percent int    `json:"percent"`
}

// handleGiveUp ends a playing session early, keeping its guess set.
// On a session that already finished this is a no-op state echo.
func (s *Server) handleGiveUp(w http.ResponseWriter, r *http.Request) {
	var req giveUpReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, err := s.store.Get(r.Context(), req.SessionID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	next := sess.GiveUp()
	if next.Status != sess.Status {
		if err := s.store.Save(r.Context(), next); err != nil {
			http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
			return
		}
		s.persistResult(w, r, next)
	}

	_ = json.NewEncoder(w).Encode(giveUpRes{
		Status:  string(next.Status),
		GaveUp:  next.GaveUp,
		Guessed: len(next.GuessedIDs),
		Percent: next.CompletionPercent(catalog.Size()),
	})
}

// stateRes is returned by GET /quiz/state.
type stateRes struct {
	Status     string `json:"status"`
	Difficulty string `json:"difficulty"`
	Guessed    int    `json:"guessed"`
	Total      int    `json:"total"`
	Percent    int    `json:"percent"`
	ElapsedMs  int64  `json:"elapsedMs"`
	GaveUp     bool   `json:"gaveUp"`
}

// handleState reports derived session state. Elapsed time is recomputed from
// timestamps on every call; the client ticks its own display off this value.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), r.URL.Query().Get("sessionId"))
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(stateRes{
		Status:     string(sess.Status),
		Difficulty: string(sess.Difficulty),
		Guessed:    len(sess.GuessedIDs),
		Total:      catalog.Size(),
		Percent:    sess.CompletionPercent(catalog.Size()),
		ElapsedMs:  sess.Elapsed(time.Now().UTC()).Milliseconds(),
		GaveUp:     sess.GaveUp,
	})
}

// boardRow is one champion card in GET /quiz/board.
// Name/title are only present once the card is revealed.
type boardRow struct {
	ID        string `json:"id"`
	Revealed  bool   `json:"revealed"`
	Guessed   bool   `json:"guessed"`
	Name      string `json:"name,omitempty"`
	Title     string `json:"title,omitempty"`
	HintGlyph string `json:"hintGlyph,omitempty"`
}

// handleBoard computes reveal state for every champion, fresh per request.
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), r.URL.Query().Get("sessionId"))
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	all := catalog.All()
	rows := make([]boardRow, 0, len(all))
	for _, e := range all {
		rev := quiz.RevealFor(e, sess)
		_, guessed := sess.GuessedIDs[e.ID]
		row := boardRow{ID: e.ID, Revealed: rev.Revealed, Guessed: guessed, HintGlyph: rev.HintGlyph}
		if rev.Revealed {
			row.Name = e.Name
			row.Title = e.Title
		}
		rows = append(rows, row)
	}
	_ = json.NewEncoder(w).Encode(rows)
}

// hintReq/Res payloads for POST /quiz/hint.
type hintReq struct {
	SessionID string `json:"sessionId"`
}
type hintRes struct {
	Text      string `json:"text,omitempty"`
	Exhausted bool   `json:"exhausted,omitempty"` // nothing left to hint about
	Discarded bool   `json:"discarded,omitempty"` // session moved on mid-call
}

// handleHint picks a random unguessed champion and asks the oracle for a clue.
//
// At most one hint call may be in flight per session (the client's loading
// flag, enforced server-side). The oracle can take a while; afterwards the
// session is re-read and the result discarded if the session finished or was
// replaced in the meantime — a stale clue must never be surfaced as current.
func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	var req hintReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, err := s.store.Get(r.Context(), req.SessionID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if sess.Status != quiz.StatusPlaying {
		_ = json.NewEncoder(w).Encode(hintRes{Discarded: true})
		return
	}

	target, ok := quiz.SelectHintTarget(sess, catalog.All())
	if !ok {
		_ = json.NewEncoder(w).Encode(hintRes{Exhausted: true})
		return
	}

	if !s.beginHint(sess.ID) {
		http.Error(w, `{"error":"hint_in_flight"}`, http.StatusConflict)
		return
	}
	defer s.endHint(sess.ID)

	text := s.oracle.Hint(r.Context(), target)

	// Discard-on-staleness: the player may have finished or restarted while
	// the oracle was thinking.
	cur, err := s.store.Get(r.Context(), req.SessionID)
	if err != nil || cur.ID != sess.ID || cur.Status != quiz.StatusPlaying {
		_ = json.NewEncoder(w).Encode(hintRes{Discarded: true})
		return
	}
	_ = json.NewEncoder(w).Encode(hintRes{Text: text})
}

// beginHint marks a session as having a hint call in flight.
// Returns false if one is already outstanding.
func (s *Server) beginHint(sessionID string) bool {
	s.hintMu.Lock()
	defer s.hintMu.Unlock()
	if _, busy := s.hintInFlight[sessionID]; busy {
		return false
	}
	s.hintInFlight[sessionID] = struct{}{}
	return true
}

// endHint clears the in-flight marker.
func (s *Server) endHint(sessionID string) {
	s.hintMu.Lock()
	defer s.hintMu.Unlock()
	delete(s.hintInFlight, sessionID)
}

// persistResult records a finished run in quiz_results and bumps user stat
// counters. Best effort: persistence failure is logged, never surfaced —
// the session itself already finished correctly in memory.
func (s *Server) persistResult(w http.ResponseWriter, r *http.Request, sess quiz.Session) {
	percent := sess.CompletionPercent(catalog.Size())
	durationMs := sess.Elapsed(sess.EndedAt).Milliseconds()

	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	ownerCol := "anonymous_id"
	ownerVal := s.ensureAnonID(w, r)
	if me != nil {
		ownerCol = "user_id"
		ownerVal = me.ID
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Warn().Err(err).Msg("begin result tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO quiz_results
	        (id, `+ownerCol+`, difficulty, guessed, total, percent, gave_up, started_at, ended_at, duration_ms)
	        VALUES (?,?,?,?,?,?,?,?,?,?)`,
		sess.ID, ownerVal, string(sess.Difficulty), len(sess.GuessedIDs), catalog.Size(), percent,
		sess.GaveUp, sess.StartedAt.Format(time.RFC3339), sess.EndedAt.Format(time.RFC3339), durationMs,
	); err != nil {
		log.Warn().Err(err).Str("sessionId", sess.ID).Msg("insert quiz result")
		return
	}
	if me != nil {
		if err := s.bumpStats(tx, me.ID, percent); err != nil {
			log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("commit result tx")
	}
}

// ------------------------------- AUTH --------------------------------------

// Request payloads for signup/login.
type signupReq struct{ Username, Password string }
type loginReq struct{ Username, Password string }

// authUser is placed into request context by auth middleware.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// mountAuthRoutes registers authentication + gated routes (/auth/*, /stats/me, /quiz/mine).
func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	// Current user (gated)
	s.r.With(s.requireAuth()).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
		if me == nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(me)
	})

	// Stats (gated)
	s.r.With(s.requireAuth()).Get("/stats/me", func(w http.ResponseWriter, r *http.Request) {
		me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
		if me == nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		u, err := s.findUserByID(me.ID)
		if err != nil {
			http.Error(w, `{"error":"not_found"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            u.ID,
			"quizzesPlayed": u.QuizzesPlayed,
			"completions":   u.Completions,
			"bestPercent":   u.BestPercent,
		})
	})

	// Recent finished runs (gated)
	s.r.With(s.requireAuth()).Get("/quiz/mine", func(w http.ResponseWriter, r *http.Request) {
		me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
		if me == nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		rows, err := s.db.Query(`SELECT id, difficulty, guessed, total, percent, gave_up, started_at, ended_at, duration_ms
		                         FROM quiz_results WHERE user_id=? ORDER BY started_at DESC LIMIT 50`, me.ID)
		if err != nil {
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		type resultRow struct {
			ID         string `json:"id"`
			Difficulty string `json:"difficulty"`
			Guessed    int    `json:"guessed"`
			Total      int    `json:"total"`
			Percent    int    `json:"percent"`
			GaveUp     bool   `json:"gaveUp"`
			StartedAt  string `json:"startedAt"`
			EndedAt    string `json:"endedAt"`
			DurationMs int64  `json:"durationMs"`
		}
		out := []resultRow{}
		for rows.Next() {
			var rr resultRow
			if err := rows.Scan(&rr.ID, &rr.Difficulty, &rr.Guessed, &rr.Total, &rr.Percent,
				&rr.GaveUp, &rr.StartedAt, &rr.EndedAt, &rr.DurationMs); err == nil {
				out = append(out, rr)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
}

// handleSignup creates a new user, signs a JWT, sets auth cookie, and claims anon history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body signupReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.createUser(body.Username, body.Password)
	if err != nil {
		if err.Error() == "username taken" {
			http.Error(w, `{"error":"Username taken"}`, http.StatusConflict)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setAuthCookie(w, tok, exp)
	// Attach any anonymous results to the new account
	s.claimAnonResults(s.ensureAnonID(w, r), u.ID)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

// handleLogin authenticates user, sets cookie, and claims anon history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.findUserByUsername(strings.TrimSpace(body.Username))
	if err != nil || !checkPassword(u.PasswordHash, body.Password) {
		http.Error(w, `{"error":"Invalid username or password"}`, http.StatusUnauthorized)
		return
	}
	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setAuthCookie(w, tok, exp)
	s.claimAnonResults(s.ensureAnonID(w, r), u.ID)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": u.ID, "username": u.Username})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// --------------------------- optional auth ---------------------------------

// withOptionalAuth decorates requests with user context if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := bearerOrCookie(r); tok != "" {
				claims := jwt.MapClaims{}
				if t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
					return []byte(getEnv("JWT_SECRET", "dev_secret_change_me")), nil
				}); err == nil && t.Valid {
					if id, _ := claims["id"].(string); id != "" {
						if u, err := s.findUserByID(id); err == nil {
							ctx := context.WithValue(r.Context(), ctxUserKey{}, &authUser{ID: u.ID, Username: u.Username})
							r = r.WithContext(ctx)
						}
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

const anonCookieName = "champquiz_anon"

// ensureAnonID returns an existing anon cookie or sets a new one.
// Used to associate guest results with a stable identifier.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := genID()
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   os.Getenv("NODE_ENV") == "production",
		SameSite: func() http.SameSite {
			if os.Getenv("NODE_ENV") == "production" {
				return http.SameSiteNoneMode
			}
			return http.SameSiteLaxMode
		}(),
		Expires: time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// claimAnonResults transfers any anonymous results to a user account after auth.
func (s *Server) claimAnonResults(anonID, userID string) {
	if anonID == "" || userID == "" {
		return
	}
	if _, err := s.db.Exec(`UPDATE quiz_results SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID); err != nil {
		log.Warn().Err(err).Msg("claim anon results")
	}
}

// ------------------------ auth helpers & users -----------------------------

// userRow matches the users table shape.
type userRow struct {
	ID            string
	Username      string
	PasswordHash  string
	CreatedAt     time.Time
	QuizzesPlayed int
	Completions   int
	BestPercent   int
}

// createUser validates input, checks uniqueness, hashes password, and inserts a new user.
func (s *Server) createUser(username, pw string) (*userRow, error) {
	username = normalizeUsername(username)
	if err := validateSignup(username, pw); err != nil {
		return nil, err
	}
	var exists int
	_ = s.db.QueryRow(`SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if exists == 1 {
		return nil, errors.New("username taken")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	id := genID()
	if _, err := s.db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, username, string(h), now); err != nil {
		return nil, err
	}
	return &userRow{ID: id, Username: username, PasswordHash: string(h), CreatedAt: mustParse(now)}, nil
}

// findUserByUsername/ID load a user row or return an error if missing.
func (s *Server) findUserByUsername(username string) (*userRow, error) {
	row := s.db.QueryRow(`SELECT id, username, password_hash, created_at, quizzes_played, completions, best_percent
	                      FROM users WHERE lower(username)=lower(?)`, username)
	return scanUser(row)
}
func (s *Server) findUserByID(id string) (*userRow, error) {
	row := s.db.QueryRow(`SELECT id, username, password_hash, created_at, quizzes_played, completions, best_percent
	                      FROM users WHERE id=?`, id)
	return scanUser(row)
}

// scanUser converts a *sql.Row into a userRow.
func scanUser(row *sql.Row) (*userRow, error) {
	var u userRow
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.QuizzesPlayed, &u.Completions, &u.BestPercent); err != nil {
		return nil, err
	}
	u.CreatedAt = mustParse(created)
	return &u, nil
}

// mustParse parses RFC3339 timestamps; on error returns zero time.
func mustParse(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// normalizeUsername trims whitespace; adjust here if you want stricter rules.
func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3–24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8–100 chars")
	}
	return nil
}

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	s := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b[:])
	if len(s) > 22 {
		return s[:22]
	}
	return s
}

// bumpStats increments quizzes played; updates completions and best percent (within tx).
func (s *Server) bumpStats(tx *sql.Tx, userID string, percent int) error {
	var played, completions, best int
	row := tx.QueryRow(`SELECT quizzes_played, completions, best_percent FROM users WHERE id=?`, userID)
	if err := row.Scan(&played, &completions, &best); err != nil {
		return err
	}
	played++
	if percent == 100 {
		completions++
	}
	if percent > best {
		best = percent
	}
	_, err := tx.Exec(`UPDATE users SET quizzes_played=?, completions=?, best_percent=? WHERE id=?`,
		played, completions, best, userID)
	return err
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT with id/username and a configurable expiry (JWT_EXPIRES_DAYS; default 14).
func (s *Server) signJWT(id, username string) (string, time.Time, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev_secret_change_me"
	}
	days := 14
	if v := os.Getenv("JWT_EXPIRES_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	exp := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(secret))
	return ss, exp, err
}

// setAuthCookie writes the auth token cookie with appropriate security attributes.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	name := getEnv("COOKIE_NAME", "champquiz_token")
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// clearAuthCookie deletes the auth token cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	name := getEnv("COOKIE_NAME", "champquiz_token")
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(getEnv("COOKIE_NAME", "champquiz_token")); err == nil {
		return c.Value
	}
	return ""
}

// ---------------------------- auth middleware ------------------------------

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

// requireAuth enforces a valid JWT and injects authUser into request context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerOrCookie(r)
			if tokenStr == "" {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(getEnv("JWT_SECRET", "dev_secret_change_me")), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			id, _ := claims["id"].(string)
			username, _ := claims["username"].(string)
			if id == "" || username == "" {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			// Ensure user still exists
			if _, err := s.findUserByID(id); err != nil {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey{}, &authUser{ID: id, Username: username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
