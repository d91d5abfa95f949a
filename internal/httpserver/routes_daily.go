// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Champion of the Day" mode.
// Exposes four endpoints under /daily:
//   - POST /daily/new         → start today's riddle (creates or reuses session)
//   - POST /daily/guess       → submit a name guess for today's champion
//   - GET  /daily/hint        → oracle clue for today's champion
//   - GET  /daily/leaderboard → fetch top 20 results for today (or a given date)
//
// Each user can solve once per day (enforced by DB + in-memory session).
// Sessions are held in memory for active play and persisted to DB on win.
// Deterministic champion selection is based on date + salt.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/champquiz/go-server/internal/catalog"
	"github.com/champquiz/go-server/internal/daily"
	"github.com/champquiz/go-server/internal/quiz"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]*dailySession // active sessions keyed by userID|date
	mu       sync.Mutex               // guards sessions
}

// dailySession holds transient in-memory state for an in-progress daily riddle.
type dailySession struct {
	GameID     string
	UserID     string
	Date       string
	ChampIndex int
	ChampID    string
	Start      time.Time
	Attempts   int
	Finished   bool
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     getEnv("DAILY_SALT", "local_dev_salt"),
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/guess", dd.handleGuess)
		r.Get("/hint", dd.handleHint)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// championToday returns today's date key, deterministic catalog index, and champion.
func (d *dailyServer) championToday() (date string, idx int, champ catalog.Entity) {
	now := time.Now().UTC()
	date = daily.DateKey(now)
	all := catalog.All()
	if len(all) == 0 {
		return date, 0, catalog.Entity{}
	}
	idx = daily.ChampionIndex(now, d.salt, len(all))
	return date, idx, all[idx]
}

// userIDWithAnon returns the authenticated user ID if logged in,
// otherwise ensures an anonymous ID via Server.ensureAnonID.
func (d *dailyServer) userIDWithAnon(w http.ResponseWriter, r *http.Request) (string, bool) {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID, true
	}
	return d.srv.ensureAnonID(w, r), true
}

// -----------------------------------------------------------------------------
// /daily/new

// newRes is returned by /daily/new.
type newRes struct {
	GameID string `json:"gameId"`
	Date   string `json:"date"`
	Played bool   `json:"played"`
}

// handleNew creates or reuses a daily session for the current date.
// - If user already has a DB row for today → return Played=true.
// - Otherwise create/reuse an in-memory session and return GameID.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid, ok := d.userIDWithAnon(w, r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	date, idx, champ := d.championToday()
	if champ.ID == "" {
		http.Error(w, "no catalog", http.StatusServiceUnavailable)
		return
	}

	// Check if already solved (persisted in DB).
	if played, err := d.store.AlreadyPlayed(r.Context(), uid, date); err == nil && played {
		_ = json.NewEncoder(w).Encode(newRes{GameID: "", Date: date, Played: true})
		return
	}

	// Reuse or create session in memory.
	key := uid + "|" + date
	d.mu.Lock()
	if sess, ok := d.sessions[key]; ok {
		d.mu.Unlock()
		_ = json.NewEncoder(w).Encode(newRes{GameID: sess.GameID, Date: date, Played: false})
		return
	}
	sess := &dailySession{
		GameID:     genID(),
		UserID:     uid,
		Date:       date,
		ChampIndex: idx,
		ChampID:    champ.ID,
		Start:      time.Now(),
	}
	d.sessions[key] = sess
	d.mu.Unlock()

	_ = json.NewEncoder(w).Encode(newRes{GameID: sess.GameID, Date: date, Played: false})
}

// -----------------------------------------------------------------------------
// /daily/guess

// dailyGuessReq is the request payload for /daily/guess.
type dailyGuessReq struct {
	GameID string `json:"gameId"`
	Input  string `json:"input"`
}

// dailyGuessRes is the response payload for /daily/guess.
type dailyGuessRes struct {
	Correct  bool   `json:"correct"`
	State    string `json:"state"` // in_progress | won | locked
	Attempts int    `json:"attempts"`
}

// handleGuess applies a name guess for today's riddle.
// - Ensures valid GameID and non-empty normalized input.
// - Rejects if no session; answers "locked" if already solved.
// - Resolves the input through the quiz matcher and compares against today's
//   champion: near-misses (other champions, garbage) just count an attempt.
// - Persists result to DB on win.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	uid, ok := d.userIDWithAnon(w, r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var p dailyGuessReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	key := quiz.Normalize(p.Input)
	if p.GameID == "" || key == "" {
		http.Error(w, "invalid", http.StatusBadRequest)
		return
	}

	date, _, _ := d.championToday()

	// Find session.
	sessKey := uid + "|" + date
	d.mu.Lock()
	sess, ok := d.sessions[sessKey]
	d.mu.Unlock()
	if !ok || sess.GameID != p.GameID {
		http.Error(w, "no session", http.StatusConflict)
		return
	}
	if sess.Finished {
		_ = json.NewEncoder(w).Encode(dailyGuessRes{State: "locked", Attempts: sess.Attempts})
		return
	}

	// Resolve the guess against the catalog and compare with today's champion.
	matched, found := quiz.Match(key, catalog.All())
	won := found && matched.ID == sess.ChampID

	// Update in-memory session.
	d.mu.Lock()
	sess.Attempts++
	if won {
		sess.Finished = true
	}
	attempts := sess.Attempts
	d.mu.Unlock()

	// Persist and return.
	if won {
		elapsed := int(time.Since(sess.Start).Milliseconds())
		_ = d.store.InsertResult(r.Context(), daily.Result{
			UserID: uid, Date: date, ChampIndex: sess.ChampIndex, Attempts: attempts, ElapsedMs: elapsed,
		})
		_ = json.NewEncoder(w).Encode(dailyGuessRes{Correct: true, State: "won", Attempts: attempts})
		return
	}
	_ = json.NewEncoder(w).Encode(dailyGuessRes{Correct: false, State: "in_progress", Attempts: attempts})
}

// -----------------------------------------------------------------------------
// /daily/hint

// dailyHintRes is returned by /daily/hint.
type dailyHintRes struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

// handleHint asks the oracle for a clue about today's champion.
// The oracle is total: on failure this is still a 200 with fallback text.
func (d *dailyServer) handleHint(w http.ResponseWriter, r *http.Request) {
	date, _, champ := d.championToday()
	if champ.ID == "" {
		http.Error(w, "no catalog", http.StatusServiceUnavailable)
		return
	}
	text := d.srv.oracle.Hint(r.Context(), champ)
	_ = json.NewEncoder(w).Encode(dailyHintRes{Date: date, Text: text})
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _, _ = d.championToday()
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
