package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/champquiz/go-server/internal/catalog"
	"github.com/champquiz/go-server/internal/daily"
	"github.com/champquiz/go-server/internal/hint"
	"github.com/champquiz/go-server/internal/quiz"
	"github.com/champquiz/go-server/internal/store"
)

// stubOracle lets tests control hint text and observe oracle calls.
type stubOracle struct {
	fn func(ctx context.Context, e catalog.Entity) string
}

func (o stubOracle) Hint(ctx context.Context, e catalog.Entity) string {
	if o.fn != nil {
		return o.fn(ctx, e)
	}
	return "uma pista do vazio"
}

type testEnv struct {
	ts     *httptest.Server
	client *http.Client
	store  store.Store
	db     *sql.DB
}

// newTestEnv spins up the full router against an in-memory SQLite database
// initialized with the real migration file.
func newTestEnv(t *testing.T, oracle hint.Oracle) *testEnv {
	t.Helper()
	t.Setenv("CHAMPIONS_FILE", "")
	if err := catalog.Init(); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1) // :memory: is per-connection
	schema, err := os.ReadFile("../../sql/001_init.sql")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatal(err)
	}

	st := store.NewMemoryStore()
	srv := New(st, db, oracle)
	ts := httptest.NewServer(srv.Router())
	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	t.Cleanup(func() {
		ts.Close()
		_ = db.Close()
	})
	return &testEnv{ts: ts, client: client, store: st, db: db}
}

// postJSON posts body and decodes the reply into out (when out != nil).
func (e *testEnv) postJSON(t *testing.T, path string, body, out any) int {
	t.Helper()
	buf, _ := json.Marshal(body)
	resp, err := e.client.Post(e.ts.URL+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

// getJSON fetches path and decodes the reply into out.
func (e *testEnv) getJSON(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := e.client.Get(e.ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func (e *testEnv) newSession(t *testing.T, difficulty string) newQuizRes {
	t.Helper()
	var res newQuizRes
	if code := e.postJSON(t, "/quiz/new", newQuizReq{Difficulty: difficulty}, &res); code != http.StatusOK {
		t.Fatalf("/quiz/new status %d", code)
	}
	if res.SessionID == "" || res.Total != catalog.Size() {
		t.Fatalf("bad new-quiz response: %+v", res)
	}
	return res
}

func TestGuessFlow(t *testing.T) {
	env := newTestEnv(t, stubOracle{})
	sess := env.newSession(t, "normal")

	var res guessRes
	env.postJSON(t, "/quiz/guess", guessReq{SessionID: sess.SessionID, Input: "KAI'SA"}, &res)
	if !res.Matched || res.ChampID != "kaisa" || res.Guessed != 1 {
		t.Fatalf("guess kaisa: %+v", res)
	}
	if res.Status != string(quiz.StatusPlaying) {
		t.Errorf("status = %s", res.Status)
	}

	// Duplicate and garbage input: 200, no state change.
	for _, in := range []string{"kaisa", "zzz", "", "!!!"} {
		var r guessRes
		env.postJSON(t, "/quiz/guess", guessReq{SessionID: sess.SessionID, Input: in}, &r)
		if r.Matched || r.Guessed != 1 {
			t.Errorf("input %q: %+v", in, r)
		}
	}

	var state stateRes
	if code := env.getJSON(t, "/quiz/state?sessionId="+sess.SessionID, &state); code != http.StatusOK {
		t.Fatalf("/quiz/state status %d", code)
	}
	if state.Guessed != 1 || state.Status != string(quiz.StatusPlaying) || state.ElapsedMs < 0 {
		t.Errorf("state: %+v", state)
	}
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t, stubOracle{})
	if code := env.postJSON(t, "/quiz/guess", guessReq{SessionID: "nope", Input: "ryze"}, nil); code != http.StatusNotFound {
		t.Errorf("guess on unknown session: status %d, want 404", code)
	}
	if code := env.getJSON(t, "/quiz/state?sessionId=nope", nil); code != http.StatusNotFound {
		t.Errorf("state on unknown session: status %d, want 404", code)
	}
}

func TestBoardRevealGating(t *testing.T) {
	env := newTestEnv(t, stubOracle{})
	sess := env.newSession(t, "normal")
	env.postJSON(t, "/quiz/guess", guessReq{SessionID: sess.SessionID, Input: "ryze"}, nil)

	var rows []boardRow
	env.getJSON(t, "/quiz/board?sessionId="+sess.SessionID, &rows)
	if len(rows) != catalog.Size() {
		t.Fatalf("board has %d rows, want %d", len(rows), catalog.Size())
	}
	for _, row := range rows {
		if row.ID == "ryze" {
			if !row.Revealed || row.Name != "Ryze" || row.Title == "" {
				t.Errorf("guessed row: %+v", row)
			}
			continue
		}
		if row.Revealed || row.Name != "" || row.Title != "" {
			t.Errorf("unguessed row leaks data: %+v", row)
		}
		if row.HintGlyph == "" {
			t.Errorf("normal difficulty row missing hint glyph: %+v", row)
		}
	}

	// Hard difficulty exposes nothing at all.
	hard := env.newSession(t, "hard")
	rows = nil
	env.getJSON(t, "/quiz/board?sessionId="+hard.SessionID, &rows)
	for _, row := range rows {
		if row.HintGlyph != "" {
			t.Errorf("hard difficulty row has glyph: %+v", row)
		}
	}
}

func TestGiveUpFlow(t *testing.T) {
	env := newTestEnv(t, stubOracle{})
	sess := env.newSession(t, "normal")
	env.postJSON(t, "/quiz/guess", guessReq{SessionID: sess.SessionID, Input: "kaisa"}, nil)

	var res giveUpRes
	env.postJSON(t, "/quiz/giveup", giveUpReq{SessionID: sess.SessionID}, &res)
	if res.Status != string(quiz.StatusFinished) || !res.GaveUp || res.Guessed != 1 {
		t.Fatalf("give-up: %+v", res)
	}

	// Board fully revealed after give-up.
	var rows []boardRow
	env.getJSON(t, "/quiz/board?sessionId="+sess.SessionID, &rows)
	for _, row := range rows {
		if !row.Revealed {
			t.Fatalf("row %s not revealed after give-up", row.ID)
		}
	}

	// Stray late events: silent no-op echoes, never errors.
	var late guessRes
	if code := env.postJSON(t, "/quiz/guess", guessReq{SessionID: sess.SessionID, Input: "ryze"}, &late); code != http.StatusOK {
		t.Fatalf("late guess status %d", code)
	}
	if late.Matched || late.Status != string(quiz.StatusFinished) {
		t.Errorf("late guess: %+v", late)
	}
	var again giveUpRes
	env.postJSON(t, "/quiz/giveup", giveUpReq{SessionID: sess.SessionID}, &again)
	if again.Guessed != 1 {
		t.Errorf("second give-up: %+v", again)
	}

	// Result persisted once with gave_up set.
	var cnt int
	if err := env.db.QueryRow(`SELECT COUNT(1) FROM quiz_results WHERE id=? AND gave_up=1`, sess.SessionID).Scan(&cnt); err != nil {
		t.Fatal(err)
	}
	if cnt != 1 {
		t.Errorf("persisted give-up results = %d, want 1", cnt)
	}
}

func TestFullCompletion(t *testing.T) {
	env := newTestEnv(t, stubOracle{})
	sess := env.newSession(t, "hard")

	var last guessRes
	for _, e := range catalog.All() {
		env.postJSON(t, "/quiz/guess", guessReq{SessionID: sess.SessionID, Input: e.ID}, &last)
	}
	if last.Status != string(quiz.StatusFinished) || last.Percent != 100 {
		t.Fatalf("after covering catalog: %+v", last)
	}

	var gaveUp bool
	var percent int
	if err := env.db.QueryRow(`SELECT gave_up, percent FROM quiz_results WHERE id=?`, sess.SessionID).Scan(&gaveUp, &percent); err != nil {
		t.Fatal(err)
	}
	if gaveUp || percent != 100 {
		t.Errorf("persisted result: gaveUp=%v percent=%d", gaveUp, percent)
	}
}

func TestHintEndpoint(t *testing.T) {
	env := newTestEnv(t, stubOracle{})
	sess := env.newSession(t, "normal")

	var res hintRes
	if code := env.postJSON(t, "/quiz/hint", hintReq{SessionID: sess.SessionID}, &res); code != http.StatusOK {
		t.Fatalf("/quiz/hint status %d", code)
	}
	if res.Text != "uma pista do vazio" || res.Discarded || res.Exhausted {
		t.Errorf("hint: %+v", res)
	}
}

func TestHintDiscardOnStaleness(t *testing.T) {
	// The oracle call races the player: here the session gives up while the
	// oracle is "thinking", so the result must be discarded.
	var env *testEnv
	var sessID string
	env = newTestEnv(t, stubOracle{fn: func(ctx context.Context, e catalog.Entity) string {
		if s, err := env.store.Get(ctx, sessID); err == nil {
			_ = env.store.Save(ctx, s.GiveUp())
		}
		return "tarde demais"
	}})
	sess := env.newSession(t, "normal")
	sessID = sess.SessionID

	var res hintRes
	env.postJSON(t, "/quiz/hint", hintReq{SessionID: sessID}, &res)
	if !res.Discarded || res.Text != "" {
		t.Errorf("stale hint not discarded: %+v", res)
	}
}

func TestHintOnFinishedSession(t *testing.T) {
	env := newTestEnv(t, stubOracle{})
	sess := env.newSession(t, "normal")
	env.postJSON(t, "/quiz/giveup", giveUpReq{SessionID: sess.SessionID}, nil)

	var res hintRes
	env.postJSON(t, "/quiz/hint", hintReq{SessionID: sess.SessionID}, &res)
	if !res.Discarded {
		t.Errorf("hint on finished session: %+v", res)
	}
}

func TestDailyFlow(t *testing.T) {
	env := newTestEnv(t, stubOracle{})

	var nr newRes
	if code := env.postJSON(t, "/daily/new", struct{}{}, &nr); code != http.StatusOK {
		t.Fatalf("/daily/new status %d", code)
	}
	if nr.GameID == "" || nr.Played {
		t.Fatalf("daily new: %+v", nr)
	}

	// Wrong guess first.
	idx := daily.ChampionIndex(time.Now().UTC(), "local_dev_salt", catalog.Size())
	champ := catalog.All()[idx]
	wrong := "ryze"
	if champ.ID == "ryze" {
		wrong = "kaisa"
	}
	var gr dailyGuessRes
	env.postJSON(t, "/daily/guess", dailyGuessReq{GameID: nr.GameID, Input: wrong}, &gr)
	if gr.Correct || gr.State != "in_progress" || gr.Attempts != 1 {
		t.Fatalf("wrong daily guess: %+v", gr)
	}

	// Hint for today's champion comes straight from the oracle.
	var hr dailyHintRes
	env.getJSON(t, "/daily/hint", &hr)
	if hr.Text != "uma pista do vazio" {
		t.Errorf("daily hint: %+v", hr)
	}

	// Correct guess through the display name wins and persists.
	env.postJSON(t, "/daily/guess", dailyGuessReq{GameID: nr.GameID, Input: champ.Name}, &gr)
	if !gr.Correct || gr.State != "won" || gr.Attempts != 2 {
		t.Fatalf("winning daily guess: %+v", gr)
	}

	// Solved riddles lock.
	env.postJSON(t, "/daily/guess", dailyGuessReq{GameID: nr.GameID, Input: champ.Name}, &gr)
	if gr.State != "locked" {
		t.Errorf("guess after win: %+v", gr)
	}

	// Same player cannot start again today.
	env.postJSON(t, "/daily/new", struct{}{}, &nr)
	if !nr.Played {
		t.Errorf("daily replay allowed: %+v", nr)
	}

	var lb lbRes
	env.getJSON(t, "/daily/leaderboard", &lb)
	if len(lb.Top) != 1 || lb.Top[0].Attempts != 2 {
		t.Errorf("leaderboard: %+v", lb)
	}
}

func TestAuthAndStats(t *testing.T) {
	env := newTestEnv(t, stubOracle{})

	code := env.postJSON(t, "/auth/signup", map[string]string{"username": "jogador1", "password": "senha12345"}, nil)
	if code != http.StatusOK {
		t.Fatalf("signup status %d", code)
	}

	var me authUser
	if code := env.getJSON(t, "/auth/me", &me); code != http.StatusOK {
		t.Fatalf("/auth/me status %d", code)
	}
	if me.Username != "jogador1" {
		t.Errorf("me: %+v", me)
	}

	// Finish a run while logged in; stats must move.
	sess := env.newSession(t, "normal")
	env.postJSON(t, "/quiz/guess", guessReq{SessionID: sess.SessionID, Input: "kaisa"}, nil)
	env.postJSON(t, "/quiz/giveup", giveUpReq{SessionID: sess.SessionID}, nil)

	var stats map[string]any
	env.getJSON(t, "/stats/me", &stats)
	if got, _ := stats["quizzesPlayed"].(float64); got != 1 {
		t.Errorf("quizzesPlayed = %v, want 1", stats["quizzesPlayed"])
	}

	// Wrong password is rejected.
	if code := env.postJSON(t, "/auth/login", map[string]string{"username": "jogador1", "password": "errada9999"}, nil); code != http.StatusUnauthorized {
		t.Errorf("bad login status %d, want 401", code)
	}
}
