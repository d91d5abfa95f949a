package hint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/champquiz/go-server/internal/catalog"
)

var kaisa = catalog.Entity{ID: "kaisa", Name: "Kai'Sa", Title: "A Filha do Vazio"}

func TestHintPromptContents(t *testing.T) {
	// The prompt itself must carry name and title (the model needs them)
	// together with the rules forbidding them in the reply.
	p := hintPrompt(kaisa)
	for _, want := range []string{"Kai'Sa", "A Filha do Vazio", "PORTUGUÊS", "25 palavras"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestLLMOracleHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("bad auth header %q", got)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Ela carrega simbiontes do abismo.  "}}]}`))
	}))
	defer srv.Close()

	o, err := NewLLMOracle("test-key", "", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	got := o.Hint(context.Background(), kaisa)
	if got != "Ela carrega simbiontes do abismo." {
		t.Errorf("hint = %q", got)
	}
}

func TestLLMOracleFallsBack(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"api error", `{"error":{"message":"quota exceeded","type":"rate_limit"}}`},
		{"no choices", `{"choices":[]}`},
		{"empty content", `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`},
		{"malformed json", `{{{`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(c.body))
			}))
			defer srv.Close()

			o, err := NewLLMOracle("test-key", "", srv.URL)
			if err != nil {
				t.Fatal(err)
			}
			if got := o.Hint(context.Background(), kaisa); got != Fallback {
				t.Errorf("hint = %q, want fallback", got)
			}
		})
	}
}

func TestLLMOracleUnreachable(t *testing.T) {
	o, err := NewLLMOracle("test-key", "", "http://127.0.0.1:1")
	if err != nil {
		t.Fatal(err)
	}
	if got := o.Hint(context.Background(), kaisa); got != Fallback {
		t.Errorf("hint = %q, want fallback", got)
	}
}

func TestNewLLMOracleRequiresKey(t *testing.T) {
	if _, err := NewLLMOracle("", "", ""); err == nil {
		t.Error("expected error for missing api key")
	}
}

func TestOfflineOracle(t *testing.T) {
	got := Offline{}.Hint(context.Background(), kaisa)
	if got == "" {
		t.Fatal("offline hint is empty")
	}
	if strings.Contains(got, "Kai'Sa") {
		t.Errorf("offline hint leaks the name: %q", got)
	}
}
