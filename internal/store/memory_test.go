package store

import (
	"context"
	"errors"
	"testing"

	"github.com/champquiz/go-server/internal/quiz"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if _, err := st.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}

	s := quiz.New(quiz.DifficultyNormal)
	if err := st.Save(ctx, s); err != nil {
		t.Fatal(err)
	}
	got, err := st.Get(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != s.ID || got.Status != quiz.StatusPlaying {
		t.Errorf("got %+v", got)
	}

	// Save replaces the whole value.
	_ = st.Save(ctx, s.GiveUp())
	got, _ = st.Get(ctx, s.ID)
	if got.Status != quiz.StatusFinished || !got.GaveUp {
		t.Errorf("replaced value not visible: %+v", got)
	}
}
