package bolt

import (
	"context"
	"path/filepath"
	"testing"
)

func TestStorage(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "answers.db")

	s, err := NewStorage(filename)
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Open(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()

	if _, have, err := s.Get(ctx, "po"); err != nil {
		t.Fatal(err)
	} else if have {
		t.Fatal("should not have po yet")
	}

	if err := s.Put(ctx, "po", "2413v"); err != nil {
		t.Fatal(err)
	}

	v, have, err := s.Get(ctx, "po")
	if err != nil {
		t.Fatal(err)
	}
	if !have || v != "2413v" {
		t.Fatalf("got %q (%v)", v, have)
	}
}
