package pathstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "paths.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	line := orb.LineString{{0, 0}, {10, 5}, {20, 0}}
	saved, err := s.Save(ctx, "bay", "channel", line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("expected a generated id")
	}

	got, err := s.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "channel" || got.Dataset != "bay" || !got.Line.Equal(line) {
		t.Errorf("unexpected path %+v", got)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("created_at round trip: got %v, expected %v", got.CreatedAt, saved.CreatedAt)
	}

	if err := s.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, name := range []string{"a", "b"} {
		if _, err := s.Save(ctx, "bay", name, orb.LineString{{0, 0}, {1, 1}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := s.Save(ctx, "river", "c", orb.LineString{{0, 0}, {1, 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paths, err := s.List(ctx, "bay")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 || paths[0].Name != "a" || paths[1].Name != "b" {
		t.Errorf("unexpected paths %+v", paths)
	}

	empty, err := s.List(ctx, "lake")
	if err != nil || len(empty) != 0 {
		t.Errorf("expected no paths, got %v (%v)", empty, err)
	}
}

func TestSaveRejectsShortPath(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Save(context.Background(), "bay", "dot", orb.LineString{{0, 0}}); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath for a single-point path, got %v", err)
	}
}

func TestSaveAll(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	lines := []orb.LineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}}
	saved, err := s.SaveAll(ctx, "bay", "pair", lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved) != 2 || saved[0].ID == saved[1].ID {
		t.Fatalf("expected 2 distinct paths, got %+v", saved)
	}

	// A bad line anywhere in the batch saves nothing
	_, err = s.SaveAll(ctx, "river", "mixed", []orb.LineString{{{0, 0}, {1, 1}}, {{5, 5}}})
	if !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
	paths, err := s.List(ctx, "river")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no paths saved for a rejected batch, got %d", len(paths))
	}

	// A closed database is a server-side failure, not a validation error
	s.Close()
	if _, err := s.SaveAll(ctx, "bay", "late", lines); err == nil || errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected a storage error, got %v", err)
	}
}
