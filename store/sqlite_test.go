package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tonearm/tonearm/index"
)

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func sampleSnapshot(t *testing.T) *index.Snapshot {
	t.Helper()

	b := index.NewBuilder()
	added := time.Unix(1700000000, 0)

	if err := b.AddDirectory(&index.Directory{VirtualPath: "library", DateAdded: added}); err != nil {
		t.Fatalf("AddDirectory failed: %v", err)
	}
	if err := b.AddDirectory(&index.Directory{
		VirtualPath:       "library/hunted",
		ParentVirtualPath: strptr("library"),
		Artist:            strptr("Khemmis"),
		Album:             strptr("Hunted"),
		Year:              intptr(2016),
		DateAdded:         added,
	}); err != nil {
		t.Fatalf("AddDirectory failed: %v", err)
	}
	if err := b.AddSong(&index.Song{
		VirtualPath: "library/hunted/01.mp3",
		Title:       strptr("Above The Water"),
		Artist:      strptr("Khemmis"),
		Album:       strptr("Hunted"),
		Year:        intptr(2016),
		TrackNumber: intptr(1),
	}); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if err := b.AddSong(&index.Song{VirtualPath: "library/untagged.mp3"}); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	snap, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return snap
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	original := sampleSnapshot(t)

	if err := s.Save(ctx, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Len() != original.Len() {
		t.Fatalf("Entry count mismatch: %d != %d", loaded.Len(), original.Len())
	}

	cf, ok := loaded.Lookup("library/hunted/01.mp3")
	if !ok {
		t.Fatal("Song missing after reload")
	}
	song := cf.(*index.Song)
	if song.Title == nil || *song.Title != "Above The Water" {
		t.Errorf("Unexpected title: %v", song.Title)
	}
	if song.Key != index.SongKey("library/hunted/01.mp3") {
		t.Errorf("Key not restored: %q", song.Key)
	}

	// Absent fields stay absent, never placeholders
	cf, _ = loaded.Lookup("library/untagged.mp3")
	untagged := cf.(*index.Song)
	if untagged.Title != nil || untagged.Year != nil {
		t.Error("Expected absent fields to stay nil after reload")
	}

	// Directory metadata, including date_added, survives
	cf, _ = loaded.Lookup("library/hunted")
	dir := cf.(*index.Directory)
	if !dir.DateAdded.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("DateAdded not preserved: %v", dir.DateAdded)
	}
	if dir.Album == nil || *dir.Album != "Hunted" {
		t.Errorf("Album not preserved: %v", dir.Album)
	}

	// The loaded snapshot's inverted structures answer searches
	if got := loaded.TextEquals(index.FieldArtist, "khemmis"); len(got) != 1 {
		t.Errorf("Expected 1 artist match in reloaded snapshot, got %d", len(got))
	}
}

func TestLoad_EmptyCache(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, err := s.Load(context.Background()); !errors.Is(err, ErrEmptyCache) {
		t.Errorf("Expected ErrEmptyCache, got %v", err)
	}
}

func TestSave_ReplacesPreviousCache(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Save(ctx, sampleSnapshot(t)); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	// Save a smaller snapshot over it
	b := index.NewBuilder()
	if err := b.AddDirectory(&index.Directory{VirtualPath: "library", DateAdded: time.Now()}); err != nil {
		t.Fatalf("AddDirectory failed: %v", err)
	}
	small, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := s.Save(ctx, small); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != 1 {
		t.Errorf("Expected 1 entry after replacement, got %d", loaded.Len())
	}
	if loaded.SongCount() != 0 {
		t.Errorf("Expected no songs after replacement, got %d", loaded.SongCount())
	}
}
