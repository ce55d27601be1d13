package tonearm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tonearm/tonearm/index"
	"github.com/tonearm/tonearm/log"
	"github.com/tonearm/tonearm/scanner"
	"github.com/tonearm/tonearm/store"
	"github.com/tonearm/tonearm/vfs"
)

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func quietLogger() *log.Logger {
	return log.NewLogger("test", log.Error, "", true)
}

// stubTags serves tags keyed by file basename.
type stubTags struct {
	byName map[string]*scanner.Tags
}

func (s *stubTags) ReadTags(ctx context.Context, realPath string) (*scanner.Tags, error) {
	if t, ok := s.byName[filepath.Base(realPath)]; ok {
		return t, nil
	}
	return &scanner.Tags{}, nil
}

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
}

func TestLibrary_ScanAndBrowse(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "one.mp3", "two.mp3", "three.mp3")

	lib, err := New(
		[]vfs.MountPoint{{Name: "library", RealRoot: root}},
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Empty until the first scan
	children, err := lib.Browse("")
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if len(children) != 0 {
		t.Errorf("Expected empty index before scan, got %d roots", len(children))
	}

	report, err := lib.Rescan(context.Background())
	if err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}
	if report.Songs != 3 {
		t.Errorf("Expected 3 songs, got %d", report.Songs)
	}

	children, err = lib.Browse("library")
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	want := []string{"library/one.mp3", "library/three.mp3", "library/two.mp3"}
	if len(children) != len(want) {
		t.Fatalf("Expected %d children, got %d", len(want), len(children))
	}
	for i, cf := range children {
		if cf.Path() != want[i] {
			t.Errorf("Child %d: expected %q, got %q", i, want[i], cf.Path())
		}
	}
}

func TestLibrary_SearchQuery(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "khemmis/a.mp3", "khemmis/b.mp3", "other/c.mp3")

	lib, err := New(
		[]vfs.MountPoint{{Name: "library", RealRoot: root}},
		WithLogger(quietLogger()),
		WithTagReader(&stubTags{byName: map[string]*scanner.Tags{
			"a.mp3": {Artist: strptr("Khemmis"), Year: intptr(2016)},
			"b.mp3": {Artist: strptr("Khemmis"), Year: intptr(2018)},
			"c.mp3": {Artist: strptr("Other"), Year: intptr(2020)},
		}}),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := lib.Rescan(context.Background()); err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}

	keys, err := lib.SearchQuery("artist=khemmis")
	if err != nil {
		t.Fatalf("SearchQuery failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Expected 2 matches, got %v", keys)
	}

	keys, err = lib.SearchQuery("artist=khemmis year>=2018")
	if err != nil {
		t.Fatalf("SearchQuery failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != index.SongKey("library/khemmis/b.mp3") {
		t.Errorf("Expected single 2018 match, got %v", keys)
	}

	// Keys resolve back to songs
	song, err := lib.GetSong(string(keys[0]))
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if song.Year == nil || *song.Year != 2018 {
		t.Errorf("Unexpected year: %v", song.Year)
	}
}

func TestLibrary_Reconfigure(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeFiles(t, rootA, "a.mp3")
	writeFiles(t, rootB, "b.mp3")

	lib, err := New(
		[]vfs.MountPoint{{Name: "first", RealRoot: rootA}},
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := lib.Rescan(context.Background()); err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}
	if _, err := lib.GetSong("first/a.mp3"); err != nil {
		t.Fatalf("GetSong before reconfigure failed: %v", err)
	}

	// Reconfiguration swaps the mount table and rescans immediately
	if err := lib.Reconfigure(context.Background(), []vfs.MountPoint{{Name: "second", RealRoot: rootB}}); err != nil {
		t.Fatalf("Reconfigure failed: %v", err)
	}

	if _, err := lib.GetSong("second/b.mp3"); err != nil {
		t.Fatalf("GetSong after reconfigure failed: %v", err)
	}
	if _, err := lib.GetSong("first/a.mp3"); !errors.Is(err, index.ErrSongNotFound) {
		t.Errorf("Expected old mount gone, got %v", err)
	}

	mounts := lib.Mounts()
	if len(mounts) != 1 || mounts[0].Name != "second" {
		t.Errorf("Unexpected mounts: %v", mounts)
	}
}

func TestLibrary_SnapshotCacheRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "song.mp3")
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	// First process scans and caches
	cache, err := store.Open(cachePath)
	if err != nil {
		t.Fatalf("Open cache failed: %v", err)
	}
	lib, err := New(
		[]vfs.MountPoint{{Name: "library", RealRoot: root}},
		WithLogger(quietLogger()),
		WithSnapshotStore(cache),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := lib.Rescan(context.Background()); err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close cache failed: %v", err)
	}

	// Second process restores before any scan
	cache, err = store.Open(cachePath)
	if err != nil {
		t.Fatalf("Reopen cache failed: %v", err)
	}
	defer cache.Close()

	restored, err := New(
		[]vfs.MountPoint{{Name: "library", RealRoot: root}},
		WithLogger(quietLogger()),
		WithSnapshotStore(cache),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := restored.RestoreFromCache(context.Background()); err != nil {
		t.Fatalf("RestoreFromCache failed: %v", err)
	}

	if _, err := restored.GetSong("library/song.mp3"); err != nil {
		t.Errorf("Expected cached song before first scan, got %v", err)
	}
}

func TestLibrary_RunStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "song.mp3")

	lib, err := New(
		[]vfs.MountPoint{{Name: "library", RealRoot: root}},
		WithLogger(quietLogger()),
		WithRescanInterval(10*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- lib.Run(ctx)
	}()

	// Give the loop time for the initial scan plus at least one tick
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	if _, err := lib.GetSong("library/song.mp3"); err != nil {
		t.Errorf("Expected indexed song after Run, got %v", err)
	}
}
