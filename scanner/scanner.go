// Package scanner walks the directories reachable through the VFS and
// produces fresh, internally consistent index snapshots.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tonearm/tonearm/index"
	"github.com/tonearm/tonearm/log"
	"github.com/tonearm/tonearm/vfs"
)

var (
	// ErrScanInProgress is returned when a scan is requested while one
	// is already running. Duplicate triggers are coalesced, not queued.
	ErrScanInProgress = errors.New("scanner: scan already in progress")
)

// Tags is the metadata the tag-reading collaborator extracts from one
// audio file. Fields the file does not carry stay nil.
type Tags struct {
	Title       *string
	Artist      *string
	AlbumArtist *string
	Album       *string
	Year        *int
	TrackNumber *int
	DiscNumber  *int
	// Duration in whole seconds.
	Duration *int
}

// TagReader reads tag metadata from a real file path. Any failure is
// treated by the scanner as "no tags available", never as fatal.
type TagReader interface {
	ReadTags(ctx context.Context, realPath string) (*Tags, error)
}

// Report summarizes one completed scan run.
type Report struct {
	RunID       uuid.UUID
	Songs       int
	Directories int
	// Skipped counts entries dropped for per-entry I/O or path
	// decoding errors.
	Skipped int
	// AbortedMounts lists mounts whose root could not be read.
	AbortedMounts []string
	Duration      time.Duration
}

// Scanner builds candidate snapshots from the current VFS state. Only
// one scan runs at a time; readers of the index are never blocked.
type Scanner struct {
	vfs    *vfs.VFS
	tags   TagReader
	logger *log.Logger

	mu      sync.Mutex
	running bool
}

func New(v *vfs.VFS, tags TagReader, logger *log.Logger) *Scanner {
	return &Scanner{
		vfs:    v,
		tags:   tags,
		logger: logger.Named("scanner"),
	}
}

// Scan walks every mount and seals the result into a new snapshot.
// The previous snapshot is consulted to preserve date_added for
// directories that already existed. Mounts are walked in parallel;
// cancellation is checked between directory entries and discards the
// candidate without touching the published snapshot.
// Returns ErrScanInProgress if a scan is already running.
func (s *Scanner) Scan(ctx context.Context, previous *index.Snapshot) (*index.Snapshot, *Report, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, nil, ErrScanInProgress
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	report := &Report{RunID: uuid.New()}
	started := time.Now()
	s.logger.Info("Scan %s started", report.RunID)

	mounts := s.vfs.Mounts()
	walks := make([]*mountWalk, len(mounts))

	var wg sync.WaitGroup
	for i, mount := range mounts {
		walks[i] = &mountWalk{
			scanner:  s,
			mount:    mount,
			previous: previous,
			logger:   s.logger.Named(mount.Name),
		}

		wg.Add(1)
		go func(w *mountWalk) {
			defer wg.Done()
			w.run(ctx)
		}(walks[i])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.logger.Warn("Scan %s cancelled after %s", report.RunID, time.Since(started))
		return nil, nil, err
	}

	builder := index.NewBuilder()
	for _, w := range walks {
		report.Skipped += w.skipped
		if w.aborted {
			report.AbortedMounts = append(report.AbortedMounts, w.mount.Name)
			continue
		}
		for _, cf := range w.files {
			var err error
			switch v := cf.(type) {
			case *index.Song:
				err = builder.AddSong(v)
				report.Songs++
			case *index.Directory:
				err = builder.AddDirectory(v)
				report.Directories++
			}
			if err != nil {
				return nil, nil, fmt.Errorf("scanner: %w", err)
			}
		}
	}

	snap, err := builder.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("scanner: %w", err)
	}

	report.Duration = time.Since(started)
	s.logger.Info("Scan %s finished: %d songs, %d directories, %d skipped in %s",
		report.RunID, report.Songs, report.Directories, report.Skipped, report.Duration)

	return snap, report, nil
}

// mountWalk accumulates one mount's records. Each walk is owned by a
// single goroutine; results are merged after all walks complete.
type mountWalk struct {
	scanner  *Scanner
	mount    vfs.MountPoint
	previous *index.Snapshot
	logger   *log.Logger

	files   []index.CollectionFile
	skipped int
	aborted bool
}

func (w *mountWalk) run(ctx context.Context) {
	if err := w.walkDir(ctx, w.mount.RealRoot, w.mount.Name, nil); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		// Only a failure to read the mount root aborts the subtree.
		w.logger.Error("Mount root unreadable, skipping mount: %v", err)
		w.aborted = true
	}
}

// walkDir scans one real directory in depth-first order. The directory
// record is emitted after its files so album metadata can be derived
// from the songs it contains. Returns an error only for an unreadable
// directory root or a cancelled context; per-entry failures are logged
// and skipped.
func (w *mountWalk) walkDir(ctx context.Context, realDir, virtualDir string, parent *string) error {
	entries, err := os.ReadDir(realDir)
	if err != nil {
		return err
	}

	var subdirs []fs.DirEntry
	var audio []fs.DirEntry
	var images []string

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := entry.Name()
		if !utf8.ValidString(name) {
			w.logger.Warn("Skipping entry with undecodable name in %s", virtualDir)
			w.skipped++
			continue
		}

		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(filepath.Join(realDir, name))
			if err != nil {
				w.logger.Warn("Skipping broken symlink %s/%s: %v", virtualDir, name, err)
				w.skipped++
				continue
			}
			isDir = target.IsDir()
		}

		switch {
		case isDir:
			subdirs = append(subdirs, entry)
		case isAudioName(name):
			audio = append(audio, entry)
		case isImageName(name):
			images = append(images, name)
		}
	}

	dir := &index.Directory{
		VirtualPath:       virtualDir,
		ParentVirtualPath: parent,
		DateAdded:         w.dateAdded(virtualDir),
	}

	var artwork *string
	if name := pickArtwork(images); name != "" {
		p := vfs.JoinVirtual(virtualDir, name)
		artwork = &p
		dir.ArtworkVirtualPath = &p
	}

	for _, entry := range audio {
		if err := ctx.Err(); err != nil {
			return err
		}

		song := w.scanSong(ctx, realDir, virtualDir, entry.Name())
		song.ArtworkVirtualPath = artwork
		w.files = append(w.files, song)

		// First tagged song donates the directory's album metadata.
		if dir.Album == nil && song.Album != nil {
			dir.Album = song.Album
			dir.Year = song.Year
			if song.AlbumArtist != nil {
				dir.Artist = song.AlbumArtist
			} else {
				dir.Artist = song.Artist
			}
		}
	}

	w.files = append(w.files, dir)

	for _, entry := range subdirs {
		if err := ctx.Err(); err != nil {
			return err
		}

		childReal := filepath.Join(realDir, entry.Name())
		childVirtual := vfs.JoinVirtual(virtualDir, entry.Name())
		if err := w.walkDir(ctx, childReal, childVirtual, &virtualDir); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			// Unreadable subdirectory: skip it, keep its siblings.
			w.logger.Warn("Skipping unreadable directory %s: %v", childVirtual, err)
			w.skipped++
		}
	}

	return nil
}

// scanSong builds the song record for one audio file. A tag read
// failure leaves every optional field nil; the file is still part of
// the catalogue.
func (w *mountWalk) scanSong(ctx context.Context, realDir, virtualDir, name string) *index.Song {
	virtualPath := vfs.JoinVirtual(virtualDir, name)
	song := &index.Song{
		Key:         index.SongKey(virtualPath),
		VirtualPath: virtualPath,
	}

	tags, err := w.scanner.tags.ReadTags(ctx, filepath.Join(realDir, name))
	if err != nil {
		w.logger.Warn("No tags for %s: %v", virtualPath, err)
		return song
	}

	song.Title = tags.Title
	song.Artist = tags.Artist
	song.AlbumArtist = tags.AlbumArtist
	song.Album = tags.Album
	song.Year = tags.Year
	song.TrackNumber = tags.TrackNumber
	song.DiscNumber = tags.DiscNumber
	song.Duration = tags.Duration

	return song
}

// dateAdded preserves the first-observation time of a directory that
// already existed in the previous snapshot.
func (w *mountWalk) dateAdded(virtualPath string) time.Time {
	if w.previous != nil {
		if cf, ok := w.previous.Lookup(virtualPath); ok {
			if prev, isDir := cf.(*index.Directory); isDir {
				return prev.DateAdded
			}
		}
	}
	return time.Now()
}
