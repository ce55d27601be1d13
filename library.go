// Package tonearm composes the media library core: a virtual
// filesystem of named mounts, a scanner that builds catalogue
// snapshots, an index serving concurrent reads, and a search engine
// over the index. The library is process-scoped state with an explicit
// lifecycle: created empty, populated by the first scan, replaced on
// each rescan.
package tonearm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tonearm/tonearm/index"
	"github.com/tonearm/tonearm/log"
	"github.com/tonearm/tonearm/scanner"
	"github.com/tonearm/tonearm/search"
	"github.com/tonearm/tonearm/store"
	"github.com/tonearm/tonearm/tags"
	"github.com/tonearm/tonearm/vfs"
)

type Library struct {
	vfs     *vfs.VFS
	index   *index.Index
	scanner *scanner.Scanner
	store   *store.SnapshotStore
	logger  *log.Logger

	tagReader scanner.TagReader
	interval  time.Duration
}

type Option func(*Library)

// WithLogger replaces the default stderr logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// WithSnapshotStore attaches an optional snapshot cache. The cache only
// speeds up startup; the catalogue of record is always a fresh scan.
func WithSnapshotStore(s *store.SnapshotStore) Option {
	return func(l *Library) {
		l.store = s
	}
}

// WithRescanInterval sets the background rescan period.
func WithRescanInterval(d time.Duration) Option {
	return func(l *Library) {
		l.interval = d
	}
}

// WithTagReader replaces the default dhowden/tag metadata reader.
func WithTagReader(tr scanner.TagReader) Option {
	return func(l *Library) {
		l.tagReader = tr
	}
}

// New builds a library over the given mount declarations. The index
// starts empty; call Rescan or Run to populate it.
func New(points []vfs.MountPoint, opts ...Option) (*Library, error) {
	l := &Library{
		vfs:      vfs.New(),
		index:    index.NewIndex(),
		interval: 30 * time.Minute,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.logger == nil {
		l.logger = log.NewLogger("tonearm", log.Info, "", false)
	}
	if l.tagReader == nil {
		l.tagReader = tags.NewReader()
	}

	if err := l.vfs.Reset(points); err != nil {
		return nil, err
	}

	l.scanner = scanner.New(l.vfs, l.tagReader, l.logger)
	return l, nil
}

// Mounts lists the configured mount points.
func (l *Library) Mounts() []vfs.MountPoint {
	return l.vfs.Mounts()
}

// Browse returns the immediate children of a virtual directory. An
// empty path lists the mount roots.
func (l *Library) Browse(virtualPath string) ([]index.CollectionFile, error) {
	return l.index.Browse(virtualPath)
}

// GetSong returns the song at a virtual path.
func (l *Library) GetSong(virtualPath string) (*index.Song, error) {
	return l.index.GetSong(virtualPath)
}

// Flatten returns all songs recursively under a virtual directory.
func (l *Library) Flatten(virtualPath string) ([]*index.Song, error) {
	return l.index.Flatten(virtualPath)
}

// Search evaluates a query expression against the current snapshot and
// returns the matching song keys in virtual path order.
func (l *Library) Search(expr search.Expression) []index.SongKey {
	return search.Evaluate(expr, l.index.Snapshot())
}

// SearchQuery parses and evaluates a user-typed query string.
func (l *Library) SearchQuery(query string) ([]index.SongKey, error) {
	expr, err := search.Parse(query)
	if err != nil {
		return nil, err
	}
	return search.Evaluate(expr, l.index.Snapshot()), nil
}

// Rescan walks all mounts and publishes the resulting snapshot. A
// rescan requested while one is running returns ErrScanInProgress;
// duplicate triggers are coalesced, never queued. A failed or cancelled
// scan leaves the published snapshot untouched.
func (l *Library) Rescan(ctx context.Context) (*scanner.Report, error) {
	snap, report, err := l.scanner.Scan(ctx, l.index.Snapshot())
	if err != nil {
		return nil, err
	}

	l.index.ReplaceSnapshot(snap)

	if l.store != nil {
		if err := l.store.Save(ctx, snap); err != nil {
			// Cache write failure never invalidates the scan.
			l.logger.Warn("Snapshot cache write failed: %v", err)
		}
	}

	return report, nil
}

// Reconfigure re-derives the mount table from a new declaration list
// and triggers a fresh scan.
func (l *Library) Reconfigure(ctx context.Context, points []vfs.MountPoint) error {
	if err := l.vfs.Reset(points); err != nil {
		return err
	}

	if _, err := l.Rescan(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("tonearm: rescan after reconfigure: %w", err)
	}
	return nil
}

// RestoreFromCache publishes the last cached snapshot, if any, so the
// catalogue is servable before the first scan completes. The cache is
// validated against the same invariants as scanner output on load.
func (l *Library) RestoreFromCache(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	snap, err := l.store.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrEmptyCache) {
			return nil
		}
		return err
	}

	l.index.ReplaceSnapshot(snap)
	l.logger.Info("Restored %d songs from snapshot cache", snap.SongCount())
	return nil
}

// Run performs an initial scan and then rescans on the configured
// interval until ctx is cancelled. A failed scan is logged and retried
// on the next tick; an in-progress scan absorbs the tick.
func (l *Library) Run(ctx context.Context) error {
	if _, err := l.Rescan(ctx); err != nil && !errors.Is(err, scanner.ErrScanInProgress) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		l.logger.Error("Initial scan failed: %v", err)
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := l.Rescan(ctx); err != nil && !errors.Is(err, scanner.ErrScanInProgress) {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				l.logger.Error("Periodic scan failed: %v", err)
			}
		}
	}
}
