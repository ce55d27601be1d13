package index

import (
	"fmt"
	"sync/atomic"
)

// Index holds the currently published snapshot and serves reads against
// it. Publication is a single pointer swap: readers always observe
// either the entire old snapshot or the entire new one, and query
// latency is independent of scan duration.
type Index struct {
	current atomic.Pointer[Snapshot]
}

// NewIndex returns an index holding an empty snapshot, the state before
// the first scan completes.
func NewIndex() *Index {
	idx := &Index{}
	idx.current.Store(EmptySnapshot())
	return idx
}

// Snapshot returns the currently published snapshot. The returned value
// is immutable and remains valid even after a newer snapshot is
// published.
func (i *Index) Snapshot() *Snapshot {
	return i.current.Load()
}

// ReplaceSnapshot publishes a new snapshot atomically.
func (i *Index) ReplaceSnapshot(snap *Snapshot) {
	if snap == nil {
		return
	}
	i.current.Store(snap)
}

// Browse returns the immediate children of a directory, sorted by
// virtual path. An empty path lists the mount-level roots.
// Returns ErrDirectoryNotFound if the path does not name a directory in
// the current snapshot.
func (i *Index) Browse(virtualPath string) ([]CollectionFile, error) {
	snap := i.current.Load()

	if virtualPath == "" {
		return snap.Roots(), nil
	}

	cf, exists := snap.Lookup(virtualPath)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, virtualPath)
	}
	if _, isDir := cf.(*Directory); !isDir {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, virtualPath)
	}

	return snap.Children(virtualPath), nil
}

// GetSong returns the song at the given virtual path.
// Returns ErrSongNotFound if the path is absent or names a directory.
func (i *Index) GetSong(virtualPath string) (*Song, error) {
	snap := i.current.Load()

	cf, exists := snap.Lookup(virtualPath)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, virtualPath)
	}

	song, isSong := cf.(*Song)
	if !isSong {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, virtualPath)
	}

	return song, nil
}

// Flatten returns every song recursively below a directory, depth-first
// by virtual path.
// Returns ErrDirectoryNotFound if the root does not name a directory.
func (i *Index) Flatten(virtualPath string) ([]*Song, error) {
	snap := i.current.Load()

	if virtualPath == "" {
		var songs []*Song
		for _, root := range snap.Roots() {
			songs = append(songs, snap.SongsUnder(root.Path())...)
		}
		return songs, nil
	}

	cf, exists := snap.Lookup(virtualPath)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, virtualPath)
	}
	if _, isDir := cf.(*Directory); !isDir {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, virtualPath)
	}

	return snap.SongsUnder(virtualPath), nil
}
