package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/btree"
)

// Builder accumulates collection files during a scan and seals them
// into an immutable Snapshot. A builder is used by a single goroutine;
// the scanner merges per-mount results before adding them here.
type Builder struct {
	files map[string]CollectionFile
}

func NewBuilder() *Builder {
	return &Builder{
		files: make(map[string]CollectionFile),
	}
}

// AddSong records a song under its virtual path.
// Returns ErrDuplicatePath if the path is already taken.
func (b *Builder) AddSong(s *Song) error {
	if _, exists := b.files[s.VirtualPath]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, s.VirtualPath)
	}
	if s.Key == "" {
		s.Key = SongKey(s.VirtualPath)
	}
	b.files[s.VirtualPath] = s
	return nil
}

// AddDirectory records a directory under its virtual path.
// Returns ErrDuplicatePath if the path is already taken.
func (b *Builder) AddDirectory(d *Directory) error {
	if _, exists := b.files[d.VirtualPath]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, d.VirtualPath)
	}
	b.files[d.VirtualPath] = d
	return nil
}

func (b *Builder) Len() int {
	return len(b.files)
}

// Build validates the accumulated records and seals them into a
// Snapshot. Every non-root entry must have a parent directory present;
// a violation means the scan logic is broken and the snapshot must not
// be published.
func (b *Builder) Build() (*Snapshot, error) {
	snap := &Snapshot{
		id:        uuid.New(),
		createdAt: time.Now(),
		files:     btree.NewMap[string, CollectionFile](0),
	}

	for f := 0; f < textFieldCount; f++ {
		snap.text[f].exact = make(map[string]KeySet)
	}
	for f := 0; f < numberFieldCount; f++ {
		snap.numbers[f].values = btree.NewMap[int, KeySet](0)
	}

	for path, cf := range b.files {
		if err := b.checkParent(path, cf); err != nil {
			return nil, err
		}

		snap.files.Set(path, cf)

		switch v := cf.(type) {
		case *Song:
			snap.songCount++
			snap.indexSong(v)
		case *Directory:
			snap.dirCount++
		}
	}

	for f := 0; f < textFieldCount; f++ {
		values := make([]textValue, 0, len(snap.text[f].exact))
		for value, keys := range snap.text[f].exact {
			values = append(values, textValue{value: value, keys: keys})
		}
		snap.text[f].values = values
	}

	return snap, nil
}

func (b *Builder) checkParent(path string, cf CollectionFile) error {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		// Mount root entries have no parent.
		if _, isSong := cf.(*Song); isSong {
			return fmt.Errorf("%w: song at mount root level: %s", ErrOrphanedEntry, path)
		}
		return nil
	}

	parent, exists := b.files[path[:idx]]
	if !exists {
		return fmt.Errorf("%w: %s", ErrOrphanedEntry, path)
	}
	if _, isDir := parent.(*Directory); !isDir {
		return fmt.Errorf("%w: %s", ErrParentNotDir, path)
	}
	return nil
}

// indexSong feeds one song into the inverted structures.
func (s *Snapshot) indexSong(song *Song) {
	s.indexText(FieldTitle, song.Title, song.Key)
	s.indexText(FieldArtist, song.Artist, song.Key)
	s.indexText(FieldAlbumArtist, song.AlbumArtist, song.Key)
	s.indexText(FieldAlbum, song.Album, song.Key)

	path := song.VirtualPath
	s.indexText(FieldPath, &path, song.Key)

	s.indexNumber(FieldYear, song.Year, song.Key)
	s.indexNumber(FieldTrackNumber, song.TrackNumber, song.Key)
	s.indexNumber(FieldDiscNumber, song.DiscNumber, song.Key)
	s.indexNumber(FieldDuration, song.Duration, song.Key)
}

func (s *Snapshot) indexText(f TextField, value *string, key SongKey) {
	if value == nil || *value == "" {
		return
	}

	lowered := strings.ToLower(*value)
	set, exists := s.text[f].exact[lowered]
	if !exists {
		set = KeySet{}
		s.text[f].exact[lowered] = set
	}
	set[key] = struct{}{}
}

func (s *Snapshot) indexNumber(f NumberField, value *int, key SongKey) {
	if value == nil {
		return
	}

	set, exists := s.numbers[f].values.Get(*value)
	if !exists {
		set = KeySet{}
		s.numbers[f].values.Set(*value, set)
	}
	set[key] = struct{}{}
}
