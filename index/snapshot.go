package index

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/btree"
)

// TextField identifies a searchable text attribute of a song.
type TextField int

const (
	FieldTitle TextField = iota
	FieldArtist
	FieldAlbumArtist
	FieldAlbum
	FieldPath
)

func (f TextField) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldArtist:
		return "artist"
	case FieldAlbumArtist:
		return "albumartist"
	case FieldAlbum:
		return "album"
	case FieldPath:
		return "path"
	default:
		return "unknown"
	}
}

// NumberField identifies a searchable numeric attribute of a song.
type NumberField int

const (
	FieldYear NumberField = iota
	FieldTrackNumber
	FieldDiscNumber
	FieldDuration
)

func (f NumberField) String() string {
	switch f {
	case FieldYear:
		return "year"
	case FieldTrackNumber:
		return "tracknumber"
	case FieldDiscNumber:
		return "discnumber"
	case FieldDuration:
		return "duration"
	default:
		return "unknown"
	}
}

const textFieldCount = 5
const numberFieldCount = 4

// KeySet is a set of song keys, the unit the inverted structures store
// and the search engine combines.
type KeySet map[SongKey]struct{}

func (s KeySet) clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// textValue pairs one distinct lowercased field value with the keys of
// all songs carrying it. Kept as a slice for substring scans.
type textValue struct {
	value string
	keys  KeySet
}

type textPostings struct {
	exact  map[string]KeySet
	values []textValue
}

type numberPostings struct {
	values *btree.Map[int, KeySet]
}

// Snapshot is an immutable, point-in-time view of the full catalogue:
// an ordered mapping from virtual path to record, plus per-field
// inverted structures built once at construction. A snapshot is created
// whole by a completed scan and never mutated after publication.
type Snapshot struct {
	id        uuid.UUID
	createdAt time.Time

	files     *btree.Map[string, CollectionFile]
	songCount int
	dirCount  int

	text    [textFieldCount]textPostings
	numbers [numberFieldCount]numberPostings
}

// EmptySnapshot returns a snapshot with no entries, the state of the
// index before the first scan completes.
func EmptySnapshot() *Snapshot {
	s, _ := NewBuilder().Build()
	return s
}

func (s *Snapshot) ID() uuid.UUID        { return s.id }
func (s *Snapshot) CreatedAt() time.Time { return s.createdAt }
func (s *Snapshot) Len() int             { return s.files.Len() }
func (s *Snapshot) SongCount() int       { return s.songCount }
func (s *Snapshot) DirectoryCount() int  { return s.dirCount }

// Lookup returns the record at the given canonical virtual path.
func (s *Snapshot) Lookup(virtualPath string) (CollectionFile, bool) {
	return s.files.Get(virtualPath)
}

// Roots returns the mount-level directories of the snapshot, sorted by
// virtual path.
func (s *Snapshot) Roots() []CollectionFile {
	var roots []CollectionFile
	s.files.Scan(func(path string, cf CollectionFile) bool {
		if !strings.Contains(path, "/") {
			roots = append(roots, cf)
		}
		return true
	})
	return roots
}

// Children returns the immediate children of a directory, sorted by
// virtual path. The caller is responsible for checking that the path
// names a directory.
func (s *Snapshot) Children(virtualPath string) []CollectionFile {
	prefix := virtualPath + "/"

	var children []CollectionFile
	s.files.Ascend(prefix, func(path string, cf CollectionFile) bool {
		if !strings.HasPrefix(path, prefix) {
			return false
		}
		if !strings.Contains(path[len(prefix):], "/") {
			children = append(children, cf)
		}
		return true
	})
	return children
}

// SongsUnder returns every song recursively below a directory, sorted
// by virtual path. The btree iterates in key order, which is exactly
// the depth-first path order the flatten operation promises.
func (s *Snapshot) SongsUnder(virtualPath string) []*Song {
	prefix := virtualPath + "/"

	var songs []*Song
	s.files.Ascend(prefix, func(path string, cf CollectionFile) bool {
		if !strings.HasPrefix(path, prefix) {
			return false
		}
		if song, ok := cf.(*Song); ok {
			songs = append(songs, song)
		}
		return true
	})
	return songs
}

// Walk visits every record in virtual path order until fn returns
// false. Used by persistence collaborators serializing the catalogue.
func (s *Snapshot) Walk(fn func(CollectionFile) bool) {
	s.files.Scan(func(_ string, cf CollectionFile) bool {
		return fn(cf)
	})
}

// TextEquals returns the keys of songs whose field equals value,
// case-insensitively.
func (s *Snapshot) TextEquals(f TextField, value string) KeySet {
	set, ok := s.text[f].exact[strings.ToLower(value)]
	if !ok {
		return KeySet{}
	}
	return set.clone()
}

// TextContains returns the keys of songs whose field contains value as
// a case-insensitive substring.
func (s *Snapshot) TextContains(f TextField, value string) KeySet {
	needle := strings.ToLower(value)
	out := KeySet{}
	for _, tv := range s.text[f].values {
		if strings.Contains(tv.value, needle) {
			for k := range tv.keys {
				out[k] = struct{}{}
			}
		}
	}
	return out
}

// FuzzyToken returns the keys of songs where any text field contains
// the token as a case-insensitive substring.
func (s *Snapshot) FuzzyToken(token string) KeySet {
	needle := strings.ToLower(token)
	out := KeySet{}
	for f := 0; f < textFieldCount; f++ {
		for _, tv := range s.text[f].values {
			if strings.Contains(tv.value, needle) {
				for k := range tv.keys {
					out[k] = struct{}{}
				}
			}
		}
	}
	return out
}

// NumberEquals returns the keys of songs whose field equals value.
func (s *Snapshot) NumberEquals(f NumberField, value int) KeySet {
	set, ok := s.numbers[f].values.Get(value)
	if !ok {
		return KeySet{}
	}
	return set.clone()
}

// NumberBelow returns the keys of songs whose field is less than value,
// or less than or equal when inclusive is set.
func (s *Snapshot) NumberBelow(f NumberField, value int, inclusive bool) KeySet {
	out := KeySet{}
	s.numbers[f].values.Scan(func(v int, keys KeySet) bool {
		if v > value || (v == value && !inclusive) {
			return false
		}
		for k := range keys {
			out[k] = struct{}{}
		}
		return true
	})
	return out
}

// NumberAbove returns the keys of songs whose field is greater than
// value, or greater than or equal when inclusive is set.
func (s *Snapshot) NumberAbove(f NumberField, value int, inclusive bool) KeySet {
	out := KeySet{}
	s.numbers[f].values.Reverse(func(v int, keys KeySet) bool {
		if v < value || (v == value && !inclusive) {
			return false
		}
		for k := range keys {
			out[k] = struct{}{}
		}
		return true
	})
	return out
}

// SortKeys resolves a key set into a deterministic, path-sorted slice.
func SortKeys(set KeySet) []SongKey {
	keys := make([]SongKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
