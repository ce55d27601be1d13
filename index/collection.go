package index

import "time"

// SongKey is the stable identity of a song within and across snapshots.
// It is the song's canonical virtual path, which makes it comparable,
// sortable and survivable across rescans of an unchanged file.
type SongKey string

// Song is an audio file in the catalogue. Optional metadata fields are
// nil when tag extraction yielded nothing; a nil field never matches any
// search comparison on that field.
type Song struct {
	Key         SongKey
	VirtualPath string

	Title       *string
	Artist      *string
	AlbumArtist *string
	Album       *string
	Year        *int
	TrackNumber *int
	DiscNumber  *int
	// Duration in whole seconds.
	Duration *int

	ArtworkVirtualPath *string
}

// Directory is a folder in the catalogue. Mount roots have a nil parent.
// Album metadata is derived from the songs the directory contains.
type Directory struct {
	VirtualPath       string
	ParentVirtualPath *string

	Artist *string
	Album  *string
	Year   *int

	ArtworkVirtualPath *string

	// DateAdded is set at first observation and preserved across
	// rescans for directories that already existed.
	DateAdded time.Time
}

// CollectionFile is the closed sum over the two catalogue record shapes.
// Only *Song and *Directory implement it; consumers switch exhaustively
// on those two types.
type CollectionFile interface {
	// Path returns the record's canonical virtual path.
	Path() string

	collectionFile()
}

func (s *Song) Path() string      { return s.VirtualPath }
func (d *Directory) Path() string { return d.VirtualPath }

func (*Song) collectionFile()      {}
func (*Directory) collectionFile() {}
