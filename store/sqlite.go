// Package store persists the last published snapshot to SQLite so a
// restarted process can serve the catalogue before its first scan
// completes. The cache is an optimization only: a full rescan always
// remains the recovery strategy of record.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/tonearm/tonearm/index"
)

var ErrEmptyCache = errors.New("store: no cached snapshot")

// SnapshotStore caches one snapshot in a SQLite database. Loaded
// snapshots are rebuilt through the index builder, so they satisfy the
// same invariants as scanner-built ones before publication.
type SnapshotStore struct {
	db *sql.DB
}

// Open creates or opens the cache database. dbPath may be ":memory:".
func Open(dbPath string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	// WAL keeps cache writes from stalling a concurrent reader
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: %w", err)
	}

	s := &SnapshotStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: %w", err)
	}

	return s, nil
}

func (s *SnapshotStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalogue_directories (
		virtual_path TEXT PRIMARY KEY,
		parent_virtual_path TEXT,
		artist TEXT,
		album TEXT,
		year INTEGER,
		artwork_virtual_path TEXT,
		date_added INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS catalogue_songs (
		virtual_path TEXT PRIMARY KEY,
		title TEXT,
		artist TEXT,
		album_artist TEXT,
		album TEXT,
		year INTEGER,
		track_number INTEGER,
		disc_number INTEGER,
		duration INTEGER,
		artwork_virtual_path TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save replaces the cached snapshot with snap in one transaction.
func (s *SnapshotStore) Save(ctx context.Context, snap *index.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM catalogue_directories"); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM catalogue_songs"); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	dirStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalogue_directories
		(virtual_path, parent_virtual_path, artist, album, year, artwork_virtual_path, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer dirStmt.Close()

	songStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalogue_songs
		(virtual_path, title, artist, album_artist, album, year, track_number, disc_number, duration, artwork_virtual_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer songStmt.Close()

	var walkErr error
	snap.Walk(func(cf index.CollectionFile) bool {
		switch v := cf.(type) {
		case *index.Directory:
			_, walkErr = dirStmt.ExecContext(ctx,
				v.VirtualPath, nullString(v.ParentVirtualPath),
				nullString(v.Artist), nullString(v.Album), nullInt(v.Year),
				nullString(v.ArtworkVirtualPath), v.DateAdded.Unix())
		case *index.Song:
			_, walkErr = songStmt.ExecContext(ctx,
				v.VirtualPath, nullString(v.Title), nullString(v.Artist),
				nullString(v.AlbumArtist), nullString(v.Album), nullInt(v.Year),
				nullInt(v.TrackNumber), nullInt(v.DiscNumber), nullInt(v.Duration),
				nullString(v.ArtworkVirtualPath))
		}
		return walkErr == nil
	})
	if walkErr != nil {
		return fmt.Errorf("store: %w", walkErr)
	}

	return tx.Commit()
}

// Load rebuilds the cached snapshot through the index builder so every
// catalogue invariant is re-checked before the caller publishes it.
// Returns ErrEmptyCache if nothing was ever saved.
func (s *SnapshotStore) Load(ctx context.Context) (*index.Snapshot, error) {
	builder := index.NewBuilder()

	dirRows, err := s.db.QueryContext(ctx, `
		SELECT virtual_path, parent_virtual_path, artist, album, year, artwork_virtual_path, date_added
		FROM catalogue_directories`)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer dirRows.Close()

	for dirRows.Next() {
		var d index.Directory
		var parent, artist, album, artwork sql.NullString
		var year sql.NullInt64
		var dateAdded int64

		if err := dirRows.Scan(&d.VirtualPath, &parent, &artist, &album, &year, &artwork, &dateAdded); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}

		d.ParentVirtualPath = optString(parent)
		d.Artist = optString(artist)
		d.Album = optString(album)
		d.Year = optInt(year)
		d.ArtworkVirtualPath = optString(artwork)
		d.DateAdded = time.Unix(dateAdded, 0)

		if err := builder.AddDirectory(&d); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	if err := dirRows.Err(); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	songRows, err := s.db.QueryContext(ctx, `
		SELECT virtual_path, title, artist, album_artist, album, year, track_number, disc_number, duration, artwork_virtual_path
		FROM catalogue_songs`)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer songRows.Close()

	for songRows.Next() {
		var song index.Song
		var title, artist, albumArtist, album, artwork sql.NullString
		var year, track, disc, duration sql.NullInt64

		if err := songRows.Scan(&song.VirtualPath, &title, &artist, &albumArtist, &album,
			&year, &track, &disc, &duration, &artwork); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}

		song.Key = index.SongKey(song.VirtualPath)
		song.Title = optString(title)
		song.Artist = optString(artist)
		song.AlbumArtist = optString(albumArtist)
		song.Album = optString(album)
		song.Year = optInt(year)
		song.TrackNumber = optInt(track)
		song.DiscNumber = optInt(disc)
		song.Duration = optInt(duration)
		song.ArtworkVirtualPath = optString(artwork)

		if err := builder.AddSong(&song); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	if err := songRows.Err(); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	if builder.Len() == 0 {
		return nil, ErrEmptyCache
	}

	snap, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("store: invalid cached snapshot: %w", err)
	}

	return snap, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func optString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func optInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
