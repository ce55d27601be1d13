// Package tags implements the scanner's tag-reading collaborator on
// top of dhowden/tag, which covers ID3v1/v2, vorbis comments and MP4
// atoms without decoding audio frames.
package tags

import (
	"context"
	"fmt"
	"os"

	"github.com/dhowden/tag"

	"github.com/tonearm/tonearm/scanner"
)

type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// ReadTags extracts metadata from the audio file at realPath. Fields
// the container does not carry stay nil; dhowden/tag exposes no
// duration, so Duration is always nil here.
func (r *Reader) ReadTags(ctx context.Context, realPath string) (*scanner.Tags, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(realPath)
	if err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("tags: %s: %w", realPath, err)
	}

	out := &scanner.Tags{
		Title:       optString(m.Title()),
		Artist:      optString(m.Artist()),
		AlbumArtist: optString(m.AlbumArtist()),
		Album:       optString(m.Album()),
		Year:        optInt(m.Year()),
	}

	if track, _ := m.Track(); track > 0 {
		out.TrackNumber = &track
	}
	if disc, _ := m.Disc(); disc > 0 {
		out.DiscNumber = &disc
	}

	return out, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optInt(i int) *int {
	if i <= 0 {
		return nil
	}
	return &i
}
