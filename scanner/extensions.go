package scanner

import (
	"path"
	"strings"
)

// The extension sets are deliberately small and explicit: everything
// not listed here is invisible to the catalogue.
var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".flac": {},
	".ogg":  {},
	".opus": {},
	".m4a":  {},
	".aac":  {},
	".wav":  {},
	".ape":  {},
	".wv":   {},
	".mpc":  {},
	".aiff": {},
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".webp": {},
}

// Basenames conventionally used for folder artwork, in preference order.
var artworkBasenames = []string{"folder", "cover", "front", "artwork"}

func isAudioName(name string) bool {
	_, ok := audioExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

func isImageName(name string) bool {
	_, ok := imageExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// pickArtwork selects the directory artwork among the image names found
// in a directory: a conventional basename if present, the first image
// otherwise. Names arrive in directory order, which os.ReadDir sorts.
func pickArtwork(imageNames []string) string {
	if len(imageNames) == 0 {
		return ""
	}

	for _, preferred := range artworkBasenames {
		for _, name := range imageNames {
			base := strings.TrimSuffix(name, path.Ext(name))
			if strings.EqualFold(base, preferred) {
				return name
			}
		}
	}

	return imageNames[0]
}
