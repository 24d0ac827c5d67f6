// Package provider implements §4.A: read-only, path-keyed access to either
// a rooted directory tree or a GameCube/Wii disc image. It is grounded in
// asset_manager.py's FileProvider/PathFileProvider/IsoFileProvider classes
// and, for the disc header, on the GameCube disc parsing in
// sargunv-screenscraper-go's lib/format/gamecube package.
package provider

import (
	"io"
	"path/filepath"
)

// FileProvider is read-only, path-keyed access to a game's files, whether
// they live in an extracted directory tree or inside a disc image.
type FileProvider interface {
	// IsFile reports whether name names a regular file.
	IsFile(name string) bool

	// Rglob returns every file path matching the glob pattern, relative to
	// the provider's root.
	Rglob(pattern string) ([]string, error)

	// OpenBinary opens name for reading. The caller must close it.
	OpenBinary(name string) (io.ReadCloser, error)

	// GetDOL returns the raw bytes of the game's executable (sys/main.dol).
	GetDOL() ([]byte, error)
}

// matchGlob reports whether name matches a shell glob pattern. The pattern
// is applied to the final path element only, so "*.pak" matches PAKs in
// any subdirectory; patterns containing a directory part never match.
func matchGlob(pattern, name string) bool {
	ok, err := filepath.Match(pattern, filepath.Base(name))
	if err != nil {
		return false
	}
	return ok
}
