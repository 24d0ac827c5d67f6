package provider

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// PathProvider serves files out of a directory tree rooted at Root,
// mirroring PathFileProvider in asset_manager.py.
type PathProvider struct {
	Root string
}

// NewPathProvider returns a PathProvider rooted at root. It fails if root
// is not a directory.
func NewPathProvider(root string) (*PathProvider, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "provider: stat %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("provider: %s is not a directory", root)
	}
	return &PathProvider{Root: root}, nil
}

func (p *PathProvider) IsFile(name string) bool {
	info, err := os.Stat(filepath.Join(p.Root, name))
	return err == nil && !info.IsDir()
}

func (p *PathProvider) Rglob(pattern string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(p.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.Root, path)
		if err != nil {
			return err
		}
		if matchGlob(pattern, rel) {
			matches = append(matches, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "provider: rglob %s", pattern)
	}
	return matches, nil
}

func (p *PathProvider) OpenBinary(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(p.Root, name))
	if err != nil {
		return nil, errors.Wrapf(err, "provider: open %s", name)
	}
	return f, nil
}

func (p *PathProvider) GetDOL() ([]byte, error) {
	r, err := p.OpenBinary("sys/main.dol")
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
