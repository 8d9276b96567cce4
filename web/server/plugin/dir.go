package plugin

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// Default filename filter for directory discovery. A file is considered a
// route plugin only if its name carries an allowed extension AND contains
// none of the exclusion markers; both conditions must hold.
var (
	DefaultExtensions = []string{".so"}
	DefaultExclude    = []string{".map", ".spec.", "_test"}
)

// Loader resolves the registration entry point of a plugin file. It reports
// ok=false when the file exposes no registrar; such files are skipped
// without error.
type Loader interface {
	Load(path string) (fn RegisterFunc, ok bool, err error)
}

// DirectorySource discovers route plugins in a directory. Filesystem access
// goes through the vfs abstraction so discovery is testable in memory, while
// actual loading is delegated to the Loader collaborator.
type DirectorySource struct {
	FS  vfs.FileSystem
	Dir string

	// Extensions is the filename extension allow-list.
	Extensions []string
	// Exclude lists filename markers that disqualify an entry.
	Exclude []string

	Loader Loader
}

// NewDirectorySource returns a DirectorySource with the default filename
// filter.
func NewDirectorySource(fs vfs.FileSystem, dir string, loader Loader) *DirectorySource {
	return &DirectorySource{
		FS:         fs,
		Dir:        dir,
		Extensions: DefaultExtensions,
		Exclude:    DefaultExclude,
		Loader:     loader,
	}
}

// Discover lists the directory and loads every entry that passes the
// filename filter and exposes a registrar.
func (s *DirectorySource) Discover() ([]Unit, error) {
	infos, err := vfs.ReadDir(s.FS, s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed reading routes directory %q: %w", s.Dir, err)
	}

	var units []Unit
	for _, fi := range infos {
		if fi.IsDir() || !s.keep(fi.Name()) {
			continue
		}

		fn, ok, err := s.Loader.Load(filepath.Join(s.Dir, fi.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed loading route plugin %q: %w", fi.Name(), err)
		}
		if !ok {
			// No registrar; not an error.
			continue
		}

		name := strings.TrimSuffix(fi.Name(), filepath.Ext(fi.Name()))
		units = append(units, Func(name, fn))
	}

	return units, nil
}

func (s *DirectorySource) keep(name string) bool {
	matched := false
	for _, ext := range s.Extensions {
		if strings.HasSuffix(name, ext) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, marker := range s.Exclude {
		if strings.Contains(name, marker) {
			return false
		}
	}
	return true
}
