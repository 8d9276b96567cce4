package plugin

import (
	"errors"
	"testing"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/gantry/web/server/route"
)

// fakeLoader resolves registrars without touching real shared objects.
type fakeLoader struct {
	// noRegistrar lists paths that load fine but expose no registrar.
	noRegistrar map[string]bool
	// failPath, if set, returns an error for that path.
	failPath string

	loaded []string
}

func (l *fakeLoader) Load(path string) (RegisterFunc, bool, error) {
	l.loaded = append(l.loaded, path)
	if path == l.failPath {
		return nil, false, errors.New("corrupt plugin")
	}
	if l.noRegistrar[path] {
		return nil, false, nil
	}
	return func(g *route.Group) error { return nil }, true, nil
}

func writeFiles(t *testing.T, fs vfs.FileSystem, dir string, names ...string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(dir, 0o755))
	for _, name := range names {
		require.NoError(t, vfs.WriteFile(fs, dir+"/"+name, []byte("x"), 0o644))
	}
}

func unitNames(units []Unit) []string {
	names := make([]string, 0, len(units))
	for _, u := range units {
		names = append(names, u.Name())
	}
	return names
}

func TestDirectorySourceDiscover(t *testing.T) {
	t.Parallel()

	fs := memoryfs.New()
	writeFiles(t, fs, "/routes",
		"users.so",
		"orders.handler.so",
		"users.spec.so", // exclusion marker
		"users_test.so", // exclusion marker
		"bundle.map",    // wrong extension
		"notes.txt",     // wrong extension
	)
	require.NoError(t, fs.MkdirAll("/routes/subdir.so", 0o755))

	loader := &fakeLoader{}
	src := NewDirectorySource(fs, "/routes", loader)

	units, err := src.Discover()
	require.NoError(t, err)

	// Only files carrying an allowed extension and none of the exclusion
	// markers are loaded; directories are skipped outright.
	assert.ElementsMatch(t, []string{"users", "orders.handler"}, unitNames(units))
	assert.ElementsMatch(t,
		[]string{"/routes/users.so", "/routes/orders.handler.so"}, loader.loaded)
}

func TestDirectorySourceSkipsWithoutRegistrar(t *testing.T) {
	t.Parallel()

	fs := memoryfs.New()
	writeFiles(t, fs, "/routes", "a.so", "b.so")

	loader := &fakeLoader{noRegistrar: map[string]bool{"/routes/b.so": true}}
	src := NewDirectorySource(fs, "/routes", loader)

	units, err := src.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, unitNames(units))
}

func TestDirectorySourceLoadError(t *testing.T) {
	t.Parallel()

	fs := memoryfs.New()
	writeFiles(t, fs, "/routes", "bad.so")

	loader := &fakeLoader{failPath: "/routes/bad.so"}
	src := NewDirectorySource(fs, "/routes", loader)

	_, err := src.Discover()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.so")
}

func TestDirectorySourceMissingDir(t *testing.T) {
	t.Parallel()

	src := NewDirectorySource(memoryfs.New(), "/nope", &fakeLoader{})
	_, err := src.Discover()
	assert.Error(t, err)
}

func TestDirectorySourceCustomFilter(t *testing.T) {
	t.Parallel()

	fs := memoryfs.New()
	writeFiles(t, fs, "/routes", "a.plugin", "a.so", "skipme.plugin")

	src := NewDirectorySource(fs, "/routes", &fakeLoader{})
	src.Extensions = []string{".plugin"}
	src.Exclude = []string{"skip"}

	units, err := src.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, unitNames(units))
}

func TestStaticSource(t *testing.T) {
	t.Parallel()

	registered := 0
	unit := Func("compiled-in", func(g *route.Group) error {
		registered++
		return nil
	})

	units, err := Static(unit).Discover()
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "compiled-in", units[0].Name())

	require.NoError(t, units[0].Register(nil))
	assert.Equal(t, 1, registered)
}
