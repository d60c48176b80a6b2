package resources

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/broady/rpcontract"
	"github.com/broady/rpcontract/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type class struct {
	pkg, name string
	shape     string
	supers    []model.Class
}

func (c class) Name() string                { return c.name }
func (c class) PackageName() string         { return c.pkg }
func (c class) QualifiedSourceName() string { return c.pkg + "." + c.name }
func (c class) HasMarker(model.Marker) bool { return false }
func (c class) Supertypes() []model.Class   { return c.supers }
func (c class) Structure() string           { return c.shape }

func testOracle() *PropertyOracle {
	return &PropertyOracle{
		Binding: map[string][]string{
			"user.agent": {"safari", "gecko1_8"},
		},
		Configuration: map[string][]string{
			"rpc.endpoint": {"/gwtRequest"},
			"locale":       {"en"},
		},
	}
}

func TestCollector_AddConfigurationProperty(t *testing.T) {
	c := NewCollector(testOracle())
	require.NoError(t, c.AddConfigurationProperty("rpc.endpoint"))

	err := c.AddConfigurationProperty("user.agent")
	require.Error(t, err, "binding properties are not configuration properties")
	assert.ErrorIs(t, err, rpcontract.ErrBadPropertyValue)

	var bad *BadPropertyValueError
	require.True(t, errors.As(err, &bad))
	assert.Equal(t, "user.agent", bad.Property)
	assert.Equal(t, []string{"rpc.endpoint"}, c.ConfigurationProperties())
}

func TestCollector_AddPermutationAxis(t *testing.T) {
	c := NewCollector(testOracle())

	require.NoError(t, c.AddPermutationAxis("user.agent"))
	// Falls back to the configuration namespace.
	require.NoError(t, c.AddPermutationAxis("locale"))

	err := c.AddPermutationAxis("missing.property")
	assert.ErrorIs(t, err, rpcontract.ErrBadPropertyValue)
	assert.Contains(t, err.Error(), "missing.property")
	assert.Contains(t, err.Error(), "binding or configuration")

	assert.Equal(t, []string{"user.agent"}, c.PermutationAxes())
	assert.Equal(t, []string{"locale"}, c.ConfigurationProperties())
}

func TestCollector_NilOracle(t *testing.T) {
	c := NewCollector(nil)
	assert.ErrorIs(t, c.AddPermutationAxis("user.agent"), rpcontract.ErrBadPropertyValue)
	assert.ErrorIs(t, c.AddConfigurationProperty("locale"), rpcontract.ErrBadPropertyValue)
}

func TestCollector_AddTypeHierarchy(t *testing.T) {
	base := class{pkg: "com.example", name: "BaseContext", shape: "fire()"}
	mid := class{pkg: "com.example", name: "MidContext", supers: []model.Class{base}}
	// Diamond: both paths reach base.
	leaf := class{pkg: "com.example", name: "TodoContext", supers: []model.Class{mid, base}}

	c := NewCollector(nil)
	c.AddTypeHierarchy(leaf)
	c.AddTypeHierarchy(nil)

	assert.Equal(t, []string{
		"com.example.BaseContext",
		"com.example.MidContext",
		"com.example.TodoContext",
	}, c.Types())
}

func TestCollector_Key(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todo.css")
	require.NoError(t, os.WriteFile(path, []byte(".done{}"), 0644))

	build := func() *Collector {
		c := NewCollector(testOracle())
		require.NoError(t, c.AddPermutationAxis("user.agent"))
		c.AddResolvedResource("todo.css", FileURL(path))
		c.AddResolvedResource("logo.png", &url.URL{Scheme: "https", Host: "cdn.example.com", Path: "/logo.png"})
		c.AddTypeHierarchy(class{pkg: "com.example", name: "TodoContext", shape: "list()"})
		return c
	}

	k1, err := build().Key()
	require.NoError(t, err)
	k2, err := build().Key()
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "key must be deterministic")
	assert.Len(t, k1, 64)

	require.NoError(t, os.WriteFile(path, []byte(".done{color:red}"), 0644))
	k3, err := build().Key()
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3, "content change must change the key")

	require.NoError(t, os.Remove(path))
	k4, err := build().Key()
	require.NoError(t, err)
	assert.NotEqual(t, k3, k4, "removal must change the key")

	c := build()
	c.AddTypeHierarchy(class{pkg: "com.example", name: "UserContext"})
	k5, err := c.Key()
	require.NoError(t, err)
	assert.NotEqual(t, k4, k5)
}

func TestCollector_Files(t *testing.T) {
	c := NewCollector(nil)
	c.AddResolvedResource("b.go", FileURL("/src/api/b.go"))
	c.AddResolvedResource("a.go", FileURL("/src/api/a.go"))
	c.AddResolvedResource("logo.png", &url.URL{Scheme: "https", Host: "cdn.example.com", Path: "/logo.png"})
	c.AddResolvedResource("missing.go", nil)

	assert.Equal(t, []string{"/src/api/a.go", "/src/api/b.go"}, c.Files())
}

func TestParseOracle(t *testing.T) {
	o, err := ParseOracle([]byte(`
binding:
  user.agent: [safari, gecko1_8]
configuration:
  rpc.endpoint: [/gwtRequest]
`))
	require.NoError(t, err)

	v, ok := o.BindingValues("user.agent")
	require.True(t, ok)
	assert.Equal(t, []string{"safari", "gecko1_8"}, v)

	v[0] = "mutated"
	again, _ := o.BindingValues("user.agent")
	assert.Equal(t, "safari", again[0])

	_, ok = o.ConfigurationValues("user.agent")
	assert.False(t, ok)

	_, err = ParseOracle([]byte("bindings:\n  x: [y]\n"))
	assert.ErrorContains(t, err, `unknown key "bindings"`)

	empty, err := ParseOracle(nil)
	require.NoError(t, err)
	_, ok = empty.BindingValues("user.agent")
	assert.False(t, ok)
}

func TestLoadOracle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "properties.yaml")
	require.NoError(t, os.WriteFile(path, []byte("configuration:\n  locale: [en, fr]\n"), 0644))

	o, err := LoadOracle(path)
	require.NoError(t, err)
	v, ok := o.ConfigurationValues("locale")
	require.True(t, ok)
	assert.Equal(t, []string{"en", "fr"}, v)

	_, err = LoadOracle(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
