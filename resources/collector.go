package resources

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/broady/rpcontract/model"
)

// Structured is implemented by classes that can describe their own shape,
// such as a method set. The description is folded into Collector.Key so
// that structural edits change the key.
type Structured interface {
	Structure() string
}

// Collector is a Requirements that records every declaration and can
// reduce them to a cache key. The zero value is not usable; call
// NewCollector.
type Collector struct {
	oracle    *PropertyOracle
	config    map[string][]string
	axes      map[string][]string
	resources map[string]*url.URL
	types     map[string]string
}

var _ Requirements = (*Collector)(nil)

// NewCollector returns a Collector resolving properties against oracle.
// A nil oracle knows no properties.
func NewCollector(oracle *PropertyOracle) *Collector {
	return &Collector{
		oracle:    oracle,
		config:    make(map[string][]string),
		axes:      make(map[string][]string),
		resources: make(map[string]*url.URL),
		types:     make(map[string]string),
	}
}

// AddConfigurationProperty implements Requirements.
func (c *Collector) AddConfigurationProperty(name string) error {
	values, ok := c.oracle.ConfigurationValues(name)
	if !ok {
		return &BadPropertyValueError{Property: name, Namespace: "configuration"}
	}
	c.config[name] = values
	return nil
}

// AddPermutationAxis implements Requirements.
func (c *Collector) AddPermutationAxis(name string) error {
	if values, ok := c.oracle.BindingValues(name); ok {
		c.axes[name] = values
		return nil
	}
	if err := c.AddConfigurationProperty(name); err != nil {
		var bad *BadPropertyValueError
		if errors.As(err, &bad) {
			bad.Namespace = "binding or configuration"
		}
		return err
	}
	return nil
}

// AddResolvedResource implements Requirements. A later call for the same
// partialPath replaces the earlier resolution.
func (c *Collector) AddResolvedResource(partialPath string, resolved *url.URL) {
	c.resources[partialPath] = resolved
}

// AddTypeHierarchy implements Requirements.
func (c *Collector) AddTypeHierarchy(class model.Class) {
	if class == nil {
		return
	}
	name := class.QualifiedSourceName()
	if _, seen := c.types[name]; seen {
		return
	}
	var shape string
	if s, ok := class.(Structured); ok {
		shape = s.Structure()
	}
	c.types[name] = shape
	if h, ok := class.(Hierarchical); ok {
		for _, super := range h.Supertypes() {
			c.AddTypeHierarchy(super)
		}
	}
}

// ConfigurationProperties returns the recorded configuration properties,
// sorted.
func (c *Collector) ConfigurationProperties() []string {
	return slices.Sorted(maps.Keys(c.config))
}

// PermutationAxes returns the recorded deferred-binding properties, sorted.
func (c *Collector) PermutationAxes() []string {
	return slices.Sorted(maps.Keys(c.axes))
}

// Resources returns the recorded partial paths, sorted.
func (c *Collector) Resources() []string {
	return slices.Sorted(maps.Keys(c.resources))
}

// Files returns the local paths of every resource resolved to a file: URL,
// sorted.
func (c *Collector) Files() []string {
	var out []string
	for _, p := range c.Resources() {
		if u := c.resources[p]; u != nil && u.Scheme == "file" {
			out = append(out, u.Path)
		}
	}
	return out
}

// Types returns the qualified names of every recorded type, sorted.
func (c *Collector) Types() []string {
	return slices.Sorted(maps.Keys(c.types))
}

// Key digests every recorded requirement into a hex string. The content of
// file: URLs is read and included; a missing file digests as absent rather
// than failing, so deleting a dependency changes the key.
func (c *Collector) Key() (string, error) {
	var b strings.Builder
	for _, name := range c.PermutationAxes() {
		fmt.Fprintf(&b, "axis %s=%s\n", name, strings.Join(c.axes[name], ","))
	}
	for _, name := range c.ConfigurationProperties() {
		fmt.Fprintf(&b, "config %s=%s\n", name, strings.Join(c.config[name], ","))
	}
	for _, p := range c.Resources() {
		u := c.resources[p]
		if u == nil {
			fmt.Fprintf(&b, "resource %s unresolved\n", p)
			continue
		}
		sum, err := contentSum(u)
		if err != nil {
			return "", fmt.Errorf("resource %s: %w", p, err)
		}
		fmt.Fprintf(&b, "resource %s %s %s\n", p, u, sum)
	}
	for _, name := range c.Types() {
		fmt.Fprintf(&b, "type %s %s\n", name, c.types[name])
	}
	digest := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(digest[:]), nil
}

func contentSum(u *url.URL) (string, error) {
	if u.Scheme != "file" {
		return "-", nil
	}
	data, err := os.ReadFile(u.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "absent", nil
	}
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FileURL returns the file: URL for an absolute path.
func FileURL(path string) *url.URL {
	return &url.URL{Scheme: "file", Path: path}
}
