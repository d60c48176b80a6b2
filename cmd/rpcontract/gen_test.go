package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/broady/rpcontract/gen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceFlags_Defaults(t *testing.T) {
	s := &SourceFlags{Packages: []string{"./api"}, PackageName: "api"}
	cfg, err := s.load("out")
	require.NoError(t, err)

	abs, _ := filepath.Abs("out")
	assert.Equal(t, abs, cfg.OutDir)
	assert.Equal(t, []string{"./api"}, cfg.Packages)
	assert.Equal(t, "api", cfg.PackageName)
	assert.True(t, cfg.Discovery)
}

func TestSourceFlags_ConfigOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rpcontract.yaml")
	require.NoError(t, os.WriteFile(path, []byte("outDir: gen\npackages: [./api]\npackageName: api\n"), 0644))

	cfg, err := (&SourceFlags{Config: path}).load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gen"), cfg.OutDir)
	assert.Equal(t, []string{"./api"}, cfg.Packages)

	cfg, err = (&SourceFlags{Config: path, Packages: []string{"./other"}, PackageName: "other"}).load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"./other"}, cfg.Packages)
	assert.Equal(t, "other", cfg.PackageName)
}

func TestSourceFlags_ReflectionProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rpcontract.yaml")
	require.NoError(t, os.WriteFile(path, []byte("outDir: gen\nprovider: reflection\n"), 0644))

	_, err := (&SourceFlags{Config: path}).load("")
	assert.ErrorContains(t, err, "FromFactories")
}

func TestWatchDirs(t *testing.T) {
	assert.Equal(t, []string{"."}, watchDirs(gen.Config{}, ""))
	assert.Equal(t, []string{"/src", "/etc/rpc"}, watchDirs(gen.Config{Dir: "/src"}, "/etc/rpc/rpcontract.yaml"))
}
