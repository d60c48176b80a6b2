package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/broady/rpcontract/gen"
)

// SourceFlags select what to analyze. With --config the file supplies
// defaults and flags given on the command line override it.
type SourceFlags struct {
	Config      string   `help:"YAML configuration file." short:"c" type:"existingfile"`
	Packages    []string `arg:"" optional:"" help:"Go package patterns containing //rpc:factory interfaces."`
	Dir         string   `help:"Directory package patterns are resolved from."`
	Properties  string   `help:"YAML property oracle file." type:"existingfile"`
	PackageName string   `help:"Package clause of the generated files." name:"package-name"`
}

func (s *SourceFlags) load(out string) (gen.Config, error) {
	cfg := gen.DefaultConfig()
	if s.Config != "" {
		loaded, err := gen.LoadConfig(s.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if out != "" {
		abs, err := filepath.Abs(out)
		if err != nil {
			return cfg, fmt.Errorf("resolve output path: %w", err)
		}
		cfg.OutDir = abs
	}
	if len(s.Packages) > 0 {
		cfg.Packages = s.Packages
	}
	if s.Dir != "" {
		cfg.Dir = s.Dir
	}
	if s.Properties != "" {
		cfg.Properties = s.Properties
	}
	if s.PackageName != "" {
		cfg.PackageName = s.PackageName
	}
	if cfg.Provider != gen.ProviderSource {
		return cfg, fmt.Errorf("provider %q needs factory types compiled in; call gen.FromFactories from a Go program", cfg.Provider)
	}
	return cfg, nil
}

// watchDirs is the directory package patterns resolve from, plus the
// config file's directory.
func watchDirs(cfg gen.Config, configPath string) []string {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	dirs := []string{dir}
	if configPath != "" {
		dirs = append(dirs, filepath.Dir(configPath))
	}
	return dirs
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type GenCmd struct {
	Out         string `help:"Output directory for generated files. Defaults to outDir from --config." short:"o"`
	NoDiscovery bool   `help:"Do not write discovery.json." name:"no-discovery"`
	NoOverwrite bool   `help:"Fail instead of replacing existing files." name:"no-overwrite"`
	Watch       bool   `help:"Watch for changes and regenerate." short:"w"`

	SourceFlags `embed:""`
}

func (c *GenCmd) Run(logger *slog.Logger) error {
	cfg, err := c.load(c.Out)
	if err != nil {
		return err
	}
	if c.NoDiscovery {
		cfg.Discovery = false
	}
	if c.NoOverwrite {
		cfg.Overwrite = false
	}

	g := gen.FromConfig(cfg).Logger(logger)
	if !c.Watch {
		_, err := g.Run(context.Background())
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	logger.Info("watching for changes", slog.Any("dirs", watchDirs(cfg, c.Config)))
	return g.Watch(ctx, gen.WatchOptions{Dirs: watchDirs(cfg, c.Config)})
}
