// Package gen runs the contract pipeline: discover factories with a
// provider, validate the model, emit Go proxies and write them to a sink.
package gen

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/broady/rpcontract"
	"github.com/broady/rpcontract/emit"
	"github.com/broady/rpcontract/model"
	"github.com/broady/rpcontract/provider"
	"github.com/broady/rpcontract/resources"
)

// Generator provides a fluent API for code generation.
// Create with FromPackages, FromFactories or FromConfig and configure
// with method chaining.
//
// Example:
//
//	gen.FromPackages("github.com/acme/shop/api").
//	    PackageName("api").
//	    ToDir(ctx, "./api")
type Generator struct {
	cfg       Config
	factories []reflect.Type
	logger    *slog.Logger
	sink      emit.Sink
	skipKey   string
}

// Result describes one generation pass.
type Result struct {
	// Schema is the discovered model.
	Schema *model.Schema

	// Files are the emitted files. Empty when Unchanged is set.
	Files []emit.File

	// Key digests every input the output depends on.
	Key string

	// Sources are the local files the key was computed from.
	Sources []string

	// Unchanged reports that Key matched the key given to SkipIfUnchanged
	// and nothing was written.
	Unchanged bool
}

// FromPackages creates a Generator that analyzes the given Go packages
// with the source provider.
func FromPackages(pkgs ...string) *Generator {
	cfg := DefaultConfig()
	cfg.Packages = pkgs
	return &Generator{cfg: cfg}
}

// FromFactories creates a Generator that walks factory interface types
// with the reflection provider.
//
// Example:
//
//	gen.FromFactories(reflect.TypeFor[api.AppFactory]()).ToDir(ctx, "./api")
func FromFactories(types ...reflect.Type) *Generator {
	cfg := DefaultConfig()
	cfg.Provider = ProviderReflection
	return &Generator{cfg: cfg, factories: types}
}

// FromConfig creates a Generator from a loaded configuration.
func FromConfig(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

// Config returns a copy of the current configuration.
func (g *Generator) Config() Config { return g.cfg }

// OutDir sets the output directory.
func (g *Generator) OutDir(dir string) *Generator {
	g.cfg.OutDir = dir
	return g
}

// Dir sets the directory package patterns are resolved from.
func (g *Generator) Dir(dir string) *Generator {
	g.cfg.Dir = dir
	return g
}

// PackageName overrides the package clause of the generated files.
func (g *Generator) PackageName(name string) *Generator {
	g.cfg.PackageName = name
	return g
}

// WithDiscovery enables discovery.json output.
func (g *Generator) WithDiscovery() *Generator {
	g.cfg.Discovery = true
	return g
}

// WithoutDiscovery disables discovery.json output.
func (g *Generator) WithoutDiscovery() *Generator {
	g.cfg.Discovery = false
	return g
}

// Overwrite controls whether existing files are replaced.
func (g *Generator) Overwrite(ok bool) *Generator {
	g.cfg.Overwrite = ok
	return g
}

// Properties sets the property oracle file.
func (g *Generator) Properties(path string) *Generator {
	g.cfg.Properties = path
	return g
}

// ConfigurationProperty declares sensitivity to configuration properties.
func (g *Generator) ConfigurationProperty(names ...string) *Generator {
	g.cfg.ConfigurationProperties = append(g.cfg.ConfigurationProperties, names...)
	return g
}

// PermutationAxis declares deferred-binding properties the output varies
// along.
func (g *Generator) PermutationAxis(names ...string) *Generator {
	g.cfg.PermutationAxes = append(g.cfg.PermutationAxes, names...)
	return g
}

// Logger sets the logger. The default is slog.Default().
func (g *Generator) Logger(l *slog.Logger) *Generator {
	g.logger = l
	return g
}

// ToSink writes output to s instead of a directory sink for OutDir.
func (g *Generator) ToSink(s emit.Sink) *Generator {
	g.sink = s
	return g
}

// SkipIfUnchanged makes Run write nothing when the input key equals key.
func (g *Generator) SkipIfUnchanged(key string) *Generator {
	g.skipKey = key
	return g
}

// ToDir sets OutDir and runs the generator.
// This is a terminal operation that writes files to disk.
func (g *Generator) ToDir(ctx context.Context, dir string) (*Result, error) {
	g.cfg.OutDir = dir
	return g.Run(ctx)
}

// Generate runs the generator into memory without writing to disk.
// The Generator itself is left unchanged.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	return g.run(ctx, g.scratchConfig(), emit.NewMemorySink())
}

// Check discovers and validates the model without emitting anything.
func (g *Generator) Check(ctx context.Context) (*model.Schema, error) {
	schema, _, err := g.discover(ctx, g.scratchConfig())
	return schema, err
}

// Run discovers the model, validates it, emits code and writes it.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	return g.run(ctx, g.cfg, g.sink)
}

// scratchConfig returns the configuration for runs that write nothing to
// disk, where OutDir only names the output in logs.
func (g *Generator) scratchConfig() Config {
	cfg := g.cfg
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	return cfg
}

func (g *Generator) run(ctx context.Context, cfg Config, sink emit.Sink) (*Result, error) {
	logger := g.log()
	start := time.Now()

	schema, collector, err := g.discover(ctx, cfg)
	if err != nil {
		return nil, err
	}

	key, err := collector.Key()
	if err != nil {
		return nil, fmt.Errorf("compute input key: %w", err)
	}
	res := &Result{Schema: schema, Key: key, Sources: collector.Files()}
	if g.skipKey != "" && key == g.skipKey {
		logger.InfoContext(ctx, "contracts unchanged", slog.String("key", key))
		res.Unchanged = true
		return res, nil
	}

	files, err := emit.Emit(schema, emit.Options{
		PackageName: cfg.PackageName,
		Discovery:   cfg.Discovery,
		Key:         key,
	})
	if err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}

	if sink == nil {
		sink = &emit.DirSink{Root: cfg.OutDir, Mode: 0644, Overwrite: cfg.Overwrite}
	}
	if err := emit.WriteAll(ctx, sink, files); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	res.Files = files

	logger.InfoContext(ctx, "contracts generated",
		slog.String("out", cfg.OutDir),
		slog.Int("factories", len(schema.Factories)),
		slog.Int("files", len(files)),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// discover validates the configuration, declares the configured
// requirements and builds a validated schema.
func (g *Generator) discover(ctx context.Context, cfg Config) (*model.Schema, *resources.Collector, error) {
	logger := g.log()

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	var oracle *resources.PropertyOracle
	if cfg.Properties != "" {
		o, err := resources.LoadOracle(cfg.Properties)
		if err != nil {
			return nil, nil, err
		}
		oracle = o
	}
	collector := resources.NewCollector(oracle)
	for _, name := range cfg.ConfigurationProperties {
		if err := collector.AddConfigurationProperty(name); err != nil {
			return nil, nil, err
		}
	}
	for _, name := range cfg.PermutationAxes {
		if err := collector.AddPermutationAxis(name); err != nil {
			return nil, nil, err
		}
	}

	var schema *model.Schema
	var err error
	switch cfg.Provider {
	case ProviderSource:
		p := &provider.SourceProvider{}
		schema, err = p.BuildSchema(ctx, provider.SourceInputOptions{
			Packages:     cfg.Packages,
			Dir:          cfg.Dir,
			Requirements: collector,
		})
	case ProviderReflection:
		if len(g.factories) == 0 {
			return nil, nil, rpcontract.NewError(rpcontract.CodeInvalidArgument,
				"reflection provider needs factory types; use FromFactories")
		}
		p := &provider.ReflectionProvider{}
		schema, err = p.BuildSchema(ctx, provider.ReflectionInputOptions{
			Factories:    g.factories,
			Requirements: collector,
		})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build schema: %w", err)
	}

	for _, w := range schema.Warnings {
		logger.WarnContext(ctx, w.Message,
			slog.String("code", w.Code),
			slog.String("position", w.Position),
		)
	}
	if err := schema.Err(); err != nil {
		return schema, nil, fmt.Errorf("invalid model: %w", err)
	}
	return schema, collector, nil
}

func (g *Generator) log() *slog.Logger {
	if g.logger == nil {
		return slog.Default()
	}
	return g.logger
}
