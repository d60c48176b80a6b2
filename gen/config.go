package gen

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"path/filepath"

	"github.com/broady/rpcontract"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Provider names accepted in Config.Provider.
const (
	ProviderSource     = "source"
	ProviderReflection = "reflection"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("goident", func(fl validator.FieldLevel) bool {
		return token.IsIdentifier(fl.Field().String())
	})
	if err != nil {
		panic("gen: register goident validation: " + err.Error())
	}
	return v
}

// Config holds the configuration for code generation.
type Config struct {
	// OutDir is the directory where generated files will be written.
	// e.g. "./api"
	OutDir string `yaml:"outDir" validate:"required"`

	// Provider selects the contract extraction strategy.
	// "source" (default) - loads Packages and finds //rpc:factory interfaces
	// "reflection" - walks factory types registered with FromFactories
	Provider string `yaml:"provider" validate:"oneof=source reflection"`

	// Packages are the Go package patterns to analyze.
	// Required when Provider is "source".
	Packages []string `yaml:"packages" validate:"required_if=Provider source,dive,required"`

	// Dir is the directory package patterns are resolved from.
	Dir string `yaml:"dir"`

	// PackageName overrides the package clause of the generated files.
	PackageName string `yaml:"packageName" validate:"omitempty,goident"`

	// Discovery writes discovery.json next to the generated code.
	Discovery bool `yaml:"discovery"`

	// Overwrite replaces existing files in OutDir.
	Overwrite bool `yaml:"overwrite"`

	// Properties is a YAML property oracle file. Entries of
	// ConfigurationProperties and PermutationAxes are resolved against it.
	Properties string `yaml:"properties" validate:"omitempty,file"`

	// ConfigurationProperties the output is declared sensitive to.
	ConfigurationProperties []string `yaml:"configurationProperties" validate:"dive,required"`

	// PermutationAxes the output is declared to vary along.
	PermutationAxes []string `yaml:"permutationAxes" validate:"dive,required"`
}

// DefaultConfig returns a Config with the source provider, discovery
// output and overwriting enabled.
func DefaultConfig() Config {
	return Config{
		Provider:  ProviderSource,
		Discovery: true,
		Overwrite: true,
	}
}

// Validate checks the configuration. Errors match
// rpcontract.CodeInvalidArgument and carry one detail per field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return rpcontract.AsError(err)
	}
	if c.Provider == ProviderSource && len(c.Packages) == 0 {
		return rpcontract.NewError(rpcontract.CodeInvalidArgument, "Packages: required").WithDetail("Packages", "required")
	}
	return nil
}

// LoadConfig reads a YAML configuration file over DefaultConfig.
// Relative paths in the file are resolved against its directory.
// Unknown keys are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, rpcontract.Errorf(rpcontract.CodeInvalidArgument, "parse %s: %v", path, err)
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&cfg.OutDir, &cfg.Properties, &cfg.Dir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	if cfg.Dir == "" {
		cfg.Dir = base
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
