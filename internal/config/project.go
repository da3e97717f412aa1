// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/yae-build/yae/internal/cueutil"
	"github.com/yae-build/yae/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "yae"
	// ProjectFileName is the name of the project file (without extension).
	ProjectFileName = "yae_project"
	// EnvPrefix prefixes environment overrides, e.g. YAE_CPP_STANDARD.
	EnvPrefix = "YAE"

	// DefaultCppStandard is the C++ standard used when the project names none.
	DefaultCppStandard = 20
	// DefaultModulesDir is the project-relative directory holding local modules.
	DefaultModulesDir = "modules"
	// DefaultClonedReposDir is the project-relative directory holding cloned repositories.
	DefaultClonedReposDir = "cloned_repositories"
)

//go:embed project_schema.cue
var projectSchema []byte

var (
	// ErrProjectFileNotFound is returned when no project file exists in the project directory.
	ErrProjectFileNotFound = errors.New("project file not found")
	// ErrInvalidProject is the sentinel wrapped by InvalidProjectError.
	ErrInvalidProject = errors.New("invalid project configuration")

	// projectFileExts lists the accepted project file formats in lookup order.
	projectFileExts = []string{".json", ".toml"}
)

type (
	// CppConfig holds C++ toolchain settings.
	CppConfig struct {
		// Standard is the C++ standard version (e.g. 20).
		Standard int `json:"standard" mapstructure:"standard"`
	}

	// Project is the loaded project configuration.
	Project struct {
		// Name is the project name. Required.
		Name string `json:"name" mapstructure:"name"`
		// Cpp holds C++ settings.
		Cpp CppConfig `json:"cpp" mapstructure:"cpp"`
		// ModulesDir is where local modules live, relative to the project root.
		ModulesDir string `json:"modules_dir" mapstructure:"modules_dir"`
		// ClonedReposDir is where external repositories are cloned, relative to the project root.
		ClonedReposDir string `json:"cloned_repos_dir" mapstructure:"cloned_repos_dir"`
		// EnableLTOGlobally is nil when the project leaves link-time optimization alone.
		EnableLTOGlobally *bool `json:"enable_lto_globally" mapstructure:"enable_lto_globally"`
	}

	// InvalidProjectError reports a project configuration that loaded but is unusable.
	InvalidProjectError struct {
		Field  string
		Reason string
	}

	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ProjectDir is searched for yae_project.json, then yae_project.toml.
		ProjectDir string
		// ProjectFilePath forces loading from a specific file when set.
		ProjectFilePath string
	}

	// Provider loads project configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Project, string, error)
	}

	fileProvider struct{}
)

func (e *InvalidProjectError) Error() string {
	return fmt.Sprintf("invalid project configuration: %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidProject for errors.Is() compatibility.
func (e *InvalidProjectError) Unwrap() error { return ErrInvalidProject }

// DefaultProject returns the configuration defaults. Name has no default.
func DefaultProject() *Project {
	return &Project{
		Cpp:            CppConfig{Standard: DefaultCppStandard},
		ModulesDir:     DefaultModulesDir,
		ClonedReposDir: DefaultClonedReposDir,
	}
}

// Validate checks the constraints that remain after defaults are applied.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &InvalidProjectError{Field: "name", Reason: "a project name is required"}
	}
	if p.Cpp.Standard <= 0 {
		return &InvalidProjectError{Field: "cpp.standard", Reason: fmt.Sprintf("%d is not a C++ standard", p.Cpp.Standard)}
	}
	for field, dir := range map[string]string{"modules_dir": p.ModulesDir, "cloned_repos_dir": p.ClonedReposDir} {
		if strings.TrimSpace(dir) == "" {
			return &InvalidProjectError{Field: field, Reason: "must not be empty"}
		}
	}
	return nil
}

// NewProvider creates a configuration provider that reads project files.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads the project file and returns the validated configuration and
// the path it was read from.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Project, string, error) {
	return Load(ctx, opts)
}

// Load reads the project file, applies defaults and environment overrides,
// validates the result and returns it with the path it was read from.
func Load(ctx context.Context, opts LoadOptions) (*Project, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load project configuration canceled: %w", ctx.Err())
	default:
	}

	path := opts.ProjectFilePath
	if path == "" {
		found, err := FindProjectFile(opts.ProjectDir)
		if err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load project configuration").
				WithResource(opts.ProjectDir).
				WithSuggestion(fmt.Sprintf("Create %s.json with at least a \"name\" field", ProjectFileName)).
				WithSuggestion("Pass --project-dir pointing at the project root").
				Wrap(err).
				BuildError()
		}
		path = found
	}

	v := newViper()
	if err := loadIntoViper(v, path); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("load project configuration").
			WithResource(path).
			WithSuggestion("Check that the file is valid JSON (or TOML)").
			WithSuggestion("Verify the values match the project schema; see 'yae config show'").
			Wrap(err).
			BuildError()
	}

	var project Project
	if err := v.Unmarshal(&project); err != nil {
		return nil, "", fmt.Errorf("failed to parse project configuration: %w", err)
	}

	if err := project.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate project configuration").
			WithResource(path).
			WithSuggestion(fmt.Sprintf("Set the field in %s or via %s_* environment variables", filepath.Base(path), EnvPrefix)).
			Wrap(err).
			BuildError()
	}

	return &project, path, nil
}

// FindProjectFile returns the project file in dir, preferring JSON over TOML.
func FindProjectFile(dir string) (string, error) {
	for _, ext := range projectFileExts {
		candidate := filepath.Join(dir, ProjectFileName+ext)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no %s.json or %s.toml in %s", ErrProjectFileNotFound, ProjectFileName, ProjectFileName, dir)
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultProject()
	v.SetDefault("cpp.standard", defaults.Cpp.Standard)
	v.SetDefault("modules_dir", defaults.ModulesDir)
	v.SetDefault("cloned_repos_dir", defaults.ClonedReposDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"name", "cpp.standard", "modules_dir", "cloned_repos_dir", "enable_lto_globally"} {
		// BindEnv only fails when given no key.
		_ = v.BindEnv(key)
	}
	return v
}

// loadIntoViper validates the project file against the #Project schema and
// merges its contents into Viper.
//
// JSON is CUE, so JSON files are validated directly. TOML files are decoded
// with go-toml first and the resulting value is validated.
func loadIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read project file: %w", err)
	}

	var input any = data
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
			return err
		}
		var decoded map[string]any
		if err := toml.Unmarshal(data, &decoded); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		input = decoded
	}

	configMap, err := cueutil.DecodeMap(projectSchema, input, "#Project",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge project configuration: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
