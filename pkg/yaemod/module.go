// SPDX-License-Identifier: MPL-2.0

package yaemod

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/yae-build/yae/internal/cueutil"
)

const (
	// ModuleFileExt is the suffix of module descriptor files.
	ModuleFileExt = ".module.json"

	// MaxDescriptorSize caps module and package descriptor files.
	MaxDescriptorSize int64 = 1 << 20

	// KindLibrary is a library module (static, or interface when header-only).
	KindLibrary Kind = "library"
	// KindExecutable is an executable module.
	KindExecutable Kind = "executable"
	// KindExternalClone is a module whose sources are cloned from a Git repository.
	// Its descriptor spells it "GitClone".
	KindExternalClone Kind = "gitclone"
)

//go:embed module_schema.cue
var moduleSchema []byte

var (
	// ErrInvalidDescriptor is the sentinel wrapped by DescriptorError.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	// ErrInvalidKind is returned when a ModuleType value is not recognized.
	ErrInvalidKind = errors.New("invalid module type")
)

type (
	// Kind is the module type declared by a descriptor's ModuleType field.
	Kind string

	// DescriptorError reports a malformed or incomplete descriptor document.
	DescriptorError struct {
		// Path is the descriptor file.
		Path string
		// Err describes what is wrong with it.
		Err error
	}

	// CloneSource identifies where an ExternalClone module's sources come from.
	CloneSource struct {
		// URL is the Git repository URL.
		URL string
		// Revision is the tag or branch to clone.
		Revision string
		// LocalPath is where the clone lives, relative to the cloned repositories directory.
		LocalPath string
	}

	// Module is a parsed module descriptor. It is not modified after parsing.
	Module struct {
		// Name is the module's unique name: the name of its descriptor's directory.
		Name string
		// Kind is the module type.
		Kind Kind
		// DescriptorPath is the absolute path of the descriptor file.
		DescriptorPath string
		// RootDir is the directory holding the descriptor and the module sources.
		RootDir string

		// PublicDependencies are visible to consumers of this module.
		PublicDependencies []string
		// PrivateDependencies are only visible to this module.
		PrivateDependencies []string

		// Clone is set for KindExternalClone modules only.
		Clone *CloneSource

		// TargetName overrides the emitted build target name when non-empty.
		TargetName string
		// EnableTesting enables test discovery for the emitted target.
		EnableTesting bool
		// CMakeOptions maps option names to bool, int64 or string values.
		CMakeOptions map[string]any
		// EnableLTO is nil when the module inherits the global LTO policy.
		EnableLTO *bool
		// CopyDirectoriesAfterBuild are absolute directories copied next to
		// the build outputs after the target is built.
		CopyDirectoriesAfterBuild []string
	}

	// moduleDocument mirrors the #Module schema.
	moduleDocument struct {
		ModuleType   string `json:"ModuleType"`
		Dependencies struct {
			Public  []string `json:"Public"`
			Private []string `json:"Private"`
		} `json:"Dependencies"`
		GitURL                    string         `json:"GitUrl"`
		GitTag                    string         `json:"GitTag"`
		LocalPath                 string         `json:"LocalPath"`
		TargetName                string         `json:"TargetName"`
		EnableTesting             bool           `json:"EnableTesting"`
		CMakeOptions              map[string]any `json:"CMakeOptions"`
		EnableLTO                 *bool          `json:"EnableLTO"`
		CopyDirectoriesAfterBuild []string       `json:"CopyDirectoriesAfterBuild"`
	}
)

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("invalid descriptor %s: %v", e.Path, e.Err)
}

// Unwrap returns both ErrInvalidDescriptor and the underlying cause.
func (e *DescriptorError) Unwrap() []error {
	return []error{ErrInvalidDescriptor, e.Err}
}

// ParseKind converts a ModuleType value (case-insensitive) into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

// Validate returns nil if the Kind is one of the known module types.
func (k Kind) Validate() error {
	switch k {
	case KindLibrary, KindExecutable, KindExternalClone:
		return nil
	default:
		return fmt.Errorf("%w: %q (expected Library, Executable or GitClone)", ErrInvalidKind, string(k))
	}
}

// String returns the descriptor spelling of the Kind.
func (k Kind) String() string {
	switch k {
	case KindLibrary:
		return "Library"
	case KindExecutable:
		return "Executable"
	case KindExternalClone:
		return "GitClone"
	default:
		return string(k)
	}
}

// LoadModule reads and parses the module descriptor at path.
func LoadModule(path string) (*Module, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving module descriptor path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, &DescriptorError{Path: absPath, Err: err}
	}

	return ParseModule(data, absPath)
}

// ParseModule parses a module descriptor document located at path. The path
// determines the module name and root directory; it is not read.
func ParseModule(data []byte, path string) (*Module, error) {
	result, err := cueutil.ParseAndDecode[moduleDocument](moduleSchema, data, "#Module",
		cueutil.WithFilename(path), cueutil.WithMaxFileSize(MaxDescriptorSize))
	if err != nil {
		return nil, &DescriptorError{Path: path, Err: err}
	}
	doc := result.Value

	kind, err := ParseKind(doc.ModuleType)
	if err != nil {
		return nil, &DescriptorError{Path: path, Err: err}
	}

	rootDir := filepath.Dir(path)
	m := &Module{
		Name:                filepath.Base(rootDir),
		Kind:                kind,
		DescriptorPath:      path,
		RootDir:             rootDir,
		PublicDependencies:  nonNil(doc.Dependencies.Public),
		PrivateDependencies: nonNil(doc.Dependencies.Private),
		TargetName:          doc.TargetName,
		EnableTesting:       doc.EnableTesting,
		EnableLTO:           doc.EnableLTO,
	}

	if kind == KindExternalClone {
		if m.Clone, err = cloneSource(doc); err != nil {
			return nil, &DescriptorError{Path: path, Err: err}
		}
	}

	if m.CMakeOptions, err = normalizeOptions(doc.CMakeOptions); err != nil {
		return nil, &DescriptorError{Path: path, Err: err}
	}

	for _, dir := range doc.CopyDirectoriesAfterBuild {
		if filepath.IsAbs(dir) {
			return nil, &DescriptorError{Path: path, Err: fmt.Errorf("CopyDirectoriesAfterBuild: %q must be relative to the module directory", dir)}
		}
		m.CopyDirectoriesAfterBuild = append(m.CopyDirectoriesAfterBuild, filepath.Join(rootDir, dir))
	}

	return m, nil
}

func cloneSource(doc *moduleDocument) (*CloneSource, error) {
	var missing []string
	if doc.GitURL == "" {
		missing = append(missing, "GitUrl")
	}
	if doc.GitTag == "" {
		missing = append(missing, "GitTag")
	}
	if doc.LocalPath == "" {
		missing = append(missing, "LocalPath")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("GitClone module requires %s", strings.Join(missing, ", "))
	}

	localPath, err := CleanLocalPath(doc.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("LocalPath: %w", err)
	}

	return &CloneSource{URL: doc.GitURL, Revision: doc.GitTag, LocalPath: localPath}, nil
}

// normalizeOptions narrows decoded CMakeOptions values to bool, int64 or string.
func normalizeOptions(raw map[string]any) (map[string]any, error) {
	options := make(map[string]any, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case bool, string, int64:
			options[name] = v
		case int:
			options[name] = int64(v)
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("CMakeOptions.%s: %v is not an integer", name, v)
			}
			options[name] = int64(v)
		case interface{ Int64() int64 }:
			options[name] = v.Int64()
		default:
			return nil, fmt.Errorf("CMakeOptions.%s: unsupported value type %T", name, value)
		}
	}
	return options, nil
}

// CleanLocalPath normalizes a clone location to a slash-separated relative
// path and rejects absolute paths and paths escaping their base directory.
func CleanLocalPath(p string) (string, error) {
	if p == "" {
		return "", errors.New("path must not be empty")
	}
	cleaned := filepath.Clean(filepath.FromSlash(p))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || cleaned == "." {
		return "", fmt.Errorf("%q must be a relative path inside the cloned repositories directory", p)
	}
	return filepath.ToSlash(cleaned), nil
}

// AllDependencies returns the public dependencies followed by the private ones,
// each in declared order.
func (m *Module) AllDependencies() []string {
	deps := make([]string, 0, len(m.PublicDependencies)+len(m.PrivateDependencies))
	deps = append(deps, m.PublicDependencies...)
	return append(deps, m.PrivateDependencies...)
}

// TargetNameOrDefault returns the emitted build target name.
func (m *Module) TargetNameOrDefault() string {
	if m.TargetName != "" {
		return m.TargetName
	}
	return m.Name
}

// SpecifiesLTO reports whether the module overrides the global LTO policy.
func (m *Module) SpecifiesLTO() bool {
	return m.EnableLTO != nil
}

// ExpectedFileName is the descriptor file name the naming rule requires.
func (m *Module) ExpectedFileName() string {
	return m.Name + ModuleFileExt
}

// OptionNames returns the CMakeOptions keys in sorted order.
func (m *Module) OptionNames() []string {
	names := make([]string, 0, len(m.CMakeOptions))
	for name := range m.CMakeOptions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
