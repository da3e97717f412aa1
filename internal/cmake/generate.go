// SPDX-License-Identifier: MPL-2.0

package cmake

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/yae-build/yae/internal/config"
	"github.com/yae-build/yae/internal/modregistry"
	"github.com/yae-build/yae/pkg/yaemod"
)

const (
	// FileName is the name of every emitted file.
	FileName = "CMakeLists.txt"

	externalModulesVar = "YAE_EXTERNAL_MODULES_DIR"
	rootVar            = "YAE_ROOT"
	projectRootVar     = "YAE_PROJECT_ROOT"
	sourcesVar         = "module_source_files"
)

var (
	// ErrUnsupportedOption is returned for CMakeOptions values that are not bool.
	ErrUnsupportedOption = errors.New("unsupported CMake option value")
	// ErrNoSources is returned for an executable without any .cpp file.
	ErrNoSources = errors.New("module has no sources")

	cppExts  = []string{".cpp"}
	hppExts  = []string{".hpp"}
	cudaExts = []string{".cu"}
)

type (
	// Input is a validated module graph.
	Input struct {
		Project  *config.Project
		Paths    config.Paths
		Registry *modregistry.Registry
		// Order lists every module after its dependencies.
		Order []string
	}

	// File is one rendered CMakeLists.txt.
	File struct {
		Path    string
		Content []byte
	}

	// ModuleError reports a module that could not be rendered.
	ModuleError struct {
		Module string
		Err    error
	}
)

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

// Generate renders the root file and one file per local Library or
// Executable module. Every module error is returned together.
func Generate(in Input) ([]File, error) {
	root, err := renderRoot(in)
	if err != nil {
		return nil, err
	}
	files := []File{{Path: filepath.Join(in.Paths.ProjectRoot, FileName), Content: root}}

	var errs []error
	for _, name := range in.Order {
		m, ok := in.Registry.Find(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", modregistry.ErrUnknownModule, name)
		}
		if m.Kind == yaemod.KindExternalClone {
			continue
		}
		content, err := renderModule(m, in.Registry)
		if err != nil {
			errs = append(errs, &ModuleError{Module: name, Err: err})
			continue
		}
		files = append(files, File{Path: filepath.Join(m.RootDir, FileName), Content: content})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return files, nil
}

// Write stores the files, skipping those whose content is unchanged so
// CMake does not reconfigure needlessly. It returns the paths written.
func Write(files []File) ([]string, error) {
	var written []string
	for _, f := range files {
		existing, err := os.ReadFile(f.Path)
		if err == nil && bytes.Equal(existing, f.Content) {
			continue
		}
		if err := os.WriteFile(f.Path, f.Content, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.Path, err)
		}
		written = append(written, f.Path)
	}
	return written, nil
}

func renderRoot(in Input) ([]byte, error) {
	w := &writer{}
	paths := in.Paths

	w.versionLine()
	w.line()
	w.linef("project(%s)", in.Project.Name)
	w.line()
	w.linef("set(CMAKE_CXX_STANDARD %d)", in.Project.Cpp.Standard)
	w.line("set(CMAKE_CXX_STANDARD_REQUIRED ON)")
	w.line("set(CMAKE_CXX_EXTENSIONS OFF)")
	writeOutputDirs(w)

	w.line()
	w.line("# Set path to external modules sources")
	if rel, ok := config.Rel(paths.ProjectRoot, paths.ClonedReposDir); ok {
		w.set(externalModulesVar, sourceRelative(rel))
	} else {
		w.set(externalModulesVar, quote(filepath.ToSlash(paths.ClonedReposDir)))
	}

	w.line()
	if rel, ok := config.Rel(paths.ProjectRoot, paths.ToolRoot); ok && rel != "." {
		w.set(rootVar, `"`+sourceRelative(rel)+`"`)
	} else if ok {
		w.set(rootVar, `"`+currentSourceDir+`"`)
	} else {
		w.set(rootVar, `"`+filepath.ToSlash(paths.ToolRoot)+`"`)
	}
	w.set(projectRootVar, `"`+currentSourceDir+`"`)
	w.set("CMAKE_MODULE_PATH", `"${CMAKE_MODULE_PATH};${`+rootVar+`}/cmake"`)
	w.line()

	if lto := in.Project.EnableLTOGlobally; lto != nil {
		w.include("yae_lto")
		if *lto {
			w.line("enable_lto_globally()")
		} else {
			w.line("disable_lto_globally()")
		}
	}
	w.line()

	var errs []error
	added := make(map[string]bool)
	for _, name := range in.Order {
		m, ok := in.Registry.Find(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", modregistry.ErrUnknownModule, name)
		}

		sources, binary := subdirectory(m, paths)
		if added[sources] {
			continue
		}
		added[sources] = true

		if m.Kind == yaemod.KindExternalClone {
			w.linef("# %s %s", m.Clone.URL, m.Clone.Revision)
		}
		sourcesVariable := fmt.Sprintf("YAE_%s_SOURCES", m.Name)
		w.set(sourcesVariable, sources)
		for _, opt := range m.OptionNames() {
			value, isBool := m.CMakeOptions[opt].(bool)
			if !isBool {
				errs = append(errs, &ModuleError{
					Module: m.Name,
					Err:    fmt.Errorf("%w: %s = %v (only ON/OFF options are supported)", ErrUnsupportedOption, opt, m.CMakeOptions[opt]),
				})
				continue
			}
			w.option(opt, value)
		}
		w.addSubdirectory("${"+sourcesVariable+"}", "yae_modules/"+binary)
		w.line()
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	w.line("enable_testing()")
	return []byte(w.String()), nil
}

func writeOutputDirs(w *writer) {
	kinds := []struct{ comment, variable, dir string }{
		{"binaries", "CMAKE_RUNTIME_OUTPUT_DIRECTORY", "bin"},
		{"archives", "CMAKE_ARCHIVE_OUTPUT_DIRECTORY", "lib"},
		{"libraries", "CMAKE_LIBRARY_OUTPUT_DIRECTORY", "lib"},
	}
	for _, k := range kinds {
		w.linef("# Set output directories for %s", k.comment)
		w.set(k.variable, "${CMAKE_CURRENT_BINARY_DIR}/"+k.dir)
		for _, build := range []string{"RELEASE", "RELWITHDEBINFO", "MINSIZEREL", "DEBUG"} {
			w.set(k.variable+"_"+build, "${"+k.variable+"}")
		}
	}
}

// subdirectory returns the add_subdirectory source expression and the
// binary directory suffix for m.
func subdirectory(m *yaemod.Module, paths config.Paths) (source, binary string) {
	if m.Kind == yaemod.KindExternalClone {
		return "${" + externalModulesVar + "}/" + m.Clone.LocalPath, m.Clone.LocalPath
	}
	if rel, ok := config.Rel(paths.ProjectRoot, m.RootDir); ok && !isInside(paths.ClonedReposDir, m.RootDir) {
		return rel, rel
	}
	if rel, ok := config.Rel(paths.ClonedReposDir, m.RootDir); ok {
		return "${" + externalModulesVar + "}/" + rel, rel
	}
	abs := filepath.ToSlash(m.RootDir)
	return quote(abs), "external/" + m.Name
}

func isInside(base, path string) bool {
	_, ok := config.Rel(base, path)
	return ok
}

func renderModule(m *yaemod.Module, registry *modregistry.Registry) ([]byte, error) {
	sources, err := sourceFiles(m.RootDir)
	if err != nil {
		return nil, err
	}

	hasCpp := slices.ContainsFunc(sources, hasExt(cppExts))
	hasCuda := slices.ContainsFunc(sources, hasExt(cudaExts))
	target := m.TargetNameOrDefault()

	w := &writer{}
	w.versionLine()
	if hasCuda {
		w.line("enable_language(CUDA)")
	}
	w.include("set_compiler_options")
	if m.SpecifiesLTO() {
		w.include("yae_lto")
	}

	rel := make([]string, 0, len(sources))
	for _, s := range sources {
		rel = append(rel, sourceRelative(s))
	}
	w.listVariable(sourcesVar, rel)

	publicAccess, privateAccess := "PUBLIC", "PRIVATE"
	switch m.Kind {
	case yaemod.KindLibrary:
		libType := "STATIC"
		if !hasCpp && !hasCuda {
			libType = "INTERFACE"
			publicAccess, privateAccess = "INTERFACE", "INTERFACE"
		}
		w.linef("add_library(%s %s ${%s})", target, libType, sourcesVar)
	case yaemod.KindExecutable:
		if !hasCpp && !hasCuda {
			return nil, fmt.Errorf("%w: an executable needs at least one .cpp file under %s", ErrNoSources, m.RootDir)
		}
		w.linef("add_executable(%s ${%s})", target, sourcesVar)
	default:
		return nil, fmt.Errorf("cannot emit a target for module type %s", m.Kind)
	}

	w.linef("set_generic_compiler_options(%s %s)", target, privateAccess)
	w.targetCommand("target_link_libraries", target, publicAccess, targetNames(m.PublicDependencies, registry))
	w.targetCommand("target_link_libraries", target, privateAccess, targetNames(m.PrivateDependencies, registry))
	w.targetCommand("target_include_directories", target, publicAccess, []string{sourceRelative("code/public")})
	w.targetCommand("target_include_directories", target, privateAccess, []string{sourceRelative("code/private")})

	if m.SpecifiesLTO() {
		if *m.EnableLTO {
			w.linef("enable_lto_for(%s)", target)
		} else {
			w.linef("disable_lto_for(%s)", target)
		}
	}

	if m.EnableTesting {
		w.line("enable_testing()")
		w.include("GoogleTest")
		w.linef("gtest_discover_tests(%s)", target)
	}

	if err := copyAfterBuild(w, m, target); err != nil {
		return nil, err
	}

	return []byte(w.String()), nil
}

func copyAfterBuild(w *writer, m *yaemod.Module, target string) error {
	dirs := slices.Clone(m.CopyDirectoriesAfterBuild)
	if len(dirs) == 0 {
		return nil
	}
	slices.Sort(dirs)

	w.linef("add_custom_target(%s_copy_files ALL", target)
	for _, dir := range dirs {
		rel, ok := config.Rel(m.RootDir, dir)
		if !ok {
			return fmt.Errorf("copy directory %s is outside the module", dir)
		}
		w.linef(`    ${CMAKE_COMMAND} -E copy_directory "%s" ${CMAKE_RUNTIME_OUTPUT_DIRECTORY}/%s`, sourceRelative(rel), filepath.Base(dir))
	}
	w.line(")")
	w.linef("add_dependencies(%s_copy_files %s)", target, target)
	return nil
}

// targetNames maps module names to their emitted target names.
func targetNames(deps []string, registry *modregistry.Registry) []string {
	names := make([]string, 0, len(deps))
	for _, dep := range deps {
		if m, ok := registry.Find(dep); ok {
			names = append(names, m.TargetNameOrDefault())
			continue
		}
		names = append(names, dep)
	}
	return names
}

// sourceFiles returns the module's C++ and CUDA sources relative to root,
// slash-separated and sorted.
func sourceFiles(root string) ([]string, error) {
	exts := slices.Concat(cppExts, hppExts, cudaExts)
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !slices.Contains(exts, filepath.Ext(path)) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing sources of %s: %w", root, err)
	}
	slices.Sort(files)
	return files, nil
}

func hasExt(exts []string) func(string) bool {
	return func(p string) bool {
		return slices.Contains(exts, strings.ToLower(filepath.Ext(p)))
	}
}
