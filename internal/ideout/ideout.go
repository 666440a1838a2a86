// Package ideout generates IDE-integration artifacts: compile_commands.json
// (the de facto clangd/clang-tidy format) and .vscode/c_cpp_properties.json.
// Both are produced with encoding/json rather than hand-built JSON text.
package ideout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
	"github.com/ruxgo-build/ruxgo/internal/config"
	"github.com/ruxgo-build/ruxgo/internal/model"
)

// CompileCommand is one compile_commands.json entry.
type CompileCommand struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments"`
	Output    string   `json:"output"`
}

// BuildCompileCommands constructs one CompileCommand per source file,
// using the same effective cflags and object path the real compile jobs
// use, so the generated database matches what actually gets run.
func BuildCompileCommands(cfg *config.BuildConfig, compiler, buildRoot, workDir string, sourcesByTarget map[string][]string) []CompileCommand {
	var out []CompileCommand
	targetNames := make([]string, 0, len(sourcesByTarget))
	for name := range sourcesByTarget {
		targetNames = append(targetNames, name)
	}
	sort.Strings(targetNames)

	for _, name := range targetNames {
		target, ok := cfg.TargetByName(name)
		if !ok {
			continue
		}
		cflags := model.EffectiveCflags(cfg, target)
		srcs := append([]string{}, sourcesByTarget[name]...)
		sort.Strings(srcs)
		for _, src := range srcs {
			objPath := model.ObjectPath(buildRoot, name, src)
			args := append([]string{compiler}, cflags...)
			args = append(args, "-c", src, "-o", objPath)
			out = append(out, CompileCommand{
				Directory: workDir,
				File:      src,
				Arguments: args,
				Output:    objPath,
			})
		}
	}
	return out
}

// WriteCompileCommands writes entries as compile_commands.json at path.
func WriteCompileCommands(path string, entries []CompileCommand) error {
	return writeJSON(path, entries)
}

// CppProperties mirrors VS Code's c_cpp_properties.json schema, version 4.
type CppProperties struct {
	Configurations []CppConfiguration `json:"configurations"`
	Version        int                `json:"version"`
}

// CppConfiguration is one c_cpp_properties.json configuration block.
type CppConfiguration struct {
	Name             string   `json:"name"`
	IncludePath      []string `json:"includePath"`
	Defines          []string `json:"defines"`
	CompilerPath     string   `json:"compilerPath"`
	CStandard        string   `json:"cStandard"`
	CppStandard      string   `json:"cppStandard"`
	IntelliSenseMode string   `json:"intelliSenseMode"`
}

// BuildCppProperties collects the union of every target's include dirs and
// -D defines into a single "ruxgo" configuration.
func BuildCppProperties(cfg *config.BuildConfig, compiler string) *CppProperties {
	includeSeen := map[string]bool{}
	defineSeen := map[string]bool{}
	var includes, defines []string

	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		for _, dir := range model.EffectiveIncludeDirs(cfg, t) {
			if !includeSeen[dir] {
				includeSeen[dir] = true
				includes = append(includes, dir)
			}
		}
		for _, flag := range strings.Fields(t.Cflags) {
			if strings.HasPrefix(flag, "-D") && !defineSeen[flag] {
				defineSeen[flag] = true
				defines = append(defines, strings.TrimPrefix(flag, "-D"))
			}
		}
	}
	sort.Strings(includes)
	sort.Strings(defines)

	return &CppProperties{
		Version: 4,
		Configurations: []CppConfiguration{{
			Name:             "ruxgo",
			IncludePath:      includes,
			Defines:          defines,
			CompilerPath:     compiler,
			CStandard:        "c17",
			CppStandard:      "c++20",
			IntelliSenseMode: "linux-gcc-x64",
		}},
	}
}

// WriteCppProperties writes props to .vscode/c_cpp_properties.json under
// projectRoot, creating the .vscode directory if needed.
func WriteCppProperties(projectRoot string, props *CppProperties) error {
	dir := filepath.Join(projectRoot, ".vscode")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return buildapi.IO(dir, err)
	}
	return writeJSON(filepath.Join(dir, "c_cpp_properties.json"), props)
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return buildapi.IO(path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return buildapi.IO(path, err)
	}
	return nil
}
