package ideout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruxgo-build/ruxgo/internal/config"
)

func sampleCfg() *config.BuildConfig {
	return &config.BuildConfig{
		Compiler: "gcc",
		Targets: []config.Target{
			{Name: "app", Type: config.TargetExe, Src: []string{"src"}, IncludeDirs: []string{"include"}, Cflags: "-DFOO -O2"},
		},
	}
}

func TestBuildCompileCommandsProducesOneEntryPerSource(t *testing.T) {
	cfg := sampleCfg()
	entries := BuildCompileCommands(cfg, "gcc", "/build", "/work", map[string][]string{
		"app": {"src/main.c", "src/util.c"},
	})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Directory != "/work" {
		t.Fatalf("Directory = %q", entries[0].Directory)
	}
}

func TestWriteCompileCommandsProducesValidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compile_commands.json")
	entries := []CompileCommand{{Directory: "/work", File: "main.c", Arguments: []string{"gcc", "-c", "main.c"}, Output: "main.o"}}
	if err := WriteCompileCommands(path, entries); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []CompileCommand
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].File != "main.c" {
		t.Fatalf("roundtrip mismatch: %+v", decoded)
	}
}

func TestBuildCppPropertiesCollectsDefinesAndIncludes(t *testing.T) {
	cfg := sampleCfg()
	props := BuildCppProperties(cfg, "gcc")
	if len(props.Configurations) != 1 {
		t.Fatalf("expected 1 configuration, got %d", len(props.Configurations))
	}
	conf := props.Configurations[0]
	if len(conf.IncludePath) == 0 || conf.IncludePath[0] != "include" {
		t.Fatalf("IncludePath = %v", conf.IncludePath)
	}
	if len(conf.Defines) == 0 || conf.Defines[0] != "FOO" {
		t.Fatalf("Defines = %v", conf.Defines)
	}
}

func TestWriteCppPropertiesCreatesVscodeDir(t *testing.T) {
	dir := t.TempDir()
	props := &CppProperties{Version: 4}
	if err := WriteCppProperties(dir, props); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".vscode", "c_cpp_properties.json")); err != nil {
		t.Fatalf("expected c_cpp_properties.json to exist: %v", err)
	}
}
