package targetcompiler

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
)

func TestCompileCreatesObjectDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a posix shell as a fake compiler")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "main.c")
	os.WriteFile(src, []byte("irrelevant"), 0o644)
	obj := filepath.Join(dir, "nested", "main.o")

	// Use "true" as a stand-in compiler: it ignores its arguments and
	// exits 0, letting the test assert directory creation without a real
	// toolchain.
	err := Compile(context.Background(), "true", nil, src, obj)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Dir(obj)); err != nil {
		t.Fatalf("expected object directory to be created: %v", err)
	}
}

func TestCompileFailureIsBuildapiError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses \"false\" as a fake compiler")
	}
	dir := t.TempDir()
	err := Compile(context.Background(), "false", nil, "main.c", filepath.Join(dir, "main.o"))
	if err == nil {
		t.Fatal("expected an error when the compiler exits nonzero")
	}
	var apiErr *buildapi.Error
	if !asBuildapiError(err, &apiErr) {
		t.Fatalf("expected a *buildapi.Error, got %T: %v", err, err)
	}
	if apiErr.Kind != buildapi.KindCompile {
		t.Fatalf("expected KindCompile, got %v", apiErr.Kind)
	}
}

func asBuildapiError(err error, target **buildapi.Error) bool {
	if e, ok := err.(*buildapi.Error); ok {
		*target = e
		return true
	}
	return false
}

func TestLinkExeAssemblesArgvOrder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a posix shell script as a fake linker")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "bin", "app")
	argsFile := filepath.Join(dir, "args.txt")
	fakeLinker := filepath.Join(dir, "fake-ld")
	script := "#!/bin/sh\necho \"$@\" > '" + argsFile + "'\n"
	if err := os.WriteFile(fakeLinker, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	err := LinkExe(context.Background(), fakeLinker, []string{"main.o"}, []string{"lib.a", "-lm"}, out)
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	want := "main.o lib.a -lm -o " + out
	if strings.TrimSpace(string(got)) != want {
		t.Fatalf("linker argv = %q, want %q", strings.TrimSpace(string(got)), want)
	}
}
