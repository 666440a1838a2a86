// Package toolchain discovers the host C/C++ compiler, archiver, and
// linker: check an environment variable override first, then probe a
// fixed list of common tool names via exec.LookPath.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
	"github.com/ruxgo-build/ruxgo/internal/execrun"
)

func envFirst(name string) string { return os.Getenv(name) }

var commonCCompilers = []string{"cc", "gcc", "clang"}
var commonCxxCompilers = []string{"c++", "g++", "clang++"}
var commonArchivers = []string{"ar", "llvm-ar"}

// platformCompilerHook, when non-nil (set by toolchain_windows.go), is
// tried before the generic PATH probe, for host toolchains discoverable
// only through a platform-specific mechanism (Visual Studio's COM setup
// API on Windows).
var platformCompilerHook func(needCxx bool) (string, bool)

// FindCompiler resolves the host C or C++ compiler: CC/CXX env var first,
// then (on Windows) the platform hook, then a fixed probe list.
func FindCompiler(needCxx bool) (string, error) {
	envVar := "CC"
	list := commonCCompilers
	if needCxx {
		envVar = "CXX"
		list = commonCxxCompilers
	}

	if path, err := exec.LookPath(envFirst(envVar)); err == nil && envFirst(envVar) != "" {
		return path, nil
	}

	if platformCompilerHook != nil {
		if path, ok := platformCompilerHook(needCxx); ok {
			return path, nil
		}
	}

	for _, name := range list {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", buildapi.Config("compiler", fmt.Errorf("no %s compiler found on PATH (tried %s)", condCxx(needCxx), strings.Join(list, ", ")))
}

// FindArchiver resolves the host static-library archiver: AR env var first,
// then a fixed probe list.
func FindArchiver() (string, error) {
	if path, err := exec.LookPath(envFirst("AR")); err == nil && envFirst("AR") != "" {
		return path, nil
	}
	for _, name := range commonArchivers {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", buildapi.Config("archiver", fmt.Errorf("no archiver found on PATH (tried %s)", strings.Join(commonArchivers, ", ")))
}

// FindLinker resolves the linker driver: C/C++ toolchains normally link
// through the compiler itself, so this simply returns the discovered
// compiler unless an LD override is set.
func FindLinker(needCxx bool) (string, error) {
	if path, err := exec.LookPath(envFirst("LD")); err == nil && envFirst("LD") != "" {
		return path, nil
	}
	return FindCompiler(needCxx)
}

// Identity runs `program --version` and returns its first output line, used
// as the tool-identity component folded into fingerprints: a compiler
// upgrade must invalidate every fingerprint that depended on it.
func Identity(ctx context.Context, program string) (string, error) {
	result, err := execrun.Run(ctx, "", program, []string{"--version"})
	if err != nil {
		return "", buildapi.Config(program, err)
	}
	first := result.Stdout
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	return strings.TrimSpace(first), nil
}

func condCxx(needCxx bool) string {
	if needCxx {
		return "C++"
	}
	return "C"
}
