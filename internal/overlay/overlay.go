// Package overlay implements a pure BuildConfig -> BuildConfig transform
// that retargets a build for a unikernel guest platform instead of the
// host. It never mutates its input; applying it twice to the same
// BuildConfig is a documented no-op.
package overlay

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ruxgo-build/ruxgo/internal/config"
)

// baselineCflags are the freestanding-guest compile flags every guest
// target needs regardless of platform.
var baselineCflags = []string{
	"-nostdinc",
	"-fno-builtin",
	"-ffreestanding",
	"-fno-stack-protector",
}

// Apply returns a new BuildConfig retargeted for cfg.Guest's platform:
// compiler substitution (cross_compile prefix on a gcc/clang compiler), baseline cflags and an
// include root injected into every target, and the exe target's link
// recipe rewritten for a freestanding link followed by an ELF->binary
// objcopy step. If cfg.Guest is nil or cfg has already been overlayed,
// Apply returns cfg's targets unchanged (still as a fresh clone).
func Apply(cfg *config.BuildConfig, guestRoot string) (*config.BuildConfig, error) {
	out := cfg.Clone()
	if cfg.Guest == nil || cfg.Overlayed() {
		return out, nil
	}

	guest := out.Guest
	includeRoot := filepath.Join(guestRoot, "include")
	linkerScript := filepath.Join(guestRoot, "linker_scripts", guest.Platform.Arch()+".lds")
	libcArchive := filepath.Join(guestRoot, "lib", string(guest.Ulib)+".a")

	out.Compiler = crossCompilerName(guest.CrossCompile, guest.Platform.Arch(), out.Compiler)

	for i := range out.Targets {
		t := &out.Targets[i]
		t.IncludeDirs = append([]string{includeRoot}, t.IncludeDirs...)
		t.Cflags = strings.Join(baselineCflags, " ") + " " + archDefine(guest.Platform.Arch()) + " " + t.Cflags

		if t.Type != config.TargetExe {
			continue
		}

		ldflags := []string{"-nostdlib", "-static", "-no-pie", "--gc-sections", "-T" + linkerScript}
		if guest.Platform.Arch() == "x86_64" {
			ldflags = append(ldflags, "--no-relax")
		}
		ldflags = append(ldflags, libcArchive)
		t.Ldflags = strings.Join(ldflags, " ") + " " + t.Ldflags
		t.Linker = out.Compiler
	}

	out.SetOverlayed(true)
	return out, nil
}

// defaultCrossCompilePrefix maps a guest architecture to the musl
// cross-compiler triple prefix used when the config doesn't set
// cross_compile explicitly.
var defaultCrossCompilePrefix = map[string]string{
	"x86_64":  "x86_64-linux-musl-",
	"aarch64": "aarch64-linux-musl-",
	"riscv64": "riscv64-linux-musl-",
}

// crossCompilerName prefixes a generic "gcc" or "clang" compiler with
// crossCompile, falling back to the arch's default musl triple when
// crossCompile wasn't set explicitly. Any other compiler name (for example
// an already-prefixed "x86_64-linux-musl-gcc") is returned unchanged.
func crossCompilerName(crossCompile, arch, compiler string) string {
	if compiler != "gcc" && compiler != "clang" {
		return compiler
	}
	prefix := crossCompile
	if prefix == "" {
		prefix = defaultCrossCompilePrefix[arch]
	}
	return prefix + compiler
}

func archDefine(arch string) string {
	return fmt.Sprintf("-DRUXGO_ARCH_%s", strings.ToUpper(arch))
}

// ElfPath returns the intermediate ELF artifact path a guest exe target
// links to, before the ObjcopyToBinary step strips it to a flat binary.
func ElfPath(buildRoot, targetName string) string {
	return filepath.Join(buildRoot, "bin", targetName+".elf")
}

// BinPath returns the final flat-binary artifact path for a guest exe
// target, the form the Runner hands to the emulator as -kernel.
func BinPath(buildRoot, targetName string) string {
	return filepath.Join(buildRoot, "bin", targetName+".bin")
}
