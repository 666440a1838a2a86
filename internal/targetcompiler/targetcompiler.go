// Package targetcompiler holds the per-target-type command recipes
// (compile, archive, link) that turn a planned job into an actual tool
// invocation, including the guest .elf -> .bin objcopy step.
package targetcompiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
	"github.com/ruxgo-build/ruxgo/internal/execrun"
	"github.com/ruxgo-build/ruxgo/internal/msg"
)

// Compile runs compiler over src with cflags, writing objPath. With
// debug-level logging enabled, the compiler's own output streams live,
// indented, instead of only surfacing on failure.
func Compile(ctx context.Context, compiler string, cflags []string, src, objPath string) error {
	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		return buildapi.IO(objPath, err)
	}
	argv := append(append([]string{}, cflags...), "-c", src, "-o", objPath)

	var result *execrun.Result
	var err error
	if msg.DebugEnabled() {
		result, err = execrun.RunStreamed(ctx, "", compiler, argv, &msg.IndentWriter{Indent: "  ", W: os.Stdout})
	} else {
		result, err = execrun.Run(ctx, "", compiler, argv)
	}
	if err != nil {
		return buildapi.Compile(src, compiler, argv, "", err)
	}
	if !result.Success() {
		return buildapi.Compile(src, compiler, argv, result.Stderr, fmt.Errorf("exit status %d", result.ExitCode))
	}
	return nil
}

// Archive packs objects into a static archive at outPath.
func Archive(ctx context.Context, archiver string, objects []string, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return buildapi.IO(outPath, err)
	}
	argv := append([]string{"rcs", outPath}, objects...)
	result, err := execrun.Run(ctx, "", archiver, argv)
	if err != nil {
		return buildapi.Archive(outPath, archiver, argv, "", err)
	}
	if !result.Success() {
		return buildapi.Archive(outPath, archiver, argv, result.Stderr, fmt.Errorf("exit status %d", result.ExitCode))
	}
	return nil
}

// LinkShared links objects and linkInputs (dependency archives/libs plus
// ldflags tokens) into a shared object at outPath.
func LinkShared(ctx context.Context, linker string, objects, linkInputs []string, outPath string) error {
	return link(ctx, linker, objects, linkInputs, outPath, "-shared")
}

// LinkExe links objects and linkInputs into an executable at outPath. When
// targeting a guest platform, the overlay is responsible for folding the
// freestanding ldflags (-nostdlib -static -no-pie ...) into linkInputs
// before this is called.
func LinkExe(ctx context.Context, linker string, objects, linkInputs []string, outPath string) error {
	return link(ctx, linker, objects, linkInputs, outPath)
}

func link(ctx context.Context, linker string, objects, linkInputs []string, outPath string, extra ...string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return buildapi.IO(outPath, err)
	}
	argv := append([]string{}, objects...)
	argv = append(argv, linkInputs...)
	argv = append(argv, extra...)
	argv = append(argv, "-o", outPath)

	result, err := execrun.Run(ctx, "", linker, argv)
	if err != nil {
		return buildapi.Link(outPath, linker, argv, "", err)
	}
	if !result.Success() {
		return buildapi.Link(outPath, linker, argv, result.Stderr, fmt.Errorf("exit status %d", result.ExitCode))
	}
	return nil
}

// ObjcopyToBinary runs `<objcopy> --binary-architecture=<arch> <elfPath>
// --strip-all -O binary <binPath>`, the final step a guest exe target goes
// through after linking.
func ObjcopyToBinary(ctx context.Context, objcopy, arch, elfPath, binPath string) error {
	if err := os.MkdirAll(filepath.Dir(binPath), 0o755); err != nil {
		return buildapi.IO(binPath, err)
	}
	argv := []string{"--binary-architecture=" + arch, elfPath, "--strip-all", "-O", "binary", binPath}
	result, err := execrun.Run(ctx, "", objcopy, argv)
	if err != nil {
		return buildapi.Link(binPath, objcopy, argv, "", err)
	}
	if !result.Success() {
		return buildapi.Link(binPath, objcopy, argv, result.Stderr, fmt.Errorf("exit status %d", result.ExitCode))
	}
	return nil
}
