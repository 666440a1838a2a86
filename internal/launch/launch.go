// Package launch executes the built exe target directly on the host, or
// substitutes a guest platform's configured emulator when the BuildConfig
// carries a Guest, propagating the child's exit code back to the caller.
package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
	"github.com/ruxgo-build/ruxgo/internal/config"
	"github.com/ruxgo-build/ruxgo/internal/model"
	"github.com/ruxgo-build/ruxgo/internal/overlay"
	"github.com/ruxgo-build/ruxgo/internal/qemu"
)

// Run launches cfg's exe target: directly, if cfg.Guest is nil, or through
// the platform's emulator otherwise. It returns the launched process's exit
// code; a nonzero return with a nil error means the guest program itself
// exited nonzero, not that launch failed.
func Run(ctx context.Context, cfg *config.BuildConfig, buildRoot string, binArgs []string) (int, error) {
	exeTarget, ok := cfg.ExeTarget()
	if !ok {
		return 0, buildapi.Run("run", fmt.Errorf("no exe target is configured"))
	}

	if cfg.Guest != nil {
		binPath := overlay.BinPath(buildRoot, exeTarget.Name)
		if _, err := os.Stat(binPath); err != nil {
			return 0, buildapi.Run(exeTarget.Name, fmt.Errorf("target has not been built yet; run a build first"))
		}
		inv := qemu.Build(cfg.Guest, binPath)
		return runProcess(ctx, inv.Program, append(inv.Args, binArgs...))
	}

	artifactPath := model.ArtifactPath(buildRoot, exeTarget)
	if _, err := os.Stat(artifactPath); err != nil {
		return 0, buildapi.Run(exeTarget.Name, fmt.Errorf("target has not been built yet; run a build first"))
	}
	return runProcess(ctx, artifactPath, binArgs)
}

// runProcess execs program with argv, passing through stdio so the guest
// or host program can interact with the terminal directly.
func runProcess(ctx context.Context, program string, argv []string) (int, error) {
	cmd := exec.CommandContext(ctx, program, argv...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 0, buildapi.Run(program, err)
}
