package launch

import (
	"context"
	"runtime"
	"testing"

	"github.com/ruxgo-build/ruxgo/internal/config"
)

func TestRunFailsWithoutExeTarget(t *testing.T) {
	cfg := &config.BuildConfig{Targets: []config.Target{
		{Name: "libonly", Type: config.TargetStatic, Archive: "ar"},
	}}
	_, err := Run(context.Background(), cfg, t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected error when no exe target is configured")
	}
}

func TestRunFailsWhenArtifactMissing(t *testing.T) {
	cfg := &config.BuildConfig{Targets: []config.Target{
		{Name: "app", Type: config.TargetExe, Src: []string{"src"}},
	}}
	_, err := Run(context.Background(), cfg, t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected \"run before build\" error when artifact is absent")
	}
}

func TestRunProcessPropagatesExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses posix shell")
	}
	code, err := runProcess(context.Background(), "sh", []string{"-c", "exit 3"})
	if err != nil {
		t.Fatal(err)
	}
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
}
