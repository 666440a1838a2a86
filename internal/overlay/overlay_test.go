package overlay

import (
	"strings"
	"testing"

	"github.com/ruxgo-build/ruxgo/internal/config"
)

func guestConfig() *config.BuildConfig {
	return &config.BuildConfig{
		Compiler: "gcc",
		Targets: []config.Target{
			{Name: "app", Type: config.TargetExe, Src: []string{"src"}},
		},
		Guest: &config.Guest{
			Ulib:         config.ULibRuxlibc,
			CrossCompile: "x86_64-linux-musl-",
			Platform:     config.Platform{Name: "x86_64-qemu-q35"},
		},
	}
}

func TestApplySubstitutesCompiler(t *testing.T) {
	cfg := guestConfig()
	out, err := Apply(cfg, "/guest")
	if err != nil {
		t.Fatal(err)
	}
	if out.Compiler != "x86_64-linux-musl-gcc" {
		t.Fatalf("Compiler = %q", out.Compiler)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	cfg := guestConfig()
	_, err := Apply(cfg, "/guest")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Compiler != "gcc" {
		t.Fatalf("input config was mutated: Compiler = %q", cfg.Compiler)
	}
	if cfg.Overlayed() {
		t.Fatal("input config must not be marked overlayed")
	}
}

func TestApplyInjectsIncludeRootAndBaselineCflags(t *testing.T) {
	cfg := guestConfig()
	out, err := Apply(cfg, "/guest")
	if err != nil {
		t.Fatal(err)
	}
	app, _ := out.TargetByName("app")
	if len(app.IncludeDirs) == 0 || app.IncludeDirs[0] != "/guest/include" {
		t.Fatalf("expected guest include root first, got %v", app.IncludeDirs)
	}
	if !strings.Contains(app.Cflags, "-ffreestanding") {
		t.Fatalf("expected baseline cflags, got %q", app.Cflags)
	}
}

func TestApplyRewritesExeLinkRecipe(t *testing.T) {
	cfg := guestConfig()
	out, err := Apply(cfg, "/guest")
	if err != nil {
		t.Fatal(err)
	}
	app, _ := out.TargetByName("app")
	for _, want := range []string{"-nostdlib", "-static", "-T/guest/linker_scripts/x86_64.lds"} {
		if !strings.Contains(app.Ldflags, want) {
			t.Fatalf("expected ldflags to contain %q, got %q", want, app.Ldflags)
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	cfg := guestConfig()
	once, err := Apply(cfg, "/guest")
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Apply(once, "/guest")
	if err != nil {
		t.Fatal(err)
	}
	if twice.Compiler != once.Compiler {
		t.Fatalf("second overlay application changed the compiler: %q vs %q", once.Compiler, twice.Compiler)
	}
}

func TestApplyDerivesCrossCompilerFromPlatformArchByDefault(t *testing.T) {
	cfg := guestConfig()
	cfg.Guest.CrossCompile = ""
	cfg.Guest.Platform = config.Platform{Name: "aarch64-qemu-virt"}
	out, err := Apply(cfg, "/guest")
	if err != nil {
		t.Fatal(err)
	}
	if out.Compiler != "aarch64-linux-musl-gcc" {
		t.Fatalf("Compiler = %q, want arch-derived default", out.Compiler)
	}
}

func TestApplyWithoutGuestIsNoop(t *testing.T) {
	cfg := guestConfig()
	cfg.Guest = nil
	out, err := Apply(cfg, "/guest")
	if err != nil {
		t.Fatal(err)
	}
	if out.Compiler != "gcc" {
		t.Fatalf("expected compiler unchanged without a guest, got %q", out.Compiler)
	}
}
