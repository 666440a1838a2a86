package qemu

import (
	"strings"
	"testing"

	"github.com/ruxgo-build/ruxgo/internal/config"
)

func TestBuildSelectsMachineByArch(t *testing.T) {
	guest := &config.Guest{Platform: config.Platform{Name: "x86_64-qemu-q35"}}
	inv := Build(guest, "app.bin")
	if inv.Program != "qemu-system-x86_64" {
		t.Fatalf("Program = %q", inv.Program)
	}
	if !containsSeq(inv.Args, "-machine", "q35") {
		t.Fatalf("expected q35 machine, got %v", inv.Args)
	}
}

func TestBuildIncludesKernelPath(t *testing.T) {
	guest := &config.Guest{Platform: config.Platform{Name: "aarch64-qemu-virt"}}
	inv := Build(guest, "/build/bin/app.bin")
	if !containsSeq(inv.Args, "-kernel", "/build/bin/app.bin") {
		t.Fatalf("expected -kernel /build/bin/app.bin, got %v", inv.Args)
	}
}

func TestBuildDisablesAccelWhenExplicitlyOff(t *testing.T) {
	off := false
	guest := &config.Guest{Platform: config.Platform{
		Name:     "x86_64-qemu-q35",
		Emulator: config.Emulator{Accel: &off},
	}}
	inv := Build(guest, "app.bin")
	if contains(inv.Args, "-accel") {
		t.Fatalf("expected no -accel flag when explicitly disabled, got %v", inv.Args)
	}
}

func TestBuildNographicByDefault(t *testing.T) {
	guest := &config.Guest{Platform: config.Platform{Name: "x86_64-qemu-q35"}}
	inv := Build(guest, "app.bin")
	if !contains(inv.Args, "-nographic") {
		t.Fatalf("expected -nographic by default, got %v", inv.Args)
	}
}

func TestBuildGraphicModeOmitsNographic(t *testing.T) {
	guest := &config.Guest{Platform: config.Platform{
		Name:     "x86_64-qemu-q35",
		Emulator: config.Emulator{Graphic: true},
	}}
	inv := Build(guest, "app.bin")
	if contains(inv.Args, "-nographic") {
		t.Fatalf("expected no -nographic in graphic mode, got %v", inv.Args)
	}
}

func TestBuildBlkAddsDriveArgs(t *testing.T) {
	guest := &config.Guest{Platform: config.Platform{
		Name:     "x86_64-qemu-q35",
		Emulator: config.Emulator{Blk: true, DiskImg: "rootfs.img"},
	}}
	inv := Build(guest, "app.bin")
	found := false
	for _, a := range inv.Args {
		if strings.Contains(a, "rootfs.img") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected disk image referenced in args, got %v", inv.Args)
	}
}

func containsSeq(args []string, a, b string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == a && args[i+1] == b {
			return true
		}
	}
	return false
}

func contains(args []string, needle string) bool {
	for _, a := range args {
		if a == needle {
			return true
		}
	}
	return false
}
