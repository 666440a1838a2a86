// Package qemu assembles the qemu-system-<arch> command line a guest exe
// target runs under, including WSL/architecture-mismatch accelerator
// auto-detection.
package qemu

import (
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/ruxgo-build/ruxgo/internal/config"
)

// Invocation is a ready-to-exec emulator command.
type Invocation struct {
	Program string
	Args    []string
}

// Build assembles the qemu-system-<arch> invocation for guest running
// binPath (the guest's flat-binary artifact, produced by
// targetcompiler.ObjcopyToBinary).
func Build(guest *config.Guest, binPath string) *Invocation {
	arch := guest.Platform.Arch()
	qemu := guest.Platform.Emulator

	inv := &Invocation{Program: "qemu-system-" + arch}
	add := func(a ...string) { inv.Args = append(inv.Args, a...) }

	if qemu.Debug {
		add("-s", "-S")
	}

	add("-m", "128M")
	if guest.Platform.Smp > 0 {
		add("-smp", strconv.Itoa(guest.Platform.Smp))
	} else {
		add("-smp", "1")
	}

	switch arch {
	case "x86_64":
		add("-machine", "q35")
	case "aarch64":
		add("-cpu", "cortex-a72", "-machine", "virt")
	case "riscv64":
		add("-machine", "virt", "-bios", "default")
	}

	add("-kernel", binPath)

	if accel, flag := accelerator(guest); accel {
		add("-cpu", "host", "-accel", flag)
	}

	if qemu.Blk {
		diskImg := qemu.DiskImg
		if diskImg == "" {
			diskImg = "disk.img"
		}
		bus := qemu.Bus
		if bus == "" {
			bus = defaultBus(arch)
		}
		if bus == "pci" {
			add("-device", "virtio-blk-pci,drive=disk0")
		} else {
			add("-device", "virtio-blk-device,drive=disk0")
		}
		add("-drive", "id=disk0,if=none,format=raw,file="+diskImg)
	}

	if qemu.V9p {
		path := qemu.V9pPath
		if path == "" {
			path = "."
		}
		add("-fsdev", "local,id=p9fs,path="+path+",security_model=none")
		add("-device", "virtio-9p-pci,fsdev=p9fs,mount_tag=rootfs")
	}

	if qemu.Net {
		netdev := qemu.NetDev
		if netdev == "" {
			netdev = "user"
		}
		netdevArgs := "id=net0," + netdev
		if qemu.IP != "" {
			netdevArgs += ",net=" + qemu.IP
		}
		if qemu.Gw != "" {
			netdevArgs += ",host=" + qemu.Gw
		}
		add("-netdev", netdevArgs)
		add("-device", "virtio-net-device,netdev=net0")
		if qemu.NetDump {
			add("-object", "filter-dump,id=dump0,netdev=net0,file=net.pcap")
		}
	}

	if qemu.Graphic {
		add("-vga", "std")
	} else {
		add("-nographic", "-serial", "mon:stdio")
	}

	if qemu.QemuLog {
		add("-D", "qemu.log", "-d", "in_asm,int,mmu,pcall,cpu_reset,guest_errors")
	}

	if qemu.Args != "" {
		add(strings.Fields(qemu.Args)...)
	}

	return inv
}

func defaultBus(arch string) string {
	if arch == "x86_64" {
		return "pci"
	}
	return "mmio"
}

// accelerator decides whether hardware acceleration should be enabled, and
// which -accel value to pass. A `uname -r` containing "-microsoft" (WSL)
// disables it, as does a guest architecture that doesn't match the host.
func accelerator(guest *config.Guest) (bool, string) {
	if guest.Platform.Emulator.Accel != nil {
		if !*guest.Platform.Emulator.Accel {
			return false, ""
		}
	}

	hostArch := runtime.GOARCH
	guestArch := normalizeArch(guest.Platform.Arch())
	if hostArch != guestArch {
		return false, ""
	}

	switch runtime.GOOS {
	case "linux":
		if isWSL() {
			return false, ""
		}
		return true, "kvm"
	case "darwin":
		return true, "hvf"
	default:
		return false, ""
	}
}

func normalizeArch(guestArch string) string {
	switch guestArch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	case "riscv64":
		return "riscv64"
	default:
		return guestArch
	}
}

func isWSL() bool {
	out, err := exec.Command("uname", "-r").Output()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(out)), "-microsoft")
}
