// Package config parses and validates the ruxgo build configuration file
// (config_linux.toml / config_win32.toml) into the in-memory BuildConfig,
// using a raw-map-then-typed-unmarshal shape so macro expansion and
// conditional sections can run before the typed decode.
package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// TargetType is one of the four kinds a target may be.
type TargetType string

const (
	TargetStatic TargetType = "static"
	TargetShared TargetType = "shared"
	TargetObject TargetType = "object"
	TargetExe    TargetType = "exe"
)

// ULib is the guest user-library choice.
type ULib string

const (
	ULibRuxlibc ULib = "ruxlibc"
	ULibRuxmusl ULib = "ruxmusl"
)

// KnownPlatforms is the set of guest platform names a Guest may declare.
var KnownPlatforms = []string{"x86_64-qemu-q35", "aarch64-qemu-virt", "riscv64-qemu-virt"}

// PackageRef is one entry of BuildConfig.Packages: a remote source bundle to
// fetch, identified verbatim by branch or tag (no version constraint
// resolution).
type PackageRef struct {
	Name   string `toml:"name"`
	Source string `toml:"source"`
	Branch string `toml:"branch"`
	Tag    string `toml:"tag"`
}

// Target is one compile/link unit declared in the config.
type Target struct {
	Name        string     `toml:"name"`
	Src         []string   `toml:"src"`
	SrcExcluded []string   `toml:"src_excluded"`
	IncludeDirs []string   `toml:"include_dirs"`
	Type        TargetType `toml:"type"`
	Cflags      string     `toml:"cflags"`
	Ldflags     string     `toml:"ldflags"`
	Archive     string     `toml:"archive"`
	Linker      string     `toml:"linker"`
	Deps        []string   `toml:"deps"`
}

// Emulator carries the toggles assembled into a qemu-system-* command
// line.
type Emulator struct {
	Debug   bool   `toml:"debug"`
	Blk     bool   `toml:"blk"`
	Net     bool   `toml:"net"`
	Graphic bool   `toml:"graphic"`
	Bus     string `toml:"bus"` // "mmio" or "pci"; derived from arch if empty
	DiskImg string `toml:"disk_img"`
	V9p     bool   `toml:"v9p"`
	V9pPath string `toml:"v9p_path"`
	QemuLog bool   `toml:"qemu_log"`
	NetDump bool   `toml:"net_dump"`
	NetDev  string `toml:"net_dev"` // "user" or "tap"
	IP      string `toml:"ip"`
	Gw      string `toml:"gw"`
	Args    string `toml:"args"`
	Envs    string `toml:"envs"`
	// Accel, when nil, is auto-detected (supplemented feature: WSL/non-x86_64 disables it).
	Accel *bool `toml:"accel"`
}

// Platform describes the guest CPU/machine a build is retargeted at.
type Platform struct {
	Name     string   `toml:"name"`
	Smp      int      `toml:"smp"`
	Mode     string   `toml:"mode"` // "release" or "debug"
	Log      string   `toml:"log"`
	V        string   `toml:"v"` // verbose level; parsed, but not read by the build or the emulator command line
	Emulator Emulator `toml:"qemu"`
}

// Arch returns the guest CPU architecture encoded as the platform name's
// first hyphen-delimited component (e.g. "x86_64-qemu-q35" -> "x86_64").
func (p Platform) Arch() string {
	if i := strings.Index(p.Name, "-"); i >= 0 {
		return p.Name[:i]
	}
	return p.Name
}

// Guest declares that a config's exe target should be retargeted at a
// unikernel guest platform instead of the host.
type Guest struct {
	Name         string   `toml:"name"`
	Services     []string `toml:"services"`
	Ulib         ULib     `toml:"ulib"`
	CrossCompile string   `toml:"cross_compile"`
	Platform     Platform `toml:"platform"`
}

// BuildConfig is the root of the parsed configuration.
type BuildConfig struct {
	Compiler string       `toml:"compiler"`
	Packages []PackageRef `toml:"packages"`
	Targets  []Target     `toml:"targets"`
	Guest    *Guest       `toml:"os"`

	// overlayed marks a config that has already been through the guest
	// overlay, so a second application is a documented no-op.
	overlayed bool
}

// Overlayed reports whether the Guest Overlay has already been applied.
func (c *BuildConfig) Overlayed() bool { return c.overlayed }

// SetOverlayed marks whether the Guest Overlay has been applied, so a
// second application of the overlay can detect it's a no-op.
func (c *BuildConfig) SetOverlayed(v bool) { c.overlayed = v }

// Clone returns a deep copy of c, suitable as the base for a new,
// independently-mutable BuildConfig (the overlay must never mutate its
// input in place).
func (c *BuildConfig) Clone() *BuildConfig {
	out := &BuildConfig{
		Compiler:  c.Compiler,
		overlayed: c.overlayed,
	}
	out.Packages = slices.Clone(c.Packages)
	out.Targets = make([]Target, len(c.Targets))
	for i, t := range c.Targets {
		out.Targets[i] = Target{
			Name:        t.Name,
			Src:         slices.Clone(t.Src),
			SrcExcluded: slices.Clone(t.SrcExcluded),
			IncludeDirs: slices.Clone(t.IncludeDirs),
			Type:        t.Type,
			Cflags:      t.Cflags,
			Ldflags:     t.Ldflags,
			Archive:     t.Archive,
			Linker:      t.Linker,
			Deps:        slices.Clone(t.Deps),
		}
	}
	if c.Guest != nil {
		g := *c.Guest
		g.Services = slices.Clone(c.Guest.Services)
		out.Guest = &g
	}
	return out
}

// TargetByName returns the target named name, if any.
func (c *BuildConfig) TargetByName(name string) (*Target, bool) {
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return &c.Targets[i], true
		}
	}
	return nil, false
}

// ExeTarget returns the config's single exe target, if any.
func (c *BuildConfig) ExeTarget() (*Target, bool) {
	for i := range c.Targets {
		if c.Targets[i].Type == TargetExe {
			return &c.Targets[i], true
		}
	}
	return nil, false
}

// ConfigFilename returns the host-appropriate config filename.
func ConfigFilename() string {
	if runtime.GOOS == "windows" {
		return "config_win32.toml"
	}
	return "config_linux.toml"
}

// ObjDirName returns the host-appropriate object subdirectory name under the
// build root.
func ObjDirName() string {
	if runtime.GOOS == "windows" {
		return "obj_win32"
	}
	return "obj_linux"
}

func (t TargetType) valid() bool {
	switch t {
	case TargetStatic, TargetShared, TargetObject, TargetExe:
		return true
	}
	return false
}

func (t TargetType) String() string { return string(t) }

func fmtErr(format string, a ...any) error { return fmt.Errorf(format, a...) }
