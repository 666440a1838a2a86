package config

import (
	"fmt"
	"slices"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
)

// serviceAutoDeps: declaring any of these guest services pulls in the "fd"
// service.
var serviceAutoDeps = map[string]bool{
	"fs": true, "net": true, "pipe": true, "select": true, "poll": true, "epoll": true,
}

// Validate rejects structurally invalid configs and applies the
// ulib-driven automatic service injection.
func (c *BuildConfig) Validate() error {
	if c.Compiler == "" {
		return buildapi.Config("compiler", fmt.Errorf("no compiler configured"))
	}

	seen := make(map[string]bool, len(c.Targets))
	exeCount := 0
	for _, t := range c.Targets {
		if seen[t.Name] {
			return buildapi.Config(t.Name, fmt.Errorf("duplicate target name %q", t.Name))
		}
		seen[t.Name] = true

		if !t.Type.valid() {
			return buildapi.Config(t.Name, fmt.Errorf("unknown target type %q", t.Type))
		}
		switch t.Type {
		case TargetExe:
			exeCount++
		case TargetShared:
			if len(t.Name) < 3 || t.Name[:3] != "lib" {
				return buildapi.Config(t.Name, fmt.Errorf("shared target name must start with \"lib\""))
			}
		case TargetStatic:
			if t.Archive == "" {
				return buildapi.Config(t.Name, fmt.Errorf("static target requires an archive tool"))
			}
		}
	}
	if exeCount > 1 {
		return buildapi.Config("targets", fmt.Errorf("at most one exe target is allowed, found %d", exeCount))
	}

	for _, t := range c.Targets {
		for _, dep := range t.Deps {
			depTarget, ok := c.TargetByName(dep)
			if !ok {
				return buildapi.Config(t.Name, fmt.Errorf("dependency %q does not name a declared target", dep))
			}
			if depTarget.Type == TargetExe || depTarget.Type == TargetObject {
				return buildapi.Config(t.Name, fmt.Errorf("dependency %q is a %s target, which cannot be depended on", dep, depTarget.Type))
			}
		}
	}

	if c.Guest != nil {
		if err := c.Guest.validate(); err != nil {
			return err
		}
		c.Guest.injectAutoServices()
	}
	return nil
}

func (g *Guest) validate() error {
	switch g.Ulib {
	case ULibRuxlibc, ULibRuxmusl:
	default:
		return buildapi.Config("os.ulib", fmt.Errorf("unknown ulib %q", g.Ulib))
	}
	if !slices.Contains(KnownPlatforms, g.Platform.Name) {
		return buildapi.Config("os.platform.name", fmt.Errorf("unknown platform %q", g.Platform.Name))
	}
	if g.Platform.Emulator.NetDev != "" && g.Platform.Emulator.NetDev != "user" && g.Platform.Emulator.NetDev != "tap" {
		return buildapi.Config("os.platform.qemu.net_dev", fmt.Errorf("net_dev must be \"user\" or \"tap\", got %q", g.Platform.Emulator.NetDev))
	}
	return nil
}

// injectAutoServices adds the services implied by what's already declared:
// fs/net/pipe/select/poll/epoll imply "fd", and ulib=ruxmusl implies
// musl/fp_simd/fd/tls.
func (g *Guest) injectAutoServices() {
	add := func(name string) {
		if !slices.Contains(g.Services, name) {
			g.Services = append(g.Services, name)
		}
	}
	for _, svc := range g.Services {
		if serviceAutoDeps[svc] {
			add("fd")
			break
		}
	}
	if g.Ulib == ULibRuxmusl {
		add("musl")
		add("fp_simd")
		add("fd")
		add("tls")
	}
}
