// Package model implements pure, side-effect-free BuildConfig -> path /
// flag helpers: turning a target's declared fields into concrete
// object/artifact paths and effective compile/link inputs, with
// dependencies folded in.
package model

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ruxgo-build/ruxgo/internal/config"
)

// ObjectPath returns the path an object file compiled from srcPath for
// target targetName is written to under buildRoot, flattening the source's
// relative path into a single filename under obj_linux/obj_win32.
func ObjectPath(buildRoot, targetName, srcPath string) string {
	clean := filepath.ToSlash(filepath.Clean(srcPath))
	clean = strings.TrimPrefix(clean, "/")
	clean = strings.ReplaceAll(clean, "../", "up/")
	rel := strings.ReplaceAll(clean, "/", "_")
	return filepath.Join(buildRoot, config.ObjDirName(), targetName, rel+".o")
}

// ArtifactPath returns the final build output path for t, using a
// per-type, per-host naming convention (.a/.so/.dll/bare or .exe).
func ArtifactPath(buildRoot string, t *config.Target) string {
	bin := filepath.Join(buildRoot, "bin")
	switch t.Type {
	case config.TargetStatic:
		return filepath.Join(bin, t.Name+".a")
	case config.TargetShared:
		if runtime.GOOS == "windows" {
			return filepath.Join(bin, t.Name+".dll")
		}
		return filepath.Join(bin, t.Name+".so")
	case config.TargetExe:
		if runtime.GOOS == "windows" {
			return filepath.Join(bin, t.Name+".exe")
		}
		return filepath.Join(bin, t.Name)
	default: // object: no single artifact, caller uses the object list directly
		return ""
	}
}

// DirectDeps returns t's immediate dependency targets, in declared order.
func DirectDeps(cfg *config.BuildConfig, t *config.Target) []*config.Target {
	out := make([]*config.Target, 0, len(t.Deps))
	for _, name := range t.Deps {
		if dep, ok := cfg.TargetByName(name); ok {
			out = append(out, dep)
		}
	}
	return out
}

// TransitiveDeps returns every target name reachable from t's Deps,
// deepest-first (a target's own dependencies appear before it). It is used
// for include-dir propagation and dependency-artifact fingerprints; link
// inputs are assembled by EffectiveLinkInputs instead.
func TransitiveDeps(cfg *config.BuildConfig, name string) []string {
	var order []string
	visited := map[string]bool{}

	var visit func(string)
	visit = func(n string) {
		if visited[n] {
			return
		}
		visited[n] = true
		t, ok := cfg.TargetByName(n)
		if !ok {
			return
		}
		for _, dep := range t.Deps {
			visit(dep)
		}
		if n != name {
			order = append(order, n)
		}
	}
	visit(name)
	return order
}

// EffectiveIncludeDirs returns t's own include_dirs followed by the
// include_dirs of every transitive dependency, de-duplicated, preserving
// first occurrence.
func EffectiveIncludeDirs(cfg *config.BuildConfig, t *config.Target) []string {
	seen := map[string]bool{}
	var out []string
	add := func(dirs []string) {
		for _, d := range dirs {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	add(t.IncludeDirs)
	for _, depName := range TransitiveDeps(cfg, t.Name) {
		if dep, ok := cfg.TargetByName(depName); ok {
			add(dep.IncludeDirs)
		}
	}
	return out
}

// EffectiveCflags returns the full set of compiler flags for compiling a
// source file belonging to t: t's own cflags, tokenized, followed by a -I
// flag for every entry of EffectiveIncludeDirs.
func EffectiveCflags(cfg *config.BuildConfig, t *config.Target) []string {
	flags := tokenize(t.Cflags)
	for _, dir := range EffectiveIncludeDirs(cfg, t) {
		flags = append(flags, "-I"+dir)
	}
	return flags
}

// EffectiveLinkInputs returns the link inputs of t's transitive
// dependencies, deepest-first, followed by t's own ldflags tokens, for the
// Target Compiler's link command assembly. A static or object dependency
// contributes its artifact path directly; a shared dependency contributes a
// -L/-l pair instead, and its own dependencies are not walked any further,
// since they're already embedded in the shared object at runtime.
func EffectiveLinkInputs(cfg *config.BuildConfig, buildRoot string, t *config.Target) []string {
	var inputs []string
	for _, dep := range linkClosure(cfg, t) {
		switch dep.Type {
		case config.TargetShared:
			path := ArtifactPath(buildRoot, dep)
			inputs = append(inputs, "-L"+filepath.Dir(path), "-l"+strings.TrimPrefix(dep.Name, "lib"))
		default:
			if path := ArtifactPath(buildRoot, dep); path != "" {
				inputs = append(inputs, path)
			}
		}
	}
	inputs = append(inputs, tokenize(t.Ldflags)...)
	return inputs
}

// linkClosure returns t's transitive dependency targets, deepest-first, not
// descending past a shared target into its own dependencies.
func linkClosure(cfg *config.BuildConfig, t *config.Target) []*config.Target {
	var order []*config.Target
	visited := map[string]bool{}

	var visit func(*config.Target)
	visit = func(cur *config.Target) {
		for _, depName := range cur.Deps {
			dep, ok := cfg.TargetByName(depName)
			if !ok || visited[dep.Name] {
				continue
			}
			visited[dep.Name] = true
			if dep.Type != config.TargetShared {
				visit(dep)
			}
			order = append(order, dep)
		}
	}
	visit(t)
	return order
}

func tokenize(s string) []string {
	return strings.Fields(s)
}
