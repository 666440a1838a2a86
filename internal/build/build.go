// Package build is the top-level orchestrator wiring together config,
// overlay, the hash store, the scanner, the planner, the worker pool and
// the target compiler into the build/run/clean operations a project
// exposes through the command line.
package build

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
	"github.com/ruxgo-build/ruxgo/internal/buildlock"
	"github.com/ruxgo-build/ruxgo/internal/config"
	"github.com/ruxgo-build/ruxgo/internal/hashstore"
	"github.com/ruxgo-build/ruxgo/internal/ideout"
	"github.com/ruxgo-build/ruxgo/internal/launch"
	"github.com/ruxgo-build/ruxgo/internal/model"
	"github.com/ruxgo-build/ruxgo/internal/msg"
	"github.com/ruxgo-build/ruxgo/internal/overlay"
	"github.com/ruxgo-build/ruxgo/internal/planner"
	"github.com/ruxgo-build/ruxgo/internal/scanner"
	"github.com/ruxgo-build/ruxgo/internal/targetcompiler"
	"github.com/ruxgo-build/ruxgo/internal/toolchain"
	"github.com/ruxgo-build/ruxgo/internal/worker"
)

var sourceExtensions = []string{"c", "cc", "cpp", "cxx"}

// Options configures a Builder.
type Options struct {
	ConfigPath string
	BuildRoot  string
	GuestRoot  string
	Jobs       int
}

// Builder drives one project's build/run/clean lifecycle.
type Builder struct {
	cfg       *config.BuildConfig
	configDir string
	buildRoot string
	guestRoot string
	jobs      int
	store     *hashstore.Store
}

// New parses the config at opts.ConfigPath, applies the Guest Overlay if
// the config declares a guest platform, and opens the hash store.
func New(opts Options) (*Builder, error) {
	cfg, err := config.ParseConfigFromFile(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	configDir := filepath.Dir(opts.ConfigPath)

	if cfg.Guest != nil {
		cfg, err = overlay.Apply(cfg, opts.GuestRoot)
		if err != nil {
			return nil, err
		}
	}

	buildRoot := opts.BuildRoot
	if buildRoot == "" {
		buildRoot = "ruxgo_bld"
	}
	store, err := hashstore.Open(filepath.Join(buildRoot, "build_state.json"))
	if err != nil {
		return nil, err
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = 4
	}

	return &Builder{
		cfg:       cfg,
		configDir: configDir,
		buildRoot: buildRoot,
		guestRoot: opts.GuestRoot,
		jobs:      jobs,
		store:     store,
	}, nil
}

// Config returns the (possibly overlayed) BuildConfig the Builder is
// operating on.
func (b *Builder) Config() *config.BuildConfig { return b.cfg }

// BuildRoot returns the directory build artifacts are written under.
func (b *Builder) BuildRoot() string { return b.buildRoot }

// Build compiles and links every target, in dependency order, skipping
// whatever the Build Planner decides is already up to date.
func (b *Builder) Build(ctx context.Context) error {
	lock, err := buildlock.Acquire(b.buildRoot)
	if err != nil {
		return err
	}
	defer lock.Release()

	order, err := planner.TopoSortTargets(b.cfg)
	if err != nil {
		return err
	}

	compiler, err := resolveCompilerPath(b.cfg.Compiler)
	if err != nil {
		return err
	}
	compilerID, err := toolchain.Identity(ctx, compiler)
	if err != nil {
		msg.Warn("could not determine compiler identity for %s: %v", compiler, err)
	}

	sourcesByTarget := map[string][]string{}
	var allInputs []planner.SourceInput
	for _, name := range order {
		target, _ := b.cfg.TargetByName(name)
		srcs, err := CollectSources(b.configDir, target)
		if err != nil {
			return err
		}
		sourcesByTarget[name] = srcs
		for _, src := range srcs {
			allInputs = append(allInputs, planner.SourceInput{Target: name, Path: src})
		}
	}
	if err := planner.DetectDuplicateSources(allInputs); err != nil {
		return err
	}

	for _, name := range order {
		target, _ := b.cfg.TargetByName(name)
		if err := b.buildOneTarget(ctx, target, sourcesByTarget[name], compiler, compilerID); err != nil {
			return err
		}
	}

	return b.store.Save()
}

func (b *Builder) buildOneTarget(ctx context.Context, target *config.Target, srcs []string, compiler, compilerID string) error {
	cflags := model.EffectiveCflags(b.cfg, target)

	inputs := make([]planner.SourceInput, 0, len(srcs))
	for _, src := range srcs {
		headers := b.scanHeaders(ctx, compiler, cflags, src)
		objPath := model.ObjectPath(b.buildRoot, target.Name, src)
		inputs = append(inputs, planner.SourceInput{
			Target:  target.Name,
			Path:    src,
			Cflags:  cflags,
			Headers: headers,
		}.WithObjectPath(objPath))
	}

	jobs, err := planner.PlanCompileJobs(b.store, inputs)
	if err != nil {
		return err
	}

	if len(jobs) > 0 {
		pb := msg.NewProgressBar(int64(len(jobs)), 2, os.Stdout)
		err := worker.RunWithProgress(ctx, b.jobs, jobs, pb, func(ctx context.Context, job planner.CompileJob) error {
			if err := targetcompiler.Compile(ctx, compiler, job.Cflags, job.Src, job.ObjectPath); err != nil {
				return err
			}
			planner.RecordCompileSuccess(b.store, job, job.Fingerprint)
			return nil
		})
		pb.Finish()
		if err != nil {
			return err
		}
	}

	if target.Type == config.TargetObject {
		return nil
	}

	headersBySrc := make(map[string][]string, len(inputs))
	for _, in := range inputs {
		headersBySrc[in.Path] = in.Headers
	}
	objectFingerprints := make([]hashstore.Fingerprint, 0, len(srcs))
	for _, src := range sortedCopy(srcs) {
		fp, err := b.store.HashFile(src)
		if err != nil {
			return err
		}
		parts := []string{string(fp), strings.Join(cflags, " ")}
		for _, h := range headersBySrc[src] {
			if hfp, err := b.store.HashFile(h); err == nil {
				parts = append(parts, string(hfp))
			} else {
				parts = append(parts, "missing:"+h)
			}
		}
		objectFingerprints = append(objectFingerprints, hashstore.Combine(parts...))
	}

	depArtifactFingerprints := make([]hashstore.Fingerprint, 0)
	for _, depName := range model.TransitiveDeps(b.cfg, target.Name) {
		dep, ok := b.cfg.TargetByName(depName)
		if !ok {
			continue
		}
		artifact := model.ArtifactPath(b.buildRoot, dep)
		if artifact == "" {
			continue
		}
		if fp, err := b.store.HashFile(artifact); err == nil {
			depArtifactFingerprints = append(depArtifactFingerprints, fp)
		}
	}

	toolID, err := toolIdentityFor(ctx, b.cfg, target, compiler, compilerID)
	if err != nil {
		return err
	}

	fresh := hashstore.TargetFingerprint{
		Type:                    string(target.Type),
		ToolIdentity:            toolID,
		Ldflags:                 target.Ldflags,
		ObjectFingerprints:      objectFingerprints,
		DepArtifactFingerprints: depArtifactFingerprints,
	}

	artifactPath := artifactPathFor(b.cfg, b.buildRoot, target)
	decision := planner.PlanLink(b.store, target.Name, artifactPath, fresh)
	if !decision.NeedsLink {
		return nil
	}
	msg.Info("linking %s (%s)", target.Name, decision.Reason)

	objectPaths := make([]string, 0, len(srcs))
	for _, src := range srcs {
		objectPaths = append(objectPaths, model.ObjectPath(b.buildRoot, target.Name, src))
	}
	linkInputs := model.EffectiveLinkInputs(b.cfg, b.buildRoot, target)

	if err := b.link(ctx, target, objectPaths, linkInputs, compiler); err != nil {
		return err
	}

	b.store.SetTargetFingerprint(target.Name, fresh)
	return nil
}

func (b *Builder) link(ctx context.Context, target *config.Target, objects, linkInputs []string, compiler string) error {
	switch target.Type {
	case config.TargetStatic:
		archiver := target.Archive
		if archiver == "" {
			var err error
			archiver, err = toolchain.FindArchiver()
			if err != nil {
				return err
			}
		}
		return targetcompiler.Archive(ctx, archiver, objects, model.ArtifactPath(b.buildRoot, target))

	case config.TargetShared:
		linker := target.Linker
		if linker == "" {
			linker = compiler
		}
		return targetcompiler.LinkShared(ctx, linker, objects, linkInputs, model.ArtifactPath(b.buildRoot, target))

	case config.TargetExe:
		linker := target.Linker
		if linker == "" {
			linker = compiler
		}
		if b.cfg.Guest != nil {
			elfPath := overlay.ElfPath(b.buildRoot, target.Name)
			if err := targetcompiler.LinkExe(ctx, linker, objects, linkInputs, elfPath); err != nil {
				return err
			}
			objcopy := objcopyFor(linker)
			return targetcompiler.ObjcopyToBinary(ctx, objcopy, b.cfg.Guest.Platform.Arch(), elfPath, overlay.BinPath(b.buildRoot, target.Name))
		}
		return targetcompiler.LinkExe(ctx, linker, objects, linkInputs, model.ArtifactPath(b.buildRoot, target))
	}
	return nil
}

func (b *Builder) scanHeaders(ctx context.Context, compiler string, cflags []string, src string) []string {
	result, err := scanner.Scan(ctx, compiler, cflags, src)
	if err != nil {
		msg.Warn("header scan failed for %s, continuing without extra header dependencies: %v", src, err)
		return nil
	}
	return result.Headers
}

// Run launches the exe target, directly or under the configured emulator.
func (b *Builder) Run(ctx context.Context, binArgs []string) (int, error) {
	return launch.Run(ctx, b.cfg, b.buildRoot, binArgs)
}

// GenerateIDEFiles writes compile_commands.json and
// .vscode/c_cpp_properties.json for the current config.
func (b *Builder) GenerateIDEFiles(projectRoot string) error {
	compiler, err := resolveCompilerPath(b.cfg.Compiler)
	if err != nil {
		return err
	}
	sourcesByTarget := map[string][]string{}
	for i := range b.cfg.Targets {
		t := &b.cfg.Targets[i]
		srcs, err := CollectSources(b.configDir, t)
		if err != nil {
			return err
		}
		sourcesByTarget[t.Name] = srcs
	}

	entries := ideout.BuildCompileCommands(b.cfg, compiler, b.buildRoot, projectRoot, sourcesByTarget)
	if err := ideout.WriteCompileCommands(filepath.Join(projectRoot, "compile_commands.json"), entries); err != nil {
		return err
	}
	props := ideout.BuildCppProperties(b.cfg, compiler)
	return ideout.WriteCppProperties(projectRoot, props)
}

// Clean removes the build root entirely.
func (b *Builder) Clean() error {
	if err := os.RemoveAll(b.buildRoot); err != nil {
		return buildapi.IO(b.buildRoot, err)
	}
	return nil
}

// CollectSources resolves a target's Src roots (relative to configDir)
// into a sorted, deduplicated list of source file paths joined onto
// configDir (absolute only when configDir is), applying
// SrcExcluded as a substring match against the normalized relative path
// (so either a directory name or a bare filename can be excluded).
func CollectSources(configDir string, t *config.Target) ([]string, error) {
	seen := map[string]bool{}
	var out []string

	for _, root := range t.Src {
		base := filepath.Join(configDir, root)
		fsys := os.DirFS(base)
		for _, ext := range sourceExtensions {
			matches, err := doublestar.Glob(fsys, "**/*."+ext)
			if err != nil {
				return nil, buildapi.Scan(base, err)
			}
			for _, rel := range matches {
				if excluded(t.SrcExcluded, rel) {
					continue
				}
				full := filepath.Join(base, rel)
				if !seen[full] {
					seen[full] = true
					out = append(out, full)
				}
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func excluded(patterns []string, relPath string) bool {
	normalized := filepath.ToSlash(relPath)
	for _, p := range patterns {
		if strings.Contains(normalized, filepath.ToSlash(p)) {
			return true
		}
	}
	return false
}

func resolveCompilerPath(configuredCompiler string) (string, error) {
	if configuredCompiler != "" {
		return configuredCompiler, nil
	}
	return toolchain.FindCompiler(false)
}

func toolIdentityFor(ctx context.Context, cfg *config.BuildConfig, target *config.Target, compiler, compilerID string) (string, error) {
	switch target.Type {
	case config.TargetStatic:
		archiver := target.Archive
		if archiver == "" {
			var err error
			archiver, err = toolchain.FindArchiver()
			if err != nil {
				return "", err
			}
		}
		id, err := toolchain.Identity(ctx, archiver)
		if err != nil {
			return archiver, nil
		}
		return id, nil
	default:
		linker := target.Linker
		if linker == "" {
			linker = compiler
		}
		if linker == compiler {
			return compilerID, nil
		}
		id, err := toolchain.Identity(ctx, linker)
		if err != nil {
			return linker, nil
		}
		return id, nil
	}
}

func artifactPathFor(cfg *config.BuildConfig, buildRoot string, target *config.Target) string {
	if target.Type == config.TargetExe && cfg.Guest != nil {
		return overlay.BinPath(buildRoot, target.Name)
	}
	return model.ArtifactPath(buildRoot, target)
}

// objcopyFor derives the objcopy binary name from the linker/compiler's
// name, following the cross-compiler-prefix convention (e.g.
// "x86_64-linux-musl-gcc" -> "x86_64-linux-musl-objcopy").
func objcopyFor(linker string) string {
	base := filepath.Base(linker)
	for _, suffix := range []string{"-gcc", "-clang", "-cc", "-g++", "-clang++", "-c++"} {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix) + "-objcopy"
		}
	}
	return "objcopy"
}

func sortedCopy(s []string) []string {
	out := append([]string{}, s...)
	sort.Strings(out)
	return out
}
