// Package planner computes a topological ordering of targets, detects dirty
// sources, and decides when a target needs relinking, all driven off the
// fingerprints internal/hashstore maintains.
package planner

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
	"github.com/ruxgo-build/ruxgo/internal/config"
	"github.com/ruxgo-build/ruxgo/internal/hashstore"
)

// SourceInput is one source file belonging to one target, with its compile
// flags and the headers the Header Scanner most recently found for it.
type SourceInput struct {
	Target      string
	Path        string
	Cflags      []string
	Headers     []string
	objectPath  string
}

// CompileJob is one unit of planned compile work.
type CompileJob struct {
	Target     string
	Src        string
	ObjectPath string
	Cflags     []string
	// FingerprintKey is the hash-store key this job's result is recorded
	// under once it completes successfully.
	FingerprintKey string
	// Fingerprint is the fingerprint (file + cflags + header hashes)
	// PlanCompileJobs computed for this job; RecordCompileSuccess must be
	// given this exact value back, not a recomputed one, so a unit with
	// headers is actually seen as clean on the next pass.
	Fingerprint hashstore.Fingerprint
}

// TopoSortTargets returns target names in dependency order (a target's
// dependencies come before it), following Kahn's algorithm with a
// lexicographically-sorted ready queue for deterministic output, as the
// teacher's topologicalSortTargets does. It reports a ConfigError if the
// dependency graph contains a cycle.
func TopoSortTargets(cfg *config.BuildConfig) ([]string, error) {
	indegree := make(map[string]int, len(cfg.Targets))
	dependents := make(map[string][]string, len(cfg.Targets))

	for _, t := range cfg.Targets {
		if _, exists := indegree[t.Name]; !exists {
			indegree[t.Name] = 0
		}
		for _, dep := range t.Deps {
			indegree[t.Name]++
			dependents[dep] = append(dependents[dep], t.Name)
		}
	}

	var ready []string
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		var newlyReady []string
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		ready = append(ready, newlyReady...)
	}

	if len(order) != len(indegree) {
		var stuck []string
		for name, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, buildapi.Config("targets", fmt.Errorf("dependency cycle involving: %s", strings.Join(stuck, ", ")))
	}
	return order, nil
}

// DetectDuplicateSources rejects a target that lists the same resolved
// source path twice.
func DetectDuplicateSources(inputs []SourceInput) error {
	seen := make(map[string]map[string]bool)
	for _, in := range inputs {
		byTarget, ok := seen[in.Target]
		if !ok {
			byTarget = map[string]bool{}
			seen[in.Target] = byTarget
		}
		if byTarget[in.Path] {
			return buildapi.Config(in.Target, fmt.Errorf("source %q is listed more than once", in.Path))
		}
		byTarget[in.Path] = true
	}
	return nil
}

// sourceFingerprintKey is the hash-store key a source file's fingerprint is
// recorded under: its target and path, so the same path reused by two
// targets with different flags is tracked independently.
func sourceFingerprintKey(target, path string) string {
	return target + "::" + path
}

// PlanCompileJobs returns the subset of inputs whose fingerprint (file
// content + header content + resolved cflags) differs from what
// store last recorded, or whose object file is missing, following
// isSourceFileDirty.
func PlanCompileJobs(store *hashstore.Store, inputs []SourceInput) ([]CompileJob, error) {
	var jobs []CompileJob
	for _, in := range inputs {
		key := sourceFingerprintKey(in.Target, in.Path)

		fp, err := computeSourceFingerprint(store, in)
		if err != nil {
			return nil, err
		}

		dirty := true
		if prev, ok := store.SourceFingerprint(key); ok && prev == fp {
			if _, err := os.Stat(in.ObjectPath()); err == nil {
				dirty = false
			}
		}
		if !dirty {
			continue
		}
		jobs = append(jobs, CompileJob{
			Target:         in.Target,
			Src:            in.Path,
			ObjectPath:     in.ObjectPath(),
			Cflags:         in.Cflags,
			FingerprintKey: key,
			Fingerprint:    fp,
		})
	}
	return jobs, nil
}

// ObjectPath is supplied by the caller via a thin wrapper; SourceInput
// doesn't know the build root on its own, so callers set it explicitly.
func (in SourceInput) ObjectPath() string { return in.objectPath }

// WithObjectPath returns a copy of in carrying the resolved object path,
// used once the caller (internal/build) has computed it via internal/model.
func (in SourceInput) WithObjectPath(path string) SourceInput {
	in.objectPath = path
	return in
}

func computeSourceFingerprint(store *hashstore.Store, in SourceInput) (hashstore.Fingerprint, error) {
	srcFp, err := store.HashFile(in.Path)
	if err != nil {
		return "", err
	}
	parts := []string{string(srcFp), strings.Join(in.Cflags, " ")}
	for _, h := range in.Headers {
		hFp, err := store.HashFile(h)
		if err != nil {
			// A header that has since vanished is itself a reason to
			// consider the source dirty, not a fatal planning error.
			parts = append(parts, "missing:"+h)
			continue
		}
		parts = append(parts, string(hFp))
	}
	return hashstore.Combine(parts...), nil
}

// RecordCompileSuccess updates the hash store after job completes
// successfully, so the next planning pass sees it as clean.
func RecordCompileSuccess(store *hashstore.Store, job CompileJob, fp hashstore.Fingerprint) {
	store.SetSourceFingerprint(job.FingerprintKey, fp)
}

// LinkDecision is the verdict on whether a target needs relinking, and why:
// missing output, a flag or tool change, a rebuilt dependency, or dirty
// sources.
type LinkDecision struct {
	NeedsLink bool
	Reason    string
}

// PlanLink decides whether target needs relinking given its freshly
// computed fingerprint (type, tool identity, ldflags, object fingerprints,
// dependency artifact fingerprints) against the one on record, and whether
// its artifact file currently exists.
func PlanLink(store *hashstore.Store, targetName, artifactPath string, fresh hashstore.TargetFingerprint) LinkDecision {
	if artifactPath != "" {
		if _, err := os.Stat(artifactPath); err != nil {
			return LinkDecision{NeedsLink: true, Reason: "missing output"}
		}
	}
	prev, ok := store.TargetFingerprintOf(targetName)
	if !ok {
		return LinkDecision{NeedsLink: true, Reason: "no prior record"}
	}
	if prev.ToolIdentity != fresh.ToolIdentity || prev.Ldflags != fresh.Ldflags || prev.Type != fresh.Type {
		return LinkDecision{NeedsLink: true, Reason: "flag or tool change"}
	}
	if !fingerprintSliceEqual(prev.DepArtifactFingerprints, fresh.DepArtifactFingerprints) {
		return LinkDecision{NeedsLink: true, Reason: "dependency rebuilt"}
	}
	if !fingerprintSliceEqual(prev.ObjectFingerprints, fresh.ObjectFingerprints) {
		return LinkDecision{NeedsLink: true, Reason: "dirty sources"}
	}
	return LinkDecision{NeedsLink: false}
}

func fingerprintSliceEqual(a, b []hashstore.Fingerprint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
