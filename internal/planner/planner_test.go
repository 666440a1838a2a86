package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ruxgo-build/ruxgo/internal/config"
	"github.com/ruxgo-build/ruxgo/internal/hashstore"
)

func TestTopoSortTargetsOrdersDepsFirst(t *testing.T) {
	cfg := &config.BuildConfig{Targets: []config.Target{
		{Name: "app", Type: config.TargetExe, Deps: []string{"libnet"}},
		{Name: "libnet", Type: config.TargetStatic, Archive: "ar", Deps: []string{"libbase"}},
		{Name: "libbase", Type: config.TargetStatic, Archive: "ar"},
	}}
	order, err := TopoSortTargets(cfg)
	if err != nil {
		t.Fatal(err)
	}
	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	if pos["libbase"] > pos["libnet"] || pos["libnet"] > pos["app"] {
		t.Fatalf("expected libbase < libnet < app, got %v", order)
	}
}

func TestTopoSortTargetsDetectsCycle(t *testing.T) {
	cfg := &config.BuildConfig{Targets: []config.Target{
		{Name: "a", Type: config.TargetStatic, Archive: "ar", Deps: []string{"b"}},
		{Name: "b", Type: config.TargetStatic, Archive: "ar", Deps: []string{"a"}},
	}}
	if _, err := TopoSortTargets(cfg); err == nil {
		t.Fatal("expected cycle detection error")
	}
}

func TestDetectDuplicateSourcesRejectsRepeatedPath(t *testing.T) {
	inputs := []SourceInput{
		{Target: "app", Path: "src/main.c"},
		{Target: "app", Path: "src/main.c"},
	}
	if err := DetectDuplicateSources(inputs); err == nil {
		t.Fatal("expected duplicate-source error")
	}
}

func TestDetectDuplicateSourcesAllowsSamePathDifferentTargets(t *testing.T) {
	inputs := []SourceInput{
		{Target: "app", Path: "shared.c"},
		{Target: "lib", Path: "shared.c"},
	}
	if err := DetectDuplicateSources(inputs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPlanCompileJobsFindsDirtySourceOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.c")
	os.WriteFile(src, []byte("int main(){return 0;}"), 0o644)

	store, err := hashstore.Open(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	inputs := []SourceInput{
		{Target: "app", Path: src, Cflags: []string{"-O2"}}.WithObjectPath(filepath.Join(dir, "main.o")),
	}
	jobs, err := PlanCompileJobs(store, inputs)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 dirty job on first run, got %d", len(jobs))
	}
}

func TestPlanCompileJobsSkipsCleanSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.c")
	obj := filepath.Join(dir, "main.o")
	os.WriteFile(src, []byte("int main(){return 0;}"), 0o644)
	os.WriteFile(obj, []byte("fake object"), 0o644)

	store, err := hashstore.Open(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	input := SourceInput{Target: "app", Path: src, Cflags: []string{"-O2"}}.WithObjectPath(obj)

	jobs, err := PlanCompileJobs(store, []SourceInput{input})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected dirty on first run, got %d", len(jobs))
	}
	RecordCompileSuccess(store, jobs[0], jobs[0].Fingerprint)

	jobs, err = PlanCompileJobs(store, []SourceInput{input})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected clean source to produce no jobs, got %d", len(jobs))
	}
}

func TestPlanCompileJobsSkipsCleanSourceWithHeaders(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.c")
	hdr := filepath.Join(dir, "main.h")
	obj := filepath.Join(dir, "main.o")
	os.WriteFile(src, []byte("int main(){return 0;}"), 0o644)
	os.WriteFile(hdr, []byte("void f(void);"), 0o644)
	os.WriteFile(obj, []byte("fake object"), 0o644)

	store, err := hashstore.Open(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	input := SourceInput{Target: "app", Path: src, Cflags: []string{"-O2"}, Headers: []string{hdr}}.WithObjectPath(obj)

	jobs, err := PlanCompileJobs(store, []SourceInput{input})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected dirty on first run, got %d", len(jobs))
	}
	RecordCompileSuccess(store, jobs[0], jobs[0].Fingerprint)

	jobs, err = PlanCompileJobs(store, []SourceInput{input})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected clean header-bearing source to produce no jobs, got %d", len(jobs))
	}
}

func TestPlanLinkRequiresLinkWhenOutputMissing(t *testing.T) {
	dir := t.TempDir()
	store, _ := hashstore.Open(filepath.Join(dir, "state.json"))
	decision := PlanLink(store, "app", filepath.Join(dir, "bin", "app"), hashstore.TargetFingerprint{Type: "exe"})
	if !decision.NeedsLink {
		t.Fatal("expected link required when artifact is missing")
	}
}

func TestPlanLinkSkipsWhenFingerprintUnchanged(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "app")
	os.WriteFile(artifact, []byte("binary"), 0o755)

	store, _ := hashstore.Open(filepath.Join(dir, "state.json"))
	fresh := hashstore.TargetFingerprint{Type: "exe", ToolIdentity: "gcc", ObjectFingerprints: []hashstore.Fingerprint{"a"}}
	store.SetTargetFingerprint("app", fresh)

	decision := PlanLink(store, "app", artifact, fresh)
	if decision.NeedsLink {
		t.Fatalf("expected no relink needed, got reason %q", decision.Reason)
	}
}

func TestPlanLinkDetectsFlagChange(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "app")
	os.WriteFile(artifact, []byte("binary"), 0o755)

	store, _ := hashstore.Open(filepath.Join(dir, "state.json"))
	store.SetTargetFingerprint("app", hashstore.TargetFingerprint{Type: "exe", ToolIdentity: "gcc", Ldflags: "-lm"})

	fresh := hashstore.TargetFingerprint{Type: "exe", ToolIdentity: "gcc", Ldflags: "-lpthread"}
	decision := PlanLink(store, "app", artifact, fresh)
	if !decision.NeedsLink {
		t.Fatal("expected relink required after ldflags change")
	}
}
