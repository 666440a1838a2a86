package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ConfigEnv is the evaluation context macros and conditional sections run
// against while a BuildConfig is being parsed.
type ConfigEnv struct {
	TargetOS   string
	TargetArch string
	Environ    map[string]string
	basedir    string
}

// NewConfigEnv builds a ConfigEnv rooted at basedir (the directory holding
// the config file being parsed, used to resolve relative patch-hook paths).
func NewConfigEnv(basedir string) *ConfigEnv {
	env := &ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    map[string]string{},
		basedir:    basedir,
	}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env.Environ[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

func (e *ConfigEnv) vars() map[string]any {
	return map[string]any{
		"os":     e.TargetOS,
		"arch":   e.TargetArch,
		"env":    e.Environ,
		"GOOS":   e.TargetOS,
		"GOARCH": e.TargetArch,
	}
}

// exprRegex matches a `{{ expr }}` macro embedded in a TOML string value.
var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString expands every `{{ ... }}` macro in s using expr-lang,
// substituting each match's stringified result in place.
func (e *ConfigEnv) evaluateString(s string) (string, error) {
	var evalErr error
	out := exprRegex.ReplaceAllStringFunc(s, func(m string) string {
		if evalErr != nil {
			return m
		}
		src := strings.TrimSpace(m[2 : len(m)-2])
		program, err := expr.Compile(src, expr.Env(e.vars()))
		if err != nil {
			evalErr = fmt.Errorf("compiling macro %q: %w", src, err)
			return m
		}
		result, err := expr.Run(program, e.vars())
		if err != nil {
			evalErr = fmt.Errorf("evaluating macro %q: %w", src, err)
			return m
		}
		return fmt.Sprint(result)
	})
	if evalErr != nil {
		return "", evalErr
	}
	return out, nil
}

// evaluateBool evaluates src (without surrounding `{{ }}`) as a boolean
// expr-lang expression, used to gate conditional config sections.
func (e *ConfigEnv) evaluateBool(src string) (bool, error) {
	program, err := expr.Compile(src, expr.Env(e.vars()), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compiling condition %q: %w", src, err)
	}
	result, err := expr.Run(program, e.vars())
	if err != nil {
		return false, fmt.Errorf("evaluating condition %q: %w", src, err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not evaluate to a bool", src)
	}
	return b, nil
}

// processExpressions walks a freshly-unmarshaled TOML document (as produced
// by toml.Unmarshal into map[string]any) and expands every string value's
// macros in place.
func processExpressions(v any, env *ConfigEnv) (any, error) {
	switch val := v.(type) {
	case string:
		return env.evaluateString(val)
	case map[string]any:
		for k, child := range val {
			expanded, err := processExpressions(child, env)
			if err != nil {
				return nil, err
			}
			val[k] = expanded
		}
		return val, nil
	case []any:
		for i, child := range val {
			expanded, err := processExpressions(child, env)
			if err != nil {
				return nil, err
			}
			val[i] = expanded
		}
		return val, nil
	default:
		return v, nil
	}
}

// Patch applies a unified-diff-style patch (as produced by
// diffmatchpatch.PatchToText) to original, returning the patched text. It
// is a standalone helper: neither the config parser nor the package fetcher
// calls it, and no config key applies a patch to fetched sources.
func (e *ConfigEnv) Patch(original []byte, patchText string) ([]byte, error) {
	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		return nil, fmt.Errorf("parsing patch: %w", err)
	}
	patched, applied := dmp.PatchApply(patches, string(original))
	for _, ok := range applied {
		if !ok {
			return nil, fmt.Errorf("patch did not apply cleanly")
		}
	}
	return []byte(patched), nil
}

// ReadFile reads path relative to the config file's directory (an absolute
// path is read as is). The config parser itself does not call it.
func (e *ConfigEnv) ReadFile(path string) ([]byte, error) {
	if filepath.IsAbs(path) {
		return os.ReadFile(path)
	}
	return os.ReadFile(filepath.Join(e.basedir, path))
}

// BaseDir returns the directory the ConfigEnv resolves relative paths against.
func (e *ConfigEnv) BaseDir() string { return e.basedir }
