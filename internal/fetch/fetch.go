// Package fetch retrieves the remote source bundles a BuildConfig's
// Packages list names, via git clones, expanding the shortcut URL schemes
// and detecting fetch cycles across packages that themselves declare
// packages.
package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
	"github.com/ruxgo-build/ruxgo/internal/config"
)

// shortcuts maps a package source prefix to the full URL it expands to.
var shortcuts = map[string]string{
	"gh:": "https://github.com/",
	"gl:": "https://gitlab.com/",
	"bb:": "https://bitbucket.org/",
	"sr:": "https://git.sr.ht/",
	"cb:": "https://codeberg.org/",
}

// IsURL reports whether source is already a full URL (has a scheme) rather
// than a bare shortcut or a local path.
func IsURL(source string) bool {
	return strings.Contains(source, "://")
}

// ResolveSource expands a shortcut-scheme source into its full git URL,
// passing a source through unchanged if it's already a URL.
func ResolveSource(source string) (string, error) {
	if IsURL(source) {
		return source, nil
	}
	for prefix, base := range shortcuts {
		if strings.HasPrefix(source, prefix) {
			return base + strings.TrimPrefix(source, prefix), nil
		}
	}
	return "", fmt.Errorf("unrecognized package source %q (expected a URL or one of gh:/gl:/bb:/sr:/cb:)", source)
}

// Fetch clones ref's source into destDir at the requested branch or tag
// (mutually exclusive; branch wins if both are set), with depth 1.
func Fetch(ctx context.Context, ref config.PackageRef, destDir string) error {
	url, err := ResolveSource(ref.Source)
	if err != nil {
		return buildapi.Package(ref.Name, err)
	}

	opts := &git.CloneOptions{URL: url, Depth: 1}
	switch {
	case ref.Branch != "":
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref.Branch)
	case ref.Tag != "":
		opts.ReferenceName = plumbing.NewTagReferenceName(ref.Tag)
	}

	if _, err := git.PlainCloneContext(ctx, destDir, opts); err != nil {
		return buildapi.Package(ref.Name, fmt.Errorf("cloning %s: %w", url, err))
	}
	return nil
}

// ConfigLoader parses a fetched package's own BuildConfig, if it declares
// one (so its transitive Packages can be walked too). It returns a nil
// config and nil error for a package with no nested config.
type ConfigLoader func(packageDir string) (*config.BuildConfig, error)

// FetchAll walks refs depth-first, fetching each into
// filepath.Join(destRoot, ref.Name), and recursing into any nested
// packages a fetched package's own config declares. It rejects a fetch
// graph that cycles back to a package currently being fetched.
func FetchAll(ctx context.Context, refs []config.PackageRef, destRoot string, load ConfigLoader, fetchDir func(root, name string) string) error {
	return FetchAllWith(ctx, refs, destRoot, load, fetchDir, Fetch)
}

// FetchAllWith is FetchAll with the clone step injected, so callers (and
// tests) can substitute a fetchOne that doesn't touch the network.
func FetchAllWith(ctx context.Context, refs []config.PackageRef, destRoot string, load ConfigLoader, fetchDir func(root, name string) string, fetchOne func(context.Context, config.PackageRef, string) error) error {
	visiting := map[string]bool{}
	done := map[string]bool{}
	return fetchAll(ctx, refs, destRoot, load, fetchDir, fetchOne, visiting, done)
}

func fetchAll(ctx context.Context, refs []config.PackageRef, destRoot string, load ConfigLoader, fetchDir func(root, name string) string, fetchOne func(context.Context, config.PackageRef, string) error, visiting, done map[string]bool) error {
	for _, ref := range refs {
		if done[ref.Name] {
			continue
		}
		if visiting[ref.Name] {
			return buildapi.Package(ref.Name, fmt.Errorf("package fetch cycle detected at %q", ref.Name))
		}
		visiting[ref.Name] = true

		dir := fetchDir(destRoot, ref.Name)
		if err := fetchOne(ctx, ref, dir); err != nil {
			return err
		}

		if load != nil {
			nested, err := load(dir)
			if err != nil {
				return err
			}
			if nested != nil && len(nested.Packages) > 0 {
				if err := fetchAll(ctx, nested.Packages, destRoot, load, fetchDir, fetchOne, visiting, done); err != nil {
					return err
				}
			}
		}

		visiting[ref.Name] = false
		done[ref.Name] = true
	}
	return nil
}
