package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ruxgo-build/ruxgo/internal/config"
	"github.com/ruxgo-build/ruxgo/internal/fetch"
	"github.com/ruxgo-build/ruxgo/internal/msg"
)

const packagesDirName = "ruxgo_pkgs"

// syncPackages fetches every package cfg declares (and, recursively, every
// package a fetched package's own config declares) into projectPath's
// package directory. With force set, a package already present is removed
// and re-fetched; otherwise an existing package directory is left alone.
func syncPackages(ctx context.Context, projectPath string, cfg *config.BuildConfig, force bool) error {
	if len(cfg.Packages) == 0 {
		msg.Info("no packages declared")
		return nil
	}

	destRoot := filepath.Join(projectPath, packagesDirName)
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return err
	}

	fetchDir := func(root, name string) string { return filepath.Join(root, name) }

	load := func(packageDir string) (*config.BuildConfig, error) {
		for _, filename := range []string{"config_linux.toml", "config_win32.toml"} {
			path := filepath.Join(packageDir, filename)
			if _, err := os.Stat(path); err == nil {
				return config.ParseConfigFromFile(path)
			}
		}
		return nil, nil
	}

	fetchOne := func(ctx context.Context, ref config.PackageRef, dir string) error {
		if _, err := os.Stat(dir); err == nil {
			if !force {
				msg.Debug("package %s already present, skipping", ref.Name)
				return nil
			}
			if err := os.RemoveAll(dir); err != nil {
				return err
			}
		}
		msg.Info("fetching package %s", ref.Name)
		return fetch.Fetch(ctx, ref, dir)
	}

	return fetch.FetchAllWith(ctx, cfg.Packages, destRoot, load, fetchDir, fetchOne)
}
