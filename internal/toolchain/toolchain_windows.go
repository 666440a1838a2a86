//go:build windows

package toolchain

import (
	"os"
	"path/filepath"

	"github.com/go-ole/go-ole"
	"github.com/heaths/go-vssetup"
)

// init wires the Visual Studio COM setup API (vssetup) as the Windows
// compiler discovery path, ahead of the generic PATH probe: a VS
// installation's cl.exe is usually not on PATH until vcvarsall.bat has run,
// so machine-readable discovery through vssetup is the only reliable way to
// find it unannounced.
func init() {
	platformCompilerHook = findMSVCCompiler
}

func findMSVCCompiler(needCxx bool) (string, bool) {
	// cl.exe serves both C and C++ translation units; needCxx doesn't
	// change which binary we look for, only which one would have been
	// returned by the generic cc/c++ probe.
	_ = needCxx

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		return "", false
	}
	defer ole.CoUninitialize()

	setup, err := vssetup.NewSetupConfiguration()
	if err != nil {
		return "", false
	}
	defer setup.Release()

	instances, err := setup.EnumAllInstances()
	if err != nil {
		return "", false
	}

	for _, inst := range instances {
		installPath, err := inst.InstallationPath()
		if err != nil || installPath == "" {
			continue
		}
		clPath, ok := findClUnder(installPath)
		if ok {
			return clPath, true
		}
	}
	return "", false
}

// findClUnder walks a VS installation's MSVC toolset tree for a host-x64
// cl.exe, the layout every VS 2017+ install uses under
// VC\Tools\MSVC\<version>\bin\Hostx64\x64\cl.exe.
func findClUnder(installPath string) (string, bool) {
	root := filepath.Join(installPath, "VC", "Tools", "MSVC")
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(root, e.Name(), "bin", "Hostx64", "x64", "cl.exe")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
