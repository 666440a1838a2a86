// ruxgo init [name], ruxgo new [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ruxgo-build/ruxgo/internal/config"
	"github.com/ruxgo-build/ruxgo/internal/msg"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "ruxgo"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// initIn scaffolds a new project in dir, writing a host-appropriate config
// file alongside a minimal "hello world" source tree. guest selects whether
// the generated config declares a guest platform (targeting the retargeting
// overlay) or a plain host exe.
func initIn(dir, name string, guest bool) {
	mkdir(dir, "src")

	if guest {
		writefile(`compiler = "x86_64-linux-musl-gcc"

[[targets]]
name = "`+name+`"
type = "exe"
src = ["src"]
include_dirs = ["src"]

[os]
name = "`+name+`"
services = ["fs"]
ulib = "ruxmusl"
cross_compile = "x86_64-linux-musl-"

[os.platform]
name = "x86_64-qemu-q35"
smp = 1
mode = "release"

[os.platform.qemu]
graphic = false
`, dir, config.ConfigFilename())

		writefile(`#include <stdio.h>

int main(void) {
    puts("Hello, World!");
    return 0;
}
`, dir, "src", "main.c")
	} else {
		writefile(`compiler = "gcc"

[[targets]]
name = "`+name+`"
type = "exe"
src = ["src"]
`, dir, config.ConfigFilename())

		writefile(`#include <stdio.h>

int main(void) {
    puts("Hello, World!");
    return 0;
}
`, dir, "src", "main.c")
	}

	writefile(`ruxgo_bld/
ruxgo_pkgs/
`, dir, ".gitignore")

	programName := getProgramName()
	fmt.Printf("You can now do %s to build, or %s to build and run.\n",
		color.HiCyanString(programName+" -b "+dir), color.HiCyanString(programName+" -r "+dir))
}

var guestTarget bool

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new project in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0], guestTarget)
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Create a new project in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdir(args[0])
		initIn(args[0], filepath.Base(args[0]), guestTarget)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&guestTarget, "guest", false, "Scaffold a guest (unikernel) target instead of a plain host exe")

	rootCmd.AddCommand(newCmd)
	newCmd.Flags().BoolVar(&guestTarget, "guest", false, "Scaffold a guest (unikernel) target instead of a plain host exe")
}
