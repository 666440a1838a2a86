// ruxgo [path], ruxgo -b, ruxgo -r, ruxgo -c
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ruxgo-build/ruxgo/internal/build"
	"github.com/ruxgo-build/ruxgo/internal/config"
	"github.com/ruxgo-build/ruxgo/internal/msg"
)

var (
	flagBuild           bool
	flagRun             bool
	flagClean           bool
	flagBinArgs         string
	flagGenCC           bool
	flagGenVSC          bool
	flagUpdatePackages  bool
	flagRestorePackages bool
	flagJobs            int
	flagVerbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "ruxgo [project path]",
	Short: "A declarative build driver for C/C++, with an optional unikernel retargeting overlay",
	Long: "ruxgo drives incremental C/C++ builds from a single TOML config, and, when the config\n" +
		"declares a guest platform, retargets the same build at a freestanding unikernel image\n" +
		"runnable under QEMU.",
	Args: cobra.MaximumNArgs(1),
	Run:  runRoot,
}

func init() {
	rootCmd.Flags().BoolVarP(&flagBuild, "build", "b", false, "Build the project")
	rootCmd.Flags().BoolVarP(&flagRun, "run", "r", false, "Build (if needed) and run the project's exe target")
	rootCmd.Flags().BoolVarP(&flagClean, "clean", "c", false, "Remove the build root")
	rootCmd.Flags().StringVar(&flagBinArgs, "bin-args", "", "Arguments forwarded to the exe target when run with --run")
	rootCmd.Flags().BoolVar(&flagGenCC, "gen-cc", false, "Generate compile_commands.json")
	rootCmd.Flags().BoolVar(&flagGenVSC, "gen-vsc", false, "Generate .vscode/c_cpp_properties.json")
	rootCmd.Flags().BoolVar(&flagUpdatePackages, "update-packages", false, "Re-fetch every declared package, even ones already present")
	rootCmd.Flags().BoolVar(&flagRestorePackages, "restore-packages", false, "Fetch declared packages that are missing, leaving existing ones alone")
	rootCmd.Flags().IntVarP(&flagJobs, "jobs", "j", 0, "Maximum number of concurrent compile jobs (default: 4)")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug-level logging")
}

func runRoot(cmd *cobra.Command, args []string) {
	if flagVerbose {
		msg.SetLevel(msg.LevelDebug)
	}

	projectPath := "."
	if len(args) > 0 {
		projectPath = args[0]
	}

	configPath := filepath.Join(projectPath, config.ConfigFilename())
	if _, err := os.Stat(configPath); err != nil {
		msg.Fatal("no %s found in %s", config.ConfigFilename(), projectPath)
	}

	builder, err := build.New(build.Options{
		ConfigPath: configPath,
		BuildRoot:  filepath.Join(projectPath, "ruxgo_bld"),
		GuestRoot:  filepath.Join(projectPath, "ruxgo_bld", "guest"),
		Jobs:       flagJobs,
	})
	if err != nil {
		msg.Fatal("%v", err)
	}

	ctx := context.Background()

	if flagClean {
		if err := builder.Clean(); err != nil {
			msg.Fatal("%v", err)
		}
		msg.Info("cleaned %s", builder.BuildRoot())
		if !flagBuild && !flagRun && !flagGenCC && !flagGenVSC {
			return
		}
	}

	if flagUpdatePackages || flagRestorePackages {
		if err := syncPackages(ctx, projectPath, builder.Config(), flagUpdatePackages); err != nil {
			msg.Fatal("%v", err)
		}
	}

	wantBuild := flagBuild || flagRun || (!flagGenCC && !flagGenVSC && !flagClean)
	if wantBuild {
		if err := builder.Build(ctx); err != nil {
			msg.Fatal("%v", err)
		}
	}

	if flagGenCC || flagGenVSC {
		if err := builder.GenerateIDEFiles(projectPath); err != nil {
			msg.Fatal("%v", err)
		}
	}

	if flagRun {
		binArgs := splitBinArgs(flagBinArgs)
		code, err := builder.Run(ctx, binArgs)
		if err != nil {
			msg.Fatal("%v", err)
		}
		os.Exit(code)
	}
}

func splitBinArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}

// Execute runs the root command, exiting with status 1 on a cobra-level
// error (flag parsing, unknown subcommand).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
