// ruxgo run [path] [-- bin args]
package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ruxgo-build/ruxgo/internal/build"
	"github.com/ruxgo-build/ruxgo/internal/config"
	"github.com/ruxgo-build/ruxgo/internal/msg"
)

var runCmd = &cobra.Command{
	Use:   "run [project path] [-- bin args]",
	Short: "Build (if needed) and run the project's exe target",
	Long:  `Build and run the project. If no project path is given, uses "."`,
	Args:  cobra.ArbitraryArgs,
	Run:   doRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func doRun(cmd *cobra.Command, args []string) {
	projectPath := "."
	var binArgs []string
	if len(args) > 0 {
		projectPath = args[0]
		binArgs = args[1:]
	}

	configPath := filepath.Join(projectPath, config.ConfigFilename())
	if _, err := os.Stat(configPath); err != nil {
		msg.Fatal("no %s found in %s", config.ConfigFilename(), projectPath)
	}

	builder, err := build.New(build.Options{
		ConfigPath: configPath,
		BuildRoot:  filepath.Join(projectPath, "ruxgo_bld"),
		GuestRoot:  filepath.Join(projectPath, "ruxgo_bld", "guest"),
	})
	if err != nil {
		msg.Fatal("%v", err)
	}

	ctx := context.Background()
	if err := builder.Build(ctx); err != nil {
		msg.Fatal("%v", err)
	}

	code, err := builder.Run(ctx, binArgs)
	if err != nil {
		msg.Fatal("%v", err)
	}
	os.Exit(code)
}
