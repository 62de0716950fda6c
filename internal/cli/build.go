package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ftpsheep/ftpsheep/internal/buildrunner"
	"github.com/ftpsheep/ftpsheep/internal/config"
	"github.com/ftpsheep/ftpsheep/internal/models"
)

// newBuildCmd exposes the Build Runner standalone, for checking that a
// project builds without going through the rest of the deployment
// lifecycle.
func newBuildCmd() *cobra.Command {
	var (
		projectPath, publishDir, configuration, framework, runtime string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the project's publish build without deploying",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectPath == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				projectPath = cwd
			}
			if publishDir == "" {
				publishDir = filepath.Join(os.TempDir(), "ftpsheep-build")
			}
			if configuration == "" {
				configuration = config.DefaultGlobalConfig().DefaultBuildConfiguration
			}

			runner := &buildrunner.Runner{}
			build := models.BuildConfig{
				Configuration:     configuration,
				TargetFramework:   framework,
				RuntimeIdentifier: runtime,
			}
			result, err := runner.Run(cmd.Context(), projectPath, build, publishDir)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("Build failed (exit %d)", result.ExitCode))
				for _, e := range result.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), " ", e)
				}
				return exitError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Build succeeded in %s, output at %s", result.Duration, result.PublishDir))
			for _, w := range result.Warnings {
				fmt.Fprintln(cmd.OutOrStdout(), " ", color.YellowString(w))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectPath, "project", "", "Path to the project to build (defaults to the working directory)")
	cmd.Flags().StringVar(&publishDir, "publish-dir", "", "Output directory for the publish build")
	cmd.Flags().StringVar(&configuration, "configuration", "", "Build configuration, e.g. Release or Debug")
	cmd.Flags().StringVar(&framework, "framework", "", "Target framework moniker")
	cmd.Flags().StringVar(&runtime, "runtime", "", "Runtime identifier")
	return cmd
}
