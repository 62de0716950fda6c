package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ftpsheep/ftpsheep/internal/config"
	"github.com/ftpsheep/ftpsheep/internal/coordinator"
	"github.com/ftpsheep/ftpsheep/internal/credentials"
	"github.com/ftpsheep/ftpsheep/internal/deployerr"
	"github.com/ftpsheep/ftpsheep/internal/history"
	"github.com/ftpsheep/ftpsheep/internal/models"
	"github.com/ftpsheep/ftpsheep/internal/pathutil"
	"github.com/ftpsheep/ftpsheep/internal/progress"
)

func newDeployCmd() *cobra.Command {
	var (
		dryRun      bool
		confirm     bool
		projectPath string
		publishDir  string
	)

	cmd := &cobra.Command{
		Use:   "deploy <profile>",
		Short: "Build the project and deploy its publish output to the configured server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileName := args[0]
			dir, err := resolveConfigDir()
			if err != nil {
				return err
			}

			profiles, err := config.NewProfileStore(filepath.Join(dir, "profiles"))
			if err != nil {
				return exitError(err)
			}
			creds, err := credentials.Open(dir)
			if err != nil {
				return exitError(err)
			}
			global, err := config.LoadGlobalConfig(filepath.Join(dir, "global.json"))
			if err != nil {
				return exitError(err)
			}

			if publishDir == "" {
				publishDir = filepath.Join(os.TempDir(), "ftpsheep-publish-"+profileName)
			} else if resolved, err := pathutil.ResolveAbsolutePath(publishDir); err != nil {
				return exitError(err)
			} else {
				publishDir = resolved
			}
			if projectPath == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return exitError(err)
				}
				projectPath = cwd
			} else if resolved, err := pathutil.ResolveAbsolutePath(projectPath); err != nil {
				return exitError(err)
			} else {
				projectPath = resolved
			}

			bus := progress.NewBus(256)
			ui := progress.NewUI(0)
			go progress.Dispatch(bus, ui.AsObserver())

			coord := coordinator.New(profiles, global, creds, bus)
			opts := coordinator.Options{
				DryRun:      dryRun,
				Confirm:     confirm || dryRun,
				ProjectPath: projectPath,
				PublishDir:  publishDir,
				HistoryPath: filepath.Join(dir, "history.json"),
			}

			state, deployErr := coord.Deploy(cmd.Context(), profileName, opts)
			bus.Close()
			ui.Wait()

			switch state {
			case models.StateCompleted:
				fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Deployment completed."))
				return nil
			case models.StateCancelled:
				fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("Deployment cancelled."))
				return exitError(deployErr)
			default:
				fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("Deployment failed: %v", deployErr))
				return exitError(deployErr)
			}
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build, connect, and summarize without uploading")
	cmd.Flags().BoolVar(&confirm, "confirm", true, "Proceed past the pre-deployment summary; pass --confirm=false to stop there without uploading")
	cmd.Flags().StringVar(&projectPath, "project", "", "Path to the project to build (defaults to the working directory)")
	cmd.Flags().StringVar(&publishDir, "publish-dir", "", "Scratch directory for the build's publish output")

	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent deployment history",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveConfigDir()
			if err != nil {
				return err
			}
			journal := history.Open(filepath.Join(dir, "history.json"))
			entries, err := journal.Recent(limit)
			if err != nil {
				return exitError(err)
			}
			for _, e := range entries {
				status := color.GreenString("ok")
				if !e.Success {
					status = color.RedString("failed")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s %s  %d files, %d bytes  %s\n",
					e.StartedAt.Format("2006-01-02 15:04:05"), e.Profile, status, e.FilesUploaded, e.TotalBytes, e.ErrorSummary)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	return cmd
}

// exitError maps a deployment error to the stable exit-code contract and
// returns it so main.go can pass the code to os.Exit via ExitCode.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: deployerr.ExitCodeFor(err), err: err}
}

type cliError struct {
	code deployerr.ExitCode
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }

// ExitCode extracts the mapped exit code from an error returned by a
// cobra RunE, falling back to ExitGeneralError for anything else.
func ExitCode(err error) deployerr.ExitCode {
	if err == nil {
		return deployerr.ExitSuccess
	}
	if ce, ok := err.(*cliError); ok {
		return ce.code
	}
	return deployerr.ExitGeneralError
}
