package cli

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ftpsheep/ftpsheep/internal/config"
	"github.com/ftpsheep/ftpsheep/internal/credentials"
	"github.com/ftpsheep/ftpsheep/internal/models"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage deployment profiles",
	}
	cmd.AddCommand(newProfileCreateCmd())
	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileDeleteCmd())
	return cmd
}

func openProfileStore() (*config.ProfileStore, string, error) {
	dir, err := resolveConfigDir()
	if err != nil {
		return nil, "", err
	}
	store, err := config.NewProfileStore(filepath.Join(dir, "profiles"))
	return store, dir, err
}

func newProfileCreateCmd() *cobra.Command {
	var (
		host, username, password, remotePath, protocol, cleanupMode string
		port, concurrency, retryCount                                int
		useSSL, appOffline                                           bool
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create or overwrite a deployment profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, dir, err := openProfileStore()
			if err != nil {
				return err
			}

			profile := models.DeploymentProfile{
				Name: args[0],
				Connection: models.ConnectionConfig{
					Host: host, Port: port, Protocol: models.Protocol(protocol),
					UseSSL: useSSL, ValidateSSLCertificate: true,
					ConnectionMode: models.ConnectionModeAutoPassive,
				},
				Username:          username,
				RemotePath:        remotePath,
				Concurrency:       concurrency,
				RetryCount:        retryCount,
				CleanupMode:       models.CleanupMode(cleanupMode),
				AppOfflineEnabled: appOffline,
			}

			if password != "" {
				creds, err := credentials.Open(dir)
				if err != nil {
					return exitError(err)
				}
				handle, err := creds.Seal(password)
				if err != nil {
					return exitError(err)
				}
				profile.CredentialRef = string(handle)
			}

			if err := store.Save(profile); err != nil {
				return exitError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Saved profile %q.", profile.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Remote server host")
	cmd.Flags().IntVar(&port, "port", 21, "Remote server port")
	cmd.Flags().StringVar(&protocol, "protocol", string(models.ProtocolFTP), "ftp, ftps-explicit, ftps-implicit, or sftp")
	cmd.Flags().BoolVar(&useSSL, "ssl", false, "Use TLS (rejected as invalid for sftp)")
	cmd.Flags().StringVar(&username, "username", "", "Remote server username")
	cmd.Flags().StringVar(&password, "password", "", "Remote server password (sealed into an encrypted handle, never stored in plaintext)")
	cmd.Flags().StringVar(&remotePath, "remote-path", "/", "Remote directory to deploy into")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Parallel upload workers")
	cmd.Flags().IntVar(&retryCount, "retry-count", 3, "Retries per failed upload")
	cmd.Flags().StringVar(&cleanupMode, "cleanup-mode", string(models.CleanupNone), "none, delete-obsolete, or delete-all")
	cmd.Flags().BoolVar(&appOffline, "app-offline", false, "Upload an app_offline.htm marker before and remove it after deployment")
	return cmd
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored profile names",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openProfileStore()
			if err != nil {
				return err
			}
			names, err := store.List()
			if err != nil {
				return exitError(err)
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored profile's non-secret fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openProfileStore()
			if err != nil {
				return err
			}
			profile, err := store.Load(args[0], config.DefaultGlobalConfig())
			if err != nil {
				return exitError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "name:         %s\n", profile.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "host:         %s:%d (%s)\n", profile.Connection.Host, profile.Connection.Port, profile.Connection.Protocol)
			fmt.Fprintf(cmd.OutOrStdout(), "username:     %s\n", profile.Username)
			fmt.Fprintf(cmd.OutOrStdout(), "remote path:  %s\n", profile.RemotePath)
			fmt.Fprintf(cmd.OutOrStdout(), "concurrency:  %d\n", profile.Concurrency)
			fmt.Fprintf(cmd.OutOrStdout(), "retry count:  %d\n", profile.RetryCount)
			fmt.Fprintf(cmd.OutOrStdout(), "cleanup mode: %s\n", profile.CleanupMode)
			fmt.Fprintf(cmd.OutOrStdout(), "app offline:  %v\n", profile.AppOfflineEnabled)
			return nil
		},
	}
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openProfileStore()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return exitError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Deleted profile %q.", args[0]))
			return nil
		},
	}
}
