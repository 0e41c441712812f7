package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/picloudlabs/picloud/pkg/client"
)

var (
	// Global flags
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "picloud-cli",
	Short: "Command line client for a picloud file storage server",
	Long: `picloud-cli - upload, download, delete and list files on a picloud server.

The server address is taken from the --server flag or the PICLOUD_SERVER
environment variable (flag wins).

Examples:
  # Upload a file
  picloud-cli upload ./photos/cat.jpg

  # Upload under a different name
  picloud-cli upload ./photos/cat.jpg --name pets/cat.jpg

  # Download to the current directory
  picloud-cli download pets/cat.jpg

  # List everything
  picloud-cli list

  # Delete a file
  picloud-cli delete pets/cat.jpg`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "server base URL (default: PICLOUD_SERVER or http://localhost:8080)")
}

// newClient builds the API client from the global flags.
func newClient() *client.Client {
	url := serverURL
	if url == "" {
		url = os.Getenv("PICLOUD_SERVER")
	}
	if url == "" {
		url = "http://localhost:8080"
	}
	return client.New(url)
}
