package cmd

import (
	"github.com/spf13/cobra"

	"remoteops/internal/sshclient"
)

var sshDownloadCmd = &cobra.Command{
	Use:   "ssh-download [remote-folder] [local-folder]",
	Short: "Download a remote folder over SFTP",
	Long: `Recursively copy a folder from an SSH host into a local folder, creating
directories as needed. Files that fail are listed in failed_files and the
copy carries on; a missing remote folder fails with remote_path_not_found.`,
	Example: `  # Pull a site's media directory
  remoteops ssh-download /var/www/media ./media --host web1 --user deploy --key ~/.ssh/id_ed25519

  # Use the SSH_* settings from .env
  remoteops ssh-download /srv/exports ./exports`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result := sshclient.DownloadFolder(cmd.Context(), sshOptions(cmd), args[0], args[1])
		return printResult(cmd, result)
	},
}

func init() {
	addConnectionFlags(sshDownloadCmd)
}
