package cmd

import (
	"github.com/spf13/cobra"

	"remoteops/internal/sshclient"
)

var sshUploadCmd = &cobra.Command{
	Use:   "ssh-upload [local-folder] [remote-folder]",
	Short: "Upload a local folder over SFTP",
	Long: `Recursively copy a local folder to an SSH host. The remote folder is created
with mkdir -p; each sub-directory is created before its files are uploaded.
Files or directories that fail are listed in failed_files.`,
	Example: `  # Push a build to a web host
  remoteops ssh-upload ./dist /var/www/app --host web1 --user deploy --password "$PW"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result := sshclient.UploadFolder(cmd.Context(), sshOptions(cmd), args[0], args[1])
		return printResult(cmd, result)
	},
}

func init() {
	addConnectionFlags(sshUploadCmd)
}
