package cmd

import (
	"github.com/spf13/cobra"

	"remoteops/internal/models"
	"remoteops/internal/sshclient"
)

var sshRunCmd = &cobra.Command{
	Use:   "ssh-run [script] [remote-output] [local-output]",
	Short: "Run a local script on an SSH host and fetch its output file",
	Long: `Upload a script to the remote script directory, make it executable and run
it. When it exits with status 0 the file at remote-output is downloaded to
local-output (default: its base name in the current directory). The uploaded
script is removed afterwards unless --keep-script is given.`,
	Example: `  # Export a database dump and fetch it
  remoteops ssh-run ./dump.sh /tmp/dump.sql.gz ./backups/dump.sql.gz --host db1 --user ops

  # Pass arguments to the script
  remoteops ssh-run ./report.sh /tmp/report.json report.json --args "--since 2024-01-01"`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runSSHScript,
}

func runSSHScript(cmd *cobra.Command, args []string) error {
	scriptArgs, _ := cmd.Flags().GetString("args")
	remoteDir, _ := cmd.Flags().GetString("remote-dir")
	keepScript, _ := cmd.Flags().GetBool("keep-script")

	req := models.ScriptRequest{
		LocalScript:     args[0],
		RemoteOutput:    args[1],
		Args:            scriptArgs,
		RemoteScriptDir: remoteDir,
		Cleanup:         !keepScript,
	}
	if len(args) == 3 {
		req.LocalDownload = args[2]
	}

	return printResult(cmd, sshclient.RunScript(cmd.Context(), sshOptions(cmd), req))
}

func init() {
	addConnectionFlags(sshRunCmd)
	sshRunCmd.Flags().String("args", "", "Argument string appended to the script invocation")
	sshRunCmd.Flags().String("remote-dir", sshclient.DefaultRemoteScriptDir, "Remote directory the script is uploaded to")
	sshRunCmd.Flags().Bool("keep-script", false, "Leave the uploaded script on the host")
}
