package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"remoteops/internal/models"
)

var bucketPushCmd = &cobra.Command{
	Use:   "bucket-push [folder]",
	Short: "Upload a local folder to S3",
	Long: `Upload the files of a local folder to an S3 bucket, keeping their layout
below --destination. The same --exclude/--include globs as bucket-sync apply,
matched against each file's path relative to the folder.

With --archive the filtered folder is zipped into a single
<folder>_<timestamp>.zip object instead. --dry-run prints the plan without
uploading anything.`,
	Example: `  # Upload a build directory to the bucket root
  remoteops bucket-push ./public --confirm

  # Upload under a prefix, skipping source maps
  remoteops bucket-push ./public --destination releases/v2 --exclude "*.map"

  # Upload one zip of the folder
  remoteops bucket-push ./data --destination backups --archive

  # See what would be uploaded
  remoteops bucket-push ./public --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runBucketPush,
}

func runBucketPush(cmd *cobra.Command, args []string) error {
	destination, _ := cmd.Flags().GetString("destination")
	exclude, _ := cmd.Flags().GetStringArray("exclude")
	include, _ := cmd.Flags().GetStringArray("include")
	archive, _ := cmd.Flags().GetBool("archive")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	confirm, _ := cmd.Flags().GetBool("confirm")

	req := models.PushRequest{
		Bucket:      getBucketName(cmd),
		Source:      args[0],
		Destination: destination,
		Exclude:     exclude,
		Include:     include,
		Archive:     archive,
		DryRun:      dryRun,
	}

	if !confirm && !dryRun && !askConfirmation(cmd, req) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Upload cancelled.")
		return nil
	}

	ctx, cancel := timeoutContext(cmd)
	defer cancel()

	client, err := newBucketClient(ctx, cfg)
	if err != nil {
		return printFailure(cmd, err)
	}

	return printResult(cmd, client.PushFolder(ctx, req))
}

// askConfirmation shows the upload summary on stderr and reads the answer
// from stdin.
func askConfirmation(cmd *cobra.Command, req models.PushRequest) bool {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Upload operation summary:\n")
	fmt.Fprintf(out, "  Bucket: %s\n", req.Bucket)
	fmt.Fprintf(out, "  Destination: %s\n", getDestinationDisplay(req.Destination))
	fmt.Fprintf(out, "  Folder: %s\n", req.Source)
	fmt.Fprintf(out, "  Archive: %t\n", req.Archive)
	fmt.Fprint(out, "Continue with upload? (y/N): ")

	response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true
	}
	return false
}

func getDestinationDisplay(destination string) string {
	if strings.Trim(destination, "/") == "" {
		return "bucket root"
	}
	return destination
}

func init() {
	bucketPushCmd.Flags().String("destination", "", "Key prefix to upload under (default bucket root)")
	bucketPushCmd.Flags().StringArray("exclude", nil, "Glob of relative paths to skip (repeatable)")
	bucketPushCmd.Flags().StringArray("include", nil, "Glob of relative paths to keep; others are skipped (repeatable)")
	bucketPushCmd.Flags().Bool("archive", false, "Upload a single zip archive of the folder")
	bucketPushCmd.Flags().Bool("dry-run", false, "Show what would be uploaded without uploading")
	bucketPushCmd.Flags().BoolP("confirm", "y", false, "Skip the confirmation prompt")
	bucketPushCmd.Flags().Int("timeout", 3600, "Timeout in seconds for the operation")
}
