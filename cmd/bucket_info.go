package cmd

import (
	"github.com/spf13/cobra"

	"remoteops/pkg/utils"
)

var bucketInfoCmd = &cobra.Command{
	Use:   "bucket-info",
	Short: "Get comprehensive bucket information",
	Long: `Get detailed information about the S3 bucket: region, creation date, object
count, total size and latest modification, optionally restricted to a prefix.
The bucket name is taken from the configuration unless overridden with --bucket.`,
	Example: `  # Get info for configured bucket
  remoteops bucket-info

  # Get info for a folder of another bucket
  remoteops bucket-info --bucket my-media --prefix images/`,
	RunE: runBucketInfo,
}

func runBucketInfo(cmd *cobra.Command, args []string) error {
	prefix, _ := cmd.Flags().GetString("prefix")

	ctx, cancel := timeoutContext(cmd)
	defer cancel()

	client, err := newBucketClient(ctx, cfg)
	if err != nil {
		return printFailure(cmd, err)
	}

	info, err := client.GetBucketInfo(ctx, getBucketName(cmd), prefix)
	if err != nil {
		return printFailure(cmd, err)
	}

	return utils.WriteJSON(cmd.OutOrStdout(), info)
}

func init() {
	bucketInfoCmd.Flags().StringP("prefix", "p", "", "Only count objects under this prefix")
	bucketInfoCmd.Flags().Int("timeout", 300, "Timeout in seconds for the operation")
}
