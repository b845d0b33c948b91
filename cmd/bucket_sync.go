package cmd

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"remoteops/internal/models"
	"remoteops/pkg/utils"
)

var bucketSyncCmd = &cobra.Command{
	Use:   "bucket-sync [bucket...]",
	Short: "Download a bucket, or a prefix of it, to a local directory",
	Long: `Download every object of an S3 bucket under an optional prefix into a local
directory, keeping the key layout below the prefix.

Objects are filtered with shell-style globs matched against the full key:
--exclude drops matching keys, --include keeps only matching keys. A failed
object is reported in failed_files and the sync carries on.

Without arguments the bucket comes from --bucket or S3_BUCKET_NAME. Several
bucket names sync one after another, each into <destination>/<bucket>.`,
	Example: `  # Sync the configured bucket into ./downloads
  remoteops bucket-sync

  # Sync only images, skipping temporary files
  remoteops bucket-sync my-media --prefix images/ --exclude "*.tmp" -d ./media

  # Sync the static and media buckets in one go
  remoteops bucket-sync my-static my-media -d ./backup`,
	RunE: runBucketSync,
}

func runBucketSync(cmd *cobra.Command, args []string) error {
	destination, _ := cmd.Flags().GetString("destination")
	prefix, _ := cmd.Flags().GetString("prefix")
	exclude, _ := cmd.Flags().GetStringArray("exclude")
	include, _ := cmd.Flags().GetStringArray("include")

	buckets := args
	if len(buckets) == 0 {
		bucket := getBucketName(cmd)
		if bucket == "" {
			return printFailure(cmd, errors.New("no bucket given: pass one as an argument, use --bucket or set S3_BUCKET_NAME"))
		}
		buckets = []string{bucket}
	}

	ctx, cancel := timeoutContext(cmd)
	defer cancel()

	client, err := newBucketClient(ctx, cfg)
	if err != nil {
		return printFailure(cmd, err)
	}

	failed := false
	for _, bucket := range buckets {
		dest := destination
		if len(buckets) > 1 {
			dest = filepath.Join(destination, bucket)
		}

		result := client.SyncBucket(ctx, models.SyncRequest{
			Bucket:      bucket,
			Destination: dest,
			Prefix:      prefix,
			Exclude:     exclude,
			Include:     include,
		})
		if err := utils.WriteJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		if !result.Success {
			failed = true
		}
	}

	if failed {
		return &reportedError{errOperationFailed}
	}
	return nil
}

func init() {
	bucketSyncCmd.Flags().StringP("destination", "d", "./downloads", "Local directory to download into")
	bucketSyncCmd.Flags().StringP("prefix", "p", "", "Only sync keys starting with this prefix")
	bucketSyncCmd.Flags().StringArray("exclude", nil, "Glob of keys to skip (repeatable)")
	bucketSyncCmd.Flags().StringArray("include", nil, "Glob of keys to keep; others are skipped (repeatable)")
	bucketSyncCmd.Flags().Int("timeout", 3600, "Timeout in seconds for the whole sync")
}
