package cmd

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"remoteops/config"
	"remoteops/internal/logging"
	"remoteops/internal/models"
	"remoteops/internal/s3client"
	"remoteops/pkg/utils"
)

var (
	cfg *config.Config
)

// bucketClient is the object-storage surface the bucket commands use.
type bucketClient interface {
	SyncBucket(ctx context.Context, req models.SyncRequest) *models.SyncResult
	GetBucketInfo(ctx context.Context, bucketName, prefix string) (*models.BucketInfo, error)
	PushFolder(ctx context.Context, req models.PushRequest) *models.PushResult
}

var newBucketClient = func(ctx context.Context, c *config.Config) (bucketClient, error) {
	return s3client.New(ctx, c)
}

var rootCmd = &cobra.Command{
	Use:   "remoteops",
	Short: "Move files between S3 buckets, SSH hosts and the local disk",
	Long: `remoteops syncs S3 buckets to local directories, mirrors folders to and from
SSH hosts over SFTP, and runs scripts remotely, collecting the file they produce.

Every command prints a JSON result on stdout; logs go to stderr.
Configuration is loaded from a .env file or environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(cfg.LogLevel, isVerbose(cmd))
	},
}

// reportedError marks an error whose JSON has already been written.
type reportedError struct {
	error
}

func (e *reportedError) Unwrap() error {
	return e.error
}

var errOperationFailed = errors.New("operation failed")

func Execute(config *config.Config) error {
	cfg = config
	err := rootCmd.Execute()
	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		utils.PrintError(rootCmd.OutOrStdout(), err, rootCmd.Name())
	}
	return err
}

func init() {
	rootCmd.AddCommand(bucketSyncCmd)
	rootCmd.AddCommand(bucketInfoCmd)
	rootCmd.AddCommand(bucketPushCmd)
	rootCmd.AddCommand(sshDownloadCmd)
	rootCmd.AddCommand(sshUploadCmd)
	rootCmd.AddCommand(sshRunCmd)

	rootCmd.PersistentFlags().StringP("bucket", "b", "", "Override bucket name from config")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("env-file", "", "Load configuration from this file instead of .env")
}

func getBucketName(cmd *cobra.Command) string {
	bucket, _ := cmd.Flags().GetString("bucket")
	if bucket != "" {
		return bucket
	}
	return cfg.BucketName
}

func isVerbose(cmd *cobra.Command) bool {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return verbose
}

// timeoutContext bounds a bucket command by its --timeout flag in seconds.
func timeoutContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetInt("timeout")
	if timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), time.Duration(timeout)*time.Second)
}

// printFailure writes an ErrorResponse for a failure that happened outside
// an operation result.
func printFailure(cmd *cobra.Command, err error) error {
	utils.PrintError(cmd.OutOrStdout(), err, cmd.Name())
	return &reportedError{err}
}

type outcome interface {
	Succeeded() bool
}

// printResult writes result as JSON and turns success=false into an error so
// the process exits non-zero.
func printResult(cmd *cobra.Command, result outcome) error {
	if err := utils.WriteJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !result.Succeeded() {
		return &reportedError{errOperationFailed}
	}
	return nil
}
