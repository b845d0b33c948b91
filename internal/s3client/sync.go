package s3client

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"remoteops/internal/filter"
	"remoteops/internal/models"
	"remoteops/internal/opserr"
	"remoteops/pkg/utils"
)

// SyncBucket downloads every object under req.Prefix that passes the
// include/exclude filters into req.Destination, keeping the key layout below
// the prefix. A failed object is recorded and the sync moves on; a failed
// listing ends the sync with the partial result.
func (c *Client) SyncBucket(ctx context.Context, req models.SyncRequest) *models.SyncResult {
	start := time.Now()
	result := &models.SyncResult{
		BucketName:      req.Bucket,
		Prefix:          req.Prefix,
		LocalDirectory:  req.Destination,
		DownloadedFiles: []models.DownloadedObject{},
		SkippedFiles:    []models.SkippedObject{},
		FailedFiles:     []models.FailedItem{},
		OperationTime:   utils.FormatTime(start),
	}
	defer func() {
		result.TotalFiles = len(result.DownloadedFiles)
		result.TotalSizeHuman = utils.FormatBytes(result.TotalSizeBytes)
		result.Duration = utils.FormatDuration(time.Since(start))
	}()

	if req.Bucket == "" {
		result.Fail(opserr.New(opserr.ErrConfiguration, "sync bucket", errors.New("bucket name is empty")))
		return result
	}
	matcher, err := filter.New(req.Exclude, req.Include)
	if err != nil {
		result.Fail(err)
		return result
	}
	if result.LocalDirectory == "" {
		result.LocalDirectory = "."
	}
	if err := os.MkdirAll(result.LocalDirectory, 0755); err != nil {
		result.Fail(opserr.New(opserr.ErrConfiguration, "create destination", err))
		return result
	}

	prefixLabel := req.Prefix
	if prefixLabel == "" {
		prefixLabel = "(root)"
	}
	log.Infof("Syncing bucket %s prefix %s into %s", req.Bucket, prefixLabel, result.LocalDirectory)

	input := &s3.ListObjectsV2Input{Bucket: aws.String(req.Bucket)}
	if req.Prefix != "" {
		input.Prefix = aws.String(req.Prefix)
	}
	paginator := s3.NewListObjectsV2Paginator(c.api, input)
	downloader := manager.NewDownloader(c.api, func(d *manager.Downloader) {
		d.Concurrency = 1
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Errorf("Listing bucket %s failed: %s", req.Bucket, errorCode(err))
			result.Fail(opserr.New(opserr.ErrObjectStore, "list objects in "+req.Bucket, err))
			return result
		}
		for _, obj := range page.Contents {
			c.syncObject(ctx, downloader, matcher, req, result, obj)
		}
	}

	log.Infof("Sync of %s complete: %d downloaded (%s), %d skipped, %d failed",
		req.Bucket, len(result.DownloadedFiles), utils.FormatBytes(result.TotalSizeBytes),
		len(result.SkippedFiles), len(result.FailedFiles))
	result.Success = true
	return result
}

func (c *Client) syncObject(ctx context.Context, downloader *manager.Downloader, matcher *filter.Matcher,
	req models.SyncRequest, result *models.SyncResult, obj types.Object) {
	key := aws.ToString(obj.Key)

	// Zero-byte "folder" placeholders created by consoles.
	if strings.HasSuffix(key, "/") {
		return
	}

	if reason := matcher.Skip(key); reason != "" {
		log.Debugf("Skipped (%s): %s", reason, key)
		result.SkippedFiles = append(result.SkippedFiles, models.SkippedObject{Key: key, Reason: reason})
		return
	}

	rel := relativeKey(key, req.Prefix)
	localPath, err := localTarget(result.LocalDirectory, rel)
	if err != nil {
		result.FailedFiles = append(result.FailedFiles, models.FailedItem{Path: key, Error: err.Error()})
		return
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		result.FailedFiles = append(result.FailedFiles, models.FailedItem{Path: key, Error: err.Error()})
		return
	}

	log.Debugf("Downloading %s (%s)", key, utils.FormatBytes(aws.ToInt64(obj.Size)))
	n, err := downloadObject(ctx, downloader, req.Bucket, key, localPath)
	if err != nil {
		log.Warnf("Download of %s failed: %s", key, errorCode(err))
		result.FailedFiles = append(result.FailedFiles, models.FailedItem{Path: key, Error: errorCode(err)})
		return
	}

	result.DownloadedFiles = append(result.DownloadedFiles, models.DownloadedObject{
		Key:          key,
		RelativePath: rel,
		LocalPath:    localPath,
		Size:         n,
	})
	result.TotalSizeBytes += n
}

func downloadObject(ctx context.Context, downloader *manager.Downloader, bucket, key, localPath string) (int64, error) {
	file, err := os.Create(localPath)
	if err != nil {
		return 0, err
	}

	n, err := downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(localPath)
		return 0, err
	}
	return n, nil
}

// relativeKey strips prefix from key. A key equal to the prefix keeps its
// base name.
func relativeKey(key, prefix string) string {
	rel := key
	if prefix != "" && strings.HasPrefix(key, prefix) {
		rel = key[len(prefix):]
	}
	rel = strings.TrimLeft(rel, "/")
	if rel == "" {
		rel = path.Base(key)
	}
	return rel
}

// localTarget maps a slash separated relative key below root, refusing keys
// that would land outside of it.
func localTarget(root, rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", errors.Errorf("key %q escapes the destination directory", rel)
	}
	return filepath.Join(root, local), nil
}
