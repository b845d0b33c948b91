package s3client

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"remoteops/internal/filter"
	"remoteops/internal/models"
	"remoteops/internal/opserr"
	"remoteops/pkg/utils"
)

type pushEntry struct {
	localPath string
	relPath   string
	size      int64
}

// PushFolder uploads the filtered contents of req.Source below
// req.Destination, or a single zip of them when req.Archive is set.
func (c *Client) PushFolder(ctx context.Context, req models.PushRequest) *models.PushResult {
	start := time.Now()
	result := &models.PushResult{
		BucketName:      req.Bucket,
		SourcePath:      req.Source,
		DestinationPath: req.Destination,
		Items:           []models.UploadItem{},
		SkippedFiles:    []models.SkippedObject{},
		FailedFiles:     []models.FailedItem{},
		OperationTime:   utils.FormatTime(start),
		DryRun:          req.DryRun,
	}
	defer func() {
		result.TotalFiles = len(result.Items)
		result.TotalSizeHuman = utils.FormatBytes(result.TotalSizeBytes)
		result.UploadDuration = utils.FormatDuration(time.Since(start))
	}()

	if req.Bucket == "" {
		result.Fail(opserr.Newf(opserr.ErrConfiguration, "push folder", "bucket name is empty"))
		return result
	}
	if err := utils.ValidateDir(req.Source); err != nil {
		result.Fail(opserr.New(opserr.ErrConfiguration, "push folder", err))
		return result
	}
	matcher, err := filter.New(req.Exclude, req.Include)
	if err != nil {
		result.Fail(err)
		return result
	}

	// WalkDir does not follow a symlinked root.
	root, err := filepath.EvalSymlinks(req.Source)
	if err != nil {
		result.Fail(opserr.New(opserr.ErrConfiguration, "push folder", err))
		return result
	}

	entries := c.planPush(root, matcher, result)
	uploader := manager.NewUploader(c.api)

	if req.Archive {
		c.pushArchive(ctx, uploader, req, entries, result)
		return result
	}

	log.Infof("Pushing %d files from %s to s3://%s/%s", len(entries), req.Source, req.Bucket, req.Destination)
	for _, entry := range entries {
		remotePath := buildRemotePath(req.Destination, entry.relPath)
		if !req.DryRun {
			log.Debugf("Uploading %s -> %s", entry.localPath, remotePath)
			if err := c.uploadSingleFile(ctx, uploader, req.Bucket, entry.localPath, remotePath); err != nil {
				log.Warnf("Upload of %s failed: %s", entry.localPath, errorCode(err))
				result.FailedFiles = append(result.FailedFiles, models.FailedItem{Path: entry.localPath, Error: errorCode(err)})
				continue
			}
		}
		result.Items = append(result.Items, models.UploadItem{
			LocalPath:  entry.localPath,
			RemotePath: remotePath,
			Size:       entry.size,
		})
		result.TotalSizeBytes += entry.size
	}

	result.Success = true
	return result
}

// planPush walks source and returns the files that pass the filters, in
// lexical order. Unreadable entries are recorded as failed items.
func (c *Client) planPush(source string, matcher *filter.Matcher, result *models.PushResult) []pushEntry {
	var entries []pushEntry
	filepath.WalkDir(source, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			result.FailedFiles = append(result.FailedFiles, models.FailedItem{Path: p, Error: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(source, p)
		if err != nil {
			result.FailedFiles = append(result.FailedFiles, models.FailedItem{Path: p, Error: err.Error()})
			return nil
		}
		rel = filepath.ToSlash(rel)

		if reason := matcher.Skip(rel); reason != "" {
			log.Debugf("Skipped (%s): %s", reason, rel)
			result.SkippedFiles = append(result.SkippedFiles, models.SkippedObject{Key: rel, Reason: reason})
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.FailedFiles = append(result.FailedFiles, models.FailedItem{Path: p, Error: err.Error()})
			return nil
		}
		entries = append(entries, pushEntry{localPath: p, relPath: rel, size: info.Size()})
		return nil
	})
	return entries
}

func (c *Client) pushArchive(ctx context.Context, uploader *manager.Uploader, req models.PushRequest,
	entries []pushEntry, result *models.PushResult) {
	archiveName := utils.GenerateArchiveName(req.Source, ".zip")
	remotePath := buildRemotePath(req.Destination, archiveName)

	if req.DryRun {
		var size int64
		for _, entry := range entries {
			size += entry.size
		}
		result.Items = append(result.Items, models.UploadItem{
			LocalPath:  req.Source,
			RemotePath: remotePath,
			Size:       size,
			IsArchived: true,
		})
		result.TotalSizeBytes = size
		result.Success = true
		return
	}

	relPaths := make([]string, len(entries))
	for i, entry := range entries {
		relPaths[i] = entry.relPath
	}

	archivePath := filepath.Join(os.TempDir(), archiveName)
	defer func() {
		if err := utils.CleanupTempFile(archivePath); err != nil {
			log.Warn(err)
		}
	}()

	info, err := utils.CreateArchive(req.Source, relPaths, archivePath)
	if err != nil {
		result.Fail(opserr.New(opserr.ErrLocalIO, "create archive", err))
		return
	}
	result.ArchiveCreated = true
	result.Archive = info
	log.Infof("Created archive of %d files (%s), uploading to s3://%s/%s",
		info.FileCount, utils.FormatBytes(info.CompressedSize), req.Bucket, remotePath)

	if err := c.uploadSingleFile(ctx, uploader, req.Bucket, archivePath, remotePath); err != nil {
		result.Fail(opserr.New(opserr.ErrObjectStore, "upload archive", err))
		return
	}

	result.Items = append(result.Items, models.UploadItem{
		LocalPath:  req.Source,
		RemotePath: remotePath,
		Size:       info.CompressedSize,
		IsArchived: true,
	})
	result.TotalSizeBytes = info.CompressedSize
	result.Success = true
}

func (c *Client) uploadSingleFile(ctx context.Context, uploader *manager.Uploader, bucket, localPath, remotePath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "open %s", localPath)
	}
	defer file.Close()

	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(remotePath),
		Body:        file,
		ContentType: aws.String(detectContentType(localPath)),
	})
	return err
}

func buildRemotePath(destinationPath, filename string) string {
	destinationPath = strings.Trim(destinationPath, "/")
	if destinationPath == "" {
		return filename
	}
	return destinationPath + "/" + filename
}

var contentTypes = map[string]string{
	".txt":  "text/plain",
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
}

func detectContentType(filename string) string {
	if contentType, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return contentType
	}
	return "application/octet-stream"
}
