package sshclient

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"remoteops/internal/models"
	"remoteops/internal/opserr"
	"remoteops/pkg/utils"
)

func newFolderResult(direction, remote, local string) *models.FolderTransferResult {
	return &models.FolderTransferResult{
		Direction:    direction,
		RemoteFolder: remote,
		LocalFolder:  local,
		Files:        []string{},
		FailedFiles:  []models.FailedItem{},
	}
}

func finishFolderResult(result *models.FolderTransferResult, start time.Time) {
	result.FileCount = len(result.Files)
	result.TotalSizeHuman = utils.FormatBytes(result.TotalSizeBytes)
	result.Duration = utils.FormatDuration(time.Since(start))
}

func recordFailure(result *models.FolderTransferResult, p string, err error) {
	log.Warnf("Transfer of %s failed: %v", p, err)
	result.FailedFiles = append(result.FailedFiles, models.FailedItem{Path: p, Error: err.Error()})
}

// DownloadFolder mirrors the remote directory tree into local. Files that
// fail, and sub-directories that cannot be listed or created, are recorded
// in the result and the walk carries on.
func DownloadFolder(ctx context.Context, opts Options, remote, local string) *models.FolderTransferResult {
	start := time.Now()
	result := newFolderResult(models.DirectionDownload, remote, local)
	defer finishFolderResult(result, start)

	localAbs, err := filepath.Abs(local)
	if err != nil {
		result.Fail(opserr.New(opserr.ErrConfiguration, "resolve local folder", err))
		return result
	}
	result.LocalFolder = localAbs

	conn, err := Dial(ctx, opts)
	if err != nil {
		result.Fail(err)
		return result
	}
	defer closeQuietly(conn)

	if err := conn.DownloadTree(ctx, remote, localAbs, result); err != nil {
		result.Fail(err)
		return result
	}

	log.Infof("Downloaded %d files (%s) from %s", len(result.Files), utils.FormatBytes(result.TotalSizeBytes), remote)
	result.Success = true
	return result
}

type dirPair struct {
	remote string
	local  string
}

// DownloadTree walks remoteRoot breadth first and downloads every file below
// it into localRoot. Only a missing or unusable root is returned as an
// error; everything else lands in result.FailedFiles.
func (c *Connection) DownloadTree(ctx context.Context, remoteRoot, localRoot string, result *models.FolderTransferResult) error {
	client := c.SFTP()
	if client == nil {
		return opserr.Newf(opserr.ErrTransport, "download folder", "connection is closed")
	}

	info, err := client.Stat(remoteRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return opserr.Newf(opserr.ErrRemotePathNotFound, "download folder", "remote folder %s not found", remoteRoot)
		}
		return opserr.New(opserr.ErrTransport, "stat "+remoteRoot, err)
	}
	if !info.IsDir() {
		return opserr.Newf(opserr.ErrConfiguration, "download folder", "remote path %s is not a directory", remoteRoot)
	}
	if err := os.MkdirAll(localRoot, 0755); err != nil {
		return opserr.New(opserr.ErrConfiguration, "create local folder", err)
	}

	queue := []dirPair{{remote: remoteRoot, local: localRoot}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return opserr.New(opserr.ErrTransport, "download folder", err)
		}
		dir := queue[0]
		queue = queue[1:]

		entries, err := client.ReadDir(dir.remote)
		if err != nil {
			recordFailure(result, dir.remote, err)
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			if name == "." || name == ".." {
				continue
			}
			remotePath := path.Join(dir.remote, name)
			localPath := filepath.Join(dir.local, name)

			if entry.IsDir() {
				if err := os.MkdirAll(localPath, 0755); err != nil {
					recordFailure(result, remotePath, err)
					continue
				}
				queue = append(queue, dirPair{remote: remotePath, local: localPath})
				continue
			}

			log.Debugf("Downloading %s -> %s", remotePath, localPath)
			n, err := c.downloadFile(remotePath, localPath)
			if err != nil {
				recordFailure(result, remotePath, err)
				continue
			}
			result.Files = append(result.Files, localPath)
			result.TotalSizeBytes += n
		}
	}
	return nil
}

func (c *Connection) downloadFile(remotePath, localPath string) (int64, error) {
	client := c.SFTP()
	if client == nil {
		return 0, errors.New("connection is closed")
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return 0, err
	}

	src, err := client.Open(remotePath)
	if err != nil {
		return 0, errors.Wrapf(err, "open remote %s", remotePath)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(localPath)
		return 0, errors.Wrapf(err, "download %s", remotePath)
	}
	return n, nil
}

// UploadFolder mirrors the local directory tree under remote. The local
// folder is checked before connecting; failing to create the remote root
// aborts, while per-file and per-directory failures are recorded.
func UploadFolder(ctx context.Context, opts Options, local, remote string) *models.FolderTransferResult {
	start := time.Now()
	result := newFolderResult(models.DirectionUpload, remote, local)
	defer finishFolderResult(result, start)

	if err := utils.ValidateDir(local); err != nil {
		result.Fail(opserr.New(opserr.ErrConfiguration, "upload folder", err))
		return result
	}
	localAbs, err := filepath.Abs(local)
	if err != nil {
		result.Fail(opserr.New(opserr.ErrConfiguration, "resolve local folder", err))
		return result
	}
	result.LocalFolder = localAbs
	// WalkDir does not follow a symlinked root.
	localRoot, err := filepath.EvalSymlinks(localAbs)
	if err != nil {
		result.Fail(opserr.New(opserr.ErrConfiguration, "resolve local folder", err))
		return result
	}

	conn, err := Dial(ctx, opts)
	if err != nil {
		result.Fail(err)
		return result
	}
	defer closeQuietly(conn)

	if err := conn.UploadTree(ctx, localRoot, remote, result); err != nil {
		result.Fail(err)
		return result
	}

	log.Infof("Uploaded %d files (%s) to %s", len(result.Files), utils.FormatBytes(result.TotalSizeBytes), remote)
	result.Success = true
	return result
}

// UploadTree walks localRoot top-down, creating each directory remotely
// before uploading the files inside it.
func (c *Connection) UploadTree(ctx context.Context, localRoot, remoteRoot string, result *models.FolderTransferResult) error {
	if err := c.MkdirAll(ctx, remoteRoot); err != nil {
		return err
	}

	err := filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			recordFailure(result, p, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(localRoot, p)
		if err != nil {
			recordFailure(result, p, err)
			return nil
		}
		if rel == "." {
			return nil
		}
		remotePath := path.Join(remoteRoot, filepath.ToSlash(rel))

		if d.IsDir() {
			if err := c.MkdirAll(ctx, remotePath); err != nil {
				recordFailure(result, p, err)
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			log.Debugf("Skipping non-regular file %s", p)
			return nil
		}

		log.Debugf("Uploading %s -> %s", p, remotePath)
		n, err := c.uploadFile(p, remotePath)
		if err != nil {
			recordFailure(result, p, err)
			return nil
		}
		result.Files = append(result.Files, remotePath)
		result.TotalSizeBytes += n
		return nil
	})
	if err != nil {
		return opserr.New(opserr.ErrTransport, "upload folder", err)
	}
	return nil
}

func (c *Connection) uploadFile(localPath, remotePath string) (int64, error) {
	client := c.SFTP()
	if client == nil {
		return 0, errors.New("connection is closed")
	}

	src, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := client.Create(remotePath)
	if err != nil {
		return 0, errors.Wrapf(err, "create remote %s", remotePath)
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, errors.Wrapf(err, "upload %s", remotePath)
	}
	return n, nil
}
