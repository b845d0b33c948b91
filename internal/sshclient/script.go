package sshclient

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"remoteops/internal/models"
	"remoteops/internal/opserr"
)

const DefaultRemoteScriptDir = "/tmp"

// RunScript uploads a local script, runs it, and on a zero exit status
// downloads the file it produced. The uploaded script is removed afterwards
// when req.Cleanup is set, whatever the outcome; a failed removal is logged
// and reported without failing the run.
func RunScript(ctx context.Context, opts Options, req models.ScriptRequest) *models.ExecutionResult {
	if req.LocalDownload == "" && req.RemoteOutput != "" {
		req.LocalDownload = path.Base(req.RemoteOutput)
	}
	result := &models.ExecutionResult{
		ExitStatus:     -1,
		RemoteFilePath: req.RemoteOutput,
		LocalFilePath:  req.LocalDownload,
	}

	if req.RemoteOutput == "" {
		result.Fail(opserr.Newf(opserr.ErrConfiguration, "run script", "remote output path is required"))
		return result
	}
	info, err := os.Stat(req.LocalScript)
	if err != nil {
		result.Fail(opserr.New(opserr.ErrConfiguration, "run script", err))
		return result
	}
	if info.IsDir() {
		result.Fail(opserr.Newf(opserr.ErrConfiguration, "run script", "%s is a directory", req.LocalScript))
		return result
	}

	scriptDir := req.RemoteScriptDir
	if scriptDir == "" {
		scriptDir = DefaultRemoteScriptDir
	}
	remoteScript := path.Join(scriptDir, filepath.Base(req.LocalScript))
	result.RemoteScriptPath = remoteScript

	conn, err := Dial(ctx, opts)
	if err != nil {
		result.Fail(err)
		return result
	}
	defer closeQuietly(conn)

	uploaded := false
	defer func() {
		if uploaded && req.Cleanup {
			conn.removeScript(remoteScript, result)
		}
	}()

	log.Infof("Uploading script %s to %s", req.LocalScript, remoteScript)
	if _, err := conn.uploadFile(req.LocalScript, remoteScript); err != nil {
		result.Fail(opserr.New(opserr.ErrTransport, "upload script", err))
		return result
	}
	uploaded = true

	chmod, err := conn.Run(ctx, "chmod +x "+shellQuote(remoteScript))
	if err != nil {
		result.Fail(err)
		return result
	}
	if chmod.ExitStatus != 0 {
		result.Fail(opserr.Newf(opserr.ErrTransport, "chmod script", "exit status %d: %s", chmod.ExitStatus, chmod.Stderr))
		return result
	}

	log.Infof("Running %s", remoteScript)
	run, err := conn.Run(ctx, scriptCommand(remoteScript, req.Args))
	if err != nil {
		result.Fail(err)
		return result
	}
	result.ExitStatus = run.ExitStatus
	result.Stdout = run.Stdout
	result.Stderr = run.Stderr
	if run.ExitStatus != 0 {
		log.Errorf("Script %s exited with status %d", remoteScript, run.ExitStatus)
		result.Fail(opserr.Tag(opserr.ErrScriptFailed, errors.Errorf("script exited with status %d", run.ExitStatus)))
		return result
	}

	size, err := conn.fetchOutput(req.RemoteOutput, req.LocalDownload)
	if err != nil {
		result.Fail(err)
		return result
	}
	result.FileSize = size
	log.Infof("Downloaded %s (%d bytes) to %s", req.RemoteOutput, size, req.LocalDownload)

	result.Success = true
	return result
}

func (c *Connection) fetchOutput(remotePath, localPath string) (int64, error) {
	client := c.SFTP()
	if client == nil {
		return 0, opserr.Newf(opserr.ErrTransport, "fetch output", "connection is closed")
	}

	info, err := client.Stat(remotePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, opserr.Newf(opserr.ErrRemotePathNotFound, "fetch output", "remote file %s not found", remotePath)
		}
		return 0, opserr.New(opserr.ErrTransport, "stat "+remotePath, err)
	}

	if _, err := c.downloadFile(remotePath, localPath); err != nil {
		return 0, opserr.New(opserr.ErrTransport, "fetch output", err)
	}
	return info.Size(), nil
}

func (c *Connection) removeScript(remoteScript string, result *models.ExecutionResult) {
	client := c.SFTP()
	if client == nil {
		result.CleanupError = "connection is closed"
		return
	}
	if err := client.Remove(remoteScript); err != nil {
		log.Warnf("Failed to remove remote script %s: %v", remoteScript, err)
		result.CleanupError = err.Error()
		return
	}
	result.ScriptCleanedUp = true
	log.Debugf("Removed remote script %s", remoteScript)
}
