package sshclient

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"remoteops/internal/opserr"
)

type CommandResult struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// Run executes cmd in a new session and waits for it to finish before
// returning both streams in full. A non-zero exit status is reported in the
// result, not as an error.
func (c *Connection) Run(ctx context.Context, cmd string) (*CommandResult, error) {
	client := c.sshClient()
	if client == nil {
		return nil, opserr.Newf(opserr.ErrTransport, "run", "connection is closed")
	}

	start := time.Now()
	session, err := client.NewSession()
	if err != nil {
		return nil, opserr.New(opserr.ErrTransport, "open ssh session", err)
	}
	defer session.Close()

	var outBuf, errBuf bytes.Buffer
	session.Stdout = &outBuf
	session.Stderr = &errBuf

	if err := session.Start(cmd); err != nil {
		return nil, opserr.New(opserr.ErrTransport, "start command", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return nil, opserr.New(opserr.ErrTransport, "run", ctx.Err())
	case runErr = <-done:
	}

	cmdLabel := cmd
	if len(cmdLabel) > 80 {
		cmdLabel = cmdLabel[:80] + "..."
	}
	log.Debugf("Command finished in %s: %s", time.Since(start).Round(time.Millisecond), cmdLabel)

	result := &CommandResult{Stdout: outBuf.String(), Stderr: errBuf.String()}
	if runErr != nil {
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitStatus = exitErr.ExitStatus()
			return result, nil
		}
		return result, opserr.New(opserr.ErrTransport, "run", runErr)
	}
	return result, nil
}

// MkdirAll creates p and its parents with `mkdir -p`.
func (c *Connection) MkdirAll(ctx context.Context, p string) error {
	result, err := c.Run(ctx, "mkdir -p "+shellQuote(p))
	if err != nil {
		return err
	}
	if result.ExitStatus != 0 {
		return opserr.Newf(opserr.ErrTransport, "mkdir "+p, "exit status %d: %s",
			result.ExitStatus, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

func scriptCommand(remoteScript, args string) string {
	if args = strings.TrimSpace(args); args != "" {
		return fmt.Sprintf("%s %s", shellQuote(remoteScript), args)
	}
	return shellQuote(remoteScript)
}
