// Package sshclient runs folder transfers and remote scripts over SSH, using
// an SFTP sub-session for file access and exec channels for commands.
package sshclient

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"remoteops/internal/opserr"
)

const (
	DefaultPort    = 22
	DefaultTimeout = 30 * time.Second
)

type Options struct {
	Host           string
	Port           int
	User           string
	KeyFile        string
	KeyPassphrase  string
	Password       string
	KnownHostsFile string
	// Timeout bounds the TCP connect and the SSH handshake.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Validate checks the options without touching the network.
func (o Options) Validate() error {
	switch {
	case o.Host == "":
		return opserr.Newf(opserr.ErrConfiguration, "validate", "host is required")
	case o.User == "":
		return opserr.Newf(opserr.ErrConfiguration, "validate", "user is required")
	case o.Port < 1 || o.Port > 65535:
		return opserr.Newf(opserr.ErrConfiguration, "validate", "port %d out of range", o.Port)
	case o.KeyFile == "" && o.Password == "":
		return opserr.Newf(opserr.ErrConfiguration, "validate", "either a private key file or a password is required")
	}
	return nil
}

func (o Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// ConnectionState represents the lifecycle of a Connection.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Connection is an authenticated SSH client together with its SFTP
// sub-session. It is owned by one operation and closed before it returns.
type Connection struct {
	opts  Options
	state atomic.Int32

	mu     sync.Mutex
	client *ssh.Client
	sftp   *sftp.Client
}

// Dial validates opts, connects, authenticates and opens the SFTP
// sub-session. Configuration problems are reported before any network I/O.
func Dial(ctx context.Context, opts Options) (*Connection, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	auth, err := authMethods(opts)
	if err != nil {
		return nil, err
	}
	hostKeys, err := hostKeyCallback(opts.KnownHostsFile)
	if err != nil {
		return nil, err
	}

	c := &Connection{opts: opts}
	c.setState(StateConnecting)

	sshConfig := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         opts.Timeout,
	}

	log.Infof("Connecting to SSH server %s@%s", opts.User, opts.Addr())
	client, err := sshDialContext(ctx, "tcp", opts.Addr(), sshConfig)
	if err != nil {
		c.setState(StateDisconnected)
		return nil, classifyDialError(opts.Addr(), err)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		c.setState(StateDisconnected)
		return nil, opserr.New(opserr.ErrTransport, "open sftp session", err)
	}

	c.client = client
	c.sftp = sftpClient
	c.setState(StateConnected)
	log.Debugf("SSH connection established to %s@%s", opts.User, opts.Addr())
	return c, nil
}

// sshDialContext dials an SSH server, abandoning the handshake when ctx is
// done.
func sshDialContext(ctx context.Context, network, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: config.Timeout}

	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if config.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(config.Timeout))
	}

	done := make(chan dialResult, 1)

	go func() {
		c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
		if err != nil {
			conn.Close()
			done <- dialResult{nil, err}
			return
		}
		conn.SetDeadline(time.Time{})
		done <- dialResult{ssh.NewClient(c, chans, reqs), nil}
	}()

	select {
	case <-ctx.Done():
		conn.Close()
		go closeLateClient(done)
		return nil, ctx.Err()
	case r := <-done:
		return r.client, r.err
	}
}

type dialResult struct {
	client *ssh.Client
	err    error
}

// closeLateClient waits for a handshake abandoned on cancellation and closes
// the client if it completed anyway.
func closeLateClient(done <-chan dialResult) {
	if r := <-done; r.client != nil {
		r.client.Close()
	}
}

func classifyDialError(addr string, err error) error {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return opserr.New(opserr.ErrAuthentication, "connect "+addr, err)
	}
	return opserr.New(opserr.ErrTransport, "connect "+addr, err)
}

func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

func (c *Connection) setState(state ConnectionState) {
	c.state.Store(int32(state))
}

// SFTP returns the file-transfer sub-session, or nil once closed.
func (c *Connection) SFTP() *sftp.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sftp
}

func (c *Connection) sshClient() *ssh.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// Close releases the SFTP sub-session and then the SSH client. Calling it
// again, or on a nil Connection, is a no-op.
func (c *Connection) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sftp == nil && c.client == nil {
		c.setState(StateDisconnected)
		return nil
	}
	c.setState(StateDisconnecting)

	var errs []error
	if c.sftp != nil {
		if err := c.sftp.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close sftp session"))
		}
		c.sftp = nil
	}
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close SSH client"))
		}
		c.client = nil
	}

	c.setState(StateDisconnected)
	log.Debugf("SSH connection to %s closed", c.opts.Addr())
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// closeQuietly is used on deferred paths where a close failure cannot change
// the outcome.
func closeQuietly(c *Connection) {
	if err := c.Close(); err != nil {
		log.Debugf("Closing SSH connection: %v", err)
	}
}
