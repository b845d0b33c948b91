package sshclient

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

const (
	testUser     = "deploy"
	testPassword = "s3cret"
)

// testServer is an in-process SSH server. Exec requests run through
// /bin/sh -c on the local machine and the "sftp" subsystem is served by
// pkg/sftp against the real filesystem, so remote paths are plain temp dirs.
type testServer struct {
	host        string
	port        int
	hostKey     ssh.Signer
	authorized  ssh.PublicKey
	connections atomic.Int32
	// failExec makes exec requests starting with this prefix exit 1
	// without running.
	failExec atomic.Pointer[string]
}

func newTestServer(t *testing.T, authorized ssh.PublicKey) *testServer {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	require.NoError(t, err)

	srv := &testServer{hostKey: hostSigner, authorized: authorized}

	config := &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if conn.User() == testUser && string(password) == testPassword {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("password rejected for %s", conn.User())
		},
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if srv.authorized != nil && conn.User() == testUser && bytes.Equal(key.Marshal(), srv.authorized.Marshal()) {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("unknown public key")
		},
	}
	config.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	tcpAddr := listener.Addr().(*net.TCPAddr)
	srv.host = tcpAddr.IP.String()
	srv.port = tcpAddr.Port

	var conns []net.Conn
	var connsMu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			netConn, err := listener.Accept()
			if err != nil {
				return
			}
			srv.connections.Add(1)
			connsMu.Lock()
			conns = append(conns, netConn)
			connsMu.Unlock()
			go srv.handleConn(netConn, config)
		}
	}()

	t.Cleanup(func() {
		listener.Close()
		connsMu.Lock()
		for _, c := range conns {
			c.Close()
		}
		connsMu.Unlock()
		<-done
	})
	return srv
}

func (s *testServer) passwordOptions() Options {
	return Options{Host: s.host, Port: s.port, User: testUser, Password: testPassword}
}

func (s *testServer) addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

func (s *testServer) handleConn(netConn net.Conn, config *ssh.ServerConfig) {
	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, config)
	if err != nil {
		netConn.Close()
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, requests)
	}
}

func (s *testServer) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()
	for req := range requests {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)

			if prefix := s.failExec.Load(); prefix != nil && strings.HasPrefix(payload.Command, *prefix) {
				fmt.Fprintf(ch.Stderr(), "%s: operation not permitted\n", *prefix)
				ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{1}))
				return
			}

			cmd := exec.Command("/bin/sh", "-c", payload.Command)
			cmd.Stdout = ch
			cmd.Stderr = ch.Stderr()
			status := 0
			if err := cmd.Run(); err != nil {
				status = 255
				if exitErr, ok := err.(*exec.ExitError); ok {
					status = exitErr.ExitCode()
				}
			}
			ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
			return

		case "subsystem":
			var payload struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Name != "sftp" {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)

			server, err := sftp.NewServer(ch)
			if err != nil {
				return
			}
			server.Serve()
			server.Close()
			return

		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

// writeOpenSSHKey writes a fresh ed25519 key in OpenSSH format, encrypted
// when passphrase is non-empty, and returns its path and public half.
func writeOpenSSHKey(t *testing.T, passphrase string) (string, ssh.PublicKey) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "remoteops test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "remoteops test", []byte(passphrase))
	}
	require.NoError(t, err)

	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0600))
	return keyPath, signer.PublicKey()
}
