package sshclient

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"

	"remoteops/internal/opserr"
)

func writePEM(t *testing.T, blockType string, der []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(p, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}), 0600))
	return p
}

func TestLoadSigner(t *testing.T) {
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	pkcs8Plain, err := x509.MarshalPKCS8PrivateKey(edKey)
	require.NoError(t, err)
	pkcs8Encrypted, err := pkcs8.MarshalPrivateKey(edKey, []byte("hunter2"), pkcs8.DefaultOpts)
	require.NoError(t, err)
	sec1, err := x509.MarshalECPrivateKey(ecKey)
	require.NoError(t, err)

	openSSHPlain, _ := writeOpenSSHKey(t, "")
	openSSHEncrypted, _ := writeOpenSSHKey(t, "hunter2")

	tests := []struct {
		name       string
		keyFile    string
		passphrase string
		wantType   string
	}{
		{"OpenSSH", openSSHPlain, "", "ssh-ed25519"},
		{"OpenSSH encrypted", openSSHEncrypted, "hunter2", "ssh-ed25519"},
		{"SEC1 PEM", writePEM(t, "EC PRIVATE KEY", sec1), "", "ecdsa-sha2-nistp256"},
		{"PKCS8", writePEM(t, "PRIVATE KEY", pkcs8Plain), "", "ssh-ed25519"},
		{"PKCS8 encrypted", writePEM(t, "ENCRYPTED PRIVATE KEY", pkcs8Encrypted), "hunter2", "ssh-ed25519"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := LoadSigner(tt.keyFile, tt.passphrase)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, signer.PublicKey().Type())
		})
	}
}

func TestLoadSignerErrors(t *testing.T) {
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pkcs8Encrypted, err := pkcs8.MarshalPrivateKey(edKey, []byte("hunter2"), pkcs8.DefaultOpts)
	require.NoError(t, err)
	openSSHEncrypted, _ := writeOpenSSHKey(t, "hunter2")

	garbage := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("not a key"), 0600))

	tests := []struct {
		name       string
		keyFile    string
		passphrase string
		wantMsg    string
	}{
		{"Missing file", filepath.Join(t.TempDir(), "absent"), "", "read private key"},
		{"Garbage", garbage, "", "parse private key"},
		{"OpenSSH without passphrase", openSSHEncrypted, "", "no passphrase configured"},
		{"OpenSSH wrong passphrase", openSSHEncrypted, "wrong", "parse private key"},
		{"PKCS8 without passphrase", writePEM(t, "ENCRYPTED PRIVATE KEY", pkcs8Encrypted), "", "requires a passphrase"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSigner(tt.keyFile, tt.passphrase)
			require.Error(t, err)
			assert.ErrorIs(t, err, opserr.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestAuthMethods(t *testing.T) {
	keyPath, _ := writeOpenSSHKey(t, "")

	methods, err := authMethods(Options{KeyFile: keyPath, Password: "ignored"})
	require.NoError(t, err)
	assert.Len(t, methods, 1)

	methods, err = authMethods(Options{Password: "pw"})
	require.NoError(t, err)
	assert.Len(t, methods, 1)

	_, err = authMethods(Options{})
	assert.ErrorIs(t, err, opserr.ErrConfiguration)
}

func TestHostKeyCallbackMissingFile(t *testing.T) {
	_, err := hostKeyCallback(filepath.Join(t.TempDir(), "known_hosts"))
	assert.ErrorIs(t, err, opserr.ErrConfiguration)

	cb, err := hostKeyCallback("")
	require.NoError(t, err)
	assert.NotNil(t, cb)
}
