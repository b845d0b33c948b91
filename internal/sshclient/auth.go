package sshclient

import (
	"encoding/pem"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"remoteops/internal/opserr"
)

// LoadSigner reads a private key file. OpenSSH and legacy PEM keys are parsed
// by x/crypto/ssh; PKCS#8 keys, including "ENCRYPTED PRIVATE KEY" blocks,
// are tried second.
func LoadSigner(keyFile, passphrase string) (ssh.Signer, error) {
	keyData, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, opserr.New(opserr.ErrConfiguration, "read private key", err)
	}

	signer, err := parseSigner(keyData, []byte(passphrase))
	if err != nil {
		return nil, opserr.New(opserr.ErrConfiguration, "parse private key "+keyFile, err)
	}
	return signer, nil
}

func parseSigner(keyData, passphrase []byte) (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey(keyData)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) && len(passphrase) > 0 {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, passphrase)
	}
	if err == nil {
		return signer, nil
	}

	signer, pkcs8Err := parsePKCS8Signer(keyData, passphrase)
	if pkcs8Err == nil {
		return signer, nil
	}
	if errors.As(err, &missing) {
		return nil, errors.New("private key is encrypted but no passphrase configured")
	}
	return nil, errors.Errorf("%v (pkcs8: %v)", err, pkcs8Err)
}

func parsePKCS8Signer(keyData, passphrase []byte) (ssh.Signer, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	var key interface{}
	var err error
	switch block.Type {
	case "ENCRYPTED PRIVATE KEY":
		if len(passphrase) == 0 {
			return nil, errors.New("encrypted key requires a passphrase")
		}
		key, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes, passphrase)
	case "PRIVATE KEY":
		key, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, errors.Errorf("unsupported PEM block %q", block.Type)
	}
	if err != nil {
		return nil, err
	}
	return ssh.NewSignerFromKey(key)
}

// authMethods picks exactly one method: the key file when set, otherwise the
// password.
func authMethods(opts Options) ([]ssh.AuthMethod, error) {
	if opts.KeyFile != "" {
		signer, err := LoadSigner(opts.KeyFile, opts.KeyPassphrase)
		if err != nil {
			return nil, err
		}
		log.Debugf("Using %s key %s", signer.PublicKey().Type(), ssh.FingerprintSHA256(signer.PublicKey()))
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	if opts.Password != "" {
		return []ssh.AuthMethod{ssh.Password(opts.Password)}, nil
	}
	return nil, opserr.Newf(opserr.ErrConfiguration, "auth", "either a private key file or a password is required")
}

func hostKeyCallback(knownHostsFile string) (ssh.HostKeyCallback, error) {
	if knownHostsFile == "" {
		log.Warn("No known_hosts file configured, host keys are not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}

	callback, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, opserr.New(opserr.ErrConfiguration, "load known_hosts", err)
	}
	return callback, nil
}
