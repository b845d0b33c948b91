package cmd

import (
	"github.com/spf13/cobra"

	"remoteops/internal/sshclient"
)

// addConnectionFlags registers the SSH connection flags. Unset flags fall
// back to the SSH_* configuration.
func addConnectionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("host", "", "SSH host (default $SSH_HOST)")
	f.String("user", "", "SSH user (default $SSH_USER)")
	f.Int("port", sshclient.DefaultPort, "SSH port (default $SSH_PORT)")
	f.String("key", "", "Private key file; wins over --password (default $SSH_KEY_PATH)")
	f.String("passphrase", "", "Passphrase of the private key (default $SSH_KEY_PASSPHRASE)")
	f.String("password", "", "Password, used when no key is given (default $SSH_PASSWORD)")
	f.String("known-hosts", "", "known_hosts file; empty accepts any host key (default $SSH_KNOWN_HOSTS)")
	f.Duration("timeout", sshclient.DefaultTimeout, "Connect timeout (default $SSH_TIMEOUT)")
}

func sshOptions(cmd *cobra.Command) sshclient.Options {
	opts := sshclient.Options{
		Host:           stringFlagOr(cmd, "host", cfg.SSHHost),
		User:           stringFlagOr(cmd, "user", cfg.SSHUser),
		Port:           cfg.SSHPort,
		KeyFile:        stringFlagOr(cmd, "key", cfg.SSHKeyPath),
		KeyPassphrase:  stringFlagOr(cmd, "passphrase", cfg.SSHKeyPassphrase),
		Password:       stringFlagOr(cmd, "password", cfg.SSHPassword),
		KnownHostsFile: stringFlagOr(cmd, "known-hosts", cfg.SSHKnownHosts),
		Timeout:        cfg.SSHTimeout,
	}
	if cmd.Flags().Changed("port") {
		opts.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	return opts
}

func stringFlagOr(cmd *cobra.Command, name, fallback string) string {
	if !cmd.Flags().Changed(name) {
		return fallback
	}
	value, _ := cmd.Flags().GetString(name)
	return value
}
