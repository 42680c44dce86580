package fetchers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// SSHFetcher reads a certificate file on a remote host. It authenticates with
// SSH_KEY_PATH or the agent behind SSH_AUTH_SOCK and pins SSH_TRUSTED_KEY.
type SSHFetcher struct {
	BaseFetcher
	sshKeyPath string
	user       string
	trustedKey string
}

func NewSSHFetcher(logger *zap.SugaredLogger) *SSHFetcher {
	return &SSHFetcher{
		BaseFetcher: NewBaseFetcher(logger, TimeoutBounds{}),
		sshKeyPath:  os.Getenv("SSH_KEY_PATH"),
		user:        os.Getenv("SSH_USER"),
		trustedKey:  os.Getenv("SSH_TRUSTED_KEY"),
	}
}

func (f *SSHFetcher) Protocol() Protocol {
	return SSH
}

func (f *SSHFetcher) Fetch(ctx context.Context, target Target) ([]byte, error) {
	if target.Address == "" {
		return nil, ErrMissingAddress
	}
	if target.Path == "" {
		return nil, ErrMissingPath
	}
	return f.fetch(ctx, func(ctx context.Context) ([]byte, error) {
		config, err := f.getSSHConfig()
		if err != nil {
			return nil, fmt.Errorf("ssh config error: %w", err)
		}

		conn, err := dial(ctx, target.Address)
		if err != nil {
			return nil, err
		}
		sshConn, chans, reqs, err := ssh.NewClientConn(conn, target.Address, config)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("ssh handshake error: %w", err)
		}
		client := ssh.NewClient(sshConn, chans, reqs)
		defer client.Close()

		session, err := client.NewSession()
		if err != nil {
			return nil, fmt.Errorf("session error: %w", err)
		}
		defer session.Close()

		out, err := session.Output(catCommand(target.Path))
		if err != nil {
			return nil, fmt.Errorf("command error: %w", err)
		}
		return DecodeCertificate(out)
	})
}

func catCommand(path string) string {
	return "cat -- " + shellQuote(path)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (f *SSHFetcher) getSSHConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if f.sshKeyPath != "" {
		key, err := os.ReadFile(filepath.Clean(f.sshKeyPath))
		if err != nil {
			return nil, fmt.Errorf("unable to read SSH key: %w", err)
		}

		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("unable to parse SSH key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	} else if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SSH agent: %w", err)
		}

		agentClient := agent.NewClient(conn)
		auth = append(auth, ssh.PublicKeysCallback(agentClient.Signers))
	}

	if len(auth) == 0 {
		return nil, fmt.Errorf("no SSH authentication methods available")
	}

	return &ssh.ClientConfig{
		User:            f.user,
		Auth:            auth,
		HostKeyCallback: f.trustedHostKeyCallback(),
		Timeout:         f.timeout,
	}, nil
}

func keyString(k ssh.PublicKey) string {
	return k.Type() + " " + base64.StdEncoding.EncodeToString(k.Marshal())
}

func (f *SSHFetcher) trustedHostKeyCallback() ssh.HostKeyCallback {
	if f.trustedKey == "" {
		return func(hostname string, _ net.Addr, k ssh.PublicKey) error {
			f.logger.Warnw("SSH host key verification is not in effect, set SSH_TRUSTED_KEY",
				"host", hostname, "trusted_key", keyString(k))
			return nil
		}
	}

	return func(_ string, _ net.Addr, k ssh.PublicKey) error {
		ks := keyString(k)
		if f.trustedKey != ks {
			return fmt.Errorf("SSH-key verification: expected %q but got %q", f.trustedKey, ks)
		}
		return nil
	}
}

func init() {
	RegisterFetcher(SSH, func(logger *zap.SugaredLogger) Fetcher { return NewSSHFetcher(logger) })
}
