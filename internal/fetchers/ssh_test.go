package fetchers

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// sshServer answers exec requests from outputs, keyed by command line.
func sshServer(t *testing.T, ln net.Listener, hostKey ssh.Signer, outputs map[string][]byte) {
	t.Helper()

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(ssh.ConnMetadata, ssh.PublicKey) (*ssh.Permissions, error) {
			return &ssh.Permissions{}, nil
		},
	}
	config.AddHostKey(hostKey)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSSHConn(conn, config, outputs)
		}
	}()
}

func serveSSHConn(conn net.Conn, config *ssh.ServerConfig, outputs map[string][]byte) {
	defer conn.Close()
	_, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "sessions only")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			return
		}
		go func() {
			defer channel.Close()
			for req := range requests {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
					_ = req.Reply(false, nil)
					continue
				}
				_ = req.Reply(true, nil)

				status := struct{ Status uint32 }{}
				if out, ok := outputs[payload.Command]; ok {
					_, _ = channel.Write(out)
				} else {
					_, _ = channel.Stderr().Write([]byte("No such file or directory\n"))
					status.Status = 1
				}
				_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(&status))
				return
			}
		}()
	}
}

func newSSHFixture(t *testing.T, outputs map[string][]byte) (*SSHFetcher, string) {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostKey, err := ssh.NewSignerFromKey(hostPriv)
	require.NoError(t, err)

	_, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(clientPriv, "certmate test")
	require.NoError(t, err)
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600))

	ln := listen(t)
	sshServer(t, ln, hostKey, outputs)

	f := NewSSHFetcher(nil)
	f.sshKeyPath = keyPath
	f.user = "certmate"
	f.trustedKey = keyString(hostKey.PublicKey())
	return f, ln.Addr().String()
}

func TestSSHFetcher(t *testing.T) {
	der := newServerCertificate(t).Certificate[0]
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	f, addr := newSSHFixture(t, map[string][]byte{
		"cat -- '/etc/ssl/site.pem'": certPEM,
	})

	got, err := f.Fetch(context.Background(), Target{Name: "remote", Address: addr, Path: "/etc/ssl/site.pem"})
	require.NoError(t, err)
	assert.Equal(t, der, got)

	_, err = f.Fetch(context.Background(), Target{Address: addr, Path: "/etc/ssl/missing.pem"})
	assert.Error(t, err)
}

func TestSSHFetcherRejectsUnknownHostKey(t *testing.T) {
	f, addr := newSSHFixture(t, nil)
	f.trustedKey = "ssh-ed25519 AAAAnotthekey"

	_, err := f.Fetch(context.Background(), Target{Address: addr, Path: "/etc/ssl/site.pem"})
	assert.ErrorContains(t, err, "SSH-key verification")
}

func TestSSHFetcherRequiresTarget(t *testing.T) {
	f := NewSSHFetcher(nil)

	_, err := f.Fetch(context.Background(), Target{Path: "/x"})
	assert.ErrorIs(t, err, ErrMissingAddress)
	_, err = f.Fetch(context.Background(), Target{Address: "host:22"})
	assert.ErrorIs(t, err, ErrMissingPath)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "cat -- '/etc/ssl/cert.pem'", catCommand("/etc/ssl/cert.pem"))
	assert.Equal(t, `cat -- '/tmp/it'\''s.pem'`, catCommand("/tmp/it's.pem"))
}
