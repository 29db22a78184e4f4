package locker

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// Credentials names the auth material a Locker may use to reach its
// remote: a token (HTTPS), an SSH key, or neither (public repository).
type Credentials struct {
	Token            string
	SSHKeyPath       string
	SSHKeyPassphrase string
}

// AuthProvider produces a go-git transport auth method.
type AuthProvider interface {
	GetAuth() (transport.AuthMethod, error)
	Type() string
}

// TokenAuth implements token-based HTTPS authentication (GitHub,
// GitLab, Bitbucket personal access tokens).
type TokenAuth struct {
	token string
}

// NewTokenAuth creates a token-based authentication provider.
func NewTokenAuth(token string) *TokenAuth {
	return &TokenAuth{token: token}
}

// GetAuth returns HTTP basic auth with the token as password. The
// username is arbitrary for token authentication.
func (a *TokenAuth) GetAuth() (transport.AuthMethod, error) {
	if a.token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	return &http.BasicAuth{Username: "locker", Password: a.token}, nil
}

// Type returns the authentication type.
func (a *TokenAuth) Type() string { return "token" }

// SSHAuth implements SSH key-based authentication.
type SSHAuth struct {
	keyPath    string
	passphrase string
}

// NewSSHAuth creates an SSH key-based authentication provider.
func NewSSHAuth(keyPath, passphrase string) *SSHAuth {
	return &SSHAuth{keyPath: keyPath, passphrase: passphrase}
}

// GetAuth returns SSH public key authentication, refusing overly
// permissive key file modes.
func (a *SSHAuth) GetAuth() (transport.AuthMethod, error) {
	if a.keyPath == "" {
		return nil, fmt.Errorf("ssh key path cannot be empty")
	}
	info, err := os.Stat(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access SSH key file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
	}
	auth, err := ssh.NewPublicKeysFromFile("git", a.keyPath, a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return auth, nil
}

// Type returns the authentication type.
func (a *SSHAuth) Type() string { return "ssh" }

// NoAuth is used for public repositories.
type NoAuth struct{}

// NewNoAuth creates a no-authentication provider.
func NewNoAuth() *NoAuth { return &NoAuth{} }

// GetAuth returns nil, allowing anonymous access to public repositories.
func (a *NoAuth) GetAuth() (transport.AuthMethod, error) { return nil, nil }

// Type returns the authentication type.
func (a *NoAuth) Type() string { return "none" }

// NewAuthProvider builds an AuthProvider from Credentials.
func NewAuthProvider(creds Credentials) (AuthProvider, error) {
	switch {
	case creds.Token != "":
		return NewTokenAuth(creds.Token), nil
	case creds.SSHKeyPath != "":
		return NewSSHAuth(creds.SSHKeyPath, creds.SSHKeyPassphrase), nil
	default:
		return NewNoAuth(), nil
	}
}

// tokenHostPattern recognizes the hosts into which SpliceToken will
// inject a token. Enterprise/self-hosted instances commonly keep
// "github"/"gitlab"/"bitbucket" as a host prefix, so a prefix match
// covers both SaaS and on-prem deployments.
func tokenHostPattern(host string) bool {
	host = strings.ToLower(host)
	for _, prefix := range []string{"github", "bitbucket", "gitlab"} {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

// SpliceToken rewrites rawURL to carry token as userinfo
// (scheme://<token>@host/...) when the host is a recognized git
// hosting provider. Non-matching hosts and empty tokens return rawURL
// unchanged.
func SpliceToken(rawURL, token string) (string, error) {
	if token == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse remote URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return rawURL, nil
	}
	if !tokenHostPattern(u.Host) {
		return rawURL, nil
	}
	u.User = url.User(token)
	return u.String(), nil
}
