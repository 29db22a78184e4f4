package agent

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path"

	"github.com/auditree/auditree-go/pkg/config"
	"github.com/auditree/auditree-go/pkg/evidence"
)

// AgentsDir is the locker path component under which agent-scoped
// evidence is rooted.
const AgentsDir = "agents"

// PublicKeysEvidencePath is the distinguished locker evidence holding
// every known agent's public key, keyed by agent name.
const PublicKeysEvidencePath = "raw/auditree/agent_public_keys.json"

// Agent is a named signer/verifier. The zero value is anonymous: it can
// neither sign nor verify, and GetPath is the identity function.
type Agent struct {
	name       string
	useAgentDir bool
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// New constructs an agent with the given name and no keys (an empty
// name makes it anonymous). Use SetPrivateKey/SetPublicKey to give it
// signing or verifying capability.
func New(name string, useAgentDir bool) *Agent {
	return &Agent{name: name, useAgentDir: useAgentDir}
}

// FromConfig builds an Agent from the agent_name/agent_private_key/
// agent_public_key/use_agent_dir configuration fields. The key fields
// name filesystem paths to PEM-encoded keys.
func FromConfig(cfg *config.Config) (*Agent, error) {
	a := New(cfg.GetString("agent_name", ""), cfg.GetBool("use_agent_dir", true))

	privPath := cfg.GetString("agent_private_key", "")
	pubPath := cfg.GetString("agent_public_key", "")

	switch {
	case privPath != "":
		data, err := os.ReadFile(privPath)
		if err != nil {
			return nil, fmt.Errorf("read agent private key %q: %w", privPath, err)
		}
		if err := a.SetPrivateKey(data); err != nil {
			return nil, fmt.Errorf("parse agent private key %q: %w", privPath, err)
		}
	case pubPath != "":
		data, err := os.ReadFile(pubPath)
		if err != nil {
			return nil, fmt.Errorf("read agent public key %q: %w", pubPath, err)
		}
		if err := a.SetPublicKey(data); err != nil {
			return nil, fmt.Errorf("parse agent public key %q: %w", pubPath, err)
		}
	}

	return a, nil
}

// Name returns the agent's identity, or "" if anonymous.
func (a *Agent) Name() string { return a.name }

// SetPrivateKey parses a PEM-encoded PKCS#1 or PKCS#8 RSA private key and
// derives the corresponding public key.
func (a *Agent) SetPrivateKey(pemBytes []byte) error {
	key, err := parsePrivateKey(pemBytes)
	if err != nil {
		return err
	}
	a.privateKey = key
	a.publicKey = &key.PublicKey
	return nil
}

// SetPublicKey parses a PEM-encoded public key. Ignored for an
// anonymous (unnamed) agent, matching the reference implementation's
// bootstrap precaution against silently trusting an unnamed signer.
func (a *Agent) SetPublicKey(pemBytes []byte) error {
	if a.name == "" {
		return nil
	}
	key, err := parsePublicKey(pemBytes)
	if err != nil {
		return err
	}
	a.publicKey = key
	return nil
}

// PublicKeyPEM renders the agent's public key as a PEM block, for
// publishing into agent_public_keys.json.
func (a *Agent) PublicKeyPEM() (string, error) {
	if a.publicKey == nil {
		return "", fmt.Errorf("agent %q has no public key", a.name)
	}
	der, err := x509.MarshalPKIXPublicKey(a.publicKey)
	if err != nil {
		return "", err
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// Signable reports whether the agent holds both a name and a private key.
func (a *Agent) Signable() bool {
	return a.name != "" && a.privateKey != nil
}

// Verifiable reports whether the agent holds both a name and a public key.
func (a *Agent) Verifiable() bool {
	return a.name != "" && a.publicKey != nil
}

// GetPath roots p under agents/<name> unless the agent is anonymous,
// use_agent_dir is disabled, or p is already agent-rooted.
func (a *Agent) GetPath(p string) string {
	if a.name == "" || !a.useAgentDir {
		return p
	}
	first, _, _ := splitFirst(p)
	if first == AgentsDir {
		return p
	}
	return path.Join(AgentsDir, a.name, p)
}

// HashAndSign computes a SHA-256 digest of data and signs the digest
// with RSA-PSS-SHA256 (MGF1-SHA256, maximum salt length). It satisfies
// evidence.Signer.
func (a *Agent) HashAndSign(data []byte) (digest string, signature string, err error) {
	if !a.Signable() {
		return "", "", nil
	}
	sum := sha256.Sum256(data)
	sig, err := rsa.SignPSS(rand.Reader, a.privateKey, crypto.SHA256, sum[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return "", "", fmt.Errorf("sign: %w", err)
	}
	return hex.EncodeToString(sum[:]), base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 PSS-SHA256 signature over data. It never
// returns an error for an invalid signature — only false — matching
// the reference behavior that verification failure is not exceptional.
func (a *Agent) Verify(data []byte, signatureB64 string) bool {
	if !a.Verifiable() {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(data)
	err = rsa.VerifyPSS(a.publicKey, crypto.SHA256, sum[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	return err == nil
}

// EvidenceSource is the narrow slice of a locker that LoadPublicKeyFromLocker
// needs. pkg/locker's Locker satisfies it; the interface lives here
// (rather than agent importing locker) to keep locker -> agent the only
// cross-package edge between the two.
type EvidenceSource interface {
	GetEvidence(path string, ignoreTTL bool) (*evidence.Evidence, error)
}

// LoadPublicKeyFromLocker loads this agent's public key out of the
// distinguished agent_public_keys.json evidence. Any failure (missing
// file, missing entry, bad PEM) clears the public key rather than
// erroring, matching the bootstrap-tolerant reference behavior: a
// locker with no published keys yet must not block writes.
func (a *Agent) LoadPublicKeyFromLocker(src EvidenceSource, cfg *config.Config) {
	if a.name == "" {
		return
	}
	ev, err := src.GetEvidence(PublicKeysEvidencePath, false)
	if err != nil {
		a.publicKey = nil
		return
	}
	doc, err := ev.ContentAsJSON(cfg)
	if err != nil {
		a.publicKey = nil
		return
	}
	m, ok := doc.(map[string]interface{})
	if !ok {
		a.publicKey = nil
		return
	}
	pemStr, ok := m[a.name].(string)
	if !ok {
		a.publicKey = nil
		return
	}
	if err := a.SetPublicKey([]byte(pemStr)); err != nil {
		a.publicKey = nil
	}
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not an RSA private key")
	}
	return rsaKey, nil
}

func parsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key is not an RSA public key")
	}
	return rsaKey, nil
}

func splitFirst(p string) (first, rest string, ok bool) {
	clean := path.Clean(p)
	idx := -1
	for i, c := range clean {
		if c == '/' {
			idx = i
			break
		}
	}
	if idx == -1 {
		return clean, "", clean != ""
	}
	return clean[:idx], clean[idx+1:], true
}
