package agent

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/auditree/auditree-go/pkg/evidence"
)

func generateTestAgent(t *testing.T, name string) *Agent {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der := x509.MarshalPKCS1PrivateKey(key)
	block := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})

	a := New(name, true)
	if err := a.SetPrivateKey(block); err != nil {
		t.Fatalf("SetPrivateKey: %v", err)
	}
	return a
}

func TestAnonymousAgentCannotSignOrVerify(t *testing.T) {
	a := New("", true)
	if a.Signable() {
		t.Error("anonymous agent should not be signable")
	}
	if a.Verifiable() {
		t.Error("anonymous agent should not be verifiable")
	}
}

func TestHashAndSignDigestMatchesSHA256(t *testing.T) {
	a := generateTestAgent(t, "ci-bot")

	digest, signature, err := a.HashAndSign([]byte("This is my evidence."))
	if err != nil {
		t.Fatalf("HashAndSign: %v", err)
	}
	const wantDigest = "81ddd37cb8aba90077a717b7d6c067815add58e658bb2be0dea4d4d9301c762d"
	if digest != wantDigest {
		t.Errorf("digest = %q, want %q", digest, wantDigest)
	}
	if signature == "" {
		t.Error("signature should not be empty")
	}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	a := generateTestAgent(t, "ci-bot")
	content := []byte(`{"a":1}`)

	digest, signature, err := a.HashAndSign(content)
	if err != nil {
		t.Fatalf("HashAndSign: %v", err)
	}
	if digest == "" || signature == "" {
		t.Fatal("expected non-empty digest/signature")
	}

	if !a.Verify(content, signature) {
		t.Error("Verify should accept a valid signature")
	}
	if a.Verify([]byte("tampered"), signature) {
		t.Error("Verify should reject mismatched content")
	}
}

func TestVerifyWithoutPublicKeyFails(t *testing.T) {
	a := New("auditor", true)
	if a.Verify([]byte("x"), "c2ln") {
		t.Error("Verify should fail when no public key is set")
	}
}

func TestGetPathScopesUnderAgentsDir(t *testing.T) {
	a := New("auditor", true)
	if got := a.GetPath("raw"); got != "agents/auditor/raw" {
		t.Errorf("GetPath(raw) = %q", got)
	}
	if got := a.GetPath("agents/auditor/raw"); got != "agents/auditor/raw" {
		t.Errorf("GetPath should not double-prefix: %q", got)
	}
}

func TestGetPathAnonymousIsIdentity(t *testing.T) {
	a := New("", true)
	if got := a.GetPath("raw/github/users.json"); got != "raw/github/users.json" {
		t.Errorf("anonymous GetPath = %q", got)
	}
}

type fakeEvidenceSource struct {
	ev  *evidence.Evidence
	err error
}

func (f *fakeEvidenceSource) GetEvidence(path string, ignoreTTL bool) (*evidence.Evidence, error) {
	return f.ev, f.err
}

func TestLoadPublicKeyFromLockerClearsKeyOnMiss(t *testing.T) {
	a := generateTestAgent(t, "auditor")
	src := &fakeEvidenceSource{err: evidence.NewNotFoundError(PublicKeysEvidencePath, nil)}

	a.LoadPublicKeyFromLocker(src, nil)
	if a.Verifiable() {
		t.Error("agent should not be verifiable after a failed public-key load")
	}
}
