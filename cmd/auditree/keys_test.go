package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testRSABits keeps generation fast in tests; production defaults to
// keysFlags.bits (4096).
const testRSABits = 1024

func TestGenerateKeys(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "keys-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	keysFlags.output = tmpDir
	keysFlags.keyID = "test-key"
	keysFlags.bits = testRSABits

	err = generateKeys(nil, []string{})
	if err != nil {
		t.Fatalf("generateKeys() error = %v", err)
	}

	publicKeyPath := filepath.Join(tmpDir, "test-key_public.pem")
	if _, err := os.Stat(publicKeyPath); os.IsNotExist(err) {
		t.Error("Public key file was not created")
	}

	privateKeyPath := filepath.Join(tmpDir, "test-key_private.pem")
	if _, err := os.Stat(privateKeyPath); os.IsNotExist(err) {
		t.Error("Private key file was not created")
	}

	info, err := os.Stat(privateKeyPath)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("Private key file has incorrect permissions: %o, want 0600", mode)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		t.Fatal(err)
	}
	block, _ := pem.Decode(publicKeyData)
	if block == nil || block.Type != "PUBLIC KEY" {
		t.Error("Public key is not valid PEM format")
	}
	if _, err := x509.ParsePKIXPublicKey(block.Bytes); err != nil {
		t.Errorf("Public key does not parse as PKIX: %v", err)
	}

	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		t.Fatal(err)
	}
	block, _ = pem.Decode(privateKeyData)
	if block == nil || block.Type != "PRIVATE KEY" {
		t.Error("Private key is not valid PEM format")
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err != nil {
		t.Errorf("Private key does not parse as PKCS8: %v", err)
	}
}

func TestGenerateKeysAutoID(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "keys-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	keysFlags.output = tmpDir
	keysFlags.keyID = ""
	keysFlags.bits = testRSABits

	err = generateKeys(nil, []string{})
	if err != nil {
		t.Fatalf("generateKeys() with auto ID error = %v", err)
	}

	files, err := filepath.Glob(filepath.Join(tmpDir, "*_public.pem"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("Expected 1 public key file, found %d", len(files))
	}
}

func TestSavePublicKey(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "keys-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	privateKey, err := rsa.GenerateKey(rand.Reader, testRSABits)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(tmpDir, "test_public.pem")
	if err := savePublicKey(path, &privateKey.PublicKey); err != nil {
		t.Fatalf("savePublicKey() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		t.Fatal("Saved public key is not valid PEM")
	}
	if block.Type != "PUBLIC KEY" {
		t.Errorf("PEM block type = %q, want %q", block.Type, "PUBLIC KEY")
	}
	if _, err := x509.ParsePKIXPublicKey(block.Bytes); err != nil {
		t.Errorf("Public key does not parse as PKIX: %v", err)
	}
}

func TestSavePrivateKey(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "keys-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	privateKey, err := rsa.GenerateKey(rand.Reader, testRSABits)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(tmpDir, "test_private.pem")
	if err := savePrivateKey(path, privateKey); err != nil {
		t.Fatalf("savePrivateKey() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Private key permissions = %o, want 0600", info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		t.Fatal("Saved private key is not valid PEM")
	}
	if block.Type != "PRIVATE KEY" {
		t.Errorf("PEM block type = %q, want %q", block.Type, "PRIVATE KEY")
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err != nil {
		t.Errorf("Private key does not parse as PKCS8: %v", err)
	}
}

func TestListKeys(t *testing.T) {
	if err := listKeys(nil, []string{}); err != nil {
		t.Errorf("listKeys() error = %v", err)
	}
}

func TestRunClearSign(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "clearsign-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	keysFlags.output = tmpDir
	keysFlags.keyID = "clearsign"
	keysFlags.bits = testRSABits
	if err := generateKeys(nil, []string{}); err != nil {
		t.Fatalf("generateKeys() error = %v", err)
	}

	contentPath := filepath.Join(tmpDir, "content.txt")
	if err := os.WriteFile(contentPath, []byte("evidence payload"), 0600); err != nil {
		t.Fatal(err)
	}

	clearSignFlags.keyPath = filepath.Join(tmpDir, "clearsign_private.pem")
	clearSignFlags.contentPath = contentPath
	clearSignFlags.agentID = "test-agent"

	if err := runClearSign(nil, []string{}); err != nil {
		t.Fatalf("runClearSign() error = %v", err)
	}
}

func TestRunClearSignMissingKey(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "clearsign-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	contentPath := filepath.Join(tmpDir, "content.txt")
	if err := os.WriteFile(contentPath, []byte("evidence payload"), 0600); err != nil {
		t.Fatal(err)
	}

	clearSignFlags.keyPath = filepath.Join(tmpDir, "missing_private.pem")
	clearSignFlags.contentPath = contentPath
	clearSignFlags.agentID = "test-agent"

	err = runClearSign(nil, []string{})
	if err == nil {
		t.Fatal("expected error for missing key file")
	}
	if !strings.Contains(err.Error(), "private key") {
		t.Errorf("error = %v, want it to mention the private key", err)
	}
}
