package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/auditree/auditree-go/pkg/agent"
	"github.com/auditree/auditree-go/pkg/evidence"
)

var keysFlags struct {
	output  string
	keyID   string
	bits    int
	agentID string
}

var clearSignFlags struct {
	keyPath     string
	contentPath string
	agentID     string
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage cryptographic keys",
	Long: `Generate and inspect RSA keypairs for evidence signing.

Keys are generated using RSA, and evidence is signed with RSA-PSS over
a SHA-256 digest — the same scheme pkg/agent uses when a run's
agent_private_key is configured.

Subcommands:
  generate   - Generate a new RSA keypair
  list       - List all keys (not yet implemented)
  clearsign  - Sign a content file and print its clear-signed block

Examples:
  # Generate new keypair
  auditree keys generate

  # Generate with custom key ID
  auditree keys generate --key-id "prod-2026"

  # Sign a file and inspect the clear-signed block
  auditree keys clearsign --key prod-2026_private.pem --content evidence.json`,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new keypair",
	Long: `Generate a new RSA keypair for evidence signing.

The generated keys are saved to PEM files with restrictive permissions:
  - Public key:  0644 (readable by all)
  - Private key: 0600 (readable only by owner)

Examples:
  # Generate keypair with auto-generated ID
  auditree keys generate

  # Generate with custom ID
  auditree keys generate --key-id "prod-2026-11"

  # Save to custom directory
  auditree keys generate --output /etc/auditree/keys`,
	RunE: generateKeys,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all keys",
	Long:  `List all cryptographic keys with metadata.`,
	RunE:  listKeys,
}

var keysClearSignCmd = &cobra.Command{
	Use:   "clearsign",
	Short: "Sign a content file and print its clear-signed block",
	Long: `Load a private key and a content file, sign the content with
RSA-PSS-SHA256 through pkg/agent, and print the resulting clear-signed
block (the same BEGIN/END format used by signature-inspection tooling
against locker evidence).

This is a debugging aid: it lets an operator verify that a given
private key file produces the expected digest/signature for a piece of
content without running a full check.`,
	RunE: runClearSign,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd, keysListCmd, keysClearSignCmd)

	keysGenerateCmd.Flags().StringVarP(&keysFlags.output, "output", "o", "./keys", "output directory")
	keysGenerateCmd.Flags().StringVar(&keysFlags.keyID, "key-id", "", "key ID (auto-generated if empty)")
	keysGenerateCmd.Flags().IntVar(&keysFlags.bits, "bits", 4096, "RSA modulus size in bits")

	keysClearSignCmd.Flags().StringVar(&clearSignFlags.keyPath, "key", "", "path to the PEM-encoded private key")
	keysClearSignCmd.Flags().StringVar(&clearSignFlags.contentPath, "content", "", "path to the content file to sign")
	keysClearSignCmd.Flags().StringVar(&clearSignFlags.agentID, "agent", "debug", "agent name recorded in the clear-signed block")
	_ = keysClearSignCmd.MarkFlagRequired("key")
	_ = keysClearSignCmd.MarkFlagRequired("content")
}

func generateKeys(cmd *cobra.Command, args []string) error {
	if keysFlags.keyID == "" {
		keysFlags.keyID = fmt.Sprintf("key-%d", time.Now().Unix())
	}

	fmt.Println("Generating RSA keypair...")
	fmt.Println()

	privateKey, err := rsa.GenerateKey(rand.Reader, keysFlags.bits)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	if err := os.MkdirAll(keysFlags.output, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	publicKeyPath := filepath.Join(keysFlags.output, keysFlags.keyID+"_public.pem")
	if err := savePublicKey(publicKeyPath, &privateKey.PublicKey); err != nil {
		return fmt.Errorf("failed to save public key: %w", err)
	}

	privateKeyPath := filepath.Join(keysFlags.output, keysFlags.keyID+"_private.pem")
	if err := savePrivateKey(privateKeyPath, privateKey); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}

	fmt.Printf("Key ID: %s\n", keysFlags.keyID)
	fmt.Printf("Public Key:  %s\n", publicKeyPath)
	fmt.Printf("Private Key: %s\n", privateKeyPath)
	fmt.Println()
	fmt.Println("Warning: store the private key securely and never commit it to version control")
	fmt.Println("Keys generated successfully")
	fmt.Println()
	fmt.Println("Configuration snippet:")
	fmt.Printf("agent_private_key: %q\n", privateKeyPath)
	fmt.Printf("agent_public_key: %q\n", publicKeyPath)

	return nil
}

func savePublicKey(path string, key *rsa.PublicKey) error {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return err
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}

	// #nosec G304 G302 - user-specified output path for a public key is expected for a CLI tool.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	return pem.Encode(file, block)
}

func savePrivateKey(path string, key *rsa.PrivateKey) error {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return err
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}

	// #nosec G304 - user-specified output path for a private key is expected for a CLI tool.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return pem.Encode(file, block)
}

func listKeys(cmd *cobra.Command, args []string) error {
	fmt.Println("Key listing not yet implemented")
	fmt.Println()
	fmt.Println("This feature will be implemented in a future release.")
	fmt.Println("For now, you can list keys manually:")
	fmt.Println("  ls -la keys/")
	return nil
}

func runClearSign(cmd *cobra.Command, args []string) error {
	keyBytes, err := os.ReadFile(clearSignFlags.keyPath)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}
	content, err := os.ReadFile(clearSignFlags.contentPath)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	a := agent.New(clearSignFlags.agentID, false)
	if err := a.SetPrivateKey(keyBytes); err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}

	digest, signature, err := a.HashAndSign(content)
	if err != nil {
		return fmt.Errorf("sign content: %w", err)
	}

	ev := evidence.New(evidence.KindRaw, "", filepath.Base(clearSignFlags.contentPath))
	ev.Agent = clearSignFlags.agentID
	ev.Content = content
	ev.Digest = digest
	ev.Signature = signature

	fmt.Println(ev.ClearSign())
	return nil
}
