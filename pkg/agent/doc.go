// Package agent implements the named signer/verifier that the evidence
// locker consults whenever evidence is written (to sign) or read (to
// verify).
//
// An Agent is signable when it holds a name and a private key, and
// verifiable when it holds a name and a public key. Signing hashes
// content with SHA-256 and signs the digest with RSA-PSS-SHA256
// (MGF1-SHA256, maximum salt length), base64-encoding the result.
//
// Verification normally loads the signer's public key from the
// distinguished locker evidence at raw/auditree/agent_public_keys.json
// (a JSON object of agent name to PEM-encoded key). The one exception is
// that file itself: verifying agent_public_keys.json uses the locally
// configured keypair rather than a key drawn from the file being
// verified, which would be circular.
package agent
