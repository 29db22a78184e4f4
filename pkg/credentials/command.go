package credentials

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandBackend resolves credentials by invoking an external
// secret-store command for each lookup: `<command> <section> <field>`,
// expecting the secret on stdout with trailing whitespace trimmed. This
// is the pluggable alternative to FileBackend for sites that keep
// secrets in a vault CLI rather than a flat file.
type CommandBackend struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// NewCommandBackend wraps an external command. args are prepended to
// the per-lookup [section, field] arguments (e.g. a subcommand name).
func NewCommandBackend(command string, args ...string) *CommandBackend {
	return &CommandBackend{Command: command, Args: args, Timeout: 10 * time.Second}
}

// Name identifies this backend in CredentialError messages.
func (b *CommandBackend) Name() string { return fmt.Sprintf("command:%s", b.Command) }

// Lookup runs the configured command for section.field. A non-zero exit
// or empty output is treated as "not found" rather than an error, so
// callers see a uniform CredentialError regardless of backend.
func (b *CommandBackend) Lookup(section, field string) (string, bool) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	args := append(append([]string{}, b.Args...), section, field)
	cmd := exec.CommandContext(ctx, b.Command, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", false
	}

	val := strings.TrimSpace(out.String())
	if val == "" {
		return "", false
	}
	return val, true
}
