package config

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// VaultHeader starts every Ansible Vault encrypted file.
const VaultHeader = "$ANSIBLE_VAULT;"

// Decrypter turns a located configuration file into plaintext. Decryption is
// owned by the invoking host; implementations only delegate to it.
type Decrypter interface {
	Decrypt(ctx context.Context, path string) ([]byte, error)
}

// PlainFile reads the file as it is.
type PlainFile struct{}

func (PlainFile) Decrypt(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// VaultDecrypter decrypts Ansible Vault files with the ansible-vault command.
// Files without the vault header are returned unchanged.
type VaultDecrypter struct {
	// Command defaults to "ansible-vault".
	Command string
	// Args are passed before "view <path>", e.g. --vault-password-file.
	Args []string
}

func (d VaultDecrypter) Decrypt(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if !IsVaultEncrypted(data) {
		return data, nil
	}

	command := d.Command
	if command == "" {
		command = "ansible-vault"
	}

	args := append(append([]string{}, d.Args...), "view", path)
	tflog.Debug(ctx, "Decrypting vault encrypted configuration", map[string]any{
		"path":    path,
		"command": command,
	})

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...) // #nosec G204 -- command is operator supplied
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s view failed: %w: %s", command, err, msg)
		}
		return nil, fmt.Errorf("%s view failed: %w", command, err)
	}

	return out, nil
}

// IsVaultEncrypted reports whether data starts with the Ansible Vault header.
func IsVaultEncrypted(data []byte) bool {
	line, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
	return bytes.HasPrefix(bytes.TrimSpace(line), []byte(VaultHeader))
}
