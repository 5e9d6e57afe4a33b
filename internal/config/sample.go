package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const sampleHeader = `# vaultwatch configuration
# Values here are the built-in defaults. Every key can also be set via a
# VAULTWATCH_* environment variable, e.g. VAULTWATCH_HYPERLIQUID_VAULT_ADDRESS.

`

// WriteSample writes a commented example configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	}

	var buf bytes.Buffer
	buf.WriteString(sampleHeader)

	cfg := Defaults()
	cfg.Hyperliquid.VaultAddress = "0x0000000000000000000000000000000000000000"
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: encode sample: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("config: write sample: %w", err)
	}
	return nil
}
