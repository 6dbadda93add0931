package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coldwire/goftp"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ftp.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFromYAML(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
host: ftp.example.com
port: 21
username: alice
password: secret
base_directory: /uploads
encryption: explicit
ip_version: "4"
mode: binary
timeout_seconds: 15
bandwidth_limit_bytes_per_second: 1048576
`)

	cfg, err := FromYAML(path)
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}

	if cfg.Host != "ftp.example.com" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.Port != 21 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.Encryption != ftp.EncryptionExplicit {
		t.Errorf("Encryption = %v, want EncryptionExplicit", cfg.Encryption)
	}
	if cfg.IPVersion != ftp.IPv4 {
		t.Errorf("IPVersion = %v, want IPv4", cfg.IPVersion)
	}
	if cfg.Mode != ftp.ModeBinary {
		t.Errorf("Mode = %v, want ModeBinary", cfg.Mode)
	}
	if !cfg.UsePassive {
		t.Error("UsePassive should default to true")
	}
	if cfg.BandwidthLimitBytesPerSecond != 1048576 {
		t.Errorf("BandwidthLimitBytesPerSecond = %d", cfg.BandwidthLimitBytesPerSecond)
	}
}

func TestFromYAML_ActiveModeAndDefaults(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
host: ftp.example.com
passive: false
`)

	cfg, err := FromYAML(path)
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	if cfg.UsePassive {
		t.Error("UsePassive should be false when passive: false is set")
	}
	if cfg.Encryption != ftp.EncryptionNone {
		t.Errorf("Encryption = %v, want EncryptionNone", cfg.Encryption)
	}
	if cfg.Mode != ftp.ModeASCII {
		t.Errorf("Mode = %v, want ModeASCII", cfg.Mode)
	}
}

func TestFromYAML_UnknownEncryption(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
host: ftp.example.com
encryption: rot13
`)

	if _, err := FromYAML(path); err == nil {
		t.Error("expected error for unknown encryption value")
	}
}

func TestFromYAML_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := FromYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
