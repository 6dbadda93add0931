// Package config loads an ftp.Config from YAML. Loading configuration
// from a file is peripheral to the engine (spec §1 lists configuration
// loading as an out-of-scope external collaborator); this package is a
// thin, optional convenience for callers that keep FTP target
// configuration alongside the rest of a service's config file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coldwire/goftp"
)

// File is the YAML-serializable shape of an ftp.Config. It omits fields
// that can't round-trip through YAML (VerifyConnection, Resolver,
// Logger, ClientCertificates) — set those with ftp.Options after
// loading, or construct ftp.Config directly.
type File struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	BaseDirectory string `yaml:"base_directory"`

	// Passive selects EPSV/PASV (true, the default) over PORT.
	Passive *bool `yaml:"passive"`

	// Encryption is one of "", "none", "implicit", "explicit".
	Encryption string `yaml:"encryption"`

	// IPVersion is one of "", "any", "4", "6".
	IPVersion string `yaml:"ip_version"`

	IgnoreCertificateErrors bool `yaml:"ignore_certificate_errors"`

	TimeoutSeconds                int `yaml:"timeout_seconds"`
	DisconnectTimeoutMilliseconds int `yaml:"disconnect_timeout_milliseconds"`
	IdleTimeoutSeconds             int `yaml:"idle_timeout_seconds"`

	// Mode is one of "", "ascii", "binary". Defaults to ascii, matching
	// ftp.Config.applyDefaults.
	Mode string `yaml:"mode"`

	BandwidthLimitBytesPerSecond int64 `yaml:"bandwidth_limit_bytes_per_second"`
}

// FromYAML reads and parses a YAML file into an ftp.Config.
func FromYAML(path string) (ftp.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ftp.Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return ftp.Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return f.ToConfig()
}

// ToConfig translates the YAML-friendly File into an ftp.Config.
func (f File) ToConfig() (ftp.Config, error) {
	cfg := ftp.Config{
		Host:                          f.Host,
		Port:                          f.Port,
		Username:                      f.Username,
		Password:                      f.Password,
		BaseDirectory:                 f.BaseDirectory,
		UsePassive:                    true,
		IgnoreCertificateErrors:       f.IgnoreCertificateErrors,
		TimeoutSeconds:                f.TimeoutSeconds,
		DisconnectTimeoutMilliseconds: f.DisconnectTimeoutMilliseconds,
		IdleTimeoutSeconds:            f.IdleTimeoutSeconds,
		BandwidthLimitBytesPerSecond:  f.BandwidthLimitBytesPerSecond,
	}

	if f.Passive != nil {
		cfg.UsePassive = *f.Passive
	}

	switch f.Encryption {
	case "", "none":
		cfg.Encryption = ftp.EncryptionNone
	case "implicit":
		cfg.Encryption = ftp.EncryptionImplicit
	case "explicit":
		cfg.Encryption = ftp.EncryptionExplicit
	default:
		return ftp.Config{}, fmt.Errorf("config: unknown encryption %q", f.Encryption)
	}

	switch f.IPVersion {
	case "", "any":
		cfg.IPVersion = ftp.IPAny
	case "4":
		cfg.IPVersion = ftp.IPv4
	case "6":
		cfg.IPVersion = ftp.IPv6
	default:
		return ftp.Config{}, fmt.Errorf("config: unknown ip_version %q", f.IPVersion)
	}

	switch f.Mode {
	case "", "ascii":
		cfg.Mode = ftp.ModeASCII
	case "binary":
		cfg.Mode = ftp.ModeBinary
	default:
		return ftp.Config{}, fmt.Errorf("config: unknown mode %q", f.Mode)
	}

	return cfg, nil
}
