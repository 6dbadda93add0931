package ftp

import (
	"crypto/tls"
	"time"

	"github.com/coldwire/goftp/ftplog"
	"github.com/coldwire/goftp/resolver"
)

// EncryptionMode selects how (if at all) TLS is layered onto the control
// and data channels (spec §3/§6).
type EncryptionMode int

const (
	EncryptionNone EncryptionMode = iota
	EncryptionImplicit
	EncryptionExplicit
)

// IPVersion is the address-family preference used when resolving Host.
type IPVersion int

const (
	IPAny IPVersion = iota
	IPv4
	IPv6
)

// TransferMode is the FTP TYPE character (spec §3: "ASCII or Binary").
type TransferMode byte

const (
	ModeASCII  TransferMode = 'A'
	ModeBinary TransferMode = 'I'
)

// Config is the client's connection configuration (spec §3 Data Model,
// §6 External Interfaces). Dial takes a Config value (plus Options that
// adjust it) and never mutates it afterward; everything that changes over
// a login's lifetime lives on Client itself.
type Config struct {
	Host string
	Port int

	Username string
	Password string

	BaseDirectory string

	// UsePassive selects EPSV/PASV (true) over PORT (false). Dial starts
	// from true; a Config passed to DialConfig keeps whatever it holds, so
	// its zero value selects PORT.
	UsePassive bool

	Encryption EncryptionMode

	IPVersion IPVersion

	// IgnoreCertificateErrors disables TLS certificate validation.
	IgnoreCertificateErrors bool

	ClientCertificates []tls.Certificate

	// VerifyConnection delegates certificate validation policy to the
	// caller (spec §1: "Certificate validation policy (delegated to a
	// callback)").
	VerifyConnection func(tls.ConnectionState) error

	// TLSMinVersion/TLSMaxVersion stand in for the spec's "SSL protocol
	// set": crypto/tls negotiates within [min, max] rather than from a
	// list of named protocols. Zero means let crypto/tls decide.
	TLSMinVersion uint16
	TLSMaxVersion uint16

	TimeoutSeconds int

	// DisconnectTimeoutMilliseconds, if non-zero, bounds the wait for the
	// post-transfer completion response on the control channel
	// (spec §4.H).
	DisconnectTimeoutMilliseconds int

	Mode           TransferMode
	ModeSecondType byte

	// Resolver resolves Host to a dialable address (spec §1: "pluggable
	// resolver"). Defaults to resolver.Default{}.
	Resolver resolver.Resolver

	// Logger is the sink every component logs through. Defaults to
	// ftplog.Nop{}.
	Logger ftplog.Logger

	// BandwidthLimitBytesPerSecond, if non-zero, throttles Store/Retrieve
	// via a token-bucket limiter (internal/ratelimit).
	BandwidthLimitBytesPerSecond int64

	// IdleTimeoutSeconds, if non-zero, starts a keepalive goroutine after
	// Login that sends NOOP once the control channel has been idle this
	// long, skipping ticks while a transfer holds dataSem.
	IdleTimeoutSeconds int

	parsers []ListingParser
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		if c.Encryption == EncryptionImplicit {
			c.Port = 990
		} else {
			c.Port = 21
		}
	}
	if c.Username == "" {
		c.Username = "anonymous"
	}
	if c.BaseDirectory == "" {
		c.BaseDirectory = "/"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
	if c.Mode == 0 {
		c.Mode = ModeASCII
	}
	if c.Resolver == nil {
		d := resolver.Default{}
		switch c.IPVersion {
		case IPv4:
			d.PreferredFamily = "tcp4"
		case IPv6:
			d.PreferredFamily = "tcp6"
		}
		c.Resolver = d
	}
	if c.Logger == nil {
		c.Logger = ftplog.Nop{}
	}
	if !c.UsePassive {
		return
	}
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) disconnectTimeout() time.Duration {
	if c.DisconnectTimeoutMilliseconds <= 0 {
		return 0
	}
	return time.Duration(c.DisconnectTimeoutMilliseconds) * time.Millisecond
}

// Option configures a Config before Dial connects. Mirrors the teacher's
// functional-option pattern, applied to Config rather than to Client
// directly: Config is a plain value, independently constructible and
// comparable across Dial calls.
type Option func(*Config) error

// WithPort overrides the default port (21, or 990 under WithImplicitTLS).
func WithPort(port int) Option {
	return func(c *Config) error {
		c.Port = port
		return nil
	}
}

// WithCredentials sets the USER/PASS credentials. Omitting this option
// logs in as "anonymous" with no password.
func WithCredentials(username, password string) Option {
	return func(c *Config) error {
		c.Username = username
		c.Password = password
		return nil
	}
}

// WithBaseDirectory sets the directory Login CWDs into after authenticating,
// creating it (and any missing parents) first if it does not exist
// (spec §4.G step 10).
func WithBaseDirectory(dir string) Option {
	return func(c *Config) error {
		c.BaseDirectory = dir
		return nil
	}
}

// WithActiveMode selects PORT instead of the default EPSV/PASV.
func WithActiveMode() Option {
	return func(c *Config) error {
		c.UsePassive = false
		return nil
	}
}

// WithImplicitTLS enables implicit TLS: the control channel is a TLS
// connection from the first byte, typically on port 990.
func WithImplicitTLS() Option {
	return func(c *Config) error {
		if c.Encryption == EncryptionExplicit {
			return configErr("implicit TLS cannot be combined with explicit TLS")
		}
		c.Encryption = EncryptionImplicit
		return nil
	}
}

// WithExplicitTLS enables explicit TLS: the control channel connects in
// plaintext and upgrades via AUTH TLS (spec §4.G step 2).
func WithExplicitTLS() Option {
	return func(c *Config) error {
		if c.Encryption == EncryptionImplicit {
			return configErr("explicit TLS cannot be combined with implicit TLS")
		}
		c.Encryption = EncryptionExplicit
		return nil
	}
}

// WithIgnoreCertificateErrors disables TLS certificate validation.
func WithIgnoreCertificateErrors() Option {
	return func(c *Config) error {
		c.IgnoreCertificateErrors = true
		return nil
	}
}

// WithClientCertificates presents certs during the TLS handshake, and (for
// a PORT-mode data channel under explicit TLS, where the client acts as the
// TLS server) authenticates as server using certs[0].
func WithClientCertificates(certs ...tls.Certificate) Option {
	return func(c *Config) error {
		c.ClientCertificates = certs
		return nil
	}
}

// WithVerifyConnection delegates certificate validation policy to f, run
// in addition to (not instead of) Go's own chain verification unless
// WithIgnoreCertificateErrors is also set.
func WithVerifyConnection(f func(tls.ConnectionState) error) Option {
	return func(c *Config) error {
		c.VerifyConnection = f
		return nil
	}
}

// WithTLSProtocolRange bounds the negotiated TLS version.
func WithTLSProtocolRange(min, max uint16) Option {
	return func(c *Config) error {
		c.TLSMinVersion = min
		c.TLSMaxVersion = max
		return nil
	}
}

// WithIPVersion constrains address-family resolution for Host when the
// default resolver is used; a custom Resolver is not affected.
func WithIPVersion(v IPVersion) Option {
	return func(c *Config) error {
		c.IPVersion = v
		return nil
	}
}

// WithTimeout sets the control-channel read/write and dial timeout.
func WithTimeout(seconds int) Option {
	return func(c *Config) error {
		c.TimeoutSeconds = seconds
		return nil
	}
}

// WithDisconnectTimeoutMilliseconds bounds the wait for the post-transfer
// completion response read off the control channel after a data stream
// closes (spec §4.H).
func WithDisconnectTimeoutMilliseconds(ms int) Option {
	return func(c *Config) error {
		c.DisconnectTimeoutMilliseconds = ms
		return nil
	}
}

// WithMode sets the TYPE sent after login. secondType is the optional
// second TYPE parameter (e.g. a record-format byte); 0 omits it.
func WithMode(mode TransferMode, secondType byte) Option {
	return func(c *Config) error {
		c.Mode = mode
		c.ModeSecondType = secondType
		return nil
	}
}

// WithResolver overrides how Host is turned into a dialable address.
func WithResolver(r resolver.Resolver) Option {
	return func(c *Config) error {
		c.Resolver = r
		return nil
	}
}

// WithLogger routes every component's log output through l.
func WithLogger(l ftplog.Logger) Option {
	return func(c *Config) error {
		c.Logger = l
		return nil
	}
}

// WithBandwidthLimit throttles Store/Retrieve transfers to at most
// bytesPerSecond.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(c *Config) error {
		c.BandwidthLimitBytesPerSecond = bytesPerSecond
		return nil
	}
}

// WithIdleTimeout starts a background keepalive once Login succeeds: if the
// control channel sees no activity for this long, a NOOP is sent to hold
// the session open. Zero (the default) disables keepalive entirely.
func WithIdleTimeout(seconds int) Option {
	return func(c *Config) error {
		c.IdleTimeoutSeconds = seconds
		return nil
	}
}

// WithCustomListParser registers an additional directory-listing parser,
// tried before the built-in Unix and DOS parsers (spec §4.B).
func WithCustomListParser(parser ListingParser) Option {
	return func(c *Config) error {
		c.parsers = append([]ListingParser{parser}, c.parsers...)
		return nil
	}
}
