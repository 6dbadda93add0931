// Package tlsprovider defines the pluggable TLS session-provider seam used
// by the control and data channels to upgrade a plain byte stream to TLS.
// The engine never constructs a *tls.Config directly; it asks a Provider,
// so alternative certificate stores or validation policies can be swapped
// in without touching the protocol engine.
package tlsprovider

import "crypto/tls"

// Params describes the caller-supplied TLS knobs from Config (spec §3:
// "TLS trust-all flag, client certificates, SSL protocol set").
type Params struct {
	// ServerName is used for SNI and certificate hostname verification.
	ServerName string

	// InsecureSkipVerify disables certificate validation entirely
	// (Config.IgnoreCertificateErrors).
	InsecureSkipVerify bool

	// Certificates are presented by the client during the handshake
	// (mutual TLS) and, for an explicit-TLS data channel in PORT mode,
	// by the client acting as the TLS server.
	Certificates []tls.Certificate

	// MinVersion/MaxVersion bound the negotiated protocol set
	// (Config.TLSMinVersion/TLSMaxVersion). Zero means "let crypto/tls decide".
	MinVersion uint16
	MaxVersion uint16

	// VerifyConnection, if set, is the certificate validation policy
	// delegated by the caller (spec §1: "Certificate validation policy
	// (delegated to a callback)"). It runs in addition to, not instead
	// of, Go's own chain verification unless InsecureSkipVerify is set.
	VerifyConnection func(tls.ConnectionState) error
}

// Provider upgrades byte streams to TLS for both channel roles the engine
// needs: the control/data channel acting as a TLS client (the common case),
// and a PORT-mode data channel acting as a TLS server once the remote end
// connects in (spec §4.D: "for a server-side data channel (PORT mode with
// explicit TLS) authenticate as server using the first configured
// certificate").
type Provider interface {
	// ClientConfig returns the *tls.Config to use when this process
	// initiates the handshake (control channel, PASV/EPSV data channel).
	ClientConfig() *tls.Config

	// ServerConfig returns the *tls.Config to use when this process
	// accepts the handshake (PORT-mode data channel under explicit TLS).
	ServerConfig() *tls.Config
}

type defaultProvider struct {
	params Params
	// sessions is shared by every ClientConfig so data channels can resume
	// the control channel's TLS session.
	sessions tls.ClientSessionCache
}

// New returns the default Provider, backed directly by crypto/tls — the
// idiomatic and only TLS engine this pack's examples reach for.
func New(params Params) Provider {
	return &defaultProvider{params: params, sessions: tls.NewLRUClientSessionCache(0)}
}

func (p *defaultProvider) ClientConfig() *tls.Config {
	cfg := &tls.Config{
		ServerName:         p.params.ServerName,
		InsecureSkipVerify: p.params.InsecureSkipVerify,
		Certificates:       p.params.Certificates,
		MinVersion:         p.params.MinVersion,
		MaxVersion:         p.params.MaxVersion,
		ClientSessionCache: p.sessions,
	}
	if p.params.VerifyConnection != nil {
		verify := p.params.VerifyConnection
		cfg.VerifyConnection = func(cs tls.ConnectionState) error {
			return verify(cs)
		}
	}
	return cfg
}

func (p *defaultProvider) ServerConfig() *tls.Config {
	cfg := &tls.Config{
		Certificates: p.params.Certificates,
		MinVersion:   p.params.MinVersion,
		MaxVersion:   p.params.MaxVersion,
	}
	if p.params.VerifyConnection != nil {
		verify := p.params.VerifyConnection
		cfg.VerifyConnection = func(cs tls.ConnectionState) error {
			return verify(cs)
		}
	}
	return cfg
}
