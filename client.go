package ftp

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/coldwire/goftp/cache"
	"github.com/coldwire/goftp/tlsprovider"
)

// Client is a connected (or not-yet-connected) FTP session. Config is
// fixed for the lifetime of a Client; everything below it is session
// state that Login/Logout and transfer operations mutate.
type Client struct {
	cfg Config

	conn   net.Conn
	reader *bufio.Reader

	sendMu sync.Mutex
	recvMu sync.Mutex

	lastActivity time.Time

	connected     bool
	authenticated bool
	encrypted     bool

	cwd      string
	features map[string]string

	disableEPSV bool
	currentType TransferMode

	// listProvider is chosen once per login (spec §4.F/§4.G step 7): MLSD
	// if the server advertised it in FEAT, LIST otherwise.
	listProvider directoryProvider

	tlsProvider tlsprovider.Provider

	// dataSem allows at most one in-flight data transfer at a time
	// (spec §4.F: "data-socket semaphore").
	dataSem *semaphore.Weighted

	mlstCache *cache.TTL[string, *MLEntry]

	clientName string
	hashAlgo   string

	keepAliveStop chan struct{}
	keepAliveDone chan struct{}
	idleTimeout   time.Duration
}

// Dial connects to addr ("host:port", or bare "host" to use the default
// port) and applies options on top of the package defaults (spec §6). It
// performs the transport-level connect (and, for implicit TLS, the
// handshake) but does not log in; call Login afterward.
func Dial(addr string, options ...Option) (*Client, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		portStr = ""
	}

	cfg := Config{Host: host, UsePassive: true}
	if portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, configErr(fmt.Sprintf("invalid port in address %q", addr))
		}
		cfg.Port = port
	}

	return DialConfig(cfg, options...)
}

// DialConfig connects using a fully-specified Config plus options, the
// latter applied on top of cfg.
func DialConfig(cfg Config, options ...Option) (*Client, error) {
	for _, opt := range options {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()

	c := &Client{
		cfg:           cfg,
		dataSem:       semaphore.NewWeighted(1),
		mlstCache:     cache.New[string, *MLEntry](30 * time.Second),
		currentType:   0,
		keepAliveStop: make(chan struct{}),
		idleTimeout:   time.Duration(cfg.IdleTimeoutSeconds) * time.Second,
	}

	c.tlsProvider = tlsprovider.New(tlsprovider.Params{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.IgnoreCertificateErrors,
		Certificates:       cfg.ClientCertificates,
		MinVersion:         cfg.TLSMinVersion,
		MaxVersion:         cfg.TLSMaxVersion,
		VerifyConnection:   cfg.VerifyConnection,
	})

	if err := c.connect(); err != nil {
		return nil, err
	}

	c.lastActivity = time.Now()
	return c, nil
}

// connect resolves Config.Host, dials the control channel (wrapping in
// TLS immediately for implicit TLS), and reads the server's greeting.
func (c *Client) connect() error {
	resolved, err := c.cfg.Resolver.Resolve(context.Background(), c.cfg.Host)
	if err != nil {
		return transportErr("resolve host", err)
	}
	addr := net.JoinHostPort(resolved, strconv.Itoa(c.cfg.Port))

	c.cfg.Logger.Debug("connecting", "addr", addr, "encryption", c.cfg.Encryption)

	dialer := net.Dialer{Timeout: c.cfg.timeout()}

	if c.cfg.Encryption == EncryptionImplicit {
		rawConn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return transportErr("dial", err)
		}

		tlsConn := tls.Client(rawConn, c.tlsProvider.ClientConfig())
		if t := c.cfg.timeout(); t > 0 {
			if err := rawConn.SetDeadline(time.Now().Add(t)); err != nil {
				rawConn.Close()
				return transportErr("set handshake deadline", err)
			}
		}
		if err := tlsConn.Handshake(); err != nil {
			rawConn.Close()
			return transportErr("TLS handshake", err)
		}
		c.conn = tlsConn
		c.encrypted = true
	} else {
		c.conn, err = dialer.Dial("tcp", addr)
		if err != nil {
			return transportErr("dial", err)
		}
	}

	c.reader = bufio.NewReader(c.conn)

	if t := c.cfg.timeout(); t > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(t)); err != nil {
			c.conn.Close()
			return transportErr("set read deadline", err)
		}
	}

	resp, err := readResponse(c.reader)
	if err != nil {
		c.conn.Close()
		return transportErr("read greeting", err)
	}
	c.cfg.Logger.Debug("greeting", "code", resp.Code, "message", resp.Message)

	if resp.Code != 220 {
		c.conn.Close()
		return protocolErr("CONNECT", resp)
	}

	if c.cfg.Encryption == EncryptionExplicit {
		if err := c.upgradeToTLS(); err != nil {
			c.conn.Close()
			return err
		}
	}

	c.connected = true
	return nil
}

// upgradeToTLS issues AUTH TLS and performs the handshake. PBSZ 0 / PROT P
// follow later, post-auth, in Login (spec §4.G step 5).
func (c *Client) upgradeToTLS() error {
	resp, err := c.sendCommand("AUTH", "TLS")
	if err != nil {
		return err
	}
	if resp.Code != 234 {
		return protocolErr("AUTH TLS", resp)
	}

	c.cfg.Logger.Debug("starting TLS handshake", "mode", "explicit")
	tlsConn := tls.Client(c.conn, c.tlsProvider.ClientConfig())

	if t := c.cfg.timeout(); t > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(t)); err != nil {
			return transportErr("set handshake deadline", err)
		}
	}
	if err := tlsConn.Handshake(); err != nil {
		return transportErr("TLS handshake", err)
	}

	c.conn = tlsConn
	c.reader = bufio.NewReader(c.conn)
	c.encrypted = true

	return nil
}

// Login runs the full authentication sequence (spec §4.G steps 3-10):
// USER (accepting 230, or 331/332 followed by PASS, which must answer
// 230), PBSZ/PROT if the channel is encrypted, FEAT (never fatal),
// directory-provider selection, UTF8 negotiation, TYPE, and finally
// creating/entering Config.BaseDirectory. If already logged in, it logs
// out first.
func (c *Client) Login(username, password string) error {
	if c.authenticated {
		if err := c.Logout(); err != nil {
			return err
		}
		if err := c.connect(); err != nil {
			return err
		}
	}

	if username == "" {
		username = c.cfg.Username
	}
	if password == "" {
		password = c.cfg.Password
	}

	resp, err := c.sendCommand("USER", username)
	if err != nil {
		return err
	}

	switch resp.Code {
	case 230:
		// Logged in without a password.
	case 331, 332:
		if _, err := c.expectCode(230, "PASS", password); err != nil {
			return err
		}
	default:
		return protocolErr("USER", resp)
	}

	c.authenticated = true

	if c.encrypted {
		if _, err := c.expectCode(200, "PBSZ", "0"); err != nil {
			return err
		}
		if _, err := c.expectCode(200, "PROT", "P"); err != nil {
			return err
		}
	}

	if _, err := c.Features(); err != nil {
		c.cfg.Logger.Warn("FEAT failed, continuing with no known features", "error", err)
		c.features = map[string]string{}
	}

	c.listProvider = providerLIST
	if c.HasFeature("MLSD") {
		c.listProvider = providerMLSD
	}

	if c.HasFeature("UTF8") {
		if err := c.SetOption("UTF8", "ON"); err != nil {
			c.cfg.Logger.Warn("OPTS UTF8 ON failed", "error", err)
		}
	}

	if err := c.Type(c.cfg.Mode); err != nil {
		return err
	}

	if c.cfg.BaseDirectory != "" && c.cfg.BaseDirectory != "/" {
		if err := c.ChangeDir(c.cfg.BaseDirectory); err != nil {
			if err := c.MakeDir(c.cfg.BaseDirectory); err != nil {
				return err
			}
			if err := c.ChangeDir(c.cfg.BaseDirectory); err != nil {
				return err
			}
		}
	}

	if c.idleTimeout > 0 {
		c.startKeepAlive()
	}

	return nil
}

// Logout drains any stale control-channel data, sends QUIT if connected,
// and resets session state. The Client may be reused afterward via
// connect/Login.
func (c *Client) Logout() error {
	c.stopKeepAlive()

	if c.conn == nil {
		return nil
	}

	c.drainStaleData()

	if c.connected {
		_, _ = c.sendCommand("QUIT")
	}

	err := c.conn.Close()

	c.connected = false
	c.authenticated = false
	c.encrypted = false
	c.cwd = ""
	c.features = nil
	c.mlstCache.Clear()

	if err != nil {
		return transportErr("close control connection", err)
	}
	return nil
}

// Quit is an alias for Logout matching common FTP client naming.
func (c *Client) Quit() error { return c.Logout() }

// startKeepAlive sends NOOP whenever the control channel has been idle
// for longer than idleTimeout, skipping the check entirely while a data
// transfer holds dataSem (spec §4.F/§4.D).
func (c *Client) startKeepAlive() {
	c.keepAliveStop = make(chan struct{})
	c.keepAliveDone = make(chan struct{})

	ticker := time.NewTicker(c.idleTimeout / 2)

	go func() {
		defer ticker.Stop()
		defer close(c.keepAliveDone)
		for {
			select {
			case <-ticker.C:
				if !c.dataSem.TryAcquire(1) {
					continue
				}
				idle := time.Since(c.lastActivity)
				c.dataSem.Release(1)

				if idle >= c.idleTimeout {
					c.cfg.Logger.Debug("sending keep-alive NOOP")
					_ = c.Noop()
				}
			case <-c.keepAliveStop:
				return
			}
		}
	}()
}

func (c *Client) stopKeepAlive() {
	if c.keepAliveStop == nil {
		return
	}
	select {
	case <-c.keepAliveStop:
		// already closed
	default:
		close(c.keepAliveStop)
	}
	if c.keepAliveDone != nil {
		<-c.keepAliveDone
	}
}

// Host sends the HOST command (RFC 7151), selecting a virtual host before
// USER.
func (c *Client) Host(host string) error {
	_, err := c.expect2xx("HOST", host)
	return err
}

// Type sets the transfer type, skipping the round trip if it's already
// the current type.
func (c *Client) Type(mode TransferMode) error {
	if c.currentType == mode {
		return nil
	}

	args := []string{string(mode)}
	if c.cfg.ModeSecondType != 0 {
		args = append(args, string(c.cfg.ModeSecondType))
	}

	if _, err := c.expectCode(200, "TYPE", args...); err != nil {
		return err
	}
	c.currentType = mode
	return nil
}

// SetTransferMode is Type under the name the demo CLI and external
// callers use.
func (c *Client) SetTransferMode(mode TransferMode) error { return c.Type(mode) }

// Features queries FEAT once per login and caches the result.
func (c *Client) Features() (map[string]string, error) {
	if c.features != nil {
		return c.features, nil
	}

	resp, err := c.sendCommand("FEAT")
	if err != nil {
		return nil, err
	}
	if resp.Code == 500 || resp.Code == 502 {
		c.features = map[string]string{}
		return c.features, nil
	}
	if resp.Code != 211 {
		return nil, protocolErr("FEAT", resp)
	}

	c.features = parseFeatureLines(resp.Lines)
	return c.features, nil
}

// Syst returns the server's system type via SYST.
func (c *Client) Syst() (string, error) {
	resp, err := c.expect2xx("SYST")
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// parseFeatureLines parses a FEAT response body (RFC 2389), accepting
// both the "211-Features:\n FEAT\n211 End" and the looser
// "211-Features\n211-FEAT\n211 End" layouts some servers emit.
func parseFeatureLines(lines []string) map[string]string {
	features := make(map[string]string)
	for i, line := range lines {
		var featureLine string

		if len(line) > 0 && line[0] == ' ' {
			featureLine = strings.TrimSpace(line)
		} else if i > 0 && len(line) >= 4 && line[3] == '-' {
			// "211-FEAT" layout; the first line is the header.
			featureLine = strings.TrimSpace(line[4:])
		} else {
			continue
		}

		if featureLine == "" {
			continue
		}

		parts := strings.SplitN(featureLine, " ", 2)
		featName := strings.ToUpper(parts[0])
		featParams := ""
		if len(parts) > 1 {
			featParams = parts[1]
		}
		features[featName] = featParams
	}
	return features
}

// HasFeature reports whether the server advertised feature in FEAT.
func (c *Client) HasFeature(feature string) bool {
	feats, err := c.Features()
	if err != nil {
		return false
	}
	_, ok := feats[strings.ToUpper(feature)]
	return ok
}

// SetOption issues OPTS option value (RFC 2389).
func (c *Client) SetOption(option, value string) error {
	_, err := c.expect2xx("OPTS", option, value)
	return err
}

// Noop sends NOOP, useful as an explicit keepalive.
func (c *Client) Noop() error {
	_, err := c.expect2xx("NOOP")
	return err
}

// Quote sends a raw command and returns the server's response verbatim,
// an escape hatch for commands this client doesn't wrap.
func (c *Client) Quote(command string, args ...string) (*Response, error) {
	return c.sendCommand(command, args...)
}

// Abort sends ABOR, requesting the server cancel the in-flight transfer.
// It only makes sense to call while a transfer holds the data semaphore;
// callers outside this package have no direct access to that state, so
// Abort simply issues the command and lets the caller's own Store/Retrieve
// goroutine observe the resulting connection reset.
func (c *Client) Abort() error {
	_, err := c.expect2xx("ABOR")
	return err
}

// Hash requests a file's hash via the HASH command (draft-bryan-ftp-hash),
// using whichever algorithm SetHashAlgo last selected or the server's
// default.
func (c *Client) Hash(path string) (string, error) {
	resp, err := c.sendCommand("HASH", path)
	if err != nil {
		return "", err
	}
	if resp.Code != 213 {
		return "", protocolErr("HASH", resp)
	}

	parts := strings.Fields(resp.Message)
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid HASH response: %s", resp.Message)
	}
	return parts[1], nil
}

// SetHashAlgo selects the algorithm HASH computes via OPTS HASH.
func (c *Client) SetHashAlgo(algo string) error {
	if _, err := c.expect2xx("OPTS", "HASH", algo); err != nil {
		return err
	}
	c.hashAlgo = algo
	return nil
}

// SetClientName announces the client to the server via CLNT.
func (c *Client) SetClientName(name string) error {
	_, err := c.sendCommand("CLNT", name)
	c.clientName = name
	return err
}

// IsConnected reports whether the control channel is up.
func (c *Client) IsConnected() bool { return c.connected }

// IsAuthenticated reports whether Login has completed successfully.
func (c *Client) IsAuthenticated() bool { return c.authenticated }

// IsEncrypted reports whether the control channel is running over TLS.
func (c *Client) IsEncrypted() bool { return c.encrypted }

// WorkingDirectory returns the last known CWD, issuing PWD via CurrentDir
// only when none is cached; the cache is filled by CurrentDir and
// invalidated by ChangeDir.
func (c *Client) WorkingDirectory() (string, error) {
	if c.cwd != "" {
		return c.cwd, nil
	}
	return c.CurrentDir()
}
