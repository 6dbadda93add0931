package ftp

import (
	"crypto/tls"
	"fmt"
	"math/rand/v2"
	"net"
	"regexp"
	"strconv"
	"time"
)

var (
	// pasvRegex matches the PASV response format: 227 Entering Passive Mode (h1,h2,h3,h4,p1,p2)
	pasvRegex = regexp.MustCompile(`\((\d+),(\d+),(\d+),(\d+),(\d+),(\d+)\)`)

	// epsvRegex matches the EPSV response format: 229 Entering Extended Passive Mode (|||port|)
	epsvRegex = regexp.MustCompile(`\(\|\|\|(\d+)\|\)`)
)

// parsePASV parses a PASV response and returns the host:port to dial.
// Example: "227 Entering Passive Mode (192,168,1,1,195,149)" -> "192.168.1.1:50069"
func parsePASV(response string) (string, error) {
	matches := pasvRegex.FindStringSubmatch(response)
	if len(matches) != 7 {
		return "", fmt.Errorf("invalid PASV response: %s", response)
	}

	var h [4]int
	for i := range 4 {
		val, err := strconv.Atoi(matches[i+1])
		if err != nil || val < 0 || val > 255 {
			return "", fmt.Errorf("invalid PASV IP part: %s", matches[i+1])
		}
		h[i] = val
	}
	host := fmt.Sprintf("%d.%d.%d.%d", h[0], h[1], h[2], h[3])
	if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("invalid IPv4 address from PASV: %s", host)
	}

	p1, err1 := strconv.Atoi(matches[5])
	p2, err2 := strconv.Atoi(matches[6])
	if err1 != nil || err2 != nil || p1 < 0 || p1 > 255 || p2 < 0 || p2 > 255 {
		return "", fmt.Errorf("invalid PASV port parts: %s, %s", matches[5], matches[6])
	}
	port := p1*256 + p2

	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// parseEPSV parses an EPSV response (RFC 2428) and returns the port.
// Example: "229 Entering Extended Passive Mode (|||6446|)" -> "6446"
func parseEPSV(response string) (string, error) {
	matches := epsvRegex.FindStringSubmatch(response)
	if len(matches) != 2 {
		return "", fmt.Errorf("invalid EPSV response: %s", response)
	}

	port, err := strconv.Atoi(matches[1])
	if err != nil || port < 0 || port > 65535 {
		return "", fmt.Errorf("invalid EPSV port: %s", matches[1])
	}

	return matches[1], nil
}

// formatPORT formats an IPv4 host:port for the PORT command.
// Converts "192.168.1.100:50000" to "192,168,1,100,195,80".
func formatPORT(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("invalid IP address: %s", host)
	}
	ip = ip.To4()
	if ip == nil {
		return "", fmt.Errorf("PORT requires an IPv4 address")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("invalid port: %s", portStr)
	}

	p1 := port / 256
	p2 := port % 256

	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", ip[0], ip[1], ip[2], ip[3], p1, p2), nil
}

// resolveDataAddr replaces a PASV-advertised 0.0.0.0 host with the control
// connection's own host, the common workaround for servers behind NAT that
// don't rewrite their PASV reply.
func resolveDataAddr(pasvAddr, controlHost string) string {
	host, port, err := net.SplitHostPort(pasvAddr)
	if err != nil {
		return pasvAddr
	}
	if host == "0.0.0.0" {
		return net.JoinHostPort(controlHost, port)
	}
	return pasvAddr
}

// openDataConn opens a data connection using whichever mode Config selects.
func (c *Client) openDataConn() (net.Conn, error) {
	if !c.cfg.UsePassive {
		return c.openActiveDataConn()
	}
	return c.openPassiveDataConn()
}

// activeBindAttempts caps how many random ports openActiveDataConn tries to
// bind before giving up with a transport error.
const activeBindAttempts = 8

// randomActivePort picks the client-side port for PORT mode: (r1<<8 | r2)
// with r1 drawn from [5,200) and r2 from [0,200), which keeps it above the
// well-known port range.
func randomActivePort() int {
	r1 := 5 + rand.IntN(195)
	r2 := rand.IntN(200)
	return r1<<8 | r2
}

// openActiveDataConn listens on a local IPv4 port and issues PORT, telling
// the server to connect back to us. IPv6 active mode (EPRT) is not
// implemented; PORT mode is IPv4-only here.
func (c *Client) openActiveDataConn() (net.Conn, error) {
	localAddr := c.conn.LocalAddr().String()
	host, _, err := net.SplitHostPort(localAddr)
	if err != nil {
		host = "0.0.0.0"
	}
	if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
		host = "0.0.0.0"
	}

	var listener net.Listener
	var lastErr error
	for attempt := 0; attempt < activeBindAttempts; attempt++ {
		port := randomActivePort()
		listener, lastErr = net.Listen("tcp4", net.JoinHostPort(host, strconv.Itoa(port)))
		if lastErr == nil {
			break
		}
	}
	if listener == nil {
		return nil, transportErr("listen for active-mode data connection", lastErr)
	}

	addr := listener.Addr().String()
	portCmd, err := formatPORT(addr)
	if err != nil {
		listener.Close()
		return nil, transportErr("format PORT command", err)
	}

	resp, err := c.sendCommand("PORT", portCmd)
	if err != nil {
		listener.Close()
		return nil, err
	}
	if !resp.Is2xx() {
		listener.Close()
		return nil, protocolErr("PORT", resp)
	}

	var serverTLS *tls.Config
	if c.cfg.Encryption == EncryptionExplicit || c.cfg.Encryption == EncryptionImplicit {
		serverTLS = c.tlsProvider.ServerConfig()
	}

	return &activeDataConn{
		listener:  listener,
		tlsConfig: serverTLS,
		timeout:   c.cfg.timeout(),
	}, nil
}

// activeDataConn lazily accepts the server's incoming connection on first
// use, since PORT only establishes a listener; the server dials in after
// the transfer command is sent.
type activeDataConn struct {
	listener  net.Listener
	conn      net.Conn
	tlsConfig *tls.Config
	timeout   time.Duration
}

func (a *activeDataConn) accept() error {
	if a.timeout > 0 {
		if l, ok := a.listener.(*net.TCPListener); ok {
			_ = l.SetDeadline(time.Now().Add(a.timeout))
		}
	}
	conn, err := a.listener.Accept()
	if err != nil {
		return err
	}
	a.conn = conn

	if a.tlsConfig != nil {
		tlsConn := tls.Server(a.conn, a.tlsConfig)
		if a.timeout > 0 {
			_ = a.conn.SetDeadline(time.Now().Add(a.timeout))
		}
		if err := tlsConn.Handshake(); err != nil {
			a.conn.Close()
			return err
		}
		a.conn = tlsConn
	}
	return nil
}

func (a *activeDataConn) Read(p []byte) (int, error) {
	if a.conn == nil {
		if err := a.accept(); err != nil {
			return 0, err
		}
	}
	if a.timeout > 0 {
		_ = a.conn.SetReadDeadline(time.Now().Add(a.timeout))
	}
	return a.conn.Read(p)
}

func (a *activeDataConn) Write(p []byte) (int, error) {
	if a.conn == nil {
		if err := a.accept(); err != nil {
			return 0, err
		}
	}
	if a.timeout > 0 {
		_ = a.conn.SetWriteDeadline(time.Now().Add(a.timeout))
	}
	return a.conn.Write(p)
}

func (a *activeDataConn) Close() error {
	var err1, err2 error
	if a.conn != nil {
		err1 = a.conn.Close()
	}
	if a.listener != nil {
		err2 = a.listener.Close()
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (a *activeDataConn) LocalAddr() net.Addr {
	if a.conn != nil {
		return a.conn.LocalAddr()
	}
	return a.listener.Addr()
}

func (a *activeDataConn) RemoteAddr() net.Addr {
	if a.conn != nil {
		return a.conn.RemoteAddr()
	}
	return nil
}

func (a *activeDataConn) SetDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetDeadline(t)
	}
	return nil
}

func (a *activeDataConn) SetReadDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetReadDeadline(t)
	}
	return nil
}

func (a *activeDataConn) SetWriteDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetWriteDeadline(t)
	}
	return nil
}

// openPassiveDataConn tries EPSV first, falling back to PASV once and
// caching that fallback for the rest of the session (spec §4.E): a server
// that answers EPSV with 502 Not Implemented is asked PASV from then on;
// any other EPSV failure is retried per-call. Only the port is taken from
// the EPSV/PASV reply; the data connection always goes to Config.Host.
func (c *Client) openPassiveDataConn() (net.Conn, error) {
	var addr string

	if !c.disableEPSV {
		if resp, err := c.sendCommand("EPSV"); err == nil {
			if resp.Code == 502 {
				c.disableEPSV = true
			} else if resp.Is2xx() {
				if port, parseErr := parseEPSV(resp.String()); parseErr == nil {
					addr = net.JoinHostPort(c.cfg.Host, port)
				}
			}
		}
	}

	if addr == "" {
		resp, err := c.sendCommand("PASV")
		if err != nil {
			return nil, err
		}
		if !resp.Is2xx() {
			return nil, protocolErr("PASV", resp)
		}

		pasvAddr, err := parsePASV(resp.String())
		if err != nil {
			return nil, transportErr("parse PASV response", err)
		}
		_, port, _ := net.SplitHostPort(pasvAddr)
		addr = net.JoinHostPort(c.cfg.Host, port)
	}

	dialer := net.Dialer{Timeout: c.cfg.timeout()}
	dataConn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, transportErr("connect to data port", err)
	}

	if c.cfg.Encryption == EncryptionExplicit || c.cfg.Encryption == EncryptionImplicit {
		tlsConn := tls.Client(dataConn, c.tlsProvider.ClientConfig())
		if err := tlsConn.Handshake(); err != nil {
			dataConn.Close()
			return nil, transportErr("data connection TLS handshake", err)
		}
		dataConn = tlsConn
	}

	if t := c.cfg.timeout(); t > 0 {
		return &deadlineConn{Conn: dataConn, timeout: t}, nil
	}
	return dataConn, nil
}

// cmdDataConnFrom opens a data connection, then sends cmd over the control
// channel. The caller must pass the returned net.Conn to finishDataConn,
// which closes it and reads the transfer-complete reply.
func (c *Client) cmdDataConnFrom(cmd string, args ...string) (*Response, net.Conn, error) {
	dataConn, err := c.openDataConn()
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.sendCommand(cmd, args...)
	if err != nil {
		dataConn.Close()
		return nil, nil, err
	}

	if resp.Code < 100 || resp.Code >= 400 {
		dataConn.Close()
		return resp, nil, protocolErr(cmd, resp)
	}

	return resp, dataConn, nil
}

// finishDataConn closes dataConn and reads the control channel's
// transfer-complete reply (spec §4.H: "mandatory post-transfer completion
// read").
func (c *Client) finishDataConn(dataConn net.Conn) error {
	if err := dataConn.Close(); err != nil {
		return transportErr("close data connection", err)
	}

	timeout := c.cfg.timeout()
	if d := c.cfg.disconnectTimeout(); d > 0 {
		timeout = d
	}
	if timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return transportErr("set read deadline", err)
		}
	}

	resp, err := readResponse(c.reader)
	if err != nil {
		return transportErr("read completion response", err)
	}

	c.cfg.Logger.Debug("data transfer complete", "code", resp.Code, "message", resp.Message)

	if !resp.Is2xx() {
		return protocolErr("DATA_TRANSFER", resp)
	}
	return nil
}
