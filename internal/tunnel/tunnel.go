package tunnel

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
)

// hopByHopHeaders is the RFC 7230 §6.1 header set that must never be
// forwarded by an intermediary. Host is included because the upstream request
// carries its own Host.
var hopByHopHeaders = map[string]bool{
	"host":                true,
	"connection":          true,
	"transfer-encoding":   true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailer":             true,
	"upgrade":             true,
}

// Tunnel forwards plaintext loopback HTTP to one remote HTTPS host.
// The zero value is not usable; construct with New.
type Tunnel struct {
	cfg Config

	mu       sync.Mutex
	port     int
	server   *http.Server
	listener net.Listener
	conns    map[net.Conn]struct{}

	client *http.Client
}

// New validates the config and builds a tunnel in the Created state.
func New(cfg Config) (*Tunnel, error) {
	if err := ValidateHostname(cfg.RemoteHost); err != nil {
		return nil, err
	}

	t := &Tunnel{
		cfg:   cfg.withDefaults(),
		conns: make(map[net.Conn]struct{}),
	}

	transport := &http.Transport{
		DialTLSContext: t.dialUpstream,
		// The tunnel streams SSE bodies; response compression would delay
		// line delivery, so the upstream negotiates identity encoding.
		DisableCompression: true,
	}
	t.client = &http.Client{Transport: transport}

	return t, nil
}

// Start binds a loopback-only listener on an ephemeral port and begins
// serving. Calling Start on a running tunnel returns the already-bound port
// without rebinding.
func (t *Tunnel) Start() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listener != nil {
		return t.port, nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("tunnel listen: %w", err)
	}

	t.listener = ln
	t.port = ln.Addr().(*net.TCPAddr).Port
	t.server = &http.Server{
		Handler: http.HandlerFunc(t.handleRequest),
		ConnState: func(conn net.Conn, state http.ConnState) {
			switch state {
			case http.StateNew:
				t.trackConn(conn)
			case http.StateClosed, http.StateHijacked:
				t.untrackConn(conn)
			}
		},
	}

	go func(srv *http.Server, ln net.Listener) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Debug("tunnel server exited")
		}
	}(t.server, ln)

	if t.cfg.Verbose {
		logrus.WithFields(logrus.Fields{
			"port":   t.port,
			"remote": fmt.Sprintf("%s:%d", t.cfg.RemoteHost, t.cfg.RemotePort),
		}).Info("Tunnel started")
	}

	return t.port, nil
}

// Stop force-closes every tracked socket on both sides, shuts the listener,
// and resets the port. It is idempotent and safe to call before Start.
func (t *Tunnel) Stop() {
	t.mu.Lock()
	server := t.server
	conns := make([]net.Conn, 0, len(t.conns))
	for conn := range t.conns {
		conns = append(conns, conn)
	}
	t.conns = make(map[net.Conn]struct{})
	t.server = nil
	t.listener = nil
	t.port = 0
	t.mu.Unlock()

	// Forced teardown, not a graceful drain: destroy sockets first so
	// in-flight streams observe the close immediately.
	for _, conn := range conns {
		conn.Close()
	}
	if server != nil {
		server.Close()
	}
	t.client.CloseIdleConnections()

	if t.cfg.Verbose {
		logrus.Info("Tunnel stopped")
	}
}

// Port returns the bound loopback port, or 0 when the tunnel is not running.
func (t *Tunnel) Port() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port
}

func (t *Tunnel) trackConn(conn net.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[conn] = struct{}{}
}

func (t *Tunnel) untrackConn(conn net.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, conn)
}

// trackedConn unregisters itself from the tunnel when closed.
type trackedConn struct {
	net.Conn
	tunnel *Tunnel
	once   sync.Once
}

func (c *trackedConn) Close() error {
	c.once.Do(func() { c.tunnel.untrackConn(c) })
	return c.Conn.Close()
}

// dialUpstream opens and registers a TLS connection to the remote host.
func (t *Tunnel) dialUpstream(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := tls.Client(rawConn, &tls.Config{
		ServerName:         t.cfg.RemoteHost,
		InsecureSkipVerify: t.cfg.AllowSelfSigned,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}

	tracked := &trackedConn{Conn: tlsConn, tunnel: t}
	t.trackConn(tracked)
	return tracked, nil
}

// buildUpstreamHeaders copies the inbound headers minus the hop-by-hop set
// and ensures Authorization is populated: a client-supplied header wins, the
// configured static token fills the gap.
func (t *Tunnel) buildUpstreamHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for name, values := range src {
		if hopByHopHeaders[lowerASCII(name)] {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}

	if dst.Get("Authorization") == "" && t.cfg.AuthToken != "" {
		dst.Set("Authorization", "Bearer "+t.cfg.AuthToken)
	}

	return dst
}

func (t *Tunnel) handleRequest(w http.ResponseWriter, r *http.Request) {
	targetURL := fmt.Sprintf("https://%s:%d%s", t.cfg.RemoteHost, t.cfg.RemotePort, r.URL.RequestURI())

	// The timeout covers the whole upstream attempt; cancellation unblocks
	// the waiting goroutine and tears the upstream socket down.
	ctx, cancel := context.WithTimeout(r.Context(), t.cfg.ResponseTimeout)
	defer cancel()

	upstreamReq, err := http.NewRequestWithContext(ctx, r.Method, targetURL, r.Body)
	if err != nil {
		writeTunnelError(w, fmt.Sprintf("failed to build upstream request: %v", err))
		return
	}
	upstreamReq.Header = t.buildUpstreamHeaders(r.Header)
	upstreamReq.ContentLength = r.ContentLength

	resp, err := t.client.Do(upstreamReq)
	if err != nil {
		if t.cfg.Verbose {
			logrus.WithError(err).WithField("target", targetURL).Warn("Tunnel upstream request failed")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			writeTunnelError(w, fmt.Sprintf("upstream request timed out after %v", t.cfg.ResponseTimeout))
			return
		}
		writeTunnelError(w, fmt.Sprintf("upstream request failed: %v", err))
		return
	}
	defer resp.Body.Close()

	for name, values := range resp.Header {
		if hopByHopHeaders[lowerASCII(name)] {
			continue
		}
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	// Stream as the bytes arrive; a mid-forward client disconnect is logged
	// and cleaned up without taking the proxy down.
	flusher, canFlush := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				if t.cfg.Verbose {
					logrus.WithError(writeErr).Debug("Tunnel client disconnected mid-stream")
				}
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return
		}
		if readErr != nil {
			if t.cfg.Verbose {
				logrus.WithError(readErr).Debug("Tunnel upstream read ended")
			}
			return
		}
	}
}

// writeTunnelError responds with the 502 JSON contract shared by timeout and
// connect-failure paths.
func writeTunnelError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func lowerASCII(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
