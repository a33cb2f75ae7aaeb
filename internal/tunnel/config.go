// Package tunnel exposes a plaintext loopback HTTP endpoint that forwards
// every request to a single fixed remote HTTPS host.
package tunnel

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultRemotePort is used when the config does not specify a port.
	DefaultRemotePort = 443

	// DefaultResponseTimeout bounds how long an upstream attempt may take
	// before the client receives a 502.
	DefaultResponseTimeout = 600 * time.Second
)

var hostnamePattern = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)

// Config holds the immutable settings for one tunnel. Build it once and pass
// it to New; invalid hostnames fail construction, not request handling.
type Config struct {
	RemoteHost      string
	RemotePort      int
	AuthToken       string
	ResponseTimeout time.Duration
	Verbose         bool
	AllowSelfSigned bool
}

// ValidateHostname rejects hostnames that would make the upstream URL
// ambiguous: empty strings, scheme prefixes, whitespace, and any character
// outside [A-Za-z0-9.-]. Bare IPv4 literals and "localhost" are accepted.
func ValidateHostname(host string) error {
	if host == "" {
		return fmt.Errorf("invalid remote host: empty string")
	}
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return fmt.Errorf("invalid remote host %q: must not include a scheme", host)
	}
	if strings.ContainsAny(host, " \t\r\n") {
		return fmt.Errorf("invalid remote host %q: must not contain whitespace", host)
	}
	if !hostnamePattern.MatchString(host) {
		return fmt.Errorf("invalid remote host %q: only [A-Za-z0-9.-] characters are allowed", host)
	}
	return nil
}

// withDefaults returns a copy of the config with zero values filled in.
func (c Config) withDefaults() Config {
	if c.RemotePort == 0 {
		c.RemotePort = DefaultRemotePort
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	return c
}
