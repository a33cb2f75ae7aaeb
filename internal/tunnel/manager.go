package tunnel

import (
	"fmt"
	"sync"
	"time"

	"ccswitch/internal/models"
	"ccswitch/internal/types"

	"github.com/sirupsen/logrus"
)

// Manager owns one lazily-started tunnel per provider. Tunnels are keyed by
// provider name and survive across requests so upstream TLS sessions get
// reused.
type Manager struct {
	settings types.TunnelSettings

	mu      sync.Mutex
	tunnels map[string]*Tunnel
}

// NewManager creates a manager applying the given settings to every tunnel it
// starts.
func NewManager(settings types.TunnelSettings) *Manager {
	return &Manager{
		settings: settings,
		tunnels:  make(map[string]*Tunnel),
	}
}

// GetOrStart returns the loopback port of the provider's tunnel, starting it
// on first use. A provider whose connection settings change requires a
// restart of the manager; ports are stable for the manager's lifetime.
func (m *Manager) GetOrStart(provider models.ProviderConfig) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tun, ok := m.tunnels[provider.Name]; ok {
		return tun.Start()
	}

	cfg := Config{
		RemoteHost:      provider.Host,
		RemotePort:      provider.Port,
		AuthToken:       provider.AuthToken,
		Verbose:         m.settings.Verbose,
		AllowSelfSigned: provider.AllowSelfSigned || m.settings.AllowSelfSigned,
	}
	if m.settings.ResponseTimeoutMs > 0 {
		cfg.ResponseTimeout = time.Duration(m.settings.ResponseTimeoutMs) * time.Millisecond
	}

	tun, err := New(cfg)
	if err != nil {
		return 0, fmt.Errorf("provider %q: %w", provider.Name, err)
	}

	port, err := tun.Start()
	if err != nil {
		return 0, fmt.Errorf("provider %q: %w", provider.Name, err)
	}

	m.tunnels[provider.Name] = tun
	logrus.WithFields(logrus.Fields{
		"provider": provider.Name,
		"host":     provider.Host,
		"port":     port,
	}).Debug("Provider tunnel started")

	return port, nil
}

// StopAll tears down every tunnel and forgets them. The manager stays usable;
// the next GetOrStart rebuilds the tunnel on a fresh port.
func (m *Manager) StopAll() {
	m.mu.Lock()
	tunnels := make([]*Tunnel, 0, len(m.tunnels))
	for _, tun := range m.tunnels {
		tunnels = append(tunnels, tun)
	}
	m.tunnels = make(map[string]*Tunnel)
	m.mu.Unlock()

	for _, tun := range tunnels {
		tun.Stop()
	}
}
