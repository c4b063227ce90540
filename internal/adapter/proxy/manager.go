package proxy

import (
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"

	"github.com/user/bizanalyzer/internal/entity"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Manager hands out egress identities: a proxy plus a user agent.
// Sessions with an id keep their identity; anonymous requests rotate.
type Manager struct {
	proxies    []string
	userAgents []string

	mu         sync.Mutex
	proxyIndex int
	sessions   map[string]entity.Session
	pick       func(n int) int
}

// NewManager creates a Manager over proxyURLs. An empty list means direct connections.
func NewManager(proxyURLs []string) *Manager {
	return &Manager{
		proxies:    append([]string(nil), proxyURLs...),
		userAgents: defaultUserAgents,
		sessions:   make(map[string]entity.Session),
		pick:       rand.IntN,
	}
}

// Bind returns the identity of sessionID, assigning the next proxy on first sight.
func (m *Manager) Bind(sessionID string) entity.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sessionID != "" {
		if s, ok := m.sessions[sessionID]; ok {
			return s
		}
	}
	s := entity.Session{
		ID:        sessionID,
		ProxyURL:  m.nextProxy(),
		UserAgent: m.userAgent(),
	}
	if sessionID != "" {
		m.sessions[sessionID] = s
	}
	return s
}

// Describe lists the proxies with credentials removed.
func (m *Manager) Describe() string {
	if len(m.proxies) == 0 {
		return "direct"
	}
	redacted := make([]string, 0, len(m.proxies))
	for _, p := range m.proxies {
		redacted = append(redacted, Redact(p))
	}
	return strings.Join(redacted, ",")
}

// nextProxy must be called with m.mu held.
func (m *Manager) nextProxy() string {
	if len(m.proxies) == 0 {
		return ""
	}
	p := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return p
}

func (m *Manager) userAgent() string {
	if len(m.userAgents) == 0 {
		return ""
	}
	return m.userAgents[m.pick(len(m.userAgents))]
}

// Redact strips user info from a proxy URL.
func Redact(proxyURL string) string {
	u, err := url.Parse(proxyURL)
	if err != nil || u.User == nil {
		return proxyURL
	}
	u.User = nil
	return u.String()
}
