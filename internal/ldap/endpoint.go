package ldap

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Default LDAP ports.
const (
	DefaultLDAPPort  = 389
	DefaultLDAPSPort = 636
)

// ServerInfo contains information about an LDAP server.
type ServerInfo struct {
	Host     string
	Port     int
	UseTLS   bool
	Priority int // SRV priority, lower is preferred
	Weight   int // SRV weight within a priority
}

// URL returns the ldap:// or ldaps:// URL of the server.
func (s *ServerInfo) URL() string {
	scheme := "ldap"
	if s.UseTLS {
		scheme = "ldaps"
	}

	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(s.Host, strconv.Itoa(s.Port)))
}

// ParseEndpoint parses a server address given as host, host:port, or an
// ldap:// / ldaps:// URL. An ldaps:// scheme enables TLS regardless of useTLS;
// the default port follows the resulting TLS setting.
func ParseEndpoint(endpoint string, useTLS bool) (*ServerInfo, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	hostPort := endpoint
	switch {
	case strings.HasPrefix(strings.ToLower(endpoint), "ldaps://"):
		useTLS = true
		hostPort = endpoint[len("ldaps://"):]
	case strings.HasPrefix(strings.ToLower(endpoint), "ldap://"):
		hostPort = endpoint[len("ldap://"):]
	case strings.Contains(endpoint, "://"):
		return nil, fmt.Errorf("unsupported scheme in %q, must be ldap:// or ldaps://", endpoint)
	}

	// Drop any path or query after the authority
	if idx := strings.IndexAny(hostPort, "/?"); idx != -1 {
		hostPort = hostPort[:idx]
	}

	server := &ServerInfo{UseTLS: useTLS}

	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		// No port present
		server.Host = strings.Trim(hostPort, "[]")
		server.Port = DefaultLDAPPort
		if useTLS {
			server.Port = DefaultLDAPSPort
		}
	} else {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %s", portStr)
		}
		server.Host = host
		server.Port = port
	}

	if err := ValidateServerInfo(server); err != nil {
		return nil, err
	}

	return server, nil
}

// ValidateServerInfo validates server information.
func ValidateServerInfo(server *ServerInfo) error {
	if server == nil {
		return fmt.Errorf("server info cannot be nil")
	}

	if server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if server.Port <= 0 || server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", server.Port)
	}

	if server.Priority < 0 {
		return fmt.Errorf("priority cannot be negative: %d", server.Priority)
	}

	if server.Weight < 0 {
		return fmt.Errorf("weight cannot be negative: %d", server.Weight)
	}

	return nil
}
