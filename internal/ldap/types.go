package ldap

import (
	"context"
	"crypto/tls"
	"time"
)

// ConnectionConfig holds configuration for directory connections.
type ConnectionConfig struct {
	// Connection settings
	Endpoint string        // Server address: host, host:port, or ldap(s):// URL
	Domain   string        // DNS domain for SRV discovery, used when Endpoint is empty
	UseTLS   bool          // Connect with LDAPS
	StartTLS bool          // Upgrade a plain connection with StartTLS
	Timeout  time.Duration // Dial and per-request timeout

	// Authentication settings
	Username       string // Bind DN (simple bind) or principal (Kerberos)
	Password       string // Bind credential
	KerberosRealm  string // Kerberos realm for GSSAPI authentication
	KerberosKeytab string // Path to Kerberos keytab file
	KerberosConfig string // Path to Kerberos config file (krb5.conf)
	KerberosSPN    string // Explicit service principal, overrides ldap/<host>

	// TLS settings
	TLSConfig          *tls.Config // Custom TLS configuration
	InsecureSkipVerify bool        // Skip certificate verification (not recommended)
	TLSCACertFile      string      // Path to CA certificate bundle
	TLSClientCertFile  string      // Path to client certificate file
	TLSClientKeyFile   string      // Path to client private key file

	// Retry settings
	MaxRetries int           // Maximum connection attempts (1-indexed)
	RetryDelay time.Duration // Wait between failed attempts

	// Search settings
	PageSize uint32 // Paged search size, 0 disables paging
}

// DefaultConfig returns a secure default configuration.
func DefaultConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Timeout:    10 * time.Second,
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			// Certificate validation enabled by default
			InsecureSkipVerify: false,
		},
	}
}

// Record is a raw directory entry: a DN plus multi-valued attributes in server order.
type Record struct {
	DN         string
	Attributes []Attribute
}

// Attribute is a single named, multi-valued attribute of a Record.
type Attribute struct {
	Name   string
	Values []string
}

// Session is a bound directory connection owned by a single harvest.
type Session interface {
	// Search runs a search and returns its entries as Records
	Search(ctx context.Context, req *SearchRequest) ([]Record, error)

	// Release unbinds and closes the session. It is safe to call more than once.
	Release() error
}

// DialFunc establishes one bound Session. It is invoked once per connection attempt.
type DialFunc func(ctx context.Context) (Session, error)

// SearchRequest encapsulates LDAP search parameters.
type SearchRequest struct {
	BaseDN       string
	Scope        SearchScope
	Filter       string
	Attributes   []string
	SizeLimit    int
	TimeLimit    time.Duration
	DerefAliases DerefAliases
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

// String returns string representation of the search scope.
func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// DerefAliases defines alias dereferencing behavior.
type DerefAliases int

const (
	NeverDerefAliases DerefAliases = iota
	DerefInSearching
	DerefFindingBaseObj
	DerefAlways
)

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // Username/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
	AuthMethodExternal                     // External/certificate authentication
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodExternal:
		return "external"
	default:
		return "unknown"
	}
}

// GetAuthMethod determines the authentication method from the configuration.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	// Kerberos authentication takes precedence
	if c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.Username != "") {
		return AuthMethodKerberos
	}

	// Simple bind authentication
	if c.Username != "" {
		return AuthMethodSimpleBind
	}

	// External authentication (certificates)
	if c.TLSClientCertFile != "" && c.TLSClientKeyFile != "" {
		return AuthMethodExternal
	}

	return AuthMethodSimpleBind
}

// HasAuthentication checks if any authentication method is configured.
func (c *ConnectionConfig) HasAuthentication() bool {
	hasPassword := c.Username != "" && c.Password != ""
	hasKerberos := c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.Username != "")
	hasExternal := c.TLSClientCertFile != "" && c.TLSClientKeyFile != ""

	return hasPassword || hasKerberos || hasExternal
}
