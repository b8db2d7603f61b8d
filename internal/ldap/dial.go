package ldap

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// NewDialer returns a DialFunc that opens and binds one connection per call.
// The server comes from the configured endpoint or, when only a domain is
// configured, from DNS SRV discovery; discovered servers are tried in order.
func NewDialer(cfg *ConnectionConfig) (DialFunc, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	source, err := newServerSource(cfg)
	if err != nil {
		return nil, err
	}

	tlsConfig, err := BuildTLSConfig(cfg, "")
	if err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	return newDialFunc(source, func(ctx context.Context, server *ServerInfo) (Session, error) {
		return dialSession(ctx, cfg, server, tlsConfig)
	}), nil
}

// serverSource returns the servers to try, in order, for one connection attempt.
type serverSource func(ctx context.Context) ([]*ServerInfo, error)

func newServerSource(cfg *ConnectionConfig) (serverSource, error) {
	if cfg.Endpoint == "" && cfg.Domain != "" {
		discovery := NewSRVDiscovery()
		domain := cfg.Domain
		return func(ctx context.Context) ([]*ServerInfo, error) {
			return discovery.DiscoverServers(ctx, domain)
		}, nil
	}

	server, err := ParseEndpoint(cfg.Endpoint, cfg.UseTLS)
	if err != nil {
		return nil, fmt.Errorf("invalid server endpoint: %w", err)
	}
	return func(context.Context) ([]*ServerInfo, error) {
		return []*ServerInfo{server}, nil
	}, nil
}

// newDialFunc tries each server from source until one yields a session.
func newDialFunc(source serverSource, dialOne func(context.Context, *ServerInfo) (Session, error)) DialFunc {
	return func(ctx context.Context) (Session, error) {
		servers, err := source(ctx)
		if err != nil {
			return nil, WrapError("discover", err)
		}
		if len(servers) == 0 {
			return nil, WrapError("discover", fmt.Errorf("no directory servers available"))
		}

		var lastErr error
		for i, server := range servers {
			session, err := dialOne(ctx, server)
			if err == nil {
				return session, nil
			}
			lastErr = err

			if ctx.Err() != nil {
				break
			}
			if i < len(servers)-1 {
				tflog.SubsystemDebug(ctx, subsystem, "Server unavailable, trying next", map[string]any{
					"server": server.URL(),
					"error":  err.Error(),
				})
			}
		}
		return nil, lastErr
	}
}

// BuildTLSConfig derives the TLS settings for a server from the configuration.
func BuildTLSConfig(cfg *ConnectionConfig, serverName string) (*tls.Config, error) {
	var tlsConfig *tls.Config
	if cfg.TLSConfig != nil {
		tlsConfig = cfg.TLSConfig.Clone()
	} else {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = serverName
	}

	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true // #nosec G402 -- explicitly requested by configuration
	}

	if cfg.TLSCACertFile != "" {
		pem, err := os.ReadFile(cfg.TLSCACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.TLSCACertFile)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.TLSClientCertFile != "" || cfg.TLSClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSClientCertFile, cfg.TLSClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = append(tlsConfig.Certificates, cert)
	}

	return tlsConfig, nil
}

// dialSession connects to server, optionally upgrades with StartTLS and binds.
func dialSession(ctx context.Context, cfg *ConnectionConfig, server *ServerInfo, tlsConfig *tls.Config) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if tlsConfig.ServerName == "" {
		tlsConfig = tlsConfig.Clone()
		tlsConfig.ServerName = server.Host
	}

	url := server.URL()
	opts := []ldap.DialOpt{
		ldap.DialWithDialer(&net.Dialer{Timeout: cfg.Timeout}),
	}
	if server.UseTLS {
		// Direct TLS connection (LDAPS)
		opts = append(opts, ldap.DialWithTLSConfig(tlsConfig))
	}

	conn, err := ldap.DialURL(url, opts...)
	if err != nil {
		return nil, WrapError("dial", fmt.Errorf("failed to connect to %s: %w", url, err))
	}

	if !server.UseTLS && cfg.StartTLS {
		// Upgrade to TLS using StartTLS
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, WrapError("start_tls", fmt.Errorf("StartTLS with %s failed: %w", url, err))
		}
	}

	if cfg.Timeout > 0 {
		conn.SetTimeout(cfg.Timeout)
	}

	if err := authenticate(ctx, conn, cfg, server); err != nil {
		conn.Close()
		return nil, WrapError("bind", fmt.Errorf("failed to authenticate to %s: %w", url, err))
	}

	return NewSession(conn, url, cfg.PageSize), nil
}

// authenticate performs authentication based on the configured method.
func authenticate(ctx context.Context, conn *ldap.Conn, cfg *ConnectionConfig, server *ServerInfo) error {
	authMethod := cfg.GetAuthMethod()

	fields := map[string]any{
		"auth_method": authMethod.String(),
		"username":    cfg.Username,
	}
	tflog.SubsystemDebug(ctx, subsystem, "Performing authentication", fields)

	start := time.Now()
	var err error

	switch authMethod {
	case AuthMethodSimpleBind:
		err = authenticateSimple(ctx, conn, cfg)
	case AuthMethodKerberos:
		err = performKerberosAuth(ctx, conn, cfg, server)
	case AuthMethodExternal:
		err = conn.ExternalBind()
	default:
		err = fmt.Errorf("unsupported authentication method: %s", authMethod.String())
	}

	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		LogLDAPError(ctx, subsystem, "bind", err, fields)
		LogConnectionEvent(ctx, "authentication_failed", fields)
		return err
	}

	LogConnectionEvent(ctx, "authentication_success", fields)
	return nil
}

// simpleBinder is the part of a go-ldap connection a simple bind needs.
type simpleBinder interface {
	Bind(username, password string) error
	UnauthenticatedBind(username string) error
}

// authenticateSimple binds with the configured DN and password, or anonymously
// when no credentials are configured. A DN without a password is rejected.
func authenticateSimple(ctx context.Context, conn simpleBinder, cfg *ConnectionConfig) error {
	if cfg.Username != "" && cfg.Password == "" {
		return fmt.Errorf("no password configured for bind DN %q", cfg.Username)
	}

	if !cfg.HasAuthentication() {
		tflog.SubsystemWarn(ctx, subsystem, "No credentials configured, binding anonymously")
		return conn.UnauthenticatedBind("")
	}

	return conn.Bind(cfg.Username, cfg.Password)
}
