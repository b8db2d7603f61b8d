package ldap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/keytab"
)

const defaultKrb5ConfPath = "/etc/krb5.conf"

// performKerberosAuth performs a GSSAPI bind on an LDAP connection.
func performKerberosAuth(ctx context.Context, conn *ldap.Conn, cfg *ConnectionConfig, serverInfo *ServerInfo) error {
	principal, realm, err := kerberosPrincipal(cfg)
	if err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	gssapiClient, err := createGSSAPIClient(ctx, cfg, principal, realm)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := buildServicePrincipal(cfg, serverInfo)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	if err := conn.GSSAPIBind(gssapiClient, spn, ""); err != nil {
		LogKerberosEvent(ctx, "gssapi_bind_failed", map[string]any{
			"spn":   spn,
			"error": err.Error(),
		})
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}

	return nil
}

// kerberosPrincipal splits the configured username into principal and realm.
// An explicit realm wins over one embedded in user@REALM.
func kerberosPrincipal(cfg *ConnectionConfig) (string, string, error) {
	if cfg == nil {
		return "", "", fmt.Errorf("configuration cannot be nil")
	}

	principal := cfg.Username
	realm := cfg.KerberosRealm

	if before, after, found := strings.Cut(principal, "@"); found {
		principal = before
		if realm == "" {
			realm = after
		}
	}

	if realm == "" {
		return "", "", fmt.Errorf("kerberos realm is required (set LDAP_KERBEROS_REALM or include realm in username)")
	}

	if principal == "" {
		return "", "", fmt.Errorf("username (principal) is required for Kerberos authentication")
	}

	return principal, realm, nil
}

// createGSSAPIClient logs in to the realm and returns a GSSAPI client.
// Priority order: keytab → password.
func createGSSAPIClient(ctx context.Context, cfg *ConnectionConfig, principal, realm string) (ldap.GSSAPIClient, error) {
	switch {
	case cfg.KerberosKeytab != "":
		if !fileExists(cfg.KerberosKeytab) {
			return nil, fmt.Errorf("kerberos keytab not found at %s", cfg.KerberosKeytab)
		}
	case cfg.Password != "":
	default:
		return nil, fmt.Errorf("no suitable credentials found for Kerberos authentication")
	}

	krb5conf, err := loadKrb5Config(ctx, cfg.KerberosConfig, defaultKrb5ConfPath, realm, cfg.Domain)
	if err != nil {
		return nil, err
	}

	var cl *krb5client.Client
	if cfg.KerberosKeytab != "" {
		kt, err := keytab.Load(cfg.KerberosKeytab)
		if err != nil {
			return nil, fmt.Errorf("failed to load kerberos keytab: %w", err)
		}
		LogKerberosEvent(ctx, "keytab_selected", map[string]any{
			"principal": principal,
			"realm":     realm,
			"keytab":    cfg.KerberosKeytab,
		})
		cl = krb5client.NewWithKeytab(principal, realm, kt, krb5conf, krb5client.DisablePAFXFAST(true))
	} else {
		LogKerberosEvent(ctx, "password_selected", map[string]any{
			"principal": principal,
			"realm":     realm,
		})
		cl = krb5client.NewWithPassword(principal, realm, cfg.Password, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if err := cl.Login(); err != nil {
		return nil, fmt.Errorf("kerberos login failed: %w", err)
	}

	return &gssapi.Client{Client: cl}, nil
}

// buildServicePrincipal constructs the LDAP service principal name from server info.
// If cfg.KerberosSPN is set, it overrides the automatic SPN construction.
func buildServicePrincipal(cfg *ConnectionConfig, serverInfo *ServerInfo) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("configuration is required for service principal")
	}

	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}

	if serverInfo == nil || serverInfo.Host == "" {
		return "", fmt.Errorf("hostname is required for service principal")
	}

	return fmt.Sprintf("ldap/%s", serverInfo.Host), nil
}

// fileExists checks if a file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	file.Close()
	return true
}
