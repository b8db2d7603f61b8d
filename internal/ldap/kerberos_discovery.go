package ldap

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	krb5config "github.com/jcmturner/gokrb5/v8/config"
)

// loadKrb5Config loads the configured krb5.conf, else the fallback path, else
// a runtime configuration that discovers KDCs through DNS. An explicitly
// configured path must exist.
func loadKrb5Config(ctx context.Context, configured, fallback, realm, domain string) (*krb5config.Config, error) {
	if configured != "" {
		if !fileExists(configured) {
			return nil, fmt.Errorf("kerberos configuration file not found at %s", configured)
		}
		return krb5config.Load(configured)
	}

	if fileExists(fallback) {
		return krb5config.Load(fallback)
	}

	conf := runtimeKrb5Conf(ctx, realm, domain)
	return krb5config.NewFromString(conf)
}

// runtimeKrb5Conf renders a krb5.conf for DNS-based KDC discovery.
func runtimeKrb5Conf(ctx context.Context, realm, domain string) string {
	realm = strings.ToUpper(realm)
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if domain == "" {
		domain = strings.ToLower(realm)
	}

	tflog.SubsystemDebug(ctx, subsystem, "Generating runtime krb5.conf", map[string]any{
		"realm":  realm,
		"domain": domain,
	})

	return fmt.Sprintf(`[libdefaults]
    default_realm = %s
    dns_lookup_kdc = true
    dns_lookup_realm = false
    rdns = false

[domain_realm]
    .%s = %s
    %s = %s
`,
		realm,
		domain, realm,
		domain, realm,
	)
}
