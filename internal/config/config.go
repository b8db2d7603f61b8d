// Package config loads the collector configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/isometry/ldap-collector/internal/harvest"
	"github.com/isometry/ldap-collector/internal/ldap"
)

// Config is the immutable process configuration. Each field is read from the
// environment variable named by its env tag.
type Config struct {
	// Directory connection
	ServerEndpoint     string        `env:"LDAP_SERVER_ENDPOINT" validate:"required_without=Domain"`
	Domain             string        `env:"LDAP_DOMAIN" validate:"omitempty,fqdn"` // SRV discovery when no endpoint is set
	UseSSL             bool          `env:"LDAP_USE_SSL" default:"false"`
	StartTLS           bool          `env:"LDAP_START_TLS" default:"false"`
	InsecureSkipVerify bool          `env:"LDAP_TLS_INSECURE_SKIP_VERIFY" default:"false"`
	CACertFile         string        `env:"LDAP_TLS_CA_CERT_FILE" validate:"omitempty,file"`
	User               string        `env:"LDAP_USER"`
	Password           string        `env:"LDAP_PASSWORD"`
	KerberosRealm      string        `env:"LDAP_KERBEROS_REALM"`
	KerberosKeytab     string        `env:"LDAP_KERBEROS_KEYTAB" validate:"omitempty,file"`
	KerberosConfig     string        `env:"LDAP_KERBEROS_CONFIG" validate:"omitempty,file"`
	KerberosSPN        string        `env:"LDAP_KERBEROS_SPN"`
	ConnMaxRetries     int           `env:"LDAP_CONN_MAX_RETRIES" default:"3" validate:"gte=1"`
	ConnTimeout        int           `env:"LDAP_CONN_TIMEOUT" default:"5" validate:"gte=0"` // Seconds between connection attempts
	DialTimeout        time.Duration `env:"LDAP_DIAL_TIMEOUT" default:"10s" validate:"gt=0"`

	// Harvest
	OrganizationDN        string        `env:"LDAP_ORGANIZATION_DN" validate:"required,dn"`
	PageSize              uint32        `env:"LDAP_PAGE_SIZE" default:"0"`
	ParallelSearch        bool          `env:"LDAP_PARALLEL_SEARCH" default:"false"`
	MalformedRecordPolicy string        `env:"LDAP_MALFORMED_RECORD_POLICY" default:"abort" validate:"oneof=abort skip"`
	HarvestTimeout        time.Duration `env:"HARVEST_TIMEOUT" default:"2m" validate:"gte=0"`

	// Service
	ListenAddr string `env:"HTTP_LISTEN_ADDR" default:":8000" validate:"required"`
	LogLevel   string `env:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error off"`
}

// Load reads the given .env files, then builds the configuration from the
// process environment. Missing .env files are ignored. Variables already set
// in the environment take precedence over .env files.
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return Parse(nil)
}

// Parse builds and validates the configuration from environ, or from the
// process environment when environ is nil. Unset variables keep their defaults.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to set default values: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration. Errors name the offending environment variables.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("env")
	})
	if err := v.RegisterValidation("dn", isDN); err != nil {
		return err
	}

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var errs []error
	for _, fe := range validationErrs {
		errs = append(errs, fmt.Errorf("%s: failed %q validation", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

func isDN(fl validator.FieldLevel) bool {
	return ldap.ValidateDN(fl.Field().String()) == nil
}

// RetryDelay is the wait between connection attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.ConnTimeout) * time.Second
}

// MalformedPolicy returns the parsed malformed record policy.
func (c *Config) MalformedPolicy() harvest.MalformedRecordPolicy {
	policy, err := harvest.ParseMalformedRecordPolicy(c.MalformedRecordPolicy)
	if err != nil {
		return harvest.MalformedAbort
	}
	return policy
}

// ConnectionConfig returns the directory connection settings.
func (c *Config) ConnectionConfig() *ldap.ConnectionConfig {
	cfg := ldap.DefaultConfig()

	cfg.Endpoint = c.ServerEndpoint
	cfg.Domain = c.Domain
	cfg.UseTLS = c.UseSSL
	cfg.StartTLS = c.StartTLS
	cfg.Timeout = c.DialTimeout
	cfg.InsecureSkipVerify = c.InsecureSkipVerify
	cfg.TLSCACertFile = c.CACertFile
	cfg.Username = c.User
	cfg.Password = c.Password
	cfg.KerberosRealm = c.KerberosRealm
	cfg.KerberosKeytab = c.KerberosKeytab
	cfg.KerberosConfig = c.KerberosConfig
	cfg.KerberosSPN = c.KerberosSPN
	cfg.MaxRetries = c.ConnMaxRetries
	cfg.RetryDelay = c.RetryDelay()
	cfg.PageSize = c.PageSize

	return cfg
}

// HarvestOptions returns the harvester settings.
func (c *Config) HarvestOptions() harvest.Options {
	return harvest.Options{
		OrganizationDN: c.OrganizationDN,
		Malformed:      c.MalformedPolicy(),
		Timeout:        c.HarvestTimeout,
	}
}
