package core

import (
	"fmt"
	"os"
	"strings"
)

type FailurePolicy string

const (
	// FailClosed rejects a request that cannot be authenticated.
	FailClosed FailurePolicy = "fail_closed"
	// FailOpen logs and sends the request unsigned.
	FailOpen FailurePolicy = "fail_open"
)

const (
	DefaultAPIKeyHeader  = "X-API-Key"
	DefaultTransportKind = "rest"
)

// ValueRef is either a literal value or the name of an environment variable
// holding it. A literal wins when both are set.
type ValueRef struct {
	Value string `koanf:"value" mapstructure:"value"`
	Env   string `koanf:"env" mapstructure:"env"`
}

func Literal(value string) ValueRef { return ValueRef{Value: value} }

func FromEnv(name string) ValueRef { return ValueRef{Env: name} }

func (r ValueRef) IsZero() bool {
	return strings.TrimSpace(r.Value) == "" && strings.TrimSpace(r.Env) == ""
}

// EnvLookup has the signature of os.LookupEnv.
type EnvLookup func(key string) (string, bool)

func (r ValueRef) Resolve(lookup EnvLookup) string {
	if value := strings.TrimSpace(r.Value); value != "" {
		return value
	}
	name := strings.TrimSpace(r.Env)
	if name == "" {
		return ""
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	value, ok := lookup(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

type Config struct {
	ServiceName    string        `koanf:"service_name" mapstructure:"service_name"`
	BaseURL        ValueRef      `koanf:"base_url" mapstructure:"base_url"`
	APIKey         ValueRef      `koanf:"api_key" mapstructure:"api_key"`
	APIKeyHeader   string        `koanf:"api_key_header" mapstructure:"api_key_header"`
	OrganizationID ValueRef      `koanf:"organization_id" mapstructure:"organization_id"`
	SigningKey     ValueRef      `koanf:"signing_key" mapstructure:"signing_key"`
	FailurePolicy  FailurePolicy `koanf:"failure_policy" mapstructure:"failure_policy"`
	// Transport names the adapter kind used when no transport is injected.
	Transport string `koanf:"transport" mapstructure:"transport"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:   "custody",
		APIKeyHeader:  DefaultAPIKeyHeader,
		FailurePolicy: FailClosed,
		Transport:     DefaultTransportKind,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	switch c.FailurePolicy {
	case FailClosed, FailOpen, "":
	default:
		return fmt.Errorf("core: unsupported failure_policy %q", c.FailurePolicy)
	}
	return nil
}

// Settings are the resolved, immutable values the dispatcher runs with.
type Settings struct {
	BaseURL        string
	APIKey         string
	APIKeyHeader   string
	OrganizationID string
	SigningKeyPEM  string
	FailurePolicy  FailurePolicy
}

func (c Config) Resolve(lookup EnvLookup) (Settings, error) {
	settings := Settings{
		BaseURL:        strings.TrimRight(c.BaseURL.Resolve(lookup), "/"),
		APIKey:         c.APIKey.Resolve(lookup),
		APIKeyHeader:   strings.TrimSpace(c.APIKeyHeader),
		OrganizationID: c.OrganizationID.Resolve(lookup),
		SigningKeyPEM:  normalizePEM(c.SigningKey.Resolve(lookup)),
		FailurePolicy:  c.FailurePolicy,
	}
	if settings.BaseURL == "" {
		return Settings{}, fmt.Errorf("core: base_url is required")
	}
	if settings.APIKeyHeader == "" {
		settings.APIKeyHeader = DefaultAPIKeyHeader
	}
	if settings.FailurePolicy == "" {
		settings.FailurePolicy = FailClosed
	}
	return settings, nil
}

func (s Settings) FailOpen() bool {
	return s.FailurePolicy == FailOpen
}

// normalizePEM expands escaped newlines, the usual shape of a PEM block kept
// in a single-line environment variable.
func normalizePEM(value string) string {
	if !strings.Contains(value, `\n`) {
		return value
	}
	return strings.ReplaceAll(value, `\n`, "\n")
}
