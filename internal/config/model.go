// internal/config/model.go
//
// Typed configuration model for the drinks service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from its overlay layers (compiled
// defaults, `conf/.env`, `conf/drinks.yaml`, and `DRINKS_` environment
// variables).
//
// The six values every deployment must supply are the production flag, the
// API server URL, and the four identity-provider settings.  The remaining
// sections (HTTP, Database, Log, JWKS) carry compiled defaults and may be
// overridden like any other key.
//
// Any string value that begins with `vault:` is resolved through the injected
// secret resolver *before* unmarshalling, so the model never stores Vault
// references, only plain strings.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`.  Validation errors name fields by these
//     keys, so `identity_provider.client_id` is what an operator sees.
//   - Every field is a value type.  A Configuration handed out by value
//     cannot be mutated behind the provider's back.

package config

import (
	"net/url"
	"time"
)

// IdentityProvider holds the Auth0 tenant settings shared by the API (token
// verification) and its browser clients (login redirect).
type IdentityProvider struct {
	DomainPrefix string `koanf:"domain_prefix" validate:"notblank"`
	Audience     string `koanf:"audience"      validate:"notblank"`
	ClientID     string `koanf:"client_id"     validate:"notblank"`
	CallbackURL  string `koanf:"callback_url"  validate:"notblank,absurl"`
}

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gt=0"`
}

// Database selects the SQL driver and DSN for the drink store.
type Database struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite3 mysql"`
	DSN    string `koanf:"dsn"    validate:"notblank"`
}

// Log controls the rotating JSON log sink.  Dir is relative to the project
// root unless absolute.
type Log struct {
	Dir   string `koanf:"dir"   validate:"notblank"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// JWKS controls how long fetched signing keys are trusted before a refetch.
type JWKS struct {
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gt=0"`
}

// Configuration is the immutable record returned by Provider.Load.
type Configuration struct {
	ProductionMode   bool             `koanf:"production_mode"`
	APIServerURL     string           `koanf:"api_server_url" validate:"notblank,absurl"`
	IdentityProvider IdentityProvider `koanf:"identity_provider"`

	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Log      Log      `koanf:"log"`
	JWKS     JWKS     `koanf:"jwks"`
}

// Domain is the fully qualified Auth0 tenant host.
func (p IdentityProvider) Domain() string { return p.DomainPrefix + ".auth0.com" }

// Issuer is the `iss` claim Auth0 stamps on access tokens.
func (p IdentityProvider) Issuer() string { return "https://" + p.Domain() + "/" }

// JWKSURL is where the tenant publishes its signing keys.
func (p IdentityProvider) JWKSURL() string {
	return "https://" + p.Domain() + "/.well-known/jwks.json"
}

// AuthorizeURL builds the implicit-flow login URL that browser clients are
// redirected to.  Auth0 sends the user back to CallbackURL with the access
// token in the fragment.
func (p IdentityProvider) AuthorizeURL() string {
	q := url.Values{}
	q.Set("audience", p.Audience)
	q.Set("response_type", "token")
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", p.CallbackURL)
	return "https://" + p.Domain() + "/authorize?" + q.Encode()
}
