// internal/config/source.go
//
// Configuration sources.
//
// Context
// -------
// A Source is one koanf layer.  Provider.Load merges sources in the order
// given, so later sources override earlier ones key by key.  The standard
// stack built by `Discover` is:
//
//  1. Compiled defaults for the optional sections.
//  2. Optional `conf/.env` file (dotenv syntax, DRINKS_ keys).
//  3. Optional `conf/drinks.yaml`.
//  4. Environment variables prefixed `DRINKS_`, where `__` maps to "."
//     (e.g., `DRINKS_IDENTITY_PROVIDER__CLIENT_ID → identity_provider.client_id`).
//
// The .env layer is read with godotenv.Read, never godotenv.Load, so loading
// configuration does not mutate the process environment.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix shared by environment variables and .env keys.
const EnvPrefix = "DRINKS_"

// Source is a single configuration layer.  Build one with Defaults, Map,
// File, OptionalFile, DotEnv, or Env.
type Source struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
	skip     func() bool
}

// Name describes the layer in log lines.
func (s Source) Name() string { return s.name }

func (s Source) load(k *koanf.Koanf) error {
	if s.skip != nil && s.skip() {
		return nil
	}
	if err := k.Load(s.provider, s.parser); err != nil {
		return fmt.Errorf("config source %s: %w", s.name, err)
	}
	return nil
}

// Defaults supplies the optional sections.  It deliberately carries none of
// the six required keys.
func Defaults() Source {
	return Map("defaults", map[string]any{
		"http.listen_addr":   ":5000",
		"http.read_timeout":  10 * time.Second,
		"http.write_timeout": 15 * time.Second,
		"http.idle_timeout":  60 * time.Second,
		"database.driver":    "sqlite3",
		"database.dsn":       "file:database.db?_foreign_keys=on",
		"log.dir":            "logs",
		"log.level":          "info",
		"jwks.cache_ttl":     10 * time.Minute,
	})
}

// Map wraps an in-memory map.  Keys may be nested maps or dotted paths.
func Map(name string, m map[string]any) Source {
	return Source{name: name, provider: confmap.Provider(m, ".")}
}

// File reads a YAML or JSON file, chosen by extension.  A missing file is an
// error.
func File(path string) Source {
	return Source{name: path, provider: file.Provider(path), parser: parserFor(path)}
}

// OptionalFile is File, skipped when the path does not exist.
func OptionalFile(path string) Source {
	s := File(path)
	s.skip = func() bool { return !exists(path) }
	return s
}

// Env reads variables carrying prefix.
func Env(prefix string) Source {
	return Source{
		name: "env:" + prefix,
		provider: env.Provider(prefix, ".", func(s string) string {
			return envKey(prefix, s)
		}),
	}
}

// DotEnv reads a dotenv file whose keys follow the Env naming rules.  The
// layer is skipped when the file is absent.
func DotEnv(path, prefix string) Source {
	return Source{
		name:     path,
		provider: dotenvProvider{path: path, prefix: prefix},
		skip:     func() bool { return !exists(path) },
	}
}

// Discover returns the standard layer stack rooted at root.
func Discover(root string) []Source {
	conf := filepath.Join(root, "conf")
	return []Source{
		Defaults(),
		DotEnv(filepath.Join(conf, ".env"), EnvPrefix),
		OptionalFile(filepath.Join(conf, "drinks.yaml")),
		Env(EnvPrefix),
	}
}

// RootDir resolves DRINKS_ROOT or climbs from the working directory until
// conf/drinks.yaml is found.  Falls back to the executable's parent when it
// lives in a bin/ directory, then to the working directory.
func RootDir() string {
	if r := os.Getenv(EnvPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	for dir := wd; ; {
		if exists(filepath.Join(dir, "conf", "drinks.yaml")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// envKey maps DRINKS_IDENTITY_PROVIDER__CLIENT_ID to
// identity_provider.client_id.
func envKey(prefix, s string) string {
	s = strings.TrimPrefix(s, prefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Parser()
	default:
		return yaml.Parser()
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// dotenvProvider implements koanf.Provider over godotenv.Read.
type dotenvProvider struct {
	path   string
	prefix string
}

func (d dotenvProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("dotenv provider does not support ReadBytes")
}

func (d dotenvProvider) Read() (map[string]any, error) {
	vars, err := godotenv.Read(d.path)
	if err != nil {
		return nil, err
	}

	flat := make(map[string]any, len(vars))
	for k, val := range vars {
		if !strings.HasPrefix(k, d.prefix) {
			continue
		}
		flat[envKey(d.prefix, k)] = val
	}
	return maps.Unflatten(flat, "."), nil
}
