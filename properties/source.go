// Package properties loads application configuration from files,
// profile-specific overrides, and environment variables, and binds
// prefixed sections of it onto validated Go structs.
//
// Lookup precedence, highest first: environment variables, profile
// configuration files (application-<profile>.yaml and friends), the
// base configuration file (application.yaml), declared defaults.
package properties

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Well-known profile names. The first active profile decides the
// runtime flavor helpers below.
const (
	ProfileProduction  = "production"
	ProfileDevelopment = "development"
	ProfileTest        = "test"
)

// DefaultConfigName is the base name of the configuration file searched
// for in the configured paths.
const DefaultConfigName = "application"

// Options controls how a Source is loaded.
type Options struct {
	// AppName is used to derive the environment variable prefix.
	// Load("demo") reads DEMO_SERVER_PORT, DEMO_PROFILES, etc.
	AppName string

	// ConfigName is the base config file name without extension.
	// Defaults to "application".
	ConfigName string

	// Paths are the directories searched for config files.
	// Defaults to "." and "./config".
	Paths []string

	// Profiles are the explicitly activated profiles. When empty the
	// {PREFIX}_PROFILES environment variable is consulted, and failing
	// that the production profile is assumed.
	Profiles []string

	// Defaults seeds keys before any file or environment lookup.
	Defaults map[string]any
}

// Source is an immutable view over the merged configuration. It is safe
// for concurrent reads.
type Source struct {
	v         *viper.Viper
	appName   string
	envPrefix string
	profiles  []string
}

// Load reads the configuration for an application. Missing config files
// are not an error; malformed ones are.
func Load(opts Options) (*Source, error) {
	appName := strings.ToLower(strings.TrimSpace(opts.AppName))
	if appName == "" {
		appName = "app"
	}
	prefix := envName(appName)

	configName := opts.ConfigName
	if configName == "" {
		configName = DefaultConfigName
	}
	paths := opts.Paths
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}

	v := viper.New()
	for key, val := range opts.Defaults {
		v.SetDefault(key, val)
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetConfigName(configName)
	if err := readOptional(v.ReadInConfig); err != nil {
		return nil, fmt.Errorf("properties: read %s: %w", configName, err)
	}

	profiles := activeProfiles(opts.Profiles, prefix)
	for _, profile := range profiles {
		v.SetConfigName(configName + "-" + profile)
		if err := readOptional(v.MergeInConfig); err != nil {
			return nil, fmt.Errorf("properties: merge profile %q: %w", profile, err)
		}
	}

	// A local .env file overrides config files but not real environment
	// variables. Unreadable .env files are ignored.
	env := viper.New()
	env.SetConfigName(".env")
	env.SetConfigType("env")
	env.AddConfigPath(".")
	if env.ReadInConfig() == nil {
		_ = v.MergeConfigMap(env.AllSettings())
	}

	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Source{
		v:         v,
		appName:   appName,
		envPrefix: prefix,
		profiles:  profiles,
	}, nil
}

// readOptional invokes a viper read and swallows only file-not-found.
func readOptional(read func() error) error {
	err := read()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || os.IsNotExist(err) {
		return nil
	}
	return err
}

// activeProfiles resolves the profile list: explicit wins, then the
// {PREFIX}_PROFILES environment variable, then production.
func activeProfiles(explicit []string, prefix string) []string {
	if len(explicit) > 0 {
		return normalizeProfiles(explicit)
	}
	if raw := os.Getenv(prefix + "_PROFILES"); raw != "" {
		return normalizeProfiles(strings.Split(raw, ","))
	}
	return []string{ProfileProduction}
}

func normalizeProfiles(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{ProfileProduction}
	}
	return out
}

// envName uppercases an app name into an env var prefix, replacing
// characters that cannot appear in variable names.
func envName(appName string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return strings.ToUpper(r.Replace(appName))
}

// AppName returns the normalized application name.
func (s *Source) AppName() string { return s.appName }

// EnvPrefix returns the environment variable prefix in use.
func (s *Source) EnvPrefix() string { return s.envPrefix }

// Profiles returns the active profiles, most significant first.
func (s *Source) Profiles() []string {
	out := make([]string, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// ProfileActive reports whether the named profile is active.
func (s *Source) ProfileActive(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range s.profiles {
		if p == name {
			return true
		}
	}
	return false
}

// Runtime flavor helpers, driven by the active profiles.

func (s *Source) IsProduction() bool  { return s.ProfileActive(ProfileProduction) }
func (s *Source) IsDevelopment() bool { return s.ProfileActive(ProfileDevelopment) }
func (s *Source) IsTest() bool        { return s.ProfileActive(ProfileTest) }

// Has reports whether the key resolves to a value from any layer.
func (s *Source) Has(key string) bool { return s.v.IsSet(key) }

// Typed accessors. Keys use dotted lower-case notation: "server.port".

func (s *Source) String(key string) string          { return s.v.GetString(key) }
func (s *Source) Int(key string) int                { return s.v.GetInt(key) }
func (s *Source) Bool(key string) bool              { return s.v.GetBool(key) }
func (s *Source) Duration(key string) time.Duration { return s.v.GetDuration(key) }
func (s *Source) StringSlice(key string) []string   { return s.v.GetStringSlice(key) }

// StringOr returns the value for key, or fallback when unset.
func (s *Source) StringOr(key, fallback string) string {
	if s.v.IsSet(key) {
		return s.v.GetString(key)
	}
	return fallback
}

// IntOr returns the value for key, or fallback when unset.
func (s *Source) IntOr(key string, fallback int) int {
	if s.v.IsSet(key) {
		return s.v.GetInt(key)
	}
	return fallback
}

// Sub returns the nested settings under key, or nil when absent.
func (s *Source) Sub(key string) map[string]any {
	return s.v.GetStringMap(key)
}

// SetDefault seeds a key that files and environment may still override.
func (s *Source) SetDefault(key string, value any) {
	s.v.SetDefault(key, value)
}
