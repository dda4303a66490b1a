package properties_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofu-framework/gofu/properties"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDefaultsOnly(t *testing.T) {
	src, err := properties.Load(properties.Options{
		AppName: "demo",
		Paths:   []string{t.TempDir()},
		Defaults: map[string]any{
			"server.port": 8080,
			"server.host": "127.0.0.1",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "demo", src.AppName())
	assert.Equal(t, "DEMO", src.EnvPrefix())
	assert.True(t, src.Has("server.port"))
	assert.Equal(t, 8080, src.Int("server.port"))
	assert.Equal(t, "127.0.0.1", src.String("server.host"))
	assert.False(t, src.Has("missing.key"))
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "application.yaml", `
server:
  port: 3000
  read-timeout: 15s
greeting: hello
`)

	src, err := properties.Load(properties.Options{AppName: "demo", Paths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, 3000, src.Int("server.port"))
	assert.Equal(t, 15*time.Second, src.Duration("server.read-timeout"))
	assert.Equal(t, "hello", src.String("greeting"))
}

func TestLoadTOMLFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "application.toml", "[city]\nname = \"San Francisco\"\nzip = 94110\n")

	src, err := properties.Load(properties.Options{AppName: "demo", Paths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "San Francisco", src.String("city.name"))
	assert.Equal(t, 94110, src.Int("city.zip"))
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "application.yaml", "server: [unclosed")

	_, err := properties.Load(properties.Options{AppName: "demo", Paths: []string{dir}})
	require.Error(t, err)
}

func TestProfileMerge(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "application.yaml", "server:\n  port: 3000\n  host: localhost\n")
	writeConfig(t, dir, "application-development.yaml", "server:\n  port: 4000\n")

	src, err := properties.Load(properties.Options{
		AppName:  "demo",
		Paths:    []string{dir},
		Profiles: []string{"development"},
	})
	require.NoError(t, err)

	assert.Equal(t, 4000, src.Int("server.port"), "profile file should win")
	assert.Equal(t, "localhost", src.String("server.host"), "base file should fill the rest")
	assert.True(t, src.IsDevelopment())
	assert.False(t, src.IsProduction())
}

func TestProfilesFromEnv(t *testing.T) {
	t.Setenv("DEMO_PROFILES", "test, development")

	src, err := properties.Load(properties.Options{AppName: "demo", Paths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Equal(t, []string{"test", "development"}, src.Profiles())
	assert.True(t, src.IsTest())
}

func TestProfileDefaultsToProduction(t *testing.T) {
	src, err := properties.Load(properties.Options{AppName: "demo", Paths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Equal(t, []string{"production"}, src.Profiles())
	assert.True(t, src.IsProduction())
}

func TestEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "application.yaml", "server:\n  port: 3000\n")
	t.Setenv("DEMO_SERVER_PORT", "9090")

	src, err := properties.Load(properties.Options{AppName: "demo", Paths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, 9090, src.Int("server.port"))
}

func TestFallbackAccessors(t *testing.T) {
	src, err := properties.Load(properties.Options{
		AppName:  "demo",
		Paths:    []string{t.TempDir()},
		Defaults: map[string]any{"set.key": "value"},
	})
	require.NoError(t, err)

	assert.Equal(t, "value", src.StringOr("set.key", "fallback"))
	assert.Equal(t, "fallback", src.StringOr("unset.key", "fallback"))
	assert.Equal(t, 42, src.IntOr("unset.port", 42))
}

type cityProps struct {
	Name string
	Zip  string
}

type serverProps struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

func TestBind(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "application.yaml", `
city:
  name: San Francisco
  zip: "94110"
server:
  host: 0.0.0.0
  port: 8080
`)

	src, err := properties.Load(properties.Options{AppName: "demo", Paths: []string{dir}})
	require.NoError(t, err)

	t.Run("UntaggedStruct", func(t *testing.T) {
		var city cityProps
		require.NoError(t, src.Bind("city", &city))
		assert.Equal(t, "San Francisco", city.Name)
		assert.Equal(t, "94110", city.Zip)
	})

	t.Run("TaggedAndValidated", func(t *testing.T) {
		var server serverProps
		require.NoError(t, src.Bind("server", &server))
		assert.Equal(t, "0.0.0.0", server.Host)
		assert.Equal(t, 8080, server.Port)
	})

	t.Run("MissingPrefixLeavesZeroValues", func(t *testing.T) {
		var city cityProps
		require.Error(t, src.Bind("nosuch", &serverProps{}), "validation should catch the empty required field")
		require.NoError(t, src.Bind("nosuch", &city))
		assert.Empty(t, city.Name)
	})
}

func TestBindValidationFailure(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "application.yaml", "server:\n  port: 99999\n")

	src, err := properties.Load(properties.Options{AppName: "demo", Paths: []string{dir}})
	require.NoError(t, err)

	var server serverProps
	err = src.Bind("server", &server)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.host is required")
	assert.Contains(t, err.Error(), "server.port must be at most 65535")
}

func TestBindRejectsBadTargets(t *testing.T) {
	src, err := properties.Load(properties.Options{AppName: "demo", Paths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Error(t, src.Bind("key", nil))

	var notPointer cityProps
	assert.Error(t, src.Bind("key", notPointer))

	var nilPointer *cityProps
	assert.Error(t, src.Bind("key", nilPointer))
}

func TestSetDefaultIsOverridable(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "application.yaml", "greeting: from-file\n")

	src, err := properties.Load(properties.Options{AppName: "demo", Paths: []string{dir}})
	require.NoError(t, err)

	src.SetDefault("greeting", "from-default")
	src.SetDefault("other", "untouched")

	assert.Equal(t, "from-file", src.String("greeting"))
	assert.Equal(t, "untouched", src.String("other"))
}
