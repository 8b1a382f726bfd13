package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts the file checks the loader performs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem implements FileSystem on the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	// EnvPrefix limits which environment variables are bound. Defaults to
	// the upper-cased service name ("my-sdk" → "MY_SDK").
	EnvPrefix string
	// Defaults are applied beneath the file and environment values.
	Defaults map[string]any
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithDefaults sets values applied beneath everything else.
func WithDefaults(values map[string]any) LoaderOption {
	return func(lc *LoaderConfig) { lc.Defaults = values }
}

// Load builds a Store for serviceName from defaults, a config file, a .env
// file and prefixed environment variables, in increasing precedence.
// Missing files are not an error.
func Load(serviceName string, opts ...LoaderOption) (*Store, error) {
	lc := LoaderConfig{FileSystem: OSFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_"))
	}
	if lc.ConfigFile == "" {
		lc.ConfigFile = findConfigFile(lc.FileSystem, serviceName)
	}
	if lc.EnvFile == "" {
		lc.EnvFile = findEnvFile(lc.FileSystem, serviceName)
	}

	v := viper.New()
	if len(lc.Defaults) > 0 {
		if err := v.MergeConfigMap(lc.Defaults); err != nil {
			return nil, fmt.Errorf("config defaults for %s: %w", serviceName, err)
		}
	}
	if lc.ConfigFile != "" && lc.FileSystem.Exists(lc.ConfigFile) {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", lc.ConfigFile, err)
		}
	}
	if lc.EnvFile != "" && lc.FileSystem.Exists(lc.EnvFile) {
		if err := lc.FileSystem.LoadEnv(lc.EnvFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", lc.EnvFile, err)
		}
	}
	bindEnv(v, lc.EnvPrefix, os.Environ())
	return fromViper(v), nil
}

func findConfigFile(fs FileSystem, serviceName string) string {
	searchPaths := []string{
		fmt.Sprintf("./config/%s.yml", serviceName),
		fmt.Sprintf("./%s.yml", serviceName),
		"./config/config.yml",
		"../config/config.yml",
		"./config.yml",
	}
	for _, path := range searchPaths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

func findEnvFile(fs FileSystem, serviceName string) string {
	for _, path := range []string{
		fmt.Sprintf("./.env.%s", serviceName),
		"./.env",
		"../.env",
	} {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// bindEnv sets PREFIX_SECTION_KEY variables as overrides. When a nested
// variant of the key already exists in the loaded values it wins, otherwise
// every underscore becomes a path separator.
func bindEnv(v *viper.Viper, prefix string, environ []string) {
	want := prefix + "_"
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, want) {
			continue
		}
		variants := envKeyVariants(strings.TrimPrefix(key, want))
		target := variants[0]
		for _, variant := range variants {
			if v.IsSet(variant) {
				target = variant
				break
			}
		}
		v.Set(target, value)
	}
}

// envKeyVariants lists the nested keys an env name may address, most
// nested first.
//
//	HTTP_LOG_TEMPLATE -> [http.log.template, http.log_template, http_log.template, http_log_template]
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}
	variants := []string{strings.Join(parts, ".")}
	for i := len(parts) - 1; i >= 1; i-- {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	for i := 2; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "."))
	}
	variants = append(variants, lower)
	return removeDuplicates(variants)
}

func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}
