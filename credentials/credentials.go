// Package credentials manages the CLI's runner/API credentials: a flat
// key/value store layered env > file > default, backed by
// github.com/spf13/viper, with one-time migration from a legacy JSON
// config and a legacy .env.local file.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Source identifies where a credential's effective value came from.
type Source string

const (
	SourceEnv     Source = "env"
	SourceFile    Source = "file"
	SourceDefault Source = "default"
)

// Entry is one resolved credential.
type Entry struct {
	Key    string // internal key, e.g. "runner"
	CLIKey string // kebab-case CLI flag name, e.g. "api-url"
	Value  string
	Source Source
}

// keyInfo binds one internal key to its env var name, CLI flag name, and
// default value.
type keyInfo struct {
	envVar     string
	cliKey     string
	defaultVal string
}

var keys = map[string]keyInfo{
	"runner":    {envVar: "MTHDS_RUNNER", cliKey: "runner", defaultVal: "api"},
	"api_url":   {envVar: "PIPELEX_API_URL", cliKey: "api-url", defaultVal: "https://api.pipelex.com"},
	"api_key":   {envVar: "PIPELEX_API_KEY", cliKey: "api-key", defaultVal: ""},
	"telemetry": {envVar: "DISABLE_TELEMETRY", cliKey: "telemetry", defaultVal: "0"},
}

// ResolveKey maps a CLI flag name (kebab-case) back to its internal key.
func ResolveKey(cliKey string) (string, bool) {
	for internal, info := range keys {
		if info.cliKey == cliKey {
			return internal, true
		}
	}
	return "", false
}

var migrateOnce sync.Once

// resetMigrateOnceForTest lets tests exercise migrateIfNeeded more than
// once per process.
func resetMigrateOnceForTest() {
	migrateOnce = sync.Once{}
}

// Store reads and writes the credentials file at a fixed path, through a
// viper instance configured with explicit env bindings and defaults.
type Store struct {
	configDir string
	v         *viper.Viper
}

// Open constructs a Store rooted at the user's home directory
// (~/.mthds/credentials), running the one-time legacy migration first.
func Open() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, wrapErr(err)
	}
	return OpenAt(filepath.Join(home, ".mthds"))
}

// OpenAt constructs a Store rooted at configDir, letting tests avoid
// touching the real home directory.
func OpenAt(configDir string) (*Store, error) {
	migrateOnce.Do(func() { migrateIfNeeded(configDir) })

	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("env")
	v.AddConfigPath(configDir)
	for internal, info := range keys {
		v.SetDefault(internal, info.defaultVal)
		_ = v.BindEnv(internal, info.envVar)
	}

	path := filepath.Join(configDir, "credentials")
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		// The file stores env var names (e.g. PIPELEX_API_URL); layer each
		// value found there between the env binding and the built-in default.
		for internal, info := range keys {
			fileKey := strings.ToLower(info.envVar)
			if v.InConfig(fileKey) {
				v.SetDefault(internal, v.GetString(fileKey))
			}
		}
	}

	return &Store{configDir: configDir, v: v}, nil
}

// Get resolves a single credential's value and source.
func (s *Store) Get(key string) (Entry, error) {
	info, ok := keys[key]
	if !ok {
		return Entry{}, fmt.Errorf("unknown credential key %q", key)
	}
	value := s.v.GetString(key)

	source := SourceDefault
	if envVal, ok := os.LookupEnv(info.envVar); ok && envVal == value {
		source = SourceEnv
	} else if value != info.defaultVal {
		source = SourceFile
	}
	return Entry{Key: key, CLIKey: info.cliKey, Value: value, Source: source}, nil
}

// Set writes key=value to the credentials file (file precedence only; it
// does not affect an environment variable override).
func (s *Store) Set(key, value string) error {
	if _, ok := keys[key]; !ok {
		return fmt.Errorf("unknown credential key %q", key)
	}
	s.v.Set(key, value)

	if err := os.MkdirAll(s.configDir, 0o755); err != nil {
		return wrapErr(err)
	}
	path := filepath.Join(s.configDir, "credentials")

	entries := map[string]string{}
	for internal, info := range keys {
		entries[info.envVar] = s.v.GetString(internal)
	}
	content := serializeDotenv(entries)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return wrapErr(err)
	}
	return os.Chmod(path, 0o600)
}

// List returns every credential's resolved value and source, in a stable
// key order.
func (s *Store) List() ([]Entry, error) {
	order := []string{"runner", "api_url", "api_key", "telemetry"}
	entries := make([]Entry, 0, len(order))
	for _, key := range order {
		e, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// IsTelemetryEnabled reports whether telemetry is enabled
// (DISABLE_TELEMETRY != "1").
func (s *Store) IsTelemetryEnabled() bool {
	e, err := s.Get("telemetry")
	if err != nil {
		return true
	}
	return e.Value != "1"
}

func serializeDotenv(entries map[string]string) string {
	order := []string{"MTHDS_RUNNER", "PIPELEX_API_URL", "PIPELEX_API_KEY", "DISABLE_TELEMETRY"}
	out := ""
	for _, k := range order {
		out += fmt.Sprintf("%s=%s\n", k, entries[k])
	}
	return out
}

func wrapErr(err error) error { return fmt.Errorf("credentials: %w", err) }

// migrateIfNeeded migrates a legacy config.json / .env.local pair into the
// credentials file, then deletes both legacy files. It is a process-wide,
// one-time operation guarded by migrateOnce, mirroring the original's
// module-level migration guard.
func migrateIfNeeded(configDir string) {
	credentialsPath := filepath.Join(configDir, "credentials")
	if _, err := os.Stat(credentialsPath); err == nil {
		return
	}

	legacyConfigPath := filepath.Join(configDir, "config.json")
	legacyEnvPath := filepath.Join(configDir, ".env.local")

	migrated := map[string]string{}
	didMigrate := false

	if raw, err := os.ReadFile(legacyConfigPath); err == nil {
		var config map[string]any
		if err := json.Unmarshal(raw, &config); err == nil {
			if runner, ok := config["runner"].(string); ok {
				migrated["MTHDS_RUNNER"] = runner
			}
			if apiURL, ok := config["apiUrl"].(string); ok {
				migrated["PIPELEX_API_URL"] = apiURL
			}
			if apiKey, ok := config["apiKey"].(string); ok {
				migrated["PIPELEX_API_KEY"] = apiKey
			}
			if telemetry, ok := config["telemetry"].(bool); ok {
				if telemetry {
					migrated["DISABLE_TELEMETRY"] = "0"
				} else {
					migrated["DISABLE_TELEMETRY"] = "1"
				}
			}
			didMigrate = true
		}
	}

	if envEntries, err := parseDotenv(legacyEnvPath); err == nil {
		if v, ok := envEntries["DISABLE_TELEMETRY"]; ok {
			migrated["DISABLE_TELEMETRY"] = v
		}
		didMigrate = true
	}

	if !didMigrate {
		return
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return
	}
	_ = os.WriteFile(credentialsPath, []byte(serializeDotenv(migrated)), 0o600)

	os.Remove(legacyConfigPath)
	os.Remove(legacyEnvPath)
}

func parseDotenv(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	result := map[string]string{}
	line := ""
	for _, r := range string(raw) {
		if r == '\n' {
			addDotenvLine(result, line)
			line = ""
			continue
		}
		line += string(r)
	}
	addDotenvLine(result, line)
	return result, nil
}

func addDotenvLine(result map[string]string, line string) {
	trimmed := trimSpace(line)
	if trimmed == "" || trimmed[0] == '#' {
		return
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] == '=' {
			result[trimSpace(trimmed[:i])] = trimSpace(trimmed[i+1:])
			return
		}
	}
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}
