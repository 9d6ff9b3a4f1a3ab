// Package config provides persistent configuration for the salah-times CLI.
//
// Configuration is stored as JSON at ~/.config/salah-times/config.json
// (XDG-compliant). Every key can also be supplied through the environment as
// SALAH_<KEY> (dots become underscores), optionally loaded from a .env file.
// The merge priority is: CLI flags > environment > config file > defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/salah-times/internal/api"
	"github.com/smokyabdulrahman/salah-times/internal/cache"
	"github.com/smokyabdulrahman/salah-times/internal/geo"
	"github.com/smokyabdulrahman/salah-times/internal/logging"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
	"github.com/smokyabdulrahman/salah-times/internal/refresh"
)

const (
	configDirName  = "salah-times"
	configFileName = "config.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SALAH_"

	iqamaPrefix = "iqama."
	maxIqama    = 120
)

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = func() []string {
	keys := []string{
		"city",
		"latitude", "longitude",
		"source", "method", "school",
		"store", "redis_addr", "cache_dir",
		"time_format", "timezone",
		"refresh_schedule", "refresh_all",
		"listen_addr", "log_level",
	}
	for _, n := range prayer.Order {
		if n.IsPrayer() {
			keys = append(keys, iqamaPrefix+n.String())
		}
	}
	return keys
}()

// Config holds all user-configurable settings.
// Zero values mean "not set" (use defaults or auto-detect).
type Config struct {
	City            string         `json:"city,omitempty"`
	Latitude        float64        `json:"latitude,omitempty"`
	Longitude       float64        `json:"longitude,omitempty"`
	Source          string         `json:"source,omitempty"`
	Method          *int           `json:"method,omitempty"` // pointer so we can distinguish "not set" from 0
	School          *int           `json:"school,omitempty"`
	Store           string         `json:"store,omitempty"`
	RedisAddr       string         `json:"redis_addr,omitempty"`
	CacheDir        string         `json:"cache_dir,omitempty"`
	TimeFormat      string         `json:"time_format,omitempty"` // "12h" or "24h"
	Timezone        string         `json:"timezone,omitempty"`
	RefreshSchedule string         `json:"refresh_schedule,omitempty"`
	RefreshAll      *bool          `json:"refresh_all,omitempty"`
	ListenAddr      string         `json:"listen_addr,omitempty"`
	LogLevel        string         `json:"log_level,omitempty"`
	Iqama           map[string]int `json:"iqama,omitempty"` // minutes keyed by canonical prayer name
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	method := -1
	school := -1
	refreshAll := false
	return Config{
		Source:          api.SourceYabiladi,
		Method:          &method,
		School:          &school,
		Store:           cache.BackendFile,
		RedisAddr:       "localhost:6379",
		TimeFormat:      "24h",
		RefreshSchedule: refresh.DefaultSchedule,
		RefreshAll:      &refreshAll,
		ListenAddr:      "127.0.0.1:8321",
	}
}

// ApplyDefaults fills every unset field from Defaults.
func (c *Config) ApplyDefaults() {
	d := Defaults()
	if c.Source == "" {
		c.Source = d.Source
	}
	if c.Method == nil {
		c.Method = d.Method
	}
	if c.School == nil {
		c.School = d.School
	}
	if c.Store == "" {
		c.Store = d.Store
	}
	if c.RedisAddr == "" {
		c.RedisAddr = d.RedisAddr
	}
	if c.TimeFormat == "" {
		c.TimeFormat = d.TimeFormat
	}
	if c.RefreshSchedule == "" {
		c.RefreshSchedule = d.RefreshSchedule
	}
	if c.RefreshAll == nil {
		c.RefreshAll = d.RefreshAll
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file from disk.
// If the file does not exist, it returns an empty Config (not an error).
// If the file exists but is invalid JSON, it returns an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	return LoadFrom(path)
}

// LoadFrom reads the config from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Config{}
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return c.SaveTo(path)
}

// SaveTo writes the config to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Reset deletes the config file.
func Reset() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return ResetAt(path)
}

// ResetAt deletes the config file at a specific path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// EnvName returns the environment variable that overrides key,
// e.g. "iqama.Fajr" -> "SALAH_IQAMA_FAJR".
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment. Variables already set are kept; missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays SALAH_* variables found through lookup onto c. Values
// go through Set, so an invalid variable is reported like an invalid key.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range ValidKeys {
		v, ok := lookup(EnvName(key))
		if !ok || v == "" {
			continue
		}
		if err := c.Set(key, v); err != nil {
			return fmt.Errorf("%s: %w", EnvName(key), err)
		}
	}
	return nil
}

// Set sets a config key to the given value.
// It validates the key name and parses the value into the correct type.
func (c *Config) Set(key, value string) error {
	if strings.HasPrefix(key, iqamaPrefix) {
		return c.setIqama(strings.TrimPrefix(key, iqamaPrefix), value)
	}

	switch key {
	case "city":
		loc, err := geo.Lookup(value)
		if err != nil {
			return err
		}
		c.City = loc.Key
	case "latitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: must be a number", value)
		}
		if v < -90 || v > 90 {
			return fmt.Errorf("invalid latitude %q: must be between -90 and 90", value)
		}
		c.Latitude = v
	case "longitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: must be a number", value)
		}
		if v < -180 || v > 180 {
			return fmt.Errorf("invalid longitude %q: must be between -180 and 180", value)
		}
		c.Longitude = v
	case "source":
		if !contains(api.Sources, value) {
			return fmt.Errorf("invalid source %q: must be one of %s", value, strings.Join(api.Sources, ", "))
		}
		c.Source = value
	case "method":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid method %q: must be an integer", value)
		}
		if v < 0 || v > 23 {
			return fmt.Errorf("invalid method %q: must be between 0 and 23", value)
		}
		c.Method = &v
	case "school":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid school %q: must be an integer", value)
		}
		if v != 0 && v != 1 {
			return fmt.Errorf("invalid school %q: must be 0 (Shafi) or 1 (Hanafi)", value)
		}
		c.School = &v
	case "store":
		if !contains(cache.Backends, value) {
			return fmt.Errorf("invalid store %q: must be one of %s", value, strings.Join(cache.Backends, ", "))
		}
		c.Store = value
	case "redis_addr":
		c.RedisAddr = value
	case "cache_dir":
		c.CacheDir = value
	case "time_format":
		if value != "12h" && value != "24h" {
			return fmt.Errorf("invalid time_format %q: must be \"12h\" or \"24h\"", value)
		}
		c.TimeFormat = value
	case "timezone":
		if _, err := time.LoadLocation(value); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", value, err)
		}
		c.Timezone = value
	case "refresh_schedule":
		if err := refresh.ValidateSpec(value); err != nil {
			return err
		}
		c.RefreshSchedule = value
	case "refresh_all":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid refresh_all %q: must be true or false", value)
		}
		c.RefreshAll = &v
	case "listen_addr":
		c.ListenAddr = value
	case "log_level":
		if _, err := logging.ParseLevel(value, zerolog.InfoLevel); err != nil {
			return err
		}
		c.LogLevel = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}

	return nil
}

func (c *Config) setIqama(name, value string) error {
	n, err := prayer.ParseName(name)
	if err != nil || !n.IsPrayer() {
		return fmt.Errorf("unknown config key %q; valid keys: %s", iqamaPrefix+name, strings.Join(ValidKeys, ", "))
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid iqama delay %q: must be an integer", value)
	}
	if v < 0 || v > maxIqama {
		return fmt.Errorf("invalid iqama delay %q: must be between 0 and %d minutes", value, maxIqama)
	}
	if c.Iqama == nil {
		c.Iqama = make(map[string]int)
	}
	c.Iqama[n.String()] = v
	return nil
}

// Get returns the string value of a config key.
func (c *Config) Get(key string) (string, error) {
	if strings.HasPrefix(key, iqamaPrefix) {
		n, err := prayer.ParseName(strings.TrimPrefix(key, iqamaPrefix))
		if err != nil || !n.IsPrayer() {
			return "", fmt.Errorf("unknown config key %q", key)
		}
		if v, ok := c.Iqama[n.String()]; ok {
			return strconv.Itoa(v), nil
		}
		return "", nil
	}

	switch key {
	case "city":
		return c.City, nil
	case "latitude":
		if c.Latitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Latitude, 'f', -1, 64), nil
	case "longitude":
		if c.Longitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Longitude, 'f', -1, 64), nil
	case "source":
		return c.Source, nil
	case "method":
		if c.Method == nil {
			return "", nil
		}
		return strconv.Itoa(*c.Method), nil
	case "school":
		if c.School == nil {
			return "", nil
		}
		return strconv.Itoa(*c.School), nil
	case "store":
		return c.Store, nil
	case "redis_addr":
		return c.RedisAddr, nil
	case "cache_dir":
		return c.CacheDir, nil
	case "time_format":
		return c.TimeFormat, nil
	case "timezone":
		return c.Timezone, nil
	case "refresh_schedule":
		return c.RefreshSchedule, nil
	case "refresh_all":
		if c.RefreshAll == nil {
			return "", nil
		}
		return strconv.FormatBool(*c.RefreshAll), nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "log_level":
		return c.LogLevel, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// MethodOrDefault returns the method value, falling back to the given default.
func (c *Config) MethodOrDefault(def int) int {
	if c.Method != nil {
		return *c.Method
	}
	return def
}

// SchoolOrDefault returns the school value, falling back to the given default.
func (c *Config) SchoolOrDefault(def int) int {
	if c.School != nil {
		return *c.School
	}
	return def
}

// IqamaDelays returns the stock delay table with configured overrides.
func (c *Config) IqamaDelays() prayer.IqamaDelays {
	d := prayer.DefaultIqamaDelays()
	for name, v := range c.Iqama {
		if n, err := prayer.ParseName(name); err == nil && n.IsPrayer() {
			d[n] = v
		}
	}
	return d
}

// TimeLayout returns the Go layout for the configured time format.
func (c *Config) TimeLayout() string {
	if c.TimeFormat == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

// TimeLocation returns the configured zone, or time.Local when unset.
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
