package utils

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config is a thread-safe set of string settings, usually loaded from the environment.
// Typed getters never fail; unparsable values fall back to the zero value or the given default
type Config struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewConfig creates a Config holding a copy of the given values
func NewConfig(values map[string]string) *Config {
	config := &Config{
		values: make(map[string]string, len(values)),
	}

	maps.Copy(config.values, values)

	return config
}

// NewConfigFromEnv loads the given .env files into the process environment and
// creates a Config from the result
func NewConfigFromEnv(files ...string) *Config {
	return NewConfig(LoadEnv(files...))
}

// Get retrieves a value, or an empty string when the key is not set
func (c *Config) Get(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// GetWithDefault retrieves a value, falling back when the key is unset or empty
func (c *Config) GetWithDefault(key, defaultValue string) string {
	if value := c.Get(key); value != "" {
		return value
	}
	return defaultValue
}

// GetFirst returns the first non-empty value among the keys, used for settings with aliases
func (c *Config) GetFirst(keys ...string) string {
	for _, key := range keys {
		if value := c.Get(key); value != "" {
			return value
		}
	}
	return ""
}

// GetBool parses a value as a boolean. Besides strconv forms, yes/no, on/off and
// enabled/disabled are understood
func (c *Config) GetBool(key string) bool {
	value, _ := parseBool(c.Get(key))
	return value
}

// GetBoolWithDefault parses a value as a boolean, falling back when unset or unparsable
func (c *Config) GetBoolWithDefault(key string, defaultValue bool) bool {
	if value, ok := parseBool(c.Get(key)); ok {
		return value
	}
	return defaultValue
}

// GetInt parses a value as an integer, returning 0 when unset or unparsable
func (c *Config) GetInt(key string) int {
	return c.GetIntWithDefault(key, 0)
}

// GetIntWithDefault parses a value as an integer, falling back when unset or unparsable
func (c *Config) GetIntWithDefault(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(c.Get(key)))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetDuration parses a value as a duration. Go duration strings ("15s", "24h") are accepted, and a
// bare integer is read as seconds
func (c *Config) GetDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(c.Get(key))
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// GetList splits a comma separated value, dropping blank items
func (c *Config) GetList(key string) []string {
	var items []string
	for item := range strings.SplitSeq(c.Get(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Set modifies a value
func (c *Config) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Delete removes a key
func (c *Config) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

// Has checks whether a key is set, even to an empty value
func (c *Config) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.values[key]
	return exists
}

// Keys returns every key in sorted order
func (c *Config) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.values))
}

// Clone creates an independent copy
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return NewConfig(c.values)
}

// parseBool reports the boolean value of s and whether it was recognized
func parseBool(s string) (bool, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false, false
	}

	if parsed, err := strconv.ParseBool(s); err == nil {
		return parsed, true
	}

	switch s {
	case "yes", "on", "enabled":
		return true, true
	case "no", "off", "disabled":
		return false, true
	default:
		return false, false
	}
}
