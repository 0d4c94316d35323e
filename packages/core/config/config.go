package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the hitcurl configuration
type Config struct {
	ConnectTimeout  *int              `json:"connectTimeout,omitempty"` // milliseconds, 0 means transport default
	Timeout         *int              `json:"timeout,omitempty"`        // milliseconds, 0 means no limit
	FollowRedirects *bool             `json:"followRedirects,omitempty"`
	MaxRedirects    *int              `json:"maxRedirects,omitempty"`
	VerifyHost      *bool             `json:"verifyHost,omitempty"`
	VerifyPeer      *bool             `json:"verifyPeer,omitempty"`
	Proxy           string            `json:"proxy,omitempty"`
	Interface       string            `json:"interface,omitempty"`
	UserAgent       string            `json:"userAgent,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"` // Default headers for all requests
	Output          string            `json:"output,omitempty"`  // console or json
	Include         *bool             `json:"include,omitempty"`
	Fail            *bool             `json:"fail,omitempty"`
	Verbose         *bool             `json:"verbose,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// IntPtr returns a pointer to an int value
func IntPtr(i int) *int {
	return &i
}

func getInt(i *int, defaultVal int) int {
	if i == nil {
		return defaultVal
	}
	return *i
}

func (c *Config) GetConnectTimeout() int {
	return getInt(c.ConnectTimeout, 0)
}

func (c *Config) GetTimeout() int {
	return getInt(c.Timeout, 0)
}

// GetMaxRedirects returns the redirect limit, defaulting to DefaultMaxRedirects
func (c *Config) GetMaxRedirects() int {
	return getInt(c.MaxRedirects, DefaultMaxRedirects)
}

// GetFollowRedirects returns the follow redirects setting, defaulting to false
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, false)
}

// GetVerifyHost returns the host name check setting, defaulting to true
func (c *Config) GetVerifyHost() bool {
	return getBool(c.VerifyHost, true)
}

// GetVerifyPeer returns the certificate chain check setting, defaulting to true
func (c *Config) GetVerifyPeer() bool {
	return getBool(c.VerifyPeer, true)
}

func (c *Config) GetInclude() bool {
	return getBool(c.Include, false)
}

func (c *Config) GetFail() bool {
	return getBool(c.Fail, false)
}

func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// HeaderLines returns the default headers as raw "Name: Value" lines, sorted
// by name so every run sends them in the same order.
func (c *Config) HeaderLines() []string {
	names := make([]string, 0, len(c.Headers))
	for name := range c.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, name+": "+c.Headers[name])
	}
	return lines
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hitcurl.json",
	"hitcurl.json",
	".hitcurl.yaml",
	".hitcurl.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return config, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return json.Marshal(doc)
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	// Numbers are pointers too, so an explicit 0 overrides
	if other.ConnectTimeout != nil {
		result.ConnectTimeout = other.ConnectTimeout
	}
	if other.Timeout != nil {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects != nil {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Interface != "" {
		result.Interface = other.Interface
	}
	if other.UserAgent != "" {
		result.UserAgent = other.UserAgent
	}
	if other.Output != "" {
		result.Output = other.Output
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.VerifyHost != nil {
		result.VerifyHost = other.VerifyHost
	}
	if other.VerifyPeer != nil {
		result.VerifyPeer = other.VerifyPeer
	}
	if other.Include != nil {
		result.Include = other.Include
	}
	if other.Fail != nil {
		result.Fail = other.Fail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(c.Headers) > 0 || len(other.Headers) > 0 {
		result.Headers = make(map[string]string, len(c.Headers)+len(other.Headers))
		for k, v := range c.Headers {
			result.Headers[k] = v
		}
		for k, v := range other.Headers {
			result.Headers[k] = v
		}
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
