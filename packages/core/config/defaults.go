package config

// DefaultMaxRedirects is the redirect limit when none is configured
const DefaultMaxRedirects = 50

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		ConnectTimeout:  IntPtr(0), // transport default
		Timeout:         IntPtr(0),
		FollowRedirects: BoolPtr(false),
		MaxRedirects:    IntPtr(DefaultMaxRedirects),
		VerifyHost:      BoolPtr(true),
		VerifyPeer:      BoolPtr(true),
		Output:          "console",
		Include:         BoolPtr(false),
		Fail:            BoolPtr(false),
		Verbose:         BoolPtr(false),
		NoColor:         BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.GetConnectTimeout() == defaults.GetConnectTimeout() &&
		c.GetTimeout() == defaults.GetTimeout() &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.GetMaxRedirects() == defaults.GetMaxRedirects() &&
		c.GetVerifyHost() == defaults.GetVerifyHost() &&
		c.GetVerifyPeer() == defaults.GetVerifyPeer() &&
		c.Proxy == defaults.Proxy &&
		c.Interface == defaults.Interface &&
		c.UserAgent == defaults.UserAgent &&
		len(c.Headers) == 0 &&
		c.Output == defaults.Output &&
		c.GetInclude() == defaults.GetInclude() &&
		c.GetFail() == defaults.GetFail() &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
