package config

// DefaultConfig returns a configuration with sensible defaults for running
// standalone in front of a local upstream.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       "0.0.0.0:8080",
			SecureCookie: false,
		},
		Pow: PowConfig{
			Difficulty:        3,
			CookieExpireHours: 24,
			Salt:              "",
			Workers:           4,
			WorkerType:        "wasm",
			IPPolicy:          IPPolicyNone,
			TestMode:          false,
		},
		Proxy: ProxyConfig{
			Target: "http://127.0.0.1:1234",
		},
		Rules: RulesConfig{
			Enabled:       false,
			DefaultAction: RuleActionChallenge,
			Rule:          nil,
		},
		Debug: DebugConfig{
			Enabled: false,
		},
	}
}
