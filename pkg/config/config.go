// Package config handles configuration loading and validation for cowcatwaf.
package config

import (
	"fmt"
	"net"
	"net/url"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from files and flags.
type Loader struct {
	log logrus.FieldLogger
}

// NewLoader creates a new configuration loader.
func NewLoader(log logrus.FieldLogger) *Loader {
	return &Loader{
		log: log.WithField("component", "config"),
	}
}

// LoadConfig loads configuration from a TOML file.
func (l *Loader) LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromFlags layers viper-bound flags and environment variables
// (prefixed COWCAT_) over the defaults.
func (l *Loader) LoadConfigFromFlags(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if val := v.GetString("server-listen"); val != "" {
		cfg.Server.Listen = val
	}

	cfg.Server.SecureCookie = v.GetBool("server-secure-cookie")

	cfg.Pow.Difficulty = v.GetInt("pow-difficulty")
	cfg.Pow.CookieExpireHours = v.GetInt("pow-cookie-expire-hours")

	if val := v.GetString("pow-salt"); val != "" {
		cfg.Pow.Salt = val
	}

	cfg.Pow.Workers = v.GetInt("pow-workers")

	if val := v.GetString("pow-worker-type"); val != "" {
		cfg.Pow.WorkerType = val
	}

	if val := v.GetString("pow-ip-policy"); val != "" {
		cfg.Pow.IPPolicy = IPPolicy(val)
	}

	cfg.Pow.TestMode = v.GetBool("pow-test-mode")

	if val := v.GetString("proxy-target"); val != "" {
		cfg.Proxy.Target = val
	}

	cfg.Rules.Enabled = v.GetBool("rules-enabled")

	if val := v.GetString("rules-default-action"); val != "" {
		cfg.Rules.DefaultAction = RuleAction(val)
	}

	cfg.Debug.Enabled = v.GetBool("debug-enabled")

	if val := v.GetString("debug-auth-key"); val != "" {
		cfg.Debug.AuthKey = val
	}

	if val := v.GetString("debug-fallback-auth-key"); val != "" {
		cfg.Debug.FallbackAuthKey = val
	}

	return cfg, nil
}

// ValidateConfig validates the configuration for consistency and completeness.
func ValidateConfig(cfg *Config) error {
	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen: must not be empty")
	}

	if cfg.Pow.Difficulty < 0 || cfg.Pow.Difficulty > 10 {
		return fmt.Errorf("pow.difficulty: must be in [0, 10], got %d", cfg.Pow.Difficulty)
	}

	if cfg.Pow.CookieExpireHours <= 0 {
		return fmt.Errorf("pow.cookie_expire_hours: must be positive, got %d", cfg.Pow.CookieExpireHours)
	}

	if cfg.Pow.Workers < 1 || cfg.Pow.Workers > 8 {
		return fmt.Errorf("pow.workers: must be in [1, 8], got %d", cfg.Pow.Workers)
	}

	switch cfg.Pow.WorkerType {
	case "wasm", "native":
	default:
		return fmt.Errorf("pow.worker_type: must be 'wasm' or 'native', got %q", cfg.Pow.WorkerType)
	}

	switch cfg.Pow.IPPolicy {
	case IPPolicyNone, IPPolicyEnable, IPPolicyStrict:
	default:
		return fmt.Errorf("pow.ip_policy: must be 'none', 'enable' or 'strict', got %q", cfg.Pow.IPPolicy)
	}

	if cfg.Proxy.Target == "" {
		return fmt.Errorf("proxy.target: must not be empty")
	}

	if _, err := url.Parse(cfg.Proxy.Target); err != nil {
		return fmt.Errorf("proxy.target: invalid URL: %w", err)
	}

	if cfg.Rules.Enabled {
		switch cfg.Rules.DefaultAction {
		case RuleActionAllow, RuleActionBlock, RuleActionChallenge:
		default:
			return fmt.Errorf("rules.default_action: must be 'allow', 'block' or 'challenge', got %q", cfg.Rules.DefaultAction)
		}

		for i, rule := range cfg.Rules.Rule {
			switch rule.Action {
			case RuleActionAllow, RuleActionBlock, RuleActionChallenge:
			default:
				return fmt.Errorf("rules.rule[%d].action: must be 'allow', 'block' or 'challenge', got %q", i, rule.Action)
			}

			for _, cidr := range rule.IPCIDR {
				if _, _, err := net.ParseCIDR(cidr); err != nil {
					return fmt.Errorf("rules.rule[%d].ip_cidr: invalid CIDR %q: %w", i, cidr, err)
				}
			}
		}
	}

	if cfg.Debug.Enabled && cfg.Debug.AuthKey == "" {
		return fmt.Errorf("debug.auth_key: must not be empty when debug.enabled is true")
	}

	return nil
}
