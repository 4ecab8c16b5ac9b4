// Package config handles configuration loading and validation for cowcatwaf.
package config

// Config is the complete configuration for the gatekeeper.
type Config struct {
	Server ServerConfig `toml:"server" json:"server"`
	Pow    PowConfig    `toml:"pow" json:"pow"`
	Proxy  ProxyConfig  `toml:"proxy" json:"proxy"`
	Rules  RulesConfig  `toml:"rules" json:"rules"`
	Debug  DebugConfig  `toml:"debug" json:"debug"`
}

// DebugConfig configures the operator-facing debug hooks (currently just
// the favicon cache warm endpoint), guarded by a bearer JWT.
type DebugConfig struct {
	// Enabled wires bot auth into the /__cowcatwaf/debug/* routes. The
	// routes are always mounted; without bot auth they answer 404.
	Enabled bool `toml:"enabled" json:"enabled"`
	// AuthKey is the primary HMAC key for signing/verifying debug tokens.
	AuthKey string `toml:"auth_key" json:"auth_key,omitempty"`
	// FallbackAuthKey, if set, is also accepted during key rotation.
	FallbackAuthKey string `toml:"fallback_auth_key" json:"fallback_auth_key,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Listen is the address the gate listens on, e.g. "0.0.0.0:8080".
	Listen string `toml:"listen" json:"listen"`
	// SecureCookie marks the admission cookie Secure and SameSite=None,
	// for deployments terminating TLS in front of the gate.
	SecureCookie bool `toml:"secure_cookie" json:"secure_cookie"`
}

// IPPolicy controls whether and how the client IP is bound into tasks/cookies.
type IPPolicy string

const (
	// IPPolicyNone disables IP binding entirely.
	IPPolicyNone IPPolicy = "none"
	// IPPolicyEnable binds using X-Forwarded-For/X-Real-IP/peer, in that order.
	IPPolicyEnable IPPolicy = "enable"
	// IPPolicyStrict binds using only the peer address.
	IPPolicyStrict IPPolicy = "strict"
)

// PowConfig configures the proof-of-work challenge.
type PowConfig struct {
	// Difficulty is the base difficulty in [0, 10]. 0 disables gating entirely.
	Difficulty int `toml:"difficulty" json:"difficulty"`
	// CookieExpireHours is the admission cookie TTL in hours.
	CookieExpireHours int `toml:"cookie_expire_hours" json:"cookie_expire_hours"`
	// Salt seeds the HMAC server secret. Generated at startup when empty.
	Salt string `toml:"salt" json:"salt,omitempty"`
	// Workers is the number of solver workers advertised to the client, 1-8.
	Workers int `toml:"workers" json:"workers"`
	// WorkerType is "wasm" or "native".
	WorkerType string `toml:"worker_type" json:"worker_type"`
	// IPPolicy controls client-IP binding for tasks and cookies.
	IPPolicy IPPolicy `toml:"ip_policy" json:"ip_policy"`
	// TestMode forces a challenge on every non-bypass request.
	TestMode bool `toml:"test_mode" json:"test_mode"`
}

// ProxyConfig configures the upstream origin.
type ProxyConfig struct {
	// Target is the upstream base URL, e.g. "http://127.0.0.1:1234".
	Target string `toml:"target" json:"target"`
}

// RuleAction is the outcome of a matched rule.
type RuleAction string

const (
	// RuleActionAllow forwards the request without a challenge.
	RuleActionAllow RuleAction = "allow"
	// RuleActionBlock rejects the request with an empty 403.
	RuleActionBlock RuleAction = "block"
	// RuleActionChallenge issues a challenge, optionally at an adjusted difficulty.
	RuleActionChallenge RuleAction = "challenge"
)

// HeaderMatch matches a single request header, case-insensitively by name.
type HeaderMatch struct {
	Name     string `toml:"name" json:"name"`
	Equals   string `toml:"equals" json:"equals,omitempty"`
	Contains string `toml:"contains" json:"contains,omitempty"`
}

// RuleConfig is one ordered entry in the rules engine.
type RuleConfig struct {
	PathPrefix      string       `toml:"path_prefix" json:"path_prefix,omitempty"`
	PathExact       string       `toml:"path_exact" json:"path_exact,omitempty"`
	Header          *HeaderMatch `toml:"header" json:"header,omitempty"`
	IPCIDR          []string     `toml:"ip_cidr" json:"ip_cidr,omitempty"`
	Action          RuleAction   `toml:"action" json:"action"`
	DifficultyDelta int          `toml:"difficulty_delta" json:"difficulty_delta"`
}

// RulesConfig configures the rules engine.
type RulesConfig struct {
	Enabled       bool         `toml:"enabled" json:"enabled"`
	DefaultAction RuleAction   `toml:"default_action" json:"default_action"`
	Rule          []RuleConfig `toml:"rule" json:"rule"`
}
