package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newTestLoader() *Loader {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return NewLoader(log)
}

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, ValidateConfig(DefaultConfig()))
}

func TestLoadConfigAppliesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[server]
listen = "0.0.0.0:9090"

[pow]
difficulty = 5

[proxy]
target = "http://origin.internal:8000"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := newTestLoader().LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9090", cfg.Server.Listen)
	require.Equal(t, 5, cfg.Pow.Difficulty)
	require.Equal(t, "http://origin.internal:8000", cfg.Proxy.Target)
	// untouched fields keep their defaults
	require.Equal(t, 24, cfg.Pow.CookieExpireHours)
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	_, err := newTestLoader().LoadConfig("/nonexistent/config.toml")
	require.Error(t, err)
}

func TestLoadConfigFromFlags(t *testing.T) {
	v := viper.New()
	v.Set("server-listen", "127.0.0.1:8081")
	v.Set("pow-difficulty", 7)
	v.Set("pow-ip-policy", "strict")
	v.Set("rules-enabled", true)
	v.Set("rules-default-action", "block")

	cfg, err := newTestLoader().LoadConfigFromFlags(v)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8081", cfg.Server.Listen)
	require.Equal(t, 7, cfg.Pow.Difficulty)
	require.Equal(t, IPPolicyStrict, cfg.Pow.IPPolicy)
	require.True(t, cfg.Rules.Enabled)
	require.Equal(t, RuleActionBlock, cfg.Rules.DefaultAction)
}

func TestValidateConfigRejectsBadDifficulty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pow.Difficulty = 11
	require.Error(t, ValidateConfig(cfg))
}

func TestValidateConfigRejectsBadWorkerType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pow.WorkerType = "gpu"
	require.Error(t, ValidateConfig(cfg))
}

func TestValidateConfigRejectsBadIPPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pow.IPPolicy = "sometimes"
	require.Error(t, ValidateConfig(cfg))
}

func TestValidateConfigRejectsBadProxyTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Proxy.Target = ""
	require.Error(t, ValidateConfig(cfg))
}

func TestValidateConfigRejectsBadRuleCIDR(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.Enabled = true
	cfg.Rules.DefaultAction = RuleActionChallenge
	cfg.Rules.Rule = []RuleConfig{{Action: RuleActionAllow, IPCIDR: []string{"not-a-cidr"}}}
	require.Error(t, ValidateConfig(cfg))
}

func TestValidateConfigRejectsBadRuleAction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.Enabled = true
	cfg.Rules.Rule = []RuleConfig{{Action: "nuke"}}
	require.Error(t, ValidateConfig(cfg))
}

func TestValidateConfigRejectsDebugEnabledWithoutAuthKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debug.Enabled = true
	require.Error(t, ValidateConfig(cfg))
}

func TestValidateConfigAllowsDebugEnabledWithAuthKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debug.Enabled = true
	cfg.Debug.AuthKey = "a-primary-key"
	require.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfigFromFlagsAppliesDebugOverrides(t *testing.T) {
	v := viper.New()
	v.Set("debug-enabled", true)
	v.Set("debug-auth-key", "primary")
	v.Set("debug-fallback-auth-key", "secondary")

	cfg, err := newTestLoader().LoadConfigFromFlags(v)
	require.NoError(t, err)
	require.True(t, cfg.Debug.Enabled)
	require.Equal(t, "primary", cfg.Debug.AuthKey)
	require.Equal(t, "secondary", cfg.Debug.FallbackAuthKey)
}
