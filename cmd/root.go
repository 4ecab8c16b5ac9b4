// Package cmd implements the CLI commands for cowcatwaf.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ethpandaops/cowcatwaf/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *logrus.Logger
	v       *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "cowcatwaf",
	Short: "Proof-of-work gatekeeper for a reverse-proxied origin",
	Long: `cowcatwaf sits in front of an upstream origin and forces unseen
clients to solve a small proof-of-work puzzle before their requests are
forwarded, deterring low-effort bot traffic without a login wall.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		initLogger()

		return initConfig()
	},
}

func init() {
	v = viper.New()
	cobra.OnInitialize(loadConfigFile)

	defaults := config.DefaultConfig()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (TOML)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.PersistentFlags().String("server-listen", defaults.Server.Listen, "Address the gate listens on")
	rootCmd.PersistentFlags().Bool("server-secure-cookie", defaults.Server.SecureCookie, "Mark the admission cookie Secure, SameSite=None")

	rootCmd.PersistentFlags().Int("pow-difficulty", defaults.Pow.Difficulty, "Base proof-of-work difficulty, 0-10 (0 disables gating)")
	rootCmd.PersistentFlags().Int("pow-cookie-expire-hours", defaults.Pow.CookieExpireHours, "Admission cookie TTL in hours")
	rootCmd.PersistentFlags().String("pow-salt", defaults.Pow.Salt, "Salt seeding the HMAC server secret (random if empty)")
	rootCmd.PersistentFlags().Int("pow-workers", defaults.Pow.Workers, "Solver workers advertised to the client, 1-8")
	rootCmd.PersistentFlags().String("pow-worker-type", defaults.Pow.WorkerType, "Solver worker type: wasm or native")
	rootCmd.PersistentFlags().String("pow-ip-policy", string(defaults.Pow.IPPolicy), "Client IP binding policy: none, enable, strict")
	rootCmd.PersistentFlags().Bool("pow-test-mode", defaults.Pow.TestMode, "Force a challenge on every non-bypass request")

	rootCmd.PersistentFlags().String("proxy-target", defaults.Proxy.Target, "Upstream origin base URL")

	rootCmd.PersistentFlags().Bool("rules-enabled", defaults.Rules.Enabled, "Enable the rules engine")
	rootCmd.PersistentFlags().String("rules-default-action", string(defaults.Rules.DefaultAction), "Action applied when no rule matches")

	rootCmd.PersistentFlags().Bool("debug-enabled", defaults.Debug.Enabled, "Enable operator debug hooks (favicon cache warm)")
	rootCmd.PersistentFlags().String("debug-auth-key", defaults.Debug.AuthKey, "Primary HMAC key for debug bearer tokens")
	rootCmd.PersistentFlags().String("debug-fallback-auth-key", defaults.Debug.FallbackAuthKey, "Secondary HMAC key accepted during rotation")

	if err := v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		logrus.WithError(err).Fatal("failed to bind flags")
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initLogger() {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
}

func loadConfigFile() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("cowcatwaf")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/cowcatwaf")
	}

	v.SetEnvPrefix("COWCAT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if logger != nil {
				logger.WithError(err).Warn("error reading config file")
			}
		}
	}
}

func initConfig() error {
	loader := config.NewLoader(logger)

	if cfgFile != "" {
		loaded, err := loader.LoadConfig(cfgFile)
		if err != nil {
			return err
		}

		cfg = loaded
	} else {
		loaded, err := loader.LoadConfigFromFlags(v)
		if err != nil {
			return err
		}

		cfg = loaded
	}

	return config.ValidateConfig(cfg)
}

// GetConfig returns the current configuration.
func GetConfig() *config.Config {
	return cfg
}

// GetLogger returns the application logger.
func GetLogger() *logrus.Logger {
	return logger
}
