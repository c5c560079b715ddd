/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Seednode/promptparty/llm"
)

type Config struct {
	apiKey           string
	apiURL           string
	bind             string
	configFile       string
	generatorTimeout time.Duration
	logFile          string
	metrics          bool
	model            string
	port             int
	prefix           string
	profile          bool
	rateLimit        int
	sessionTimeout   time.Duration
	tlsCert          string
	tlsKey           string
	trustProxy       bool
	verbose          bool
	version          bool

	log   *zap.Logger
	level zap.AtomicLevel
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.rateLimit < 0 {
		return fmt.Errorf("invalid rate limit (must be 0 or greater): %d", c.rateLimit)
	}
	if c.generatorTimeout <= 0 {
		return fmt.Errorf("invalid generator timeout (must be positive): %s", c.generatorTimeout)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid session timeout (must be 0 or greater): %s", c.sessionTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// applyViper copies values viper knows about onto flags the user did not set
// on the command line.
func applyViper(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// loadConfigFile reads --config and keeps watching it. Only verbosity is
// applied live; everything else needs a restart.
func loadConfigFile(cfg *Config, v *viper.Viper, fs *pflag.FlagSet) error {
	if cfg.configFile == "" {
		return nil
	}

	v.SetConfigFile(cfg.configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfg.configFile, err)
	}

	applyViper(v, fs)

	return nil
}

func watchConfigFile(cfg *Config, v *viper.Viper) {
	if cfg.configFile == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		verbose := v.GetBool("verbose")
		cfg.level.SetLevel(levelFor(verbose))

		cfg.log.Info("reloaded config",
			zap.String("file", e.Name),
			zap.Bool("verbose", verbose))
	})
	v.WatchConfig()
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PROMPTPARTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "promptparty",
		Short:         "A collection of LLM-powered mini-games, packed in a single webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfigFile(cfg, v, cmd.Flags()); err != nil {
				return err
			}

			if err := cfg.validate(); err != nil {
				return err
			}

			log, level, err := newLogger(cfg.logFile, cfg.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cfg.log, cfg.level = log, level

			watchConfigFile(cfg, v)

			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.apiKey, "api-key", "", "API key for the completion endpoint (env: PROMPTPARTY_API_KEY)")
	fs.StringVar(&cfg.apiURL, "api-url", llm.DefaultURL, "base URL of an OpenAI-compatible completion API (env: PROMPTPARTY_API_URL)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PROMPTPARTY_BIND)")
	fs.StringVar(&cfg.configFile, "config", "", "path to a config file, watched for changes (env: PROMPTPARTY_CONFIG)")
	fs.DurationVar(&cfg.generatorTimeout, "generator-timeout", 45*time.Second, "timeout for each completion request (env: PROMPTPARTY_GENERATOR_TIMEOUT)")
	fs.StringVar(&cfg.logFile, "log-file", "", "also write JSON logs to this file, rotated (env: PROMPTPARTY_LOG_FILE)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "serve prometheus metrics at /metrics (env: PROMPTPARTY_METRICS)")
	fs.StringVar(&cfg.model, "model", llm.DefaultModel, "model name to request completions from (env: PROMPTPARTY_MODEL)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PROMPTPARTY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PROMPTPARTY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PROMPTPARTY_PROFILE)")
	fs.IntVar(&cfg.rateLimit, "rate-limit", 30, "API requests per minute per client, 0 to disable (env: PROMPTPARTY_RATE_LIMIT)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: PROMPTPARTY_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PROMPTPARTY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PROMPTPARTY_TLS_KEY)")
	fs.BoolVar(&cfg.trustProxy, "trust-proxy", false, "rate limit by CF-Connecting-IP/X-Real-IP instead of the peer address (env: PROMPTPARTY_TRUST_PROXY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PROMPTPARTY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PROMPTPARTY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("promptparty v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
