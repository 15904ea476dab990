package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const DefaultUserAgent = "beacon-agent/1.0"

type TransportConfig struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	Headers            map[string]string
}

// AppConfig is read once at startup and never changes afterwards.
type AppConfig struct {
	ServerURL        string
	UseEncryption    bool
	Debug            bool
	CallbackInterval time.Duration
	KillDate         string
	KeyRotation      time.Duration
	PSK              string
	LogPath          string
	Transport        TransportConfig
}

// Flags returns the command line surface. Values set here override the
// config file and BEACON_* environment variables.
func Flags() *pflag.FlagSet {
	set := pflag.NewFlagSet("beacon", pflag.ContinueOnError)
	set.String("config", "config/config.yaml", "Path to configuration file")
	set.String("server-url", "", "Callback endpoint URL")
	set.Bool("debug", false, "Enable debug logging")
	set.Bool("encryption", true, "Encrypt message bodies with the session key")
	set.Int("interval", 5, "Callback interval in seconds")
	set.String("kill-date", "", "Date (YYYY-MM-DD) after which the agent stops")
	set.String("log-path", "", "Append logs to this file instead of stdout")
	set.Bool("insecure-skip-verify", false, "Do not verify the server TLS certificate")
	return set
}

var flagKeys = map[string]string{
	"server-url":           "agent.server_url",
	"debug":                "agent.debug",
	"encryption":           "agent.use_encryption",
	"interval":             "agent.callback_interval",
	"kill-date":            "agent.kill_date",
	"log-path":             "agent.log_path",
	"insecure-skip-verify": "transport.insecure_skip_verify",
}

// Load resolves configuration from defaults, the YAML file named by the
// "config" flag, the environment and flags, in increasing priority.
// A missing config file is not an error.
func Load(flags *pflag.FlagSet) (AppConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BEACON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// defaults
	v.SetDefault("agent.server_url", "")
	v.SetDefault("agent.use_encryption", true)
	v.SetDefault("agent.debug", false)
	v.SetDefault("agent.callback_interval", 5)
	v.SetDefault("agent.kill_date", "")
	v.SetDefault("agent.key_rotation", 3600)
	v.SetDefault("agent.psk", "")
	v.SetDefault("agent.log_path", "")
	v.SetDefault("transport.timeout", 10)
	v.SetDefault("transport.insecure_skip_verify", false)
	v.SetDefault("transport.headers", map[string]string{
		"User-Agent":    DefaultUserAgent,
		"Accept":        "*/*",
		"Cache-Control": "no-cache",
	})

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return AppConfig{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return AppConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := AppConfig{
		ServerURL:        strings.TrimSpace(v.GetString("agent.server_url")),
		UseEncryption:    v.GetBool("agent.use_encryption"),
		Debug:            v.GetBool("agent.debug"),
		CallbackInterval: seconds(v.GetInt("agent.callback_interval")),
		KillDate:         strings.TrimSpace(v.GetString("agent.kill_date")),
		KeyRotation:      seconds(v.GetInt("agent.key_rotation")),
		PSK:              strings.TrimSpace(v.GetString("agent.psk")),
		LogPath:          v.GetString("agent.log_path"),
		Transport: TransportConfig{
			Timeout:            seconds(v.GetInt("transport.timeout")),
			InsecureSkipVerify: v.GetBool("transport.insecure_skip_verify"),
			Headers:            v.GetStringMapString("transport.headers"),
		},
	}
	return cfg, cfg.Validate()
}

func (c AppConfig) Validate() error {
	if c.ServerURL == "" {
		return errors.New("agent.server_url is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("agent.server_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("agent.server_url: unsupported scheme %q", u.Scheme)
	}
	if c.CallbackInterval <= 0 {
		return errors.New("agent.callback_interval must be positive")
	}
	if c.KeyRotation <= 0 {
		return errors.New("agent.key_rotation must be positive")
	}
	if c.Transport.Timeout <= 0 {
		return errors.New("transport.timeout must be positive")
	}
	return nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
