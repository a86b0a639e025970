package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/masteryee/nest-events/internal/auth"
	"github.com/masteryee/nest-events/internal/detect"
	"github.com/masteryee/nest-events/internal/logging"
	"github.com/masteryee/nest-events/internal/notify"
)

const (
	fileName  = ".nest-events"
	envPrefix = "NEST_EVENTS"
)

type Config struct {
	ClientID          string        `mapstructure:"client_id"`
	ClientSecret      string        `mapstructure:"client_secret"`
	AuthorizeURL      string        `mapstructure:"authorize_url"`
	TokenURL          string        `mapstructure:"token_url"`
	APIURL            string        `mapstructure:"api_url"`
	RedirectURL       string        `mapstructure:"redirect_url"`
	TrustedHostSuffix string        `mapstructure:"trusted_host_suffix"`
	TokenFile         string        `mapstructure:"token_file"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	Timezone          string        `mapstructure:"timezone"`
	StatusAddr        string        `mapstructure:"status_addr"`

	Policy PolicyConfig `mapstructure:"policy"`
	Log    LogConfig    `mapstructure:"log"`
	Notify NotifyConfig `mapstructure:"notify"`
}

type PolicyConfig struct {
	DebounceWindow time.Duration `mapstructure:"debounce_window"`
	QuietStart     string        `mapstructure:"quiet_start"`
	QuietEnd       string        `mapstructure:"quiet_end"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type NotifyConfig struct {
	Log         bool          `mapstructure:"log"`
	NATS        NATSConfig    `mapstructure:"nats"`
	Webhook     WebhookConfig `mapstructure:"webhook"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	Burst       int           `mapstructure:"burst"`
	Breaker     BreakerConfig `mapstructure:"breaker"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type BreakerConfig struct {
	Failures uint32        `mapstructure:"failures"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// SetDefaults registers every key so env overrides work without a file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("client_id", "")
	v.SetDefault("client_secret", "")
	v.SetDefault("authorize_url", "https://home.nest.com/login/oauth2")
	v.SetDefault("token_url", "https://api.home.nest.com/oauth2/access_token")
	v.SetDefault("api_url", "https://developer-api.nest.com")
	v.SetDefault("redirect_url", "http://localhost:9999/")
	v.SetDefault("trusted_host_suffix", ".nest.com")
	v.SetDefault("token_file", auth.DefaultTokenPath())
	v.SetDefault("reconnect_delay", "5s")
	v.SetDefault("timezone", "")
	v.SetDefault("status_addr", ":9110")

	v.SetDefault("policy.debounce_window", "1m")
	v.SetDefault("policy.quiet_start", "07:00")
	v.SetDefault("policy.quiet_end", "09:30")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("notify.log", true)
	v.SetDefault("notify.nats.url", "")
	v.SetDefault("notify.nats.subject", notify.DefaultSubject)
	v.SetDefault("notify.webhook.url", "")
	v.SetDefault("notify.webhook.headers", map[string]string{})
	v.SetDefault("notify.min_interval", "0s")
	v.SetDefault("notify.burst", 1)
	v.SetDefault("notify.breaker.failures", 5)
	v.SetDefault("notify.breaker.cooldown", "1m")
}

// readErr holds a config file that exists but could not be parsed.
var readErr error

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	readErr = nil
	SetDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".nest-events" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(fileName)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// A missing file is fine; a broken one is reported by Load.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			readErr = err
		}
	}
}

// Load decodes and validates the global viper configuration.
func Load() (*Config, error) {
	if readErr != nil {
		return nil, fmt.Errorf("read config file: %w", readErr)
	}
	return FromViper(viper.GetViper())
}

func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks everything that would otherwise fail late at runtime.
// Client credentials are checked by the authorization flow instead, since
// commands like "events replay" never need them.
func (c *Config) Validate() error {
	var errs []error

	for key, raw := range map[string]string{
		"authorize_url": c.AuthorizeURL,
		"token_url":     c.TokenURL,
		"api_url":       c.APIURL,
		"redirect_url":  c.RedirectURL,
	} {
		if err := checkURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if c.Notify.Webhook.URL != "" {
		if err := checkURL(c.Notify.Webhook.URL); err != nil {
			errs = append(errs, fmt.Errorf("notify.webhook.url: %w", err))
		}
	}

	if c.TokenFile == "" {
		errs = append(errs, errors.New("token_file must not be empty"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if _, err := detect.ParseClock(c.Policy.QuietStart); err != nil {
		errs = append(errs, fmt.Errorf("policy.quiet_start: %w", err))
	}
	if _, err := detect.ParseClock(c.Policy.QuietEnd); err != nil {
		errs = append(errs, fmt.Errorf("policy.quiet_end: %w", err))
	}

	for key, d := range map[string]time.Duration{
		"reconnect_delay":         c.ReconnectDelay,
		"policy.debounce_window":  c.Policy.DebounceWindow,
		"notify.min_interval":     c.Notify.MinInterval,
		"notify.breaker.cooldown": c.Notify.Breaker.Cooldown,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", key))
		}
	}
	if c.Notify.Burst < 0 {
		errs = append(errs, errors.New("notify.burst must not be negative"))
	}

	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be json or console, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}

// Location resolves the configured timezone, system local when empty.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// DetectPolicy builds the classifier policy. Call after Validate.
func (c *Config) DetectPolicy() detect.Policy {
	start, _ := detect.ParseClock(c.Policy.QuietStart)
	end, _ := detect.ParseClock(c.Policy.QuietEnd)
	loc, err := c.Location()
	if err != nil {
		loc = time.Local
	}
	return detect.Policy{
		Window:     c.Policy.DebounceWindow,
		QuietStart: start,
		QuietEnd:   end,
		Location:   loc,
	}
}

func (c *Config) AuthConfig() auth.Config {
	return auth.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		AuthorizeURL: c.AuthorizeURL,
		TokenURL:     c.TokenURL,
		RedirectURL:  c.RedirectURL,
	}
}

func (c *Config) GuardConfig(name string) notify.GuardConfig {
	return notify.GuardConfig{
		Name:        name,
		MinInterval: c.Notify.MinInterval,
		Burst:       c.Notify.Burst,
		Failures:    c.Notify.Breaker.Failures,
		Cooldown:    c.Notify.Breaker.Cooldown,
	}
}

func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}

// SaveClient stores the OAuth client credentials in the config file.
func SaveClient(clientID, clientSecret string) error {
	viper.Set("client_id", clientID)
	viper.Set("client_secret", clientSecret)

	// Ensure the file exists before writing
	if err := viper.WriteConfig(); err != nil {
		// If file doesn't exist, create it
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return viper.SafeWriteConfig()
		}
		// If it exists but failed to write, try writing to default path
		home, _ := os.UserHomeDir()
		path := filepath.Join(home, fileName+".yaml")
		return viper.WriteConfigAs(path)
	}
	return nil
}
