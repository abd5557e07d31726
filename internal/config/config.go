// Package config loads the tool configuration from defaults, an optional
// YAML file and SIMYARD_* environment variables, in that order of
// precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the full configuration tree.
type Config struct {
	Log     Log     `mapstructure:"log"`
	Cache   Cache   `mapstructure:"cache"`
	Exec    Exec    `mapstructure:"exec"`
	IOS     IOS     `mapstructure:"ios"`
	Android Android `mapstructure:"android"`
	Server  Server  `mapstructure:"server"`
}

// Log controls the logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Cache controls the device listing cache.
type Cache struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Exec controls how external tools are run.
type Exec struct {
	// Timeout is the wall-clock budget for a single tool invocation.
	Timeout time.Duration `mapstructure:"timeout"`
}

// IOS configures the simulator backend.
type IOS struct {
	Enabled       bool          `mapstructure:"enabled"`
	Xcrun         string        `mapstructure:"xcrun"`
	Open          string        `mapstructure:"open"`
	ViewerApp     string        `mapstructure:"viewer_app"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	BootAttempts  int           `mapstructure:"boot_attempts"`
	DrainAttempts int           `mapstructure:"drain_attempts"`
	Settle        time.Duration `mapstructure:"settle"`
}

// Android configures the emulator backend.
type Android struct {
	Enabled             bool          `mapstructure:"enabled"`
	Adb                 string        `mapstructure:"adb"`
	Emulator            string        `mapstructure:"emulator"`
	AvdHome             string        `mapstructure:"avd_home"`
	Skin                string        `mapstructure:"skin"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	BootAttempts        int           `mapstructure:"boot_attempts"`
	ShutdownAttempts    int           `mapstructure:"shutdown_attempts"`
	InstallBootAttempts int           `mapstructure:"install_boot_attempts"`
	Settle              time.Duration `mapstructure:"settle"`
}

// Server configures the HTTP daemon.
type Server struct {
	Addr          string        `mapstructure:"addr"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("cache.ttl", 3*time.Second)
	v.SetDefault("exec.timeout", 30*time.Second)

	v.SetDefault("ios.enabled", true)
	v.SetDefault("ios.xcrun", "xcrun")
	v.SetDefault("ios.open", "open")
	v.SetDefault("ios.viewer_app", "Simulator")
	v.SetDefault("ios.poll_interval", time.Second)
	v.SetDefault("ios.boot_attempts", 20)
	v.SetDefault("ios.drain_attempts", 15)
	v.SetDefault("ios.settle", 3*time.Second)

	v.SetDefault("android.enabled", true)
	v.SetDefault("android.adb", "adb")
	v.SetDefault("android.emulator", "emulator")
	v.SetDefault("android.avd_home", "")
	v.SetDefault("android.skin", "1080x2340")
	v.SetDefault("android.poll_interval", time.Second)
	v.SetDefault("android.boot_attempts", 60)
	v.SetDefault("android.shutdown_attempts", 15)
	v.SetDefault("android.install_boot_attempts", 60)
	v.SetDefault("android.settle", 3*time.Second)

	v.SetDefault("server.addr", "127.0.0.1:7433")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_grace", 5*time.Second)
}

// Load reads the configuration. With an empty path the file is searched in
// ~/.config/simyard and the working directory, and not finding one is fine;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SIMYARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("simyard")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.config/simyard")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q (want text or json)", c.Log.Format)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if c.Exec.Timeout <= 0 {
		return fmt.Errorf("exec.timeout must be positive")
	}
	if !c.IOS.Enabled && !c.Android.Enabled {
		return fmt.Errorf("at least one platform must be enabled")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	return nil
}
