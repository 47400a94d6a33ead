// Package config loads settings from flags, environment and an optional
// config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/soar/dsmapper/internal/engine"
	"github.com/soar/dsmapper/internal/gamepad"
	"github.com/soar/dsmapper/internal/inject"
	"github.com/soar/dsmapper/internal/mapper"
)

const (
	appName   = "dsmapper"
	envPrefix = "DSMAPPER"
)

type Stick struct {
	Deadzone    float64 `mapstructure:"deadzone"`
	Sensitivity float64 `mapstructure:"sensitivity"`
}

type Mouse struct {
	Sensitivity  float64 `mapstructure:"sensitivity"`
	Acceleration float64 `mapstructure:"acceleration"`
	Smoothing    float64 `mapstructure:"smoothing"`
	MinMove      float64 `mapstructure:"min_move"`
	MaxSpeed     float64 `mapstructure:"max_speed"`
}

type Device struct {
	Name       string        `mapstructure:"name"`
	OnMismatch string        `mapstructure:"on_mismatch"`
	Retry      time.Duration `mapstructure:"retry"`
}

// Config is the complete runtime configuration.
type Config struct {
	Stick            Stick         `mapstructure:"stick"`
	Mouse            Mouse         `mapstructure:"mouse"`
	Device           Device        `mapstructure:"device"`
	RateLimit        time.Duration `mapstructure:"rate_limit"`
	TriggerThreshold float64       `mapstructure:"trigger_threshold"`
	ErrorPause       time.Duration `mapstructure:"error_pause"`
	Uinput           string        `mapstructure:"uinput"`
	Listen           string        `mapstructure:"listen"`
	Tray             bool          `mapstructure:"tray"`
	Debug            bool          `mapstructure:"debug"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	s := mapper.DefaultSettings()
	v.SetDefault("stick.deadzone", s.StickDeadzone)
	v.SetDefault("stick.sensitivity", s.StickSensitivity)
	v.SetDefault("mouse.sensitivity", s.MouseSensitivity)
	v.SetDefault("mouse.acceleration", s.MouseAcceleration)
	v.SetDefault("mouse.smoothing", s.MouseSmoothing)
	v.SetDefault("mouse.min_move", s.MouseMinMove)
	v.SetDefault("mouse.max_speed", s.MaxMouseSpeed)
	v.SetDefault("rate_limit", s.RateLimit)
	v.SetDefault("trigger_threshold", s.TriggerThreshold)
	v.SetDefault("device.name", gamepad.DefaultDeviceName)
	v.SetDefault("device.on_mismatch", gamepad.MismatchStop.String())
	v.SetDefault("device.retry", time.Second)
	v.SetDefault("error_pause", time.Second)
	v.SetDefault("uinput", inject.DefaultDevice)
	v.SetDefault("listen", "127.0.0.1:8080")
	v.SetDefault("tray", runtime.GOOS == "windows")
	v.SetDefault("debug", false)
}

// flags declares the command line. Flag names use dashes; they are bound to
// the dotted config keys.
func flags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.String("config", "", "config file (default: dsmapper.{yaml,toml,json} in . or ~/.config/dsmapper)")
	fs.Float64("deadzone", 0, "stick deadzone")
	fs.Float64("sensitivity", 0, "mouse sensitivity")
	fs.Float64("acceleration", 0, "mouse acceleration exponent")
	fs.Float64("max-mouse-speed", 0, "maximum pointer displacement per tick on either axis")
	fs.Duration("rate-limit", 0, "minimum interval between ticks")
	fs.String("device-name", "", "expected controller name substring")
	fs.String("on-mismatch", "", "what to do with other controllers: stop or warn")
	fs.String("uinput", "", "uinput device node (Linux)")
	fs.String("listen", "", "status page address; empty string disables it")
	fs.Bool("tray", false, "show the system tray icon")
	fs.BoolP("debug", "v", false, "log every input event")

	bindings := map[string]string{
		"deadzone":        "stick.deadzone",
		"sensitivity":     "mouse.sensitivity",
		"acceleration":    "mouse.acceleration",
		"max-mouse-speed": "mouse.max_speed",
		"rate-limit":      "rate_limit",
		"device-name":     "device.name",
		"on-mismatch":     "device.on_mismatch",
		"uinput":          "uinput",
		"listen":          "listen",
		"tray":            "tray",
		"debug":           "debug",
	}
	for flag, key := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

// Load parses args (without the program name) and returns the merged
// configuration. Precedence: flags, environment, config file, defaults.
func Load(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	if err := flags(fs, v); err != nil {
		return nil, err
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file, _ := fs.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(appName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", appName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the mapper cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Stick.Deadzone < 0 || c.Stick.Deadzone >= 1 {
		errs = append(errs, fmt.Errorf("stick.deadzone must be in [0,1), got %v", c.Stick.Deadzone))
	}
	if c.Stick.Sensitivity <= 0 {
		errs = append(errs, fmt.Errorf("stick.sensitivity must be positive, got %v", c.Stick.Sensitivity))
	}
	if c.Mouse.Sensitivity <= 0 {
		errs = append(errs, fmt.Errorf("mouse.sensitivity must be positive, got %v", c.Mouse.Sensitivity))
	}
	if c.Mouse.Acceleration <= 0 {
		errs = append(errs, fmt.Errorf("mouse.acceleration must be positive, got %v", c.Mouse.Acceleration))
	}
	if c.Mouse.Smoothing <= 0 || c.Mouse.Smoothing > 1 {
		errs = append(errs, fmt.Errorf("mouse.smoothing must be in (0,1], got %v", c.Mouse.Smoothing))
	}
	if c.Mouse.MinMove < 0 {
		errs = append(errs, fmt.Errorf("mouse.min_move must not be negative, got %v", c.Mouse.MinMove))
	}
	if c.Mouse.MaxSpeed < 1 {
		errs = append(errs, fmt.Errorf("mouse.max_speed must be at least 1, got %v", c.Mouse.MaxSpeed))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %v", c.RateLimit))
	}
	if c.TriggerThreshold <= -1 || c.TriggerThreshold > 1 {
		errs = append(errs, fmt.Errorf("trigger_threshold must be in (-1,1], got %v", c.TriggerThreshold))
	}
	if c.Device.Retry <= 0 {
		errs = append(errs, fmt.Errorf("device.retry must be positive, got %v", c.Device.Retry))
	}
	if _, err := gamepad.ParseMismatchPolicy(c.Device.OnMismatch); err != nil {
		errs = append(errs, fmt.Errorf("device.on_mismatch: %w", err))
	}
	return errors.Join(errs...)
}

// Settings returns the dispatcher tuning.
func (c *Config) Settings() mapper.Settings {
	return mapper.Settings{
		StickDeadzone:     c.Stick.Deadzone,
		StickSensitivity:  c.Stick.Sensitivity,
		MouseSensitivity:  c.Mouse.Sensitivity,
		MouseAcceleration: c.Mouse.Acceleration,
		MouseSmoothing:    c.Mouse.Smoothing,
		MouseMinMove:      c.Mouse.MinMove,
		MaxMouseSpeed:     c.Mouse.MaxSpeed,
		RateLimit:         c.RateLimit,
		TriggerThreshold:  c.TriggerThreshold,
	}
}

// Engine returns the poll loop configuration.
func (c *Config) Engine() engine.Config {
	policy, _ := gamepad.ParseMismatchPolicy(c.Device.OnMismatch)
	return engine.Config{
		Settings:     c.Settings(),
		ExpectedName: c.Device.Name,
		OnMismatch:   policy,
		Retry:        c.Device.Retry,
		ErrorPause:   c.ErrorPause,
		Debug:        c.Debug,
	}
}
