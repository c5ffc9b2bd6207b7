// Package config loads the signing station configuration from a YAML or
// TOML file, applies environment overrides and validates the result.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/juruen/sigpad/model"
)

const (
	EnvEndpoint = "SIGPAD_ENDPOINT"
	EnvToken    = "SIGPAD_TOKEN"
	EnvDevice   = "SIGPAD_DEVICE"
	EnvConfig   = "SIGPAD_CONFIG"

	DeviceEvdev  = "evdev"
	DeviceReplay = "replay"

	defaultFile = "config.yaml"
)

// Duration reads "30s" style strings from both formats.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", string(b))
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

type Size struct {
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`
}

type Pen struct {
	Color       string  `yaml:"color" toml:"color"`
	Width       float64 `yaml:"width" toml:"width"`
	WritingMode int     `yaml:"writing_mode" toml:"writing_mode"`
}

type Device struct {
	// Kind is evdev or replay.
	Kind string `yaml:"kind" toml:"kind"`
	// Path is the event node for evdev (empty to search for a tablet)
	// or the trace file for replay.
	Path     string   `yaml:"path" toml:"path"`
	MaxX     int32    `yaml:"max_x" toml:"max_x"`
	MaxY     int32    `yaml:"max_y" toml:"max_y"`
	Interval Duration `yaml:"interval" toml:"interval"`
}

type Form struct {
	File   string            `yaml:"file" toml:"file"`
	Fields map[string]string `yaml:"fields" toml:"fields"`
}

type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type Config struct {
	Endpoint          string   `yaml:"endpoint" toml:"endpoint"`
	Token             string   `yaml:"token" toml:"token"`
	Timeout           Duration `yaml:"timeout" toml:"timeout"`
	SignatureField    string   `yaml:"signature_field" toml:"signature_field"`
	DeliveryTypeField string   `yaml:"delivery_type_field" toml:"delivery_type_field"`
	DeliveryType      string   `yaml:"delivery_type" toml:"delivery_type"`
	Canvas            Size     `yaml:"canvas" toml:"canvas"`
	Export            Size     `yaml:"export" toml:"export"`
	Pen               Pen      `yaml:"pen" toml:"pen"`
	SettleDelay       Duration `yaml:"settle_delay" toml:"settle_delay"`
	Device            Device   `yaml:"device" toml:"device"`
	Form              Form     `yaml:"form" toml:"form"`
	Log               Log      `yaml:"log" toml:"log"`
}

func Default() Config {
	return Config{
		Timeout:           Duration(30 * time.Second),
		SignatureField:    "signature_image",
		DeliveryTypeField: "delivery_type",
		DeliveryType:      "EPP",
		Canvas:            Size{Width: 800, Height: 480},
		Pen: Pen{
			Color:       model.DefaultStyle.Color.Hex(),
			Width:       model.DefaultStyle.Width,
			WritingMode: 1,
		},
		SettleDelay: Duration(300 * time.Millisecond),
		Device:      Device{Kind: DeviceEvdev},
		Log:         Log{Level: "info", Format: "console"},
	}
}

// DefaultPath returns config.yaml under the user config directory,
// falling back to ~/.sigpad when there is none.
func DefaultPath() (string, error) {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sigpad", defaultFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "can't find a config directory")
	}
	return filepath.Join(home, ".sigpad", defaultFile), nil
}

// Load reads path over the defaults, applies the environment and
// validates. An empty path means $SIGPAD_CONFIG or DefaultPath, and a
// missing default file is not an error.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Read is Load without validation.
func Read(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p := os.Getenv(EnvConfig); p != "" {
			path, explicit = p, true
		} else {
			p, err := DefaultPath()
			if err != nil {
				return cfg, err
			}
			path = p
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Parse(&cfg, data, filepath.Ext(path)); err != nil {
			return cfg, errors.Wrapf(err, "can't load %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return cfg, errors.Wrap(err, "can't read config")
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// Parse decodes data into cfg by file extension: .toml is TOML,
// anything else YAML.
func Parse(cfg *Config, data []byte, ext string) error {
	if strings.EqualFold(ext, ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// ApplyEnv overrides the endpoint, token and device path from the
// environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvEndpoint); ok && v != "" {
		c.Endpoint = v
	}
	if v, ok := lookup(EnvToken); ok {
		c.Token = v
	}
	if v, ok := lookup(EnvDevice); ok && v != "" {
		c.Device.Path = v
	}
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if _, err := url.ParseRequestURI(c.Endpoint); err != nil {
		return errors.Wrap(err, "invalid endpoint")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.SettleDelay < 0 {
		return errors.New("settle_delay can't be negative")
	}
	if c.SignatureField == "" || c.DeliveryTypeField == "" {
		return errors.New("field names can't be empty")
	}
	if c.SignatureField == c.DeliveryTypeField {
		return errors.New("signature_field and delivery_type_field must differ")
	}
	return c.ValidateLocal()
}

// ValidateLocal checks everything but the submission settings, enough
// for commands that never reach the endpoint.
func (c *Config) ValidateLocal() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return errors.Errorf("invalid canvas size %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Export.Width < 0 || c.Export.Height < 0 {
		return errors.Errorf("invalid export size %dx%d", c.Export.Width, c.Export.Height)
	}
	if _, err := c.Style(); err != nil {
		return err
	}
	switch c.Device.Kind {
	case DeviceEvdev:
	case DeviceReplay:
		if c.Device.Path == "" {
			return errors.New("replay device needs a trace path")
		}
	default:
		return errors.Errorf("unknown device kind %q", c.Device.Kind)
	}
	if c.Device.Interval < 0 {
		return errors.New("device interval can't be negative")
	}
	if !logLevels[strings.ToLower(c.Log.Level)] {
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return errors.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Style is the pen as a surface style.
func (c *Config) Style() (model.Style, error) {
	color, err := model.ParseRGBA(c.Pen.Color)
	if err != nil {
		return model.Style{}, errors.Wrap(err, "invalid pen color")
	}
	if c.Pen.Width <= 0 {
		return model.Style{}, errors.Errorf("invalid pen width %g", c.Pen.Width)
	}
	return model.Style{Color: color, Width: c.Pen.Width}, nil
}

// LogLevel returns the level name the log package understands.
func (c *Config) LogLevel() string {
	if l := strings.ToLower(c.Log.Level); l != "warning" {
		return l
	}
	return "warn"
}
