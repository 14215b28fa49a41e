// Package config handles application configuration: command-line flags, environment
// variables and the optional JSON config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultConfigPath = "imgupd_data/config.json"
	DefaultDelay      = 500
	DefaultStack      = 10
	DefaultVersion    = "ygopro2"
	DefaultType       = "allimages"
	DefaultStyle      = "series10"
	DefaultListStyle  = "series9"
	DefaultOwner      = "shadowfox87"
	DefaultBranch     = "master"
	DefaultLogFormat  = "console"
)

// Backend selects where images come from.
type Backend int

const (
	// FileHost - raw file host with an update log
	FileHost Backend = iota
	// Listing - folder-listing API with cursor pagination
	Listing
	// S3 - S3-compatible object storage
	S3
	// SFTP - SFTP server
	SFTP
)

// String returns the string representation of Backend
func (b Backend) String() string {
	switch b {
	case FileHost:
		return "filehost"
	case Listing:
		return "listing"
	case S3:
		return "s3"
	case SFTP:
		return "sftp"
	default:
		return "unknown"
	}
}

// ParseBackend parses a string into a Backend
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(s) {
	case "filehost", "github":
		return FileHost, nil
	case "listing", "dropbox":
		return Listing, nil
	case "s3":
		return S3, nil
	case "sftp":
		return SFTP, nil
	default:
		return FileHost, Invalid("backend", "unknown backend %q (valid: filehost, listing, s3, sftp)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg
func (b *Backend) UnmarshalText(text []byte) error {
	parsed, err := ParseBackend(string(text))
	if err != nil {
		return err
	}

	*b = parsed

	return nil
}

// Config holds the application configuration
type Config struct {
	ConfigPath string `arg:"--config" help:"JSON config file (missing or invalid file means defaults)"`

	Delay    int  `arg:"--delay" help:"initial pause between transfers, in milliseconds"`
	Adaptive bool `arg:"--adaptive" help:"tune delay and concurrency from observed transfer times (--adaptive=false to disable)"`
	Stack    int  `arg:"--stack" help:"initial maximum number of concurrent transfers"`
	Debug    bool `arg:"--debug" help:"log throttle adjustments and other diagnostics"`

	Root        string `arg:"--root" help:"game directory (default: current directory)"`
	GameVersion string `arg:"--version" help:"game version: ygopro1|ygopro2"`
	Type        string `arg:"--type" help:"image type: allimages|pics|field|closeup"`
	Style       string `arg:"--style" help:"pic style, e.g. series10, anime, fullartv1, fullartv3, rose, vanguard"`
	Overwrite   bool   `arg:"--overwrite" help:"download every image even if the local copy is up to date"`
	Pattern     string `arg:"--pattern" help:"only consider entries matching this glob (e.g. '*.jpg')"`

	Backend    Backend `arg:"--backend" help:"image source: filehost|listing|s3|sftp"`
	BaseURL    string  `arg:"--base-url" help:"file host base URL"`
	Owner      string  `arg:"--owner" help:"file host repository owner"`
	Branch     string  `arg:"--branch" help:"file host branch"`
	APIURL     string  `arg:"--api-url" help:"listing API base URL"`
	ContentURL string  `arg:"--content-url" help:"listing content base URL"`
	Token      string  `arg:"--token,env:IMGUPD_TOKEN" help:"listing API access token"`
	Bucket     string  `arg:"--bucket" help:"S3 bucket"`
	Endpoint   string  `arg:"--endpoint" help:"S3 endpoint for S3-compatible stores"`
	Region     string  `arg:"--region" help:"S3 region"`
	AccessKey  string  `arg:"--access-key,env:IMGUPD_ACCESS_KEY" help:"S3 access key"`
	SecretKey  string  `arg:"--secret-key,env:IMGUPD_SECRET_KEY" help:"S3 secret key"`
	SFTPURL    string  `arg:"--sftp-url" help:"sftp://user@host[:port]/path holding the image folders"`

	LogFile     string `arg:"--log-file" help:"also write logs to this file"`
	LogFormat   string `arg:"--log-format" help:"console|json"`
	MetricsAddr string `arg:"--metrics-addr" help:"serve Prometheus metrics on this address (e.g. :9090)"`

	// Warnings collected while loading the config file.
	Warnings []string `arg:"-"`
}

// Description returns the program description for go-arg
func (Config) Description() string {
	return "Keeps a game's card, field and close-up images up to date with a remote collection"
}

// Defaults returns the configuration used when neither the file nor flags say otherwise.
func Defaults() *Config {
	return &Config{
		ConfigPath:  DefaultConfigPath,
		Delay:       DefaultDelay,
		Adaptive:    true,
		Stack:       DefaultStack,
		GameVersion: DefaultVersion,
		Type:        DefaultType,
		Style:       DefaultStyle,
		Owner:       DefaultOwner,
		Branch:      DefaultBranch,
		LogFormat:   DefaultLogFormat,
	}
}

// NewParser creates the go-arg parser for cfg.
func NewParser(cfg *Config) (*arg.Parser, error) {
	parser, err := arg.NewParser(arg.Config{Program: "img-updater"}, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build argument parser: %w", err)
	}

	return parser, nil
}

// Parse builds the configuration from args (without the program name): defaults,
// then the config file, then environment and flags. Returns arg.ErrHelp when help
// was requested.
func Parse(args []string) (*Config, error) {
	cfg := Defaults()
	cfg.ConfigPath = configPathFrom(args)
	LoadFile(cfg)

	parser, err := NewParser(cfg)
	if err != nil {
		return nil, err
	}

	if err := parser.Parse(args); err != nil {
		if errors.Is(err, arg.ErrHelp) {
			return nil, arg.ErrHelp
		}

		var configErr *ConfigurationError
		if errors.As(err, &configErr) {
			return nil, configErr
		}

		return nil, Invalid("arguments", "%v", err)
	}

	return PostProcessConfig(cfg)
}

// PostProcessConfig applies post-processing logic to a parsed config
func PostProcessConfig(cfg *Config) (*Config, error) {
	if cfg.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot determine working directory: %w", err)
		}

		cfg.Root = wd
	}

	// The listing backend names its default style differently.
	if cfg.Backend == Listing && cfg.Style == DefaultStyle {
		cfg.Style = DefaultListStyle
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the numeric options and the settings the selected backend needs.
func (cfg *Config) Validate() error {
	if cfg.Delay < 0 {
		return Invalid("delay", "must not be negative, got %d", cfg.Delay)
	}

	if cfg.Stack < 1 {
		return Invalid("stack", "must be at least 1, got %d", cfg.Stack)
	}

	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return Invalid("log-format", "must be console or json, got %q", cfg.LogFormat)
	}

	switch cfg.Backend {
	case FileHost:
		if cfg.Owner == "" {
			return Invalid("owner", "required for the filehost backend")
		}
	case Listing:
		if cfg.Token == "" {
			return Invalid("token", "required for the listing backend (or set IMGUPD_TOKEN)")
		}
	case S3:
		if cfg.Bucket == "" {
			return Invalid("bucket", "required for the s3 backend")
		}
	case SFTP:
		if !strings.HasPrefix(cfg.SFTPURL, "sftp://") {
			return Invalid("sftp-url", "must be an sftp:// URL, got %q", cfg.SFTPURL)
		}
	}

	return nil
}

// DelayDuration returns Delay as a duration.
func (cfg *Config) DelayDuration() time.Duration {
	return time.Duration(cfg.Delay) * time.Millisecond
}

// fileKeys maps config file keys onto the fields they set. "dynamic" is the historical
// name of the adaptive switch.
//
//nolint:gochecknoglobals // Static table
var fileKeys = map[string]func(v *viper.Viper, key string, cfg *Config){
	"delay":        func(v *viper.Viper, k string, c *Config) { c.Delay = v.GetInt(k) },
	"dynamic":      func(v *viper.Viper, k string, c *Config) { c.Adaptive = v.GetBool(k) },
	"adaptive":     func(v *viper.Viper, k string, c *Config) { c.Adaptive = v.GetBool(k) },
	"stack":        func(v *viper.Viper, k string, c *Config) { c.Stack = v.GetInt(k) },
	"debug":        func(v *viper.Viper, k string, c *Config) { c.Debug = v.GetBool(k) },
	"root":         func(v *viper.Viper, k string, c *Config) { c.Root = v.GetString(k) },
	"version":      func(v *viper.Viper, k string, c *Config) { c.GameVersion = v.GetString(k) },
	"type":         func(v *viper.Viper, k string, c *Config) { c.Type = v.GetString(k) },
	"style":        func(v *viper.Viper, k string, c *Config) { c.Style = v.GetString(k) },
	"overwrite":    func(v *viper.Viper, k string, c *Config) { c.Overwrite = v.GetBool(k) },
	"pattern":      func(v *viper.Viper, k string, c *Config) { c.Pattern = v.GetString(k) },
	"base-url":     func(v *viper.Viper, k string, c *Config) { c.BaseURL = v.GetString(k) },
	"owner":        func(v *viper.Viper, k string, c *Config) { c.Owner = v.GetString(k) },
	"branch":       func(v *viper.Viper, k string, c *Config) { c.Branch = v.GetString(k) },
	"api-url":      func(v *viper.Viper, k string, c *Config) { c.APIURL = v.GetString(k) },
	"content-url":  func(v *viper.Viper, k string, c *Config) { c.ContentURL = v.GetString(k) },
	"token":        func(v *viper.Viper, k string, c *Config) { c.Token = v.GetString(k) },
	"bucket":       func(v *viper.Viper, k string, c *Config) { c.Bucket = v.GetString(k) },
	"endpoint":     func(v *viper.Viper, k string, c *Config) { c.Endpoint = v.GetString(k) },
	"region":       func(v *viper.Viper, k string, c *Config) { c.Region = v.GetString(k) },
	"sftp-url":     func(v *viper.Viper, k string, c *Config) { c.SFTPURL = v.GetString(k) },
	"log-file":     func(v *viper.Viper, k string, c *Config) { c.LogFile = v.GetString(k) },
	"log-format":   func(v *viper.Viper, k string, c *Config) { c.LogFormat = v.GetString(k) },
	"metrics-addr": func(v *viper.Viper, k string, c *Config) { c.MetricsAddr = v.GetString(k) },
	"backend": func(v *viper.Viper, k string, c *Config) {
		if backend, err := ParseBackend(v.GetString(k)); err == nil {
			c.Backend = backend
		} else {
			c.Warnings = append(c.Warnings, err.Error())
		}
	},
}

// LoadFile overlays the JSON file at cfg.ConfigPath onto cfg. A missing or unreadable
// file leaves cfg unchanged and records a warning.
func LoadFile(cfg *Config) {
	if cfg.ConfigPath == "" {
		return
	}

	if _, err := os.Stat(cfg.ConfigPath); errors.Is(err, fs.ErrNotExist) {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s is missing, using defaults", cfg.ConfigPath))

		return
	}

	v := viper.New()
	v.SetConfigFile(cfg.ConfigPath)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s contains errors, using defaults: %v", cfg.ConfigPath, err))

		return
	}

	for key, apply := range fileKeys {
		if v.IsSet(key) {
			apply(v, key, cfg)
		}
	}
}

// configPathFrom finds --config in args before the full parse, so the file can supply
// defaults that flags then override.
func configPathFrom(args []string) string {
	for i, a := range args {
		if value, ok := strings.CutPrefix(a, "--config="); ok {
			return value
		}

		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}

	return DefaultConfigPath
}
