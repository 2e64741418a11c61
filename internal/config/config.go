// Package config loads pointcast settings from flags, environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ayusman/pointcast/internal/capture"
	"github.com/ayusman/pointcast/internal/logging"
	"github.com/ayusman/pointcast/internal/pointing"
)

// EnvPrefix prefixes environment overrides, e.g. POINTCAST_TOLERANCE.
const EnvPrefix = "POINTCAST"

// ErrInvalid marks errors caused by bad arguments rather than the environment.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every setting of a run.
type Config struct {
	CameraID   int    `mapstructure:"cameraid"`
	Tolerance  int    `mapstructure:"tolerance"`
	Output     string `mapstructure:"output"`
	Verbose    bool   `mapstructure:"verbose"`
	FPS        int    `mapstructure:"fps"`
	Subtractor string `mapstructure:"subtractor"`
	History    int    `mapstructure:"history"`
	Shadows    bool   `mapstructure:"shadows"`
	Show       bool   `mapstructure:"show"`
	Record     string `mapstructure:"record"`
	Listen     string `mapstructure:"listen"`
	LogFormat  string `mapstructure:"log-format"`
	ConfigFile string `mapstructure:"config"`

	// Width and Height select scaled output when both are set.
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// NewFlagSet defines the command-line flags. Defaults shown in help come from here.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.IntP("cameraid", "c", 0, "Camera ID to use")
	fs.IntP("tolerance", "t", pointing.DefaultTolerance, "Border around edges of camera to not search for pixels")
	fs.StringP("output", "o", "", "Create a named pipe at this path and write results there instead of stdout")
	fs.BoolP("verbose", "v", false, "Log per-frame diagnostics to stderr")
	fs.Int("fps", capture.DefaultFPS, "Target frame rate")
	fs.String("subtractor", capture.DefaultForegroundKind, "Foreground model: knn, mog2 or diff")
	fs.Int("history", capture.DefaultHistory, "Frames of history for the background model")
	fs.Bool("shadows", capture.DefaultDetectShadows, "Let the background model mark shadows")
	fs.Bool("show", false, "Show a preview window; ESC quits")
	fs.String("record", "", "SQLite file to record run sessions in")
	fs.String("listen", "", "Address for the HTTP health and websocket event server")
	fs.String("log-format", logging.FormatConsole, "Log format: console or json")
	fs.String("config", "", "YAML config file")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] [width height]\n\n", name)
		fmt.Fprintf(fs.Output(), "Streams the point a finger is aimed at, one line per frame.\n")
		fmt.Fprintf(fs.Output(), "With width and height, coordinates are scaled to that resolution.\n\n")
		fs.PrintDefaults()
	}

	return fs
}

// Load merges defaults, the config file, POINTCAST_* variables and the parsed
// flags in fs, lowest precedence first. Positional width/height come from fs.Args().
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.applyArgs(fs.Args()); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cameraid", 0)
	v.SetDefault("tolerance", pointing.DefaultTolerance)
	v.SetDefault("fps", capture.DefaultFPS)
	v.SetDefault("subtractor", capture.DefaultForegroundKind)
	v.SetDefault("history", capture.DefaultHistory)
	v.SetDefault("shadows", capture.DefaultDetectShadows)
	v.SetDefault("log-format", logging.FormatConsole)
	v.SetDefault("width", 0)
	v.SetDefault("height", 0)
}

func (c *Config) applyArgs(args []string) error {
	switch len(args) {
	case 0:
		return nil
	case 2:
	default:
		return fmt.Errorf("%w: expected width and height, got %d positional arguments", ErrInvalid, len(args))
	}

	w, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: width %q is not an integer", ErrInvalid, args[0])
	}
	h, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: height %q is not an integer", ErrInvalid, args[1])
	}

	c.Width = w
	c.Height = h
	return nil
}

// Validate checks ranges and combinations that flags alone cannot express.
func (c *Config) Validate() error {
	if c.CameraID < 0 {
		return fmt.Errorf("%w: camera id must not be negative", ErrInvalid)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must not be negative", ErrInvalid)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive", ErrInvalid)
	}

	switch c.Subtractor {
	case capture.KindKNN, capture.KindMOG2, capture.KindDiff:
	default:
		return fmt.Errorf("%w: unknown subtractor %q", ErrInvalid, c.Subtractor)
	}

	switch c.LogFormat {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.LogFormat)
	}

	if (c.Width == 0) != (c.Height == 0) {
		return fmt.Errorf("%w: width and height must be given together", ErrInvalid)
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("%w: width and height must be positive", ErrInvalid)
	}

	return nil
}

// Target returns the output resolution, or nil for normalized output.
func (c *Config) Target() *image.Point {
	if c.Width == 0 && c.Height == 0 {
		return nil
	}
	return &image.Point{X: c.Width, Y: c.Height}
}

// Foreground returns the foreground model settings.
func (c *Config) Foreground() capture.ForegroundConfig {
	return capture.ForegroundConfig{
		Kind:          c.Subtractor,
		History:       c.History,
		DetectShadows: c.Shadows,
	}
}
