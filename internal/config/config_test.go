package config

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/pointcast/internal/capture"
	"github.com/ayusman/pointcast/internal/pointing"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := NewFlagSet("pointcast")
	require.NoError(t, fs.Parse(args))
	return Load(fs)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.CameraID)
	assert.Equal(t, pointing.DefaultTolerance, cfg.Tolerance)
	assert.Equal(t, capture.DefaultFPS, cfg.FPS)
	assert.Equal(t, capture.KindKNN, cfg.Subtractor)
	assert.Equal(t, capture.DefaultHistory, cfg.History)
	assert.True(t, cfg.Shadows)
	assert.Empty(t, cfg.Output)
	assert.False(t, cfg.Verbose)
	assert.Nil(t, cfg.Target())
	assert.Equal(t, capture.DefaultForegroundConfig(), cfg.Foreground())
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := load(t, "-c", "2", "-t", "25", "-o", "/tmp/points", "-v", "--subtractor", "mog2", "--shadows=false", "1920", "1080")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.CameraID)
	assert.Equal(t, 25, cfg.Tolerance)
	assert.Equal(t, "/tmp/points", cfg.Output)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, &image.Point{X: 1920, Y: 1080}, cfg.Target())

	fg := cfg.Foreground()
	assert.Equal(t, capture.KindMOG2, fg.Kind)
	assert.False(t, fg.DetectShadows)
}

func TestLoad_LongFlags(t *testing.T) {
	cfg, err := load(t, "--cameraid", "1", "--tolerance", "0", "--output", "pipe")
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.CameraID)
	assert.Equal(t, 0, cfg.Tolerance)
	assert.Equal(t, "pipe", cfg.Output)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("POINTCAST_TOLERANCE", "42")
	t.Setenv("POINTCAST_LOG_FORMAT", "json")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Tolerance)
	assert.Equal(t, "json", cfg.LogFormat)

	// Flags win over the environment.
	cfg, err = load(t, "-t", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Tolerance)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pointcast.yaml")
	yaml := "cameraid: 4\ntolerance: 15\nsubtractor: diff\nwidth: 800\nheight: 600\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := load(t, "--config", path, "-t", "20")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.CameraID)
	assert.Equal(t, 20, cfg.Tolerance)
	assert.Equal(t, capture.KindDiff, cfg.Subtractor)
	assert.Equal(t, &image.Point{X: 800, Y: 600}, cfg.Target())
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := load(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestLoad_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "single dimension", args: []string{"640"}},
		{name: "three positionals", args: []string{"1", "2", "3"}},
		{name: "non numeric width", args: []string{"wide", "480"}},
		{name: "non numeric height", args: []string{"640", "tall"}},
		{name: "zero height", args: []string{"640", "0"}},
		{name: "negative size", args: []string{"-1", "-1"}},
		{name: "negative tolerance", args: []string{"-t", "-5"}},
		{name: "negative camera", args: []string{"-c", "-1"}},
		{name: "zero fps", args: []string{"--fps", "0"}},
		{name: "unknown subtractor", args: []string{"--subtractor", "gmg"}},
		{name: "unknown log format", args: []string{"--log-format", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := NewFlagSet("pointcast")
			// "-1" would otherwise parse as a flag.
			args := tt.args
			if tt.name == "negative size" {
				args = append([]string{"--"}, args...)
			}
			require.NoError(t, fs.Parse(args))

			_, err := Load(fs)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	fs := NewFlagSet("pointcast")
	fs.SetOutput(new(discard))
	assert.Error(t, fs.Parse([]string{"--bogus"}))
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }
