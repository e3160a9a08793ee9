package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := decode(v)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "http://localhost:12800", cfg.Collector.URL)
	assert.Equal(t, 30*time.Second, cfg.Collector.GetTimeoutDuration())
	assert.Equal(t, 10*time.Minute, cfg.Cache.GetTTLDuration())
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 1200.0, cfg.Layout.DefaultWidth)
	assert.Equal(t, 36, cfg.Layout.LaneHeight)
	assert.Equal(t, 10.0, cfg.Layout.ProximityPx)
	assert.Equal(t, time.UTC, cfg.Layout.GetLocation())
}

func TestYAMLOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
app:
  port: 9000
  log_level: debug
collector:
  timeout: 5s
layout:
  default_width: 800
  palette: ["#000000", "#ffffff"]
  timezone: Europe/Berlin
`)))

	cfg, err := decode(v)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, slog.LevelDebug, cfg.App.SlogLevel())
	assert.Equal(t, 5*time.Second, cfg.Collector.GetTimeoutDuration())
	assert.Equal(t, 800.0, cfg.Layout.DefaultWidth)
	assert.Equal(t, []string{"#000000", "#ffffff"}, cfg.Layout.Palette)
	assert.Equal(t, "Europe/Berlin", cfg.Layout.Timezone)
}

func TestDecodeRejectsBadWidths(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("layout.default_width", 0)
	_, err := decode(v)
	assert.Error(t, err)

	v = viper.New()
	setDefaults(v)
	v.Set("layout.max_width", 100)
	_, err = decode(v)
	assert.Error(t, err)
}

func TestGetLocationFallback(t *testing.T) {
	c := LayoutConfig{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, c.GetLocation())
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			c := AppConfig{LogLevel: tt.level}
			assert.Equal(t, tt.expected, c.SlogLevel())
		})
	}
}
