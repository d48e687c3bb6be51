package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Second, cfg.Popup.PollInterval.Duration())
	assert.Equal(t, 5*time.Second, cfg.Popup.TTL.Duration())
	assert.Equal(t, time.Second, cfg.Popup.FadeOut.Duration())
	assert.Equal(t, 250*time.Millisecond, cfg.Popup.DismissFade.Duration())
	assert.Equal(t, 256, cfg.Popup.QueueSize)
	assert.Equal(t, "bottom-right", cfg.Display.Position)
	assert.Equal(t, DefaultNormalColor, cfg.Display.Colors.Normal)
	assert.Equal(t, DefaultErrorColor, cfg.Display.Colors.Error)
	assert.True(t, cfg.DBus.Enabled)
	assert.False(t, cfg.Audio.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/notiwin.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notiwin.toml")

	content := `
[popup]
poll_interval = "500ms"
ttl = "3000"
fade_out = "2s"
dismiss_fade = "0"
queue_size = 8

[display]
position = "top-left"
font = "Monospace 9"

[display.colors]
normal = "#000000"
error = "#ff0000"

[dbus]
rate_limit = 5.5
burst = 3

[audio]
enabled = true
volume = 40
error_sound = "~/sounds/error.wav"

[metrics]
addr = "127.0.0.1:9464"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Popup.PollInterval.Duration())
	assert.Equal(t, 3*time.Second, cfg.Popup.TTL.Duration())
	assert.Equal(t, 2*time.Second, cfg.Popup.FadeOut.Duration())
	assert.Equal(t, time.Duration(0), cfg.Popup.DismissFade.Duration())
	assert.Equal(t, 8, cfg.Popup.QueueSize)
	assert.Equal(t, "top-left", cfg.Display.Position)
	assert.Equal(t, "Monospace 9", cfg.Display.Font)
	assert.Equal(t, "#ff0000", cfg.Display.Colors.Error)
	assert.InDelta(t, 5.5, cfg.DBus.RateLimit, 1e-9)
	assert.Equal(t, 3, cfg.DBus.Burst)
	assert.True(t, cfg.Audio.Enabled)
	assert.Equal(t, 40, cfg.Audio.Volume)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Addr)

	// Unchanged fields keep defaults
	assert.Equal(t, 10, cfg.Display.OffsetX)
	assert.Equal(t, 400, cfg.Display.Width)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notiwin.toml")
	require.NoError(t, os.WriteFile(path, []byte(`this is not valid toml [`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notiwin.toml")
	require.NoError(t, os.WriteFile(path, []byte("[popup]\nttl = \"soon\"\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_FailsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notiwin.toml")
	require.NoError(t, os.WriteFile(path, []byte("[popup]\nttl = \"-1s\"\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttl must not be negative")
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "notiwin.toml")

	cfg := DefaultConfig()
	cfg.Popup.TTL = Duration(42 * time.Second)
	cfg.Display.Colors.Normal = "#112233"

	require.NoError(t, Save(cfg, path))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero ttl allowed", func(c *Config) { c.Popup.TTL = 0 }, ""},
		{"zero fade allowed", func(c *Config) { c.Popup.FadeOut = 0 }, ""},
		{"negative fade", func(c *Config) { c.Popup.FadeOut = Duration(-time.Second) }, "fade_out must not be negative"},
		{"negative dismiss fade", func(c *Config) { c.Popup.DismissFade = Duration(-1) }, "dismiss_fade must not be negative"},
		{"zero poll", func(c *Config) { c.Popup.PollInterval = 0 }, "poll_interval must be greater than zero"},
		{"queue size", func(c *Config) { c.Popup.QueueSize = 0 }, "queue_size"},
		{"position", func(c *Config) { c.Display.Position = "middle" }, "invalid position"},
		{"negative offset", func(c *Config) { c.Display.OffsetY = -5 }, "offsets must not be negative"},
		{"width", func(c *Config) { c.Display.Width = 10 }, "width"},
		{"max rows", func(c *Config) { c.Display.MaxRows = 0 }, "max_rows"},
		{"normal colour", func(c *Config) { c.Display.Colors.Normal = "blue" }, "invalid normal colour"},
		{"error colour", func(c *Config) { c.Display.Colors.Error = "#zzzzzz" }, "invalid error colour"},
		{"rate limit", func(c *Config) { c.DBus.RateLimit = -1 }, "rate_limit"},
		{"volume", func(c *Config) { c.Audio.Volume = 101 }, "volume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"250", 250 * time.Millisecond, false},
		{"0", 0, false},
		{"5s", 5 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"250ms", 250 * time.Millisecond, false},
		{"later", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestDuration_MarshalText(t *testing.T) {
	out, err := toml.Marshal(struct {
		D Duration `toml:"d"`
	}{D: Duration(1500 * time.Millisecond)})
	require.NoError(t, err)
	assert.Contains(t, string(out), "1.5s")

	assert.Equal(t, 1500, Duration(1500*time.Millisecond).Milliseconds())
}

func TestColorConfig_Background(t *testing.T) {
	c := ColorConfig{Normal: "#3B4252", Error: "#f00"}

	assert.Equal(t, "#3b4252", c.Background(false))
	assert.Equal(t, "#ff0000", c.Background(true))

	bad := ColorConfig{Normal: "nope"}
	assert.Equal(t, "nope", bad.Background(false))
}

func TestAudioConfig_ErrorSoundPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c := AudioConfig{ErrorSound: "~/sounds/error.wav"}
	assert.Equal(t, filepath.Join(home, "sounds", "error.wav"), c.ErrorSoundPath())

	c.ErrorSound = "/abs/error.wav"
	assert.Equal(t, "/abs/error.wav", c.ErrorSoundPath())
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("notiwin", "notiwin.toml"), filepath.Join(filepath.Base(filepath.Dir(Path())), filepath.Base(Path())))
}
