package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV writes a short silent WAV file and returns its path.
func writeWAV(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	format := beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(800), format))
	return path
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := writeWAV(t, dir, "error.wav")

	buffer, err := decodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, beep.SampleRate(8000), buffer.Format().SampleRate)
	assert.Equal(t, 800, buffer.Len())
}

func TestDecodeFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := decodeFile(filepath.Join(dir, "missing.wav"))
	assert.ErrorContains(t, err, "failed to open sound file")

	flac := filepath.Join(dir, "sound.flac")
	require.NoError(t, os.WriteFile(flac, []byte("fLaC"), 0o600))
	_, err = decodeFile(flac)
	assert.ErrorContains(t, err, "unsupported audio format")

	junk := filepath.Join(dir, "junk.wav")
	require.NoError(t, os.WriteFile(junk, []byte("not a wav file"), 0o600))
	_, err = decodeFile(junk)
	assert.ErrorContains(t, err, "failed to decode sound")
}

func TestPlayer_Cache(t *testing.T) {
	dir := t.TempDir()
	path := writeWAV(t, dir, "error.wav")

	p := NewPlayer(nil)
	require.NoError(t, p.Preload(path))
	assert.True(t, p.Cached(path))

	p.Invalidate(path)
	assert.False(t, p.Cached(path))

	require.NoError(t, p.Preload(""))
	assert.Error(t, p.Preload(filepath.Join(dir, "missing.wav")))
	assert.NoError(t, p.Play(""))
}

func TestPlayer_Volume(t *testing.T) {
	p := NewPlayer(nil)
	assert.InDelta(t, 1.0, p.Volume(), 0)

	p.SetVolume(0.4)
	assert.InDelta(t, 0.4, p.Volume(), 1e-9)
	p.SetVolume(-1)
	assert.InDelta(t, 0, p.Volume(), 0)
	p.SetVolume(3)
	assert.InDelta(t, 1, p.Volume(), 0)
}

func TestVolumeToDecibels(t *testing.T) {
	assert.InDelta(t, 0, volumeToDecibels(1), 1e-9)
	assert.InDelta(t, -6.02, volumeToDecibels(0.5), 0.01)
	assert.InDelta(t, -20, volumeToDecibels(0.1), 1e-9)
	assert.InDelta(t, -100, volumeToDecibels(0), 0)
}
