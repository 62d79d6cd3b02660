package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moncal/internal/config"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Listen = "0.0.0.0:9090"

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "http://127.0.0.1:9090/", opts.URL)
	assert.Equal(t, config.DefaultSnapshotOutput, opts.OutputPath)
	assert.Equal(t, config.DefaultSnapshotWidth, opts.Width)
	assert.Equal(t, config.DefaultSnapshotHeight, opts.Height)
	assert.Equal(t, DefaultTimeout, opts.Timeout)
}

func TestDialAddr(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:8080": "127.0.0.1:8080",
		":8080":          "127.0.0.1:8080",
		"[::]:8080":      "127.0.0.1:8080",
		"cal.lan:80":     "cal.lan:80",
		"no-port":        "no-port",
	}
	for in, want := range cases {
		assert.Equal(t, want, dialAddr(in), in)
	}
}

func TestWithMonth(t *testing.T) {
	got, err := WithMonth("http://127.0.0.1:8080/", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/?month=2024-03", got)

	got, err = WithMonth("http://cal.lan/?theme=dark&month=2023-01", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "http://cal.lan/?month=2024-03&theme=dark", got)

	_, err = WithMonth("http://cal.lan/", "2024-13")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	_, err := Options{OutputPath: "x.png"}.normalize()
	assert.Error(t, err)

	_, err = Options{URL: "http://localhost/"}.normalize()
	assert.Error(t, err)

	opts, err := Options{URL: "http://localhost/", OutputPath: "x.png"}.normalize()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSnapshotWidth, opts.Width)
	assert.Equal(t, config.DefaultSnapshotHeight, opts.Height)
	assert.Equal(t, DefaultTimeout, opts.Timeout)
}

func TestSnapshot_ValidatesBeforeLaunching(t *testing.T) {
	err := Snapshot(context.Background(), Options{})
	assert.ErrorContains(t, err, "URL is required")
}
