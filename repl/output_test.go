package main

import (
	"bytes"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paranoid-AF/surmiser"
)

func TestCRLFWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &crlfWriter{w: &buf}
	n, err := w.Write([]byte("a\nb\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, n, "reports the original length")
	assert.Equal(t, "a\r\nb\r\n", buf.String())
}

func TestWriteEntry(t *testing.T) {
	var buf bytes.Buffer
	s := surmiser.Suggestion{Completion: "leted \"now\"", Confidence: 0.9, ProviderID: "local-predictive"}
	require.NoError(t, writeEntry(&buf, "completed \"now\"", s))
	require.NoError(t, writeEntry(&buf, "second", surmiser.Suggestion{Completion: "nd"}))
	assert.Contains(t, buf.String(), "[[accepted]]")

	var log struct {
		Accepted []acceptEntry `toml:"accepted"`
	}
	_, err := toml.Decode(buf.String(), &log)
	require.NoError(t, err, "log is not valid TOML:\n%s", buf.String())
	require.Len(t, log.Accepted, 2)

	got := log.Accepted[0]
	assert.Equal(t, "completed \"now\"", got.Text)
	assert.Equal(t, "leted \"now\"", got.Completion)
	assert.Equal(t, "local-predictive", got.Provider)
	assert.False(t, got.Timestamp.IsZero(), "expected timestamp")
}
