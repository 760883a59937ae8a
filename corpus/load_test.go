package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paranoid-AF/surmiser"
	defaults "github.com/Paranoid-AF/surmiser/default"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileFormats(t *testing.T) {
	dir := t.TempDir()
	want := []string{"good morning", "see you soon"}

	tests := map[string]string{
		"phrases.txt":  "# greetings\ngood morning\n\n  see you soon  \n",
		"phrases.json": `{"phrases": ["good morning", "see you soon", " "]}`,
		"phrases.toml": "phrases = [\"good morning\", \"see you soon\"]\n",
		"phrases.yaml": "phrases:\n  - good morning\n  - see you soon\n",
		"phrases.yml":  "phrases: [good morning, see you soon]\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, name, content)
			got, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFile(writeFile(t, dir, "phrases.csv", "a,b"))
	assert.ErrorContains(t, err, "unsupported corpus format")

	_, err = LoadFile(writeFile(t, dir, "broken.json", "{"))
	assert.Error(t, err)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "one\n")
	b := writeFile(t, dir, "b.toml", "phrases = [\"two\"]\n")

	got, err := LoadFiles([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestCompose(t *testing.T) {
	own := []string{"mine"}

	assert.Equal(t, []string{"mine"}, Compose([]string{"base"}, own, surmiser.CorpusReplace))
	assert.Equal(t, []string{"base", "mine"}, Compose([]string{"base"}, own, surmiser.CorpusAppend))

	got := Compose(nil, own, surmiser.CorpusAppend)
	assert.Equal(t, append(defaults.DefaultCorpus(), "mine"), got)
}

func TestWatchReloadsCorpus(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "phrases.txt", "good morning\n")

	p := NewPredictive([]string{"good morning"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{path}, func() ([]string, error) { return LoadFile(path) }, p)
	}()

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("good morning\ngood evening\n"), 0o644))

	assert.Eventually(t, func() bool { return p.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchKeepsCorpusOnReloadFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "phrases.json", `{"phrases": ["good morning"]}`)

	p := NewPredictive([]string{"good morning"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan struct{}, 1)
	go Watch(ctx, []string{path}, func() ([]string, error) {
		defer func() {
			select {
			case reloaded <- struct{}{}:
			default:
			}
		}()
		return LoadFile(path)
	}, p)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("reload was not attempted")
	}
	assert.Equal(t, 1, p.Len())
}
