package config

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReloadsOnChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping file watcher test")
	}
	path := writeConfig(t, sample)

	var (
		mu   sync.Mutex
		seen []Config
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, zerolog.Nop(), func(c Config) {
			mu.Lock()
			seen = append(seen, c)
			mu.Unlock()
		})
	}()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	// An invalid edit is skipped.
	require.NoError(t, os.WriteFile(path, []byte(`frame_rate = -1`), 0o644))
	time.Sleep(2 * reloadDelay)

	updated := sample + `
[[artworks]]
reference_image = "the-scream"
template = "guide-fox"
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	last := seen[len(seen)-1]
	require.Len(t, last.Artworks, 3)
	assert.Equal(t, "the-scream", last.Artworks[2].ReferenceImage)
	for _, c := range seen {
		assert.Equal(t, 60, c.FrameRate, "invalid configs never reach the callback")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), "/does/not/exist/museumguide.toml", zerolog.Nop(), func(Config) {})
	assert.Error(t, err)
}
