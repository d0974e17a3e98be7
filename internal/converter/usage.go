package converter

import (
	"context"
	"log/slog"
	"slices"

	"github.com/nikhilbhutani/speakify/internal/models"
)

// RefreshUsage replaces the held usage snapshot with a freshly fetched one.
// Failures are logged and never shown to the user; the previous snapshot stays.
//
// The converter also calls this after every successful conversion. When
// refreshes overlap, a response is dropped if a later refresh has started.
func (c *Converter) RefreshUsage(ctx context.Context) {
	c.mu.Lock()
	c.usageGen++
	gen := c.usageGen
	c.mu.Unlock()

	snap, err := c.transport.FetchUsageSnapshot(ctx)
	if err != nil {
		slog.Warn("usage refresh failed, keeping previous snapshot", "error", err)
		return
	}
	if snap == nil {
		slog.Warn("usage refresh returned no snapshot, keeping previous snapshot")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.usageGen {
		slog.Debug("discarding stale usage snapshot", "generation", gen)
		return
	}
	c.usage = *snap
}

func (c *Converter) Usage() models.UsageSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// LoadVoices fetches the voice catalog. An unavailable catalog is treated as an
// empty one, in which case the default voice is used. If the selected voice is
// not in a non-empty catalog, the first catalog voice is selected.
func (c *Converter) LoadVoices(ctx context.Context) []models.Voice {
	voices, err := c.transport.FetchVoices(ctx)
	if err != nil {
		slog.Warn("voice catalog unavailable, using default voice", "voice", c.limits.DefaultVoice, "error", err)
		voices = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.voices = slices.Clone(voices)
	if len(c.voices) == 0 {
		if c.tts.voice == "" {
			c.tts.voice = c.limits.DefaultVoice
		}
		return nil
	}

	known := slices.ContainsFunc(c.voices, func(v models.Voice) bool { return v.ID == c.tts.voice })
	if !known {
		c.tts.voice = c.voices[0].ID
	}
	return slices.Clone(c.voices)
}

func (c *Converter) Voices() []models.Voice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.voices)
}
