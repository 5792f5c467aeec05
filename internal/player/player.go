package player

import (
	"context"
	"time"

	"karolbroda.com/lyrelay/internal/track"
)

// Playback is one read of the player.
type Playback struct {
	Track      track.Identity
	ProgressMs int64
	Playing    bool
	ObservedAt time.Time
}

// Source reports what is playing. A nil Playback with a nil error means
// nothing is playing, or the item is not a track.
type Source interface {
	CurrentPlayback(ctx context.Context) (*Playback, error)
}

// Notifier is implemented by sources that can push a hint when playback
// changes between polls.
type Notifier interface {
	Changes() <-chan struct{}
}
