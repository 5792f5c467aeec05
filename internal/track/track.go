package track

import "strings"

// Identity describes the track a player reports.
type Identity struct {
	ID         string
	Title      string
	Artists    []string
	Album      string
	DurationMs int64
	ArtworkURL string
}

func (t *Identity) IsValid() bool {
	if t == nil {
		return false
	}
	return t.Title != "" && len(t.Artists) > 0
}

// Key identifies the track for change detection. Players that expose no
// track id are keyed by title and artists.
func (t *Identity) Key() string {
	if t == nil {
		return ""
	}
	if t.ID != "" {
		return t.ID
	}
	if t.Title == "" {
		return ""
	}
	return t.Title + "|" + t.DisplayArtists()
}

func (t *Identity) DisplayArtists() string {
	if t == nil {
		return ""
	}
	return strings.Join(t.Artists, ", ")
}

// DurationSecs is the duration truncated to whole seconds.
func (t *Identity) DurationSecs() int64 {
	if t == nil || t.DurationMs <= 0 {
		return 0
	}
	return t.DurationMs / 1000
}

func (t *Identity) IsSameTrack(other *Identity) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Key() == other.Key()
}

func (t *Identity) Clone() *Identity {
	if t == nil {
		return nil
	}
	c := *t
	c.Artists = append([]string(nil), t.Artists...)
	return &c
}
